package memory_test

import (
	"context"
	"io"
	"strings"
	"sync"
	"testing"

	"github.com/indrealty/realty-cms/pkg/realtycms"
	memorystorage "github.com/indrealty/realty-cms/pkg/realtycms/storage/memory"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryBackend(t *testing.T) {
	backend := memorystorage.New()
	ctx := context.Background()
	testKey := "images/uploads/ab/cdef_villa.png"
	testData := "\x89PNG fake image bytes"

	t.Run("UploadWithParams", func(t *testing.T) {
		err := backend.UploadWithParams(ctx, strings.NewReader(testData), realtycms.UploadParams{
			ObjectKey: testKey,
			MimeType:  "image/png",
		})
		require.NoError(t, err)
	})

	t.Run("GetObjectMeta", func(t *testing.T) {
		meta, err := backend.GetObjectMeta(ctx, testKey)
		require.NoError(t, err)
		assert.Equal(t, testKey, meta.Key)
		assert.Equal(t, int64(len(testData)), meta.Size)
		assert.Equal(t, "image/png", meta.ContentType)
	})

	t.Run("Upload defaults mime type", func(t *testing.T) {
		require.NoError(t, backend.Upload(ctx, "raw", strings.NewReader("x")))
		meta, err := backend.GetObjectMeta(ctx, "raw")
		require.NoError(t, err)
		assert.Equal(t, "application/octet-stream", meta.ContentType)
	})

	t.Run("Download", func(t *testing.T) {
		reader, err := backend.Download(ctx, testKey)
		require.NoError(t, err)
		defer reader.Close()

		data, err := io.ReadAll(reader)
		require.NoError(t, err)
		assert.Equal(t, testData, string(data))
	})

	t.Run("GetPublicURL", func(t *testing.T) {
		url, err := backend.GetPublicURL(ctx, testKey)
		require.NoError(t, err)
		assert.Equal(t, "/public/"+testKey, url)
	})

	t.Run("Delete", func(t *testing.T) {
		require.NoError(t, backend.Delete(ctx, testKey))
		_, err := backend.Download(ctx, testKey)
		assert.ErrorIs(t, err, realtycms.ErrObjectNotFound)
		assert.ErrorIs(t, backend.Delete(ctx, testKey), realtycms.ErrNotFound)
	})
}

func TestMemoryBackend_ConcurrentUploads(t *testing.T) {
	backend := memorystorage.New()
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			key := "k/" + string(rune('a'+i))
			assert.NoError(t, backend.UploadWithParams(ctx, strings.NewReader("data"), realtycms.UploadParams{ObjectKey: key, MimeType: "image/gif"}))
		}(i)
	}
	wg.Wait()

	meta, err := backend.GetObjectMeta(ctx, "k/a")
	require.NoError(t, err)
	assert.Equal(t, "image/gif", meta.ContentType)
}
