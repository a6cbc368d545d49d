package fs

import (
	"bytes"
	"context"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/indrealty/realty-cms/pkg/realtycms"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFSBackend_BasicOps(t *testing.T) {
	tmp := t.TempDir()
	backend, err := New(Config{BaseDir: tmp, URLPrefix: "/public/"})
	require.NoError(t, err)

	ctx := context.Background()
	key := "images/properties/ab/cdef_villa.gif"
	data := []byte("GIF89a fake gif")

	require.NoError(t, backend.UploadWithParams(ctx, bytes.NewReader(data), realtycms.UploadParams{ObjectKey: key, MimeType: "image/gif"}))

	meta, err := backend.GetObjectMeta(ctx, key)
	require.NoError(t, err)
	assert.Equal(t, int64(len(data)), meta.Size)
	assert.Equal(t, "image/gif", meta.ContentType)

	rc, err := backend.Download(ctx, key)
	require.NoError(t, err)
	got, _ := io.ReadAll(rc)
	_ = rc.Close()
	assert.Equal(t, data, got)

	url, err := backend.GetPublicURL(ctx, key)
	require.NoError(t, err)
	assert.Equal(t, "/public/"+key, url)

	require.NoError(t, backend.Delete(ctx, key))
	_, err = os.Stat(filepath.Join(tmp, key))
	assert.True(t, os.IsNotExist(err))
	// Empty shard directories are removed as well
	_, err = os.Stat(filepath.Join(tmp, "images"))
	assert.True(t, os.IsNotExist(err))
}

func TestFSBackend_NotFound(t *testing.T) {
	backend, err := New(Config{BaseDir: t.TempDir()})
	require.NoError(t, err)
	ctx := context.Background()

	_, err = backend.Download(ctx, "missing.png")
	assert.ErrorIs(t, err, realtycms.ErrObjectNotFound)
	_, err = backend.GetObjectMeta(ctx, "missing.png")
	assert.ErrorIs(t, err, realtycms.ErrObjectNotFound)
	assert.ErrorIs(t, backend.Delete(ctx, "missing.png"), realtycms.ErrObjectNotFound)
}

func TestFSBackend_RejectsEscapingKeys(t *testing.T) {
	backend, err := New(Config{BaseDir: t.TempDir()})
	require.NoError(t, err)

	err = backend.Upload(context.Background(), "../../etc/passwd", bytes.NewReader([]byte("x")))
	assert.Error(t, err)
	_, err = backend.Download(context.Background(), "../outside.png")
	assert.Error(t, err)
}

func TestFSBackend_NoPrefix(t *testing.T) {
	backend, err := New(Config{BaseDir: t.TempDir()})
	require.NoError(t, err)

	_, err = backend.GetPublicURL(context.Background(), "a/b")
	assert.Error(t, err)
}

func TestFSBackend_RequiresBaseDir(t *testing.T) {
	_, err := New(Config{})
	assert.Error(t, err)
}
