package realtycms

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"github.com/indrealty/realty-cms/pkg/realtycms/objectkey"
	"github.com/indrealty/realty-cms/pkg/realtycms/urlstrategy"
)

// DefaultMaxImageBytes is the upload limit applied when none is configured.
const DefaultMaxImageBytes int64 = 1 << 20

var allowedImageTypes = map[string]string{
	".jpeg": "image/jpeg",
	".jpg":  "image/jpeg",
	".png":  "image/png",
	".webp": "image/webp",
	".avif": "image/avif",
	".gif":  "image/gif",
}

// ImageUpload is an image file received from a client.
type ImageUpload struct {
	Reader      io.Reader
	FileName    string
	ContentType string
	Size        int64
}

// StoredImage locates an uploaded image.
type StoredImage struct {
	Key string
	URL string
}

// ImageUploader stores images and removes them again when the content they
// were uploaded for could not be saved.
type ImageUploader interface {
	UploadImage(ctx context.Context, folder string, upload ImageUpload) (*StoredImage, error)
	DeleteImage(ctx context.Context, key string) error
}

// ImageService stores images in a BlobStore under generated keys.
type ImageService struct {
	store    BlobStore
	keys     objectkey.Generator
	urls     urlstrategy.URLStrategy
	maxBytes int64
}

// ImageOption configures an ImageService.
type ImageOption func(*ImageService)

// WithKeyGenerator sets the object key generator
func WithKeyGenerator(g objectkey.Generator) ImageOption {
	return func(s *ImageService) {
		s.keys = g
	}
}

// WithURLStrategy sets how public image URLs are built
func WithURLStrategy(u urlstrategy.URLStrategy) ImageOption {
	return func(s *ImageService) {
		s.urls = u
	}
}

// WithMaxImageBytes sets the upload size limit
func WithMaxImageBytes(n int64) ImageOption {
	return func(s *ImageService) {
		if n > 0 {
			s.maxBytes = n
		}
	}
}

// NewImageService creates an image service on top of store.
func NewImageService(store BlobStore, opts ...ImageOption) (*ImageService, error) {
	if store == nil {
		return nil, errors.New("blob store is required")
	}
	s := &ImageService{
		store:    store,
		keys:     objectkey.NewRecommendedGenerator(),
		maxBytes: DefaultMaxImageBytes,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.urls == nil {
		s.urls = urlstrategy.NewStorageDelegatedStrategy(store)
	}
	return s, nil
}

// MaxBytes returns the configured size limit.
func (s *ImageService) MaxBytes() int64 {
	return s.maxBytes
}

// UploadImage validates and stores an image, returning its key and public URL.
func (s *ImageService) UploadImage(ctx context.Context, folder string, upload ImageUpload) (*StoredImage, error) {
	mimeType, err := checkImage(upload)
	if err != nil {
		return nil, err
	}
	if upload.Size > s.maxBytes {
		return nil, fmt.Errorf("%w: file exceeds %d bytes", ErrInvalidImage, s.maxBytes)
	}

	key := s.keys.GenerateKey(uuid.New(), &objectkey.KeyMetadata{
		FileName: upload.FileName,
		Folder:   folder,
	})
	reader := &limitedReader{r: upload.Reader, remaining: s.maxBytes}
	if err := s.store.UploadWithParams(ctx, reader, UploadParams{ObjectKey: key, MimeType: mimeType}); err != nil {
		if errors.Is(err, ErrInvalidImage) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to store image: %w", err)
	}

	url, err := s.urls.ImageURL(ctx, key)
	if err != nil {
		return nil, fmt.Errorf("failed to build image url: %w", err)
	}
	return &StoredImage{Key: key, URL: url}, nil
}

// DeleteImage removes a stored image. Missing images are not an error.
func (s *ImageService) DeleteImage(ctx context.Context, key string) error {
	if err := s.store.Delete(ctx, key); err != nil && !errors.Is(err, ErrObjectNotFound) {
		return fmt.Errorf("failed to delete image %s: %w", key, err)
	}
	return nil
}

// OpenImage returns the metadata and content of a stored image. The caller
// closes the reader.
func (s *ImageService) OpenImage(ctx context.Context, key string) (*ObjectMeta, io.ReadCloser, error) {
	meta, err := s.store.GetObjectMeta(ctx, key)
	if err != nil {
		return nil, nil, err
	}
	rc, err := s.store.Download(ctx, key)
	if err != nil {
		return nil, nil, err
	}
	return meta, rc, nil
}

func checkImage(upload ImageUpload) (string, error) {
	if upload.Reader == nil {
		return "", fmt.Errorf("%w: no file uploaded", ErrValidation)
	}
	ext := strings.ToLower(filepath.Ext(upload.FileName))
	mimeType, ok := allowedImageTypes[ext]
	if !ok {
		return "", fmt.Errorf("%w: only jpeg, jpg, png, webp, avif and gif files are allowed", ErrInvalidImage)
	}
	if ct := strings.ToLower(strings.TrimSpace(upload.ContentType)); ct != "" {
		if ct == "image/jpg" {
			ct = "image/jpeg"
		}
		if ct != mimeType && !strings.HasPrefix(ct, mimeType+";") {
			return "", fmt.Errorf("%w: content type %s does not match %s", ErrInvalidImage, upload.ContentType, ext)
		}
	}
	return mimeType, nil
}

// limitedReader fails once more than remaining bytes were read.
type limitedReader struct {
	r         io.Reader
	remaining int64
}

func (l *limitedReader) Read(p []byte) (int, error) {
	n, err := l.r.Read(p)
	l.remaining -= int64(n)
	if l.remaining < 0 {
		return n, fmt.Errorf("%w: file too large", ErrInvalidImage)
	}
	return n, err
}
