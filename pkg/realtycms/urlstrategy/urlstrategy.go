package urlstrategy

import (
	"context"
	"fmt"
	"strings"
)

// URLStrategy builds the public URL stored on content items for an image
type URLStrategy interface {
	ImageURL(ctx context.Context, objectKey string) (string, error)
}

// BlobStore is the part of a blob store needed for URL generation (kept
// local to avoid circular imports)
type BlobStore interface {
	GetPublicURL(ctx context.Context, objectKey string) (string, error)
}

// CDNStrategy generates URLs that point directly to a CDN or public bucket
type CDNStrategy struct {
	CDNBaseURL string // e.g., "https://cdn.example.com"
}

// NewCDNStrategy creates a new CDN URL strategy
func NewCDNStrategy(cdnBaseURL string) *CDNStrategy {
	return &CDNStrategy{CDNBaseURL: strings.TrimSuffix(cdnBaseURL, "/")}
}

// ImageURL joins the CDN base URL and the object key
func (s *CDNStrategy) ImageURL(ctx context.Context, objectKey string) (string, error) {
	if s.CDNBaseURL == "" {
		return "", fmt.Errorf("CDN base URL not configured")
	}
	return fmt.Sprintf("%s/%s", s.CDNBaseURL, strings.TrimPrefix(objectKey, "/")), nil
}

// StorageDelegatedStrategy delegates URL generation to the storage backend
type StorageDelegatedStrategy struct {
	Store BlobStore
}

// NewStorageDelegatedStrategy creates a new storage-delegated URL strategy
func NewStorageDelegatedStrategy(store BlobStore) *StorageDelegatedStrategy {
	return &StorageDelegatedStrategy{Store: store}
}

// ImageURL asks the backend for the public URL of the object
func (s *StorageDelegatedStrategy) ImageURL(ctx context.Context, objectKey string) (string, error) {
	if s.Store == nil {
		return "", fmt.Errorf("storage backend not configured")
	}
	return s.Store.GetPublicURL(ctx, objectKey)
}
