package realtycms

import (
	"context"
	"io"
	"time"

	"github.com/google/uuid"
)

// SearchScope restricts which fields a free-text search looks at.
type SearchScope int

const (
	// SearchAll matches title, summary, description, SEO title, description
	// and keywords, locations, categories and, for builder reviews, the
	// builder name.
	SearchAll SearchScope = iota
	// SearchTitle matches the title only.
	SearchTitle
	// SearchBuilderName matches the builder name of builder reviews only.
	SearchBuilderName
)

// Order is the sort order of list results.
type Order int

const (
	OrderCreatedDesc Order = iota
	OrderPublicationDesc
)

// ListFilter describes a repository query. Zero values mean "no constraint".
type ListFilter struct {
	IsTop     *bool
	IsNews    *bool
	Search    string
	Scope     SearchScope
	Category  string
	Location  string
	ExcludeID uuid.UUID
	OrderBy   Order
	Limit     int
	Offset    int
}

// Repository persists content items of one kind.
type Repository[E Extra] interface {
	// Create stores a new item. Returns ErrDuplicateSlug or ErrDuplicatePID on
	// unique violations.
	Create(ctx context.Context, item *Item[E]) error
	Get(ctx context.Context, id uuid.UUID) (*Item[E], error)
	GetBySlug(ctx context.Context, slug string) (*Item[E], error)
	// Update replaces the stored item. Returns ErrDuplicateSlug when the slug
	// moved onto one already in use.
	Update(ctx context.Context, item *Item[E]) error
	Delete(ctx context.Context, id uuid.UUID) error
	List(ctx context.Context, filter ListFilter) ([]*Item[E], error)
	Count(ctx context.Context, filter ListFilter) (int, error)
	// SlugTaken reports whether another item than exclude uses slug.
	SlugTaken(ctx context.Context, slug string, exclude uuid.UUID) (bool, error)
}

// UserRepository persists users.
type UserRepository interface {
	CreateUser(ctx context.Context, user *User) error
	UpdateUser(ctx context.Context, user *User) error
	GetUser(ctx context.Context, id uuid.UUID) (*User, error)
	GetUserByUID(ctx context.Context, uid string) (*User, error)
	GetUserByUsername(ctx context.Context, username string) (*User, error)
}

// InterestRepository persists the append-only interest set of investments.
type InterestRepository interface {
	// AddInterest returns ErrDuplicateInterest if the pair already exists.
	AddInterest(ctx context.Context, itemID, userID uuid.UUID) error
	ListInterested(ctx context.Context, itemID uuid.UUID) ([]uuid.UUID, error)
}

// ObjectMeta describes a stored blob.
type ObjectMeta struct {
	Key         string
	Size        int64
	ContentType string
	UpdatedAt   time.Time
	ETag        string
	Metadata    map[string]string
}

// UploadParams contains parameters for uploading a blob.
type UploadParams struct {
	ObjectKey string
	MimeType  string
}

// BlobStore stores uploaded images.
type BlobStore interface {
	Upload(ctx context.Context, objectKey string, reader io.Reader) error
	UploadWithParams(ctx context.Context, reader io.Reader, params UploadParams) error
	Download(ctx context.Context, objectKey string) (io.ReadCloser, error)
	Delete(ctx context.Context, objectKey string) error
	GetObjectMeta(ctx context.Context, objectKey string) (*ObjectMeta, error)
	// GetPublicURL returns a stable URL for the object, or an error when the
	// backend cannot serve objects directly.
	GetPublicURL(ctx context.Context, objectKey string) (string, error)
}

// EventSink receives content lifecycle events.
type EventSink interface {
	ContentCreated(ctx context.Context, kind Kind, id uuid.UUID, slug string) error
	ContentUpdated(ctx context.Context, kind Kind, id uuid.UUID, op string) error
	ContentDeleted(ctx context.Context, kind Kind, id uuid.UUID) error
}
