package realtycms

import (
	"time"
)

// NewsMetaInput is the caller supplied news metadata.
type NewsMetaInput struct {
	PublicationDate *time.Time `json:"publicationDate"`
	Genres          []string   `json:"genres"`
	StockTickers    []string   `json:"stockTickers"`
}

// CreateRequest contains parameters for creating a content item. Either Image
// or ImageURL must be set.
type CreateRequest[E Extra] struct {
	Title       string        `json:"title" validate:"required"`
	Summary     string        `json:"summary" validate:"required"`
	Description string        `json:"description" validate:"required"`
	ImageURL    string        `json:"imageUrl"`
	Image       *ImageUpload  `json:"-" validate:"-"`
	Locations   []string      `json:"locations" validate:"min=1,dive,required"`
	Categories  []string      `json:"categories" validate:"min=1,dive,required"`
	IsTop       bool          `json:"isTop"`
	IsNews      bool          `json:"isNews"`
	NewsMeta    NewsMetaInput `json:"newsMeta" validate:"-"`
	SEO         *SeoOverride  `json:"seo" validate:"-"`
	Extra       E             `json:"-"`
}

// UpdateRequest replaces the provided core fields. Nil fields are kept.
// PatchExtra, when set, edits the kind-specific fields in place.
type UpdateRequest[E Extra] struct {
	Title       *string
	Summary     *string
	Description *string
	ImageURL    *string
	Locations   []string
	Categories  []string
	IsNews      *bool
	NewsMeta    *NewsMetaInput
	PatchExtra  func(extra *E)
}

// ListQuery filters a listing. Page > 0 enables pagination.
type ListQuery struct {
	IsTop    *bool
	Search   string
	Category string
	Location string
	Page     int
	Limit    int
}

// DefaultPageSize is the page size used when a paginated query has no limit.
const DefaultPageSize = 4

// ListResult is a page of items.
type ListResult[E Extra] struct {
	Items   []*Item[E]
	Total   int
	Page    int
	Pages   int
	HasNext bool
}

// RegisterUserRequest contains parameters for registering a user profile.
type RegisterUserRequest struct {
	UID         string `json:"uid" validate:"required"`
	Email       string `json:"email" validate:"required,email"`
	Username    string `json:"username" validate:"required"`
	DisplayName string `json:"displayName"`
	PhotoURL    string `json:"photoURL"`
	ProviderID  string `json:"providerId"`
}

// CreateUserRequest is the operator path for creating users, including admins.
type CreateUserRequest struct {
	RegisterUserRequest
	IsAdmin bool
}
