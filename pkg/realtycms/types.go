package realtycms

import (
	"encoding/json"
	"maps"
	"slices"
	"time"

	"github.com/google/uuid"
)

// SeoMetadata is embedded in every content item and shares its lifecycle.
type SeoMetadata struct {
	MetaTitle       string         `json:"metaTitle"`
	MetaDescription string         `json:"metaDescription"`
	Slug            string         `json:"slug"`
	Keywords        []string       `json:"keywords"`
	OgTitle         string         `json:"ogTitle"`
	OgDescription   string         `json:"ogDescription"`
	OgImage         string         `json:"ogImage"`
	TwitterCard     string         `json:"twitterCard"`
	CanonicalURL    string         `json:"canonicalUrl"`
	StructuredData  map[string]any `json:"structuredData,omitempty"`
}

// NewsMeta is only consumed by the news sitemap.
type NewsMeta struct {
	PublicationDate time.Time `json:"publicationDate"`
	Genres          []string  `json:"genres"`
	StockTickers    []string  `json:"stockTickers"`
}

// AuthorRef is the populated author of a content item.
type AuthorRef struct {
	ID       uuid.UUID `json:"_id"`
	Username string    `json:"username"`
	Email    string    `json:"email"`
}

// Item is a content item of any kind. E carries the kind-specific fields.
type Item[E Extra] struct {
	ID          uuid.UUID
	PID         string
	AuthorID    uuid.UUID
	Author      *AuthorRef
	Title       string
	Summary     string
	Description string
	ImageURL    string
	Locations   []string
	Categories  []string
	IsTop       bool
	IsNews      bool
	NewsMeta    NewsMeta
	SEO         SeoMetadata
	Extra       E
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// Kind reports the kind of the item.
func (it *Item[E]) Kind() Kind {
	return it.Extra.Kind()
}

// Clone returns a deep copy of the item.
func (it *Item[E]) Clone() *Item[E] {
	cp := *it
	if it.Author != nil {
		a := *it.Author
		cp.Author = &a
	}
	cp.Locations = slices.Clone(it.Locations)
	cp.Categories = slices.Clone(it.Categories)
	cp.NewsMeta.Genres = slices.Clone(it.NewsMeta.Genres)
	cp.NewsMeta.StockTickers = slices.Clone(it.NewsMeta.StockTickers)
	cp.SEO.Keywords = slices.Clone(it.SEO.Keywords)
	cp.SEO.StructuredData = maps.Clone(it.SEO.StructuredData)
	cp.Extra = cloneExtra(it.Extra)
	return &cp
}

type itemJSON struct {
	ID          uuid.UUID   `json:"_id"`
	PID         string      `json:"pid"`
	Author      any         `json:"author"`
	Title       string      `json:"title"`
	Summary     string      `json:"summary"`
	Description string      `json:"description"`
	ImageURL    string      `json:"imageUrl"`
	Locations   []string    `json:"locations"`
	Categories  []string    `json:"categories"`
	IsNews      bool        `json:"isNews"`
	NewsMeta    NewsMeta    `json:"newsMeta"`
	SEO         SeoMetadata `json:"seo"`
	CreatedAt   time.Time   `json:"createdAt"`
	UpdatedAt   time.Time   `json:"updatedAt"`
}

// MarshalJSON flattens the kind-specific fields next to the common ones and
// names the top flag after the kind (isTopProperty, isTopInvestment, ...).
func (it Item[E]) MarshalJSON() ([]byte, error) {
	var author any = it.AuthorID
	if it.Author != nil {
		author = it.Author
	}
	base, err := json.Marshal(itemJSON{
		ID:          it.ID,
		PID:         it.PID,
		Author:      author,
		Title:       it.Title,
		Summary:     it.Summary,
		Description: it.Description,
		ImageURL:    it.ImageURL,
		Locations:   nonNil(it.Locations),
		Categories:  nonNil(it.Categories),
		IsNews:      it.IsNews,
		NewsMeta:    it.NewsMeta,
		SEO:         it.SEO,
		CreatedAt:   it.CreatedAt,
		UpdatedAt:   it.UpdatedAt,
	})
	if err != nil {
		return nil, err
	}

	fields := make(map[string]json.RawMessage)
	if err := json.Unmarshal(base, &fields); err != nil {
		return nil, err
	}
	extra, err := json.Marshal(it.Extra)
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal(extra, &fields); err != nil {
		return nil, err
	}
	top, _ := json.Marshal(it.IsTop)
	fields[SpecFor(it.Extra.Kind()).TopField] = top
	return json.Marshal(fields)
}

// User is an account known to the CMS. Only admins may write content.
type User struct {
	ID          uuid.UUID `json:"_id"`
	UID         string    `json:"uid"`
	Username    string    `json:"username"`
	Email       string    `json:"email"`
	DisplayName string    `json:"displayName"`
	PhotoURL    string    `json:"photoURL"`
	ProviderID  string    `json:"providerId"`
	IsAdmin     bool      `json:"isAdmin"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

// SlugRef is the SEO part kept in summary projections.
type SlugRef struct {
	Slug string `json:"slug"`
}

// Summary is the minimal projection used by lists, sidebars and search.
type Summary struct {
	ID          uuid.UUID  `json:"_id"`
	Type        Kind       `json:"type,omitempty"`
	Title       string     `json:"title"`
	ImageURL    string     `json:"imageUrl"`
	CreatedAt   time.Time  `json:"createdAt"`
	SEO         SlugRef    `json:"seo"`
	Author      *uuid.UUID `json:"author,omitempty"`
	Locations   []string   `json:"locations,omitempty"`
	Categories  []string   `json:"categories,omitempty"`
	Summary     string     `json:"summary,omitempty"`
	Description string     `json:"description,omitempty"`
	BuilderName string     `json:"builderName,omitempty"`
	Rating      float64    `json:"rating,omitempty"`
}

// Projection selects optional fields of a Summary.
type Projection uint8

const (
	WithType Projection = 1 << iota
	WithTags
	WithSummary
	WithDescription
	WithAuthor
)

// Brief is the projection used by top lists and sidebars.
const Brief Projection = 0

// Project builds a summary of the item. Builder name and rating are always
// kept for builder reviews.
func Project[E Extra](it *Item[E], p Projection) Summary {
	s := Summary{
		ID:        it.ID,
		Title:     it.Title,
		ImageURL:  it.ImageURL,
		CreatedAt: it.CreatedAt,
		SEO:       SlugRef{Slug: it.SEO.Slug},
	}
	if p&WithType != 0 {
		s.Type = it.Kind()
	}
	if p&WithTags != 0 {
		s.Locations = slices.Clone(it.Locations)
		s.Categories = slices.Clone(it.Categories)
	}
	if p&WithSummary != 0 {
		s.Summary = it.Summary
	}
	if p&WithDescription != 0 {
		s.Description = it.Description
	}
	if p&WithAuthor != 0 {
		id := it.AuthorID
		s.Author = &id
	}
	if br, ok := any(it.Extra).(BuilderReviewExtra); ok {
		s.BuilderName = br.BuilderName
		s.Rating = br.Rating
	}
	return s
}

// ProjectAll applies Project to every item.
func ProjectAll[E Extra](items []*Item[E], p Projection) []Summary {
	out := make([]Summary, 0, len(items))
	for _, it := range items {
		out = append(out, Project(it, p))
	}
	return out
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
