package realtycms

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
)

// DefaultBaseURL is the public site root used for canonical URLs.
const DefaultBaseURL = "https://www.indrealty.org"

// topLimit is the size of top lists and sidebars.
const topLimit = 5

type settings struct {
	users     UserRepository
	images    ImageUploader
	eventSink EventSink
	baseURL   string
	now       func() time.Time
}

// Option represents a functional option for configuring content services
type Option func(*settings)

// WithUserRepository sets the repository used for admin checks
func WithUserRepository(users UserRepository) Option {
	return func(s *settings) {
		s.users = users
	}
}

// WithImageUploader sets where uploaded images are stored
func WithImageUploader(images ImageUploader) Option {
	return func(s *settings) {
		s.images = images
	}
}

// WithEventSink sets the event sink for the service
func WithEventSink(sink EventSink) Option {
	return func(s *settings) {
		s.eventSink = sink
	}
}

// WithBaseURL sets the public site root used for canonical URLs
func WithBaseURL(baseURL string) Option {
	return func(s *settings) {
		s.baseURL = baseURL
	}
}

// WithClock replaces time.Now, mostly for tests
func WithClock(now func() time.Time) Option {
	return func(s *settings) {
		s.now = now
	}
}

// ContentService implements the lifecycle of one content kind.
type ContentService[E Extra] struct {
	spec KindSpec
	repo Repository[E]
	settings
}

// NewContentService creates a content service for the kind of E.
func NewContentService[E Extra](repo Repository[E], options ...Option) (*ContentService[E], error) {
	s := &ContentService[E]{
		spec: SpecFor(kindOf[E]()),
		repo: repo,
		settings: settings{
			eventSink: NewNoopEventSink(),
			baseURL:   DefaultBaseURL,
			now:       time.Now,
		},
	}
	for _, option := range options {
		option(&s.settings)
	}

	if s.repo == nil {
		return nil, fmt.Errorf("repository is required")
	}
	if s.users == nil {
		return nil, fmt.Errorf("user repository is required")
	}
	return s, nil
}

// Kind returns the kind served by the service.
func (s *ContentService[E]) Kind() Kind {
	return s.spec.Kind
}

// Spec returns the constants of the kind served by the service.
func (s *ContentService[E]) Spec() KindSpec {
	return s.spec
}

// BaseURL returns the public site root.
func (s *ContentService[E]) BaseURL() string {
	return s.baseURL
}

// Create validates the request, derives slug and SEO metadata and stores a new item.
func (s *ContentService[E]) Create(ctx context.Context, req CreateRequest[E], actingUsername string) (*Item[E], error) {
	const op = "create"
	author, err := s.requireAdmin(ctx, op, actingUsername, "Admin access required")
	if err != nil {
		return nil, err
	}
	if req.Image == nil && req.ImageURL == "" {
		return nil, newError(s.spec.Kind, op, ErrValidation, "Either image file or imageUrl is required")
	}
	if err := validateStruct(req); err != nil {
		return nil, newError(s.spec.Kind, op, err, validationMessage(err))
	}

	var override SeoOverride
	if req.SEO != nil {
		override = *req.SEO
	}
	slug, err := ResolveSlug(req.Title, override.Slug)
	if err != nil {
		return nil, newError(s.spec.Kind, op, err, validationMessage(err))
	}

	imageURL := req.ImageURL
	var stored *StoredImage
	if req.Image != nil {
		if s.images == nil {
			return nil, newError(s.spec.Kind, op, ErrValidation, "Image uploads are not configured")
		}
		stored, err = s.images.UploadImage(ctx, s.spec.Folder, *req.Image)
		if err != nil {
			if errors.Is(err, ErrValidation) {
				return nil, newError(s.spec.Kind, op, err, validationMessage(err))
			}
			return nil, newError(s.spec.Kind, op, err, "")
		}
		imageURL = stored.URL
	}

	now := s.now().UTC()
	item := &Item[E]{
		ID:          uuid.New(),
		PID:         uuid.NewString(),
		AuthorID:    author.ID,
		Author:      &AuthorRef{ID: author.ID, Username: author.Username, Email: author.Email},
		Title:       req.Title,
		Summary:     req.Summary,
		Description: req.Description,
		ImageURL:    imageURL,
		Locations:   append([]string(nil), req.Locations...),
		Categories:  append([]string(nil), req.Categories...),
		IsTop:       req.IsTop,
		IsNews:      req.IsNews,
		NewsMeta:    newsMetaFrom(req.NewsMeta, now),
		Extra:       req.Extra,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	item.SEO.Slug = slug
	item.SEO = BuildSEO(seoInputOf(item), &override, s.baseURL, now)

	if err := s.repo.Create(ctx, item); err != nil {
		if stored != nil {
			if derr := s.images.DeleteImage(ctx, stored.Key); derr != nil {
				slog.WarnContext(ctx, "Failed to remove image of unsaved item", "kind", s.spec.Kind, "key", stored.Key, "err", derr)
			}
		}
		return nil, s.conflictError(op, err)
	}
	logSinkError(ctx, s.spec.Kind, op, s.eventSink.ContentCreated(ctx, s.spec.Kind, item.ID, slug))
	return item, nil
}

// Get returns an item by id with its author populated.
func (s *ContentService[E]) Get(ctx context.Context, id uuid.UUID) (*Item[E], error) {
	item, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, s.lookupError("get", err)
	}
	s.populateAuthor(ctx, item)
	return item, nil
}

// GetBySlug returns an item by slug together with up to five top items of
// the same kind, excluding the item itself.
func (s *ContentService[E]) GetBySlug(ctx context.Context, slug string) (*Item[E], []*Item[E], error) {
	item, err := s.repo.GetBySlug(ctx, slug)
	if err != nil {
		return nil, nil, s.lookupError("get_by_slug", err)
	}
	s.populateAuthor(ctx, item)

	isTop := true
	top, err := s.repo.List(ctx, ListFilter{IsTop: &isTop, ExcludeID: item.ID, Limit: topLimit})
	if err != nil {
		return nil, nil, newError(s.spec.Kind, "get_by_slug", err, "")
	}
	return item, top, nil
}

// List returns items sorted by creation time, newest first. Page > 0 enables
// pagination with DefaultPageSize when no limit is given.
func (s *ContentService[E]) List(ctx context.Context, q ListQuery) (*ListResult[E], error) {
	filter := ListFilter{
		IsTop:    q.IsTop,
		Search:   q.Search,
		Location: q.Location,
	}
	if q.Category != "all" {
		filter.Category = q.Category
	}

	if q.Page <= 0 {
		filter.Limit = max(q.Limit, 0)
		items, err := s.repo.List(ctx, filter)
		if err != nil {
			return nil, newError(s.spec.Kind, "list", err, "")
		}
		return &ListResult[E]{Items: items, Total: len(items), Page: 1, Pages: 1}, nil
	}

	limit := q.Limit
	if limit <= 0 {
		limit = DefaultPageSize
	}
	total, err := s.repo.Count(ctx, filter)
	if err != nil {
		return nil, newError(s.spec.Kind, "list", err, "")
	}
	filter.Limit = limit
	filter.Offset = (q.Page - 1) * limit
	items, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, newError(s.spec.Kind, "list", err, "")
	}
	pages := (total + limit - 1) / limit
	return &ListResult[E]{
		Items:   items,
		Total:   total,
		Page:    q.Page,
		Pages:   pages,
		HasNext: q.Page < pages,
	}, nil
}

// Top returns the five newest top items.
func (s *ContentService[E]) Top(ctx context.Context) ([]*Item[E], error) {
	isTop := true
	items, err := s.repo.List(ctx, ListFilter{IsTop: &isTop, Limit: topLimit})
	if err != nil {
		return nil, newError(s.spec.Kind, "top", err, "")
	}
	return items, nil
}

// Update replaces the provided core fields. SEO metadata is left untouched.
func (s *ContentService[E]) Update(ctx context.Context, id uuid.UUID, req UpdateRequest[E], actingUsername string) (*Item[E], error) {
	const op = "update"
	if _, err := s.requireAdmin(ctx, op, actingUsername, "Only admin users can update "+s.spec.Plural); err != nil {
		return nil, err
	}
	item, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, s.lookupError(op, err)
	}

	if req.Title != nil {
		item.Title = *req.Title
	}
	if req.Summary != nil {
		item.Summary = *req.Summary
	}
	if req.Description != nil {
		item.Description = *req.Description
	}
	if req.ImageURL != nil {
		item.ImageURL = *req.ImageURL
	}
	if req.Locations != nil {
		item.Locations = append([]string(nil), req.Locations...)
	}
	if req.Categories != nil {
		item.Categories = append([]string(nil), req.Categories...)
	}
	if req.IsNews != nil {
		item.IsNews = *req.IsNews
	}
	if req.NewsMeta != nil {
		item.NewsMeta = newsMetaFrom(*req.NewsMeta, item.NewsMeta.PublicationDate)
	}
	if req.PatchExtra != nil {
		req.PatchExtra(&item.Extra)
	}
	if err := validateItem(item); err != nil {
		return nil, newError(s.spec.Kind, op, err, validationMessage(err))
	}
	item.UpdatedAt = s.now().UTC()

	if err := s.repo.Update(ctx, item); err != nil {
		return nil, s.lookupError(op, err)
	}
	logSinkError(ctx, s.spec.Kind, op, s.eventSink.ContentUpdated(ctx, s.spec.Kind, item.ID, op))
	return item, nil
}

// UpdateSEO merges the provided SEO fields over the stored ones. Empty fields
// keep their previous value. A changed slug must not be used by another item.
func (s *ContentService[E]) UpdateSEO(ctx context.Context, id uuid.UUID, in SeoOverride, actingUsername string) (*Item[E], error) {
	const op = "update_seo"
	if _, err := s.requireAdmin(ctx, op, actingUsername, "Admin access required"); err != nil {
		return nil, err
	}
	item, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, s.lookupError(op, err)
	}

	seo := item.SEO
	seo.MetaTitle = firstNonEmpty(in.MetaTitle, seo.MetaTitle)
	seo.MetaDescription = firstNonEmpty(in.MetaDescription, seo.MetaDescription)
	seo.OgTitle = firstNonEmpty(in.OgTitle, seo.OgTitle)
	seo.OgDescription = firstNonEmpty(in.OgDescription, seo.OgDescription)
	seo.OgImage = firstNonEmpty(in.OgImage, seo.OgImage)
	seo.TwitterCard = firstNonEmpty(in.TwitterCard, seo.TwitterCard)
	if len(in.Keywords) > 0 {
		seo.Keywords = append([]string(nil), in.Keywords...)
	}

	if in.Slug != "" && in.Slug != seo.Slug {
		if !ValidSlug(in.Slug) {
			return nil, newError(s.spec.Kind, op, ErrInvalidSlug, validationMessage(ErrInvalidSlug))
		}
		taken, err := s.repo.SlugTaken(ctx, in.Slug, item.ID)
		if err != nil {
			return nil, newError(s.spec.Kind, op, err, "")
		}
		if taken {
			return nil, newError(s.spec.Kind, op, ErrDuplicateSlug, "Slug already exists")
		}
		if seo.CanonicalURL == CanonicalURL(s.baseURL, s.spec.Kind, seo.Slug) {
			seo.CanonicalURL = CanonicalURL(s.baseURL, s.spec.Kind, in.Slug)
		}
		seo.Slug = in.Slug
	}
	seo.CanonicalURL = firstNonEmpty(in.CanonicalURL, seo.CanonicalURL)

	item.SEO = seo
	item.UpdatedAt = s.now().UTC()
	if err := s.repo.Update(ctx, item); err != nil {
		if errors.Is(err, ErrDuplicateSlug) {
			return nil, newError(s.spec.Kind, op, err, "Slug already exists")
		}
		return nil, s.lookupError(op, err)
	}
	logSinkError(ctx, s.spec.Kind, op, s.eventSink.ContentUpdated(ctx, s.spec.Kind, item.ID, op))
	return item, nil
}

// Delete removes an item permanently.
func (s *ContentService[E]) Delete(ctx context.Context, id uuid.UUID, actingUsername string) error {
	const op = "delete"
	if _, err := s.requireAdmin(ctx, op, actingUsername, "Only admin users can delete "+s.spec.Plural); err != nil {
		return err
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return s.lookupError(op, err)
	}
	logSinkError(ctx, s.spec.Kind, op, s.eventSink.ContentDeleted(ctx, s.spec.Kind, id))
	return nil
}

// ToggleTop flips the top flag of an item.
func (s *ContentService[E]) ToggleTop(ctx context.Context, id uuid.UUID, actingUsername string) (*Item[E], error) {
	const op = "toggle_top"
	if _, err := s.requireAdmin(ctx, op, actingUsername, "Admin access required"); err != nil {
		return nil, err
	}
	item, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, s.lookupError(op, err)
	}
	item.IsTop = !item.IsTop
	item.UpdatedAt = s.now().UTC()
	if err := s.repo.Update(ctx, item); err != nil {
		return nil, s.lookupError(op, err)
	}
	logSinkError(ctx, s.spec.Kind, op, s.eventSink.ContentUpdated(ctx, s.spec.Kind, item.ID, op))
	return item, nil
}

// requireAdmin resolves the acting user and fails with ErrForbidden unless it
// exists and is an admin.
func (s *ContentService[E]) requireAdmin(ctx context.Context, op, username, msg string) (*User, error) {
	return requireAdmin(ctx, s.users, s.spec.Kind, op, username, msg)
}

func requireAdmin(ctx context.Context, users UserRepository, kind Kind, op, username, msg string) (*User, error) {
	if username == "" {
		return nil, newError(kind, op, ErrForbidden, msg)
	}
	user, err := users.GetUserByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, newError(kind, op, ErrForbidden, msg)
		}
		return nil, newError(kind, op, err, "")
	}
	if !user.IsAdmin {
		return nil, newError(kind, op, ErrForbidden, msg)
	}
	return user, nil
}

func (s *ContentService[E]) populateAuthor(ctx context.Context, item *Item[E]) {
	if item.Author != nil || item.AuthorID == uuid.Nil {
		return
	}
	user, err := s.users.GetUser(ctx, item.AuthorID)
	if err != nil {
		return
	}
	item.Author = &AuthorRef{ID: user.ID, Username: user.Username, Email: user.Email}
}

func (s *ContentService[E]) lookupError(op string, err error) error {
	if errors.Is(err, ErrNotFound) {
		return newError(s.spec.Kind, op, err, s.spec.Label+" not found")
	}
	return newError(s.spec.Kind, op, err, "")
}

func (s *ContentService[E]) conflictError(op string, err error) error {
	switch {
	case errors.Is(err, ErrDuplicateSlug):
		return newError(s.spec.Kind, op, err, "Slug already exists. Please modify the title or provide a custom slug.")
	case errors.Is(err, ErrDuplicatePID):
		return newError(s.spec.Kind, op, err, fmt.Sprintf("Duplicate %s ID. Please try again.", s.spec.Label))
	}
	return newError(s.spec.Kind, op, err, "")
}

func validateItem[E Extra](item *Item[E]) error {
	if item.Title == "" {
		return fmt.Errorf("%w: title is required", ErrValidation)
	}
	if len(item.Locations) == 0 {
		return fmt.Errorf("%w: locations must contain at least one entry", ErrValidation)
	}
	if len(item.Categories) == 0 {
		return fmt.Errorf("%w: categories must contain at least one entry", ErrValidation)
	}
	return validateStruct(item.Extra)
}

func newsMetaFrom(in NewsMetaInput, fallback time.Time) NewsMeta {
	meta := NewsMeta{
		PublicationDate: fallback,
		Genres:          append([]string(nil), in.Genres...),
		StockTickers:    append([]string(nil), in.StockTickers...),
	}
	if in.PublicationDate != nil && !in.PublicationDate.IsZero() {
		meta.PublicationDate = in.PublicationDate.UTC()
	}
	return meta
}
