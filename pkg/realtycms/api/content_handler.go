package api

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"
	"github.com/google/uuid"
	"github.com/indrealty/realty-cms/pkg/realtycms"
)

// ContentService is the part of a content service served over HTTP.
// *realtycms.ContentService and *realtycms.InvestmentService implement it.
type ContentService[E realtycms.Extra] interface {
	Spec() realtycms.KindSpec
	Create(ctx context.Context, req realtycms.CreateRequest[E], actingUsername string) (*realtycms.Item[E], error)
	Get(ctx context.Context, id uuid.UUID) (*realtycms.Item[E], error)
	GetBySlug(ctx context.Context, slug string) (*realtycms.Item[E], []*realtycms.Item[E], error)
	List(ctx context.Context, q realtycms.ListQuery) (*realtycms.ListResult[E], error)
	Top(ctx context.Context) ([]*realtycms.Item[E], error)
	Update(ctx context.Context, id uuid.UUID, req realtycms.UpdateRequest[E], actingUsername string) (*realtycms.Item[E], error)
	UpdateSEO(ctx context.Context, id uuid.UUID, in realtycms.SeoOverride, actingUsername string) (*realtycms.Item[E], error)
	Delete(ctx context.Context, id uuid.UUID, actingUsername string) error
	ToggleTop(ctx context.Context, id uuid.UUID, actingUsername string) (*realtycms.Item[E], error)
}

// ContentHandler serves the routes of one content kind.
type ContentHandler[E realtycms.Extra] struct {
	service   ContentService[E]
	extras    ExtraMapper[E]
	admin     func(http.Handler) http.Handler
	spec      realtycms.KindSpec
	paginate  bool
	adminList bool
	maxMemory int64
	extra     func(chi.Router)
}

// ContentOption configures a ContentHandler.
type ContentOption func(*contentOptions)

type contentOptions struct {
	paginate  bool
	adminList bool
	maxMemory int64
	extra     func(chi.Router)
}

// Paginated makes list requests page based, defaulting to the first page.
func Paginated() ContentOption {
	return func(o *contentOptions) { o.paginate = true }
}

// AdminListing adds GET /admin, an unpaginated admin-only listing.
func AdminListing() ContentOption {
	return func(o *contentOptions) { o.adminList = true }
}

// WithMaxMemory sets the memory budget for multipart parsing.
func WithMaxMemory(n int64) ContentOption {
	return func(o *contentOptions) { o.maxMemory = n }
}

// ExtraRoutes registers additional routes of the kind.
func ExtraRoutes(fn func(r chi.Router)) ContentOption {
	return func(o *contentOptions) { o.extra = fn }
}

// NewContentHandler creates a handler for one kind. admin guards the write
// routes other than create, which checks the acting user itself.
func NewContentHandler[E realtycms.Extra](service ContentService[E], extras ExtraMapper[E], admin func(http.Handler) http.Handler, opts ...ContentOption) *ContentHandler[E] {
	o := contentOptions{maxMemory: 2 * realtycms.DefaultMaxImageBytes}
	for _, opt := range opts {
		opt(&o)
	}
	if extras == nil {
		extras = NoExtra[E]{}
	}
	return &ContentHandler[E]{
		service:   service,
		extras:    extras,
		admin:     admin,
		spec:      service.Spec(),
		paginate:  o.paginate,
		adminList: o.adminList,
		maxMemory: o.maxMemory,
		extra:     o.extra,
	}
}

// Routes returns the routes of the kind.
func (h *ContentHandler[E]) Routes() chi.Router {
	r := chi.NewRouter()

	r.Post("/", h.Create)
	r.Get("/", h.List)
	r.Get("/top", h.Top)
	if h.adminList {
		r.With(h.admin).Get("/admin", h.AdminList)
	}
	r.Get("/slug/{slug}", h.GetBySlug)
	r.Get("/{id}", h.Get)
	if h.extra != nil {
		h.extra(r)
	}

	r.Group(func(r chi.Router) {
		r.Use(h.admin)
		r.Put("/{id}", h.Update)
		r.Put("/{id}/seo", h.UpdateSEO)
		r.Delete("/{id}", h.Delete)
		r.Put("/{id}/toggle-top", h.ToggleTop)
	})

	return r
}

// Create creates an item from a JSON or multipart body.
func (h *ContentHandler[E]) Create(w http.ResponseWriter, r *http.Request) {
	p, err := decodePayload(r, h.maxMemory)
	if err != nil {
		writeFailure(w, r, err)
		return
	}
	if p.Image != nil {
		if c, ok := p.Image.Reader.(io.Closer); ok {
			defer c.Close()
		}
	}

	req := realtycms.CreateRequest[E]{
		Title:       deref(p.Title),
		Summary:     deref(p.Summary),
		Description: deref(p.Description),
		ImageURL:    deref(p.ImageURL),
		Image:       p.Image,
		Locations:   p.Locations,
		Categories:  p.Categories,
		IsTop:       p.IsTop,
		SEO:         p.SEO,
		Extra:       h.extras.New(p),
	}
	if p.IsNews != nil {
		req.IsNews = *p.IsNews
	}
	if p.NewsMeta != nil {
		req.NewsMeta = *p.NewsMeta
	}

	item, err := h.service.Create(r.Context(), req, PrincipalFrom(r.Context()))
	if err != nil {
		writeFailure(w, r, err)
		return
	}

	slog.Info("Content created", "kind", h.spec.Kind, "id", item.ID, "slug", item.SEO.Slug)
	render.Status(r, http.StatusCreated)
	render.JSON(w, r, map[string]any{
		"success":      true,
		"message":      h.spec.Label + " created successfully",
		h.spec.ItemKey: item,
	})
}

// List returns summaries matching the query filters.
func (h *ContentHandler[E]) List(w http.ResponseWriter, r *http.Request) {
	q := h.listQuery(r)
	if h.paginate && q.Page <= 0 {
		q.Page = 1
	}
	res, err := h.service.List(r.Context(), q)
	if err != nil {
		if h.paginate {
			writeFailureMessage(w, r, http.StatusInternalServerError, "Failed to fetch "+h.spec.Plural+". Please try again later.", err)
			return
		}
		writeError(w, r, err)
		return
	}

	summaries := realtycms.ProjectAll(res.Items, realtycms.WithTags|realtycms.WithDescription)
	if !h.paginate {
		render.JSON(w, r, map[string]any{h.spec.ListKey: summaries})
		return
	}
	render.JSON(w, r, map[string]any{
		"success":      true,
		h.spec.ListKey: summaries,
		"pagination": map[string]any{
			"total":   res.Total,
			"pages":   res.Pages,
			"page":    res.Page,
			"hasNext": res.HasNext,
		},
	})
}

// AdminList returns every matching item without pagination.
func (h *ContentHandler[E]) AdminList(w http.ResponseWriter, r *http.Request) {
	q := h.listQuery(r)
	q.Page, q.Limit = 0, 0
	res, err := h.service.List(r.Context(), q)
	if err != nil {
		writeFailureMessage(w, r, http.StatusInternalServerError, "Failed to fetch "+h.spec.Plural+". Please try again later.", err)
		return
	}
	render.JSON(w, r, map[string]any{
		"success":      true,
		h.spec.ListKey: res.Items,
	})
}

// Top returns the newest top items.
func (h *ContentHandler[E]) Top(w http.ResponseWriter, r *http.Request) {
	items, err := h.service.Top(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	render.JSON(w, r, map[string]any{h.spec.ListKey: realtycms.ProjectAll(items, realtycms.Brief)})
}

// Get returns one item by id.
func (h *ContentHandler[E]) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := h.parseID(w, r)
	if !ok {
		return
	}
	item, err := h.service.Get(r.Context(), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	render.JSON(w, r, map[string]any{h.spec.ItemKey: item})
}

// GetBySlug returns one item by slug with the top items of its kind.
func (h *ContentHandler[E]) GetBySlug(w http.ResponseWriter, r *http.Request) {
	item, top, err := h.service.GetBySlug(r.Context(), chi.URLParam(r, "slug"))
	if err != nil {
		writeFailure(w, r, err)
		return
	}
	render.JSON(w, r, map[string]any{
		"success":      true,
		h.spec.ItemKey: item,
		"topPosts":     realtycms.ProjectAll(top, realtycms.WithType),
		"seo":          item.SEO,
	})
}

// Update replaces the core fields present in the body.
func (h *ContentHandler[E]) Update(w http.ResponseWriter, r *http.Request) {
	id, ok := h.parseID(w, r)
	if !ok {
		return
	}
	p, err := decodePayload(r, h.maxMemory)
	if err != nil {
		writeError(w, r, err)
		return
	}
	req := realtycms.UpdateRequest[E]{
		Title:       p.Title,
		Summary:     p.Summary,
		Description: p.Description,
		ImageURL:    p.ImageURL,
		Locations:   p.Locations,
		Categories:  p.Categories,
		IsNews:      p.IsNews,
		NewsMeta:    p.NewsMeta,
		PatchExtra:  h.extras.Patch(p),
	}
	item, err := h.service.Update(r.Context(), id, req, PrincipalFrom(r.Context()))
	if err != nil {
		writeError(w, r, err)
		return
	}
	render.JSON(w, r, map[string]any{
		"message":      h.spec.Label + " updated successfully",
		h.spec.ItemKey: item,
	})
}

// UpdateSEO merges the SEO fields of the body into the item.
func (h *ContentHandler[E]) UpdateSEO(w http.ResponseWriter, r *http.Request) {
	id, ok := h.parseID(w, r)
	if !ok {
		return
	}
	var in realtycms.SeoOverride
	if err := render.DecodeJSON(r.Body, &in); err != nil {
		errorJSON(w, r, http.StatusBadRequest, "Invalid request body")
		return
	}
	item, err := h.service.UpdateSEO(r.Context(), id, in, PrincipalFrom(r.Context()))
	if err != nil {
		writeError(w, r, err)
		return
	}
	render.JSON(w, r, map[string]any{
		"message": "SEO data updated successfully",
		"seo":     item.SEO,
	})
}

// Delete removes an item.
func (h *ContentHandler[E]) Delete(w http.ResponseWriter, r *http.Request) {
	id, ok := h.parseID(w, r)
	if !ok {
		return
	}
	if err := h.service.Delete(r.Context(), id, PrincipalFrom(r.Context())); err != nil {
		writeError(w, r, err)
		return
	}
	slog.Info("Content deleted", "kind", h.spec.Kind, "id", id)
	render.JSON(w, r, map[string]string{"message": h.spec.Label + " deleted successfully"})
}

// ToggleTop flips the top flag.
func (h *ContentHandler[E]) ToggleTop(w http.ResponseWriter, r *http.Request) {
	id, ok := h.parseID(w, r)
	if !ok {
		return
	}
	item, err := h.service.ToggleTop(r.Context(), id, PrincipalFrom(r.Context()))
	if err != nil {
		writeError(w, r, err)
		return
	}
	render.JSON(w, r, map[string]any{
		"message":      "Top " + h.spec.TopLabel + " status updated successfully",
		h.spec.ItemKey: item,
	})
}

// parseID reads the {id} parameter. Malformed ids are reported as missing items.
func (h *ContentHandler[E]) parseID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		errorJSON(w, r, http.StatusNotFound, h.spec.Label+" not found")
		return uuid.Nil, false
	}
	return id, true
}

func (h *ContentHandler[E]) listQuery(r *http.Request) realtycms.ListQuery {
	values := r.URL.Query()
	q := realtycms.ListQuery{
		Search:   strings.TrimSpace(values.Get("search")),
		Category: values.Get("category"),
		Location: values.Get("location"),
	}
	if truthy(values.Get("isTop")) || truthy(values.Get(h.spec.TopField)) {
		isTop := true
		q.IsTop = &isTop
	}
	if n, err := strconv.Atoi(values.Get("page")); err == nil && n > 0 {
		q.Page = n
	}
	if n, err := strconv.Atoi(values.Get("limit")); err == nil && n > 0 {
		q.Limit = n
	}
	return q
}

// truthy follows query string conventions: any value but "", "0" and
// "false" enables a flag.
func truthy(v string) bool {
	switch strings.ToLower(v) {
	case "", "0", "false":
		return false
	}
	return true
}
