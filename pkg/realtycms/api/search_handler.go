package api

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"
	"github.com/indrealty/realty-cms/pkg/realtycms"
)

const (
	defaultSearchLimit     = 10
	defaultSuggestionLimit = 5
	topPostsLimit          = 30
)

// SearchHandler serves cross-kind search and the top posts feed.
type SearchHandler struct {
	search *realtycms.SearchService
}

// NewSearchHandler creates a search handler.
func NewSearchHandler(search *realtycms.SearchService) *SearchHandler {
	return &SearchHandler{search: search}
}

// Routes returns the routes mounted under /search.
func (h *SearchHandler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Get("/", h.Search)
	r.Get("/suggestions", h.Suggestions)
	return r
}

// Search handles GET /search?q=&limit=.
func (h *SearchHandler) Search(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query().Get("q")
	res, err := h.search.Search(r.Context(), q, queryInt(r, "limit", defaultSearchLimit))
	if err != nil {
		if errors.Is(err, realtycms.ErrValidation) {
			writeFailureMessage(w, r, http.StatusBadRequest, "Search term is required", nil)
			return
		}
		writeFailureMessage(w, r, http.StatusInternalServerError, "Failed to perform search. Please try again later.", err)
		return
	}

	counts := map[string]int{"total": res.Total}
	for kind, n := range res.Counts {
		counts[realtycms.SpecFor(kind).ListKey] = n
	}
	results := res.Results
	if results == nil {
		results = []realtycms.Summary{}
	}
	render.JSON(w, r, map[string]any{
		"success": true,
		"results": results,
		"counts":  counts,
	})
}

// Suggestions handles GET /search/suggestions?q=&limit=.
func (h *SearchHandler) Suggestions(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query().Get("q")
	suggestions, err := h.search.Suggestions(r.Context(), q, queryInt(r, "limit", defaultSuggestionLimit))
	if err != nil {
		writeFailureMessage(w, r, http.StatusInternalServerError, "Failed to get search suggestions.", err)
		return
	}
	render.JSON(w, r, map[string]any{
		"success":     true,
		"suggestions": suggestions,
	})
}

// TopPosts handles GET /top-posts: the newest properties, investments and
// news merged.
func (h *SearchHandler) TopPosts(w http.ResponseWriter, r *http.Request) {
	posts, err := h.search.Recent(r.Context(), topPostsLimit,
		realtycms.KindProperty, realtycms.KindInvestment, realtycms.KindWhatsNew)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if posts == nil {
		posts = []realtycms.Summary{}
	}
	render.JSON(w, r, map[string]any{"topPosts": posts})
}

func queryInt(r *http.Request, key string, def int) int {
	n, err := strconv.Atoi(r.URL.Query().Get(key))
	if err != nil || n <= 0 {
		return def
	}
	return n
}
