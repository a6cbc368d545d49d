package realtycms

import (
	"cmp"
	"context"
	"fmt"
	"slices"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"
)

// SitemapEntry is one content page in the sitemap.
type SitemapEntry struct {
	Path      string
	UpdatedAt time.Time
	ImageURL  string
}

// NewsEntry is one item of the news sitemap.
type NewsEntry struct {
	Kind            Kind
	Path            string
	Title           string
	PublicationDate time.Time
	UpdatedAt       time.Time
	Genres          []string
	Keywords        []string
	StockTickers    []string
	ImageURL        string
}

// Catalog is the kind-independent read view of a content service used by
// cross-kind features.
type Catalog interface {
	Kind() Kind
	SearchSummaries(ctx context.Context, query string, scope SearchScope, limit int, p Projection) ([]Summary, error)
	RecentSummaries(ctx context.Context, limit int, p Projection) ([]Summary, error)
	SitemapEntries(ctx context.Context) ([]SitemapEntry, error)
	NewsEntries(ctx context.Context, limit int) ([]NewsEntry, error)
}

// SearchSummaries runs a substring search restricted to scope.
func (s *ContentService[E]) SearchSummaries(ctx context.Context, query string, scope SearchScope, limit int, p Projection) ([]Summary, error) {
	if scope == SearchBuilderName && s.spec.Kind != KindBuilderReview {
		return nil, nil
	}
	items, err := s.repo.List(ctx, ListFilter{Search: query, Scope: scope, Limit: limit})
	if err != nil {
		return nil, newError(s.spec.Kind, "search", err, "")
	}
	return ProjectAll(items, p), nil
}

// RecentSummaries returns the newest items.
func (s *ContentService[E]) RecentSummaries(ctx context.Context, limit int, p Projection) ([]Summary, error) {
	items, err := s.repo.List(ctx, ListFilter{Limit: limit})
	if err != nil {
		return nil, newError(s.spec.Kind, "recent", err, "")
	}
	return ProjectAll(items, p), nil
}

// SitemapEntries lists every item of the kind.
func (s *ContentService[E]) SitemapEntries(ctx context.Context) ([]SitemapEntry, error) {
	items, err := s.repo.List(ctx, ListFilter{})
	if err != nil {
		return nil, newError(s.spec.Kind, "sitemap", err, "")
	}
	out := make([]SitemapEntry, 0, len(items))
	for _, it := range items {
		out = append(out, SitemapEntry{
			Path:      s.spec.Path + "/" + it.SEO.Slug,
			UpdatedAt: it.UpdatedAt,
			ImageURL:  it.ImageURL,
		})
	}
	return out, nil
}

// NewsEntries lists up to limit news items, newest publication first.
func (s *ContentService[E]) NewsEntries(ctx context.Context, limit int) ([]NewsEntry, error) {
	if limit <= 0 {
		return nil, nil
	}
	isNews := true
	items, err := s.repo.List(ctx, ListFilter{IsNews: &isNews, OrderBy: OrderPublicationDesc, Limit: limit})
	if err != nil {
		return nil, newError(s.spec.Kind, "news_sitemap", err, "")
	}
	defaultGenre := "RealEstate"
	if s.spec.Kind == KindInvestment {
		defaultGenre = "Investment"
	}
	out := make([]NewsEntry, 0, len(items))
	for _, it := range items {
		e := NewsEntry{
			Kind:            s.spec.Kind,
			Path:            s.spec.Path + "/" + it.SEO.Slug,
			Title:           it.Title,
			PublicationDate: it.NewsMeta.PublicationDate,
			UpdatedAt:       it.UpdatedAt,
			Genres:          it.NewsMeta.Genres,
			Keywords:        it.SEO.Keywords,
			ImageURL:        it.ImageURL,
		}
		if len(e.Genres) == 0 {
			e.Genres = []string{defaultGenre}
		}
		if s.spec.Kind == KindInvestment {
			e.StockTickers = it.NewsMeta.StockTickers
		}
		out = append(out, e)
	}
	return out, nil
}

// SearchResult is the merged outcome of a cross-kind search.
type SearchResult struct {
	Results []Summary
	Counts  map[Kind]int
	Total   int
}

// Suggestion is a single autocomplete entry. Slug is nil for builder names.
type Suggestion struct {
	Text string  `json:"text"`
	Type string  `json:"type"`
	Slug *string `json:"slug"`
}

// SearchService fans a query out over every catalog.
type SearchService struct {
	catalogs []Catalog
}

// NewSearchService creates a search service over the given catalogs.
func NewSearchService(catalogs ...Catalog) *SearchService {
	return &SearchService{catalogs: catalogs}
}

// Search runs the substring search against every catalog concurrently, tags
// each hit with its kind and merges the hits newest first. Any failing
// catalog fails the whole search.
func (s *SearchService) Search(ctx context.Context, query string, limit int) (*SearchResult, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, fmt.Errorf("%w: search term is required", ErrValidation)
	}
	perKind, err := s.fanOut(ctx, func(ctx context.Context, c Catalog) ([]Summary, error) {
		return c.SearchSummaries(ctx, query, SearchAll, limit, WithType|WithTags|WithSummary|WithDescription)
	})
	if err != nil {
		return nil, err
	}

	res := &SearchResult{Counts: make(map[Kind]int, len(s.catalogs))}
	for i, c := range s.catalogs {
		res.Counts[c.Kind()] = len(perKind[i])
		res.Total += len(perKind[i])
		res.Results = append(res.Results, perKind[i]...)
	}
	sortNewestFirst(res.Results)
	return res, nil
}

// Suggestions returns title matches of every kind followed by matching
// builder names, capped at limit after merging. Queries shorter than two
// characters yield no suggestions.
func (s *SearchService) Suggestions(ctx context.Context, query string, limit int) ([]Suggestion, error) {
	query = strings.TrimSpace(query)
	if len([]rune(query)) < 2 {
		return []Suggestion{}, nil
	}

	titles, err := s.fanOut(ctx, func(ctx context.Context, c Catalog) ([]Summary, error) {
		return c.SearchSummaries(ctx, query, SearchTitle, limit, WithType)
	})
	if err != nil {
		return nil, err
	}
	builders, err := s.fanOut(ctx, func(ctx context.Context, c Catalog) ([]Summary, error) {
		return c.SearchSummaries(ctx, query, SearchBuilderName, limit, Brief)
	})
	if err != nil {
		return nil, err
	}

	out := []Suggestion{}
	for _, hits := range titles {
		for _, h := range hits {
			slug := h.SEO.Slug
			out = append(out, Suggestion{Text: h.Title, Type: string(h.Type), Slug: &slug})
		}
	}
	seen := make(map[string]bool)
	for _, hits := range builders {
		for _, h := range hits {
			if seen[h.BuilderName] {
				continue
			}
			seen[h.BuilderName] = true
			out = append(out, Suggestion{Text: h.BuilderName, Type: "builder"})
		}
	}
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// Recent merges the newest limit items of the given kinds.
func (s *SearchService) Recent(ctx context.Context, limit int, kinds ...Kind) ([]Summary, error) {
	perKind, err := s.fanOut(ctx, func(ctx context.Context, c Catalog) ([]Summary, error) {
		if len(kinds) > 0 && !slices.Contains(kinds, c.Kind()) {
			return nil, nil
		}
		return c.RecentSummaries(ctx, limit, WithType|WithTags|WithSummary|WithAuthor)
	})
	if err != nil {
		return nil, err
	}
	var merged []Summary
	for _, hits := range perKind {
		merged = append(merged, hits...)
	}
	sortNewestFirst(merged)
	if limit > 0 && len(merged) > limit {
		merged = merged[:limit]
	}
	return merged, nil
}

func (s *SearchService) fanOut(ctx context.Context, fn func(context.Context, Catalog) ([]Summary, error)) ([][]Summary, error) {
	out := make([][]Summary, len(s.catalogs))
	g, gctx := errgroup.WithContext(ctx)
	for i, c := range s.catalogs {
		g.Go(func() error {
			hits, err := fn(gctx, c)
			if err != nil {
				return err
			}
			out[i] = hits
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}

func sortNewestFirst(items []Summary) {
	slices.SortStableFunc(items, func(a, b Summary) int {
		return cmp.Compare(b.CreatedAt.UnixNano(), a.CreatedAt.UnixNano())
	})
}
