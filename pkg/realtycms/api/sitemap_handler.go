package api

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/indrealty/realty-cms/pkg/realtycms/cache"
	"github.com/indrealty/realty-cms/pkg/realtycms/sitemap"
)

// Cache keys of the rendered sitemaps. Content events invalidate them.
const (
	SitemapCacheKey     = "sitemap.xml"
	NewsSitemapCacheKey = "news-sitemap.xml"
)

// SitemapHandler serves sitemap.xml, news-sitemap.xml and robots.txt.
type SitemapHandler struct {
	builder *sitemap.Builder
	cache   cache.Cache
	ttl     time.Duration
}

// NewSitemapHandler creates a sitemap handler. A nil cache disables caching.
func NewSitemapHandler(builder *sitemap.Builder, c cache.Cache, ttl time.Duration) *SitemapHandler {
	if c == nil {
		c = cache.Noop{}
	}
	return &SitemapHandler{builder: builder, cache: c, ttl: ttl}
}

// Sitemap serves the sitemap of all content.
func (h *SitemapHandler) Sitemap(w http.ResponseWriter, r *http.Request) {
	h.serve(w, r, SitemapCacheKey, h.builder.Sitemap)
}

// NewsSitemap serves the news sitemap.
func (h *SitemapHandler) NewsSitemap(w http.ResponseWriter, r *http.Request) {
	h.serve(w, r, NewsSitemapCacheKey, h.builder.NewsSitemap)
}

// Robots serves robots.txt.
func (h *SitemapHandler) Robots(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	_, _ = w.Write([]byte(h.builder.Robots()))
}

func (h *SitemapHandler) serve(w http.ResponseWriter, r *http.Request, key string, build func(context.Context) ([]byte, error)) {
	doc, err := h.cache.Get(r.Context(), key)
	if err != nil {
		if !errors.Is(err, cache.ErrMiss) {
			slog.Warn("Sitemap cache read failed", "key", key, "error", err)
		}
		doc, err = build(r.Context())
		if err != nil {
			slog.Error("Failed to build sitemap", "key", key, "error", err)
			http.Error(w, "Error generating sitemap", http.StatusInternalServerError)
			return
		}
		if err := h.cache.Set(r.Context(), key, doc, h.ttl); err != nil {
			slog.Warn("Sitemap cache write failed", "key", key, "error", err)
		}
	}

	w.Header().Set("Content-Type", "application/xml")
	w.Header().Add("Vary", "Accept-Encoding")
	if !acceptsGzip(r) {
		w.Header().Set("Content-Length", strconv.Itoa(len(doc)))
		_, _ = w.Write(doc)
		return
	}
	w.Header().Set("Content-Encoding", "gzip")
	if err := sitemap.WriteGzip(w, doc); err != nil {
		slog.Error("Failed to write sitemap", "key", key, "error", err)
	}
}

func acceptsGzip(r *http.Request) bool {
	for _, v := range r.Header.Values("Accept-Encoding") {
		for _, part := range strings.Split(v, ",") {
			if strings.TrimSpace(strings.SplitN(part, ";", 2)[0]) == "gzip" {
				return true
			}
		}
	}
	return false
}
