// Package sitemap renders the XML sitemap, the news sitemap and robots.txt
// of the public site from the content catalogs.
package sitemap

import (
	"bytes"
	"context"
	"encoding/xml"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/indrealty/realty-cms/pkg/realtycms"
	"github.com/klauspost/compress/gzip"
	"golang.org/x/sync/errgroup"
)

// NewsLimit is the maximum number of entries of a news sitemap.
const NewsLimit = 1000

const (
	sitemapNS = "http://www.sitemaps.org/schemas/sitemap/0.9"
	newsNS    = "http://www.google.com/schemas/sitemap-news/0.9"
	imageNS   = "http://www.google.com/schemas/sitemap-image/1.1"
)

// Page is a static page listed ahead of the content items.
type Page struct {
	Path       string
	ChangeFreq string
	Priority   string
}

// StaticPages are the top-level pages of the site.
var StaticPages = []Page{
	{Path: "/", ChangeFreq: "daily", Priority: "1.0"},
	{Path: "/properties", ChangeFreq: "weekly", Priority: "0.9"},
	{Path: "/investment", ChangeFreq: "weekly", Priority: "0.9"},
	{Path: "/whats-new", ChangeFreq: "weekly", Priority: "0.9"},
}

type urlset struct {
	XMLName xml.Name   `xml:"urlset"`
	Xmlns   string     `xml:"xmlns,attr"`
	News    string     `xml:"xmlns:news,attr,omitempty"`
	Image   string     `xml:"xmlns:image,attr"`
	URLs    []urlEntry `xml:"url"`
}

type urlEntry struct {
	Loc        string       `xml:"loc"`
	LastMod    string       `xml:"lastmod,omitempty"`
	ChangeFreq string       `xml:"changefreq,omitempty"`
	Priority   string       `xml:"priority,omitempty"`
	News       *newsEntry   `xml:"news:news,omitempty"`
	Images     []imageEntry `xml:"image:image"`
}

type newsEntry struct {
	PublicationName     string `xml:"news:publication>news:name"`
	PublicationLanguage string `xml:"news:publication>news:language"`
	PublicationDate     string `xml:"news:publication_date"`
	Title               string `xml:"news:title"`
	Genres              string `xml:"news:genres,omitempty"`
	Keywords            string `xml:"news:keywords,omitempty"`
	StockTickers        string `xml:"news:stock_tickers,omitempty"`
}

type imageEntry struct {
	Loc string `xml:"image:loc"`
}

// Builder assembles sitemaps from catalogs.
type Builder struct {
	baseURL   string
	catalogs  map[realtycms.Kind]realtycms.Catalog
	order     []realtycms.Kind
	newsLimit int
	language  string
}

// Option configures a Builder.
type Option func(*Builder)

// WithNewsLimit overrides NewsLimit, mostly for tests.
func WithNewsLimit(n int) Option {
	return func(b *Builder) {
		if n > 0 {
			b.newsLimit = n
		}
	}
}

// WithLanguage sets the news publication language (default "en").
func WithLanguage(lang string) Option {
	return func(b *Builder) {
		b.language = lang
	}
}

// New creates a builder for the site at baseURL.
func New(baseURL string, catalogs []realtycms.Catalog, opts ...Option) *Builder {
	b := &Builder{
		baseURL:   strings.TrimRight(baseURL, "/"),
		catalogs:  make(map[realtycms.Kind]realtycms.Catalog, len(catalogs)),
		newsLimit: NewsLimit,
		language:  "en",
	}
	for _, c := range catalogs {
		b.catalogs[c.Kind()] = c
		b.order = append(b.order, c.Kind())
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Sitemap renders the static pages followed by every content item. Catalogs
// are read concurrently; any failure aborts the whole document.
func (b *Builder) Sitemap(ctx context.Context) ([]byte, error) {
	perKind := make([][]realtycms.SitemapEntry, len(b.order))
	g, gctx := errgroup.WithContext(ctx)
	for i, kind := range b.order {
		g.Go(func() error {
			entries, err := b.catalogs[kind].SitemapEntries(gctx)
			if err != nil {
				return fmt.Errorf("sitemap %s: %w", kind, err)
			}
			perKind[i] = entries
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	set := urlset{Xmlns: sitemapNS, News: newsNS, Image: imageNS}
	for _, p := range StaticPages {
		set.URLs = append(set.URLs, urlEntry{Loc: b.loc(p.Path), ChangeFreq: p.ChangeFreq, Priority: p.Priority})
	}
	for _, entries := range perKind {
		for _, e := range entries {
			set.URLs = append(set.URLs, urlEntry{
				Loc:        b.loc(e.Path),
				LastMod:    e.UpdatedAt.UTC().Format(time.DateOnly),
				ChangeFreq: "weekly",
				Priority:   "0.8",
				Images:     images(e.ImageURL),
			})
		}
	}
	return render(set)
}

// NewsSitemap renders the news items of every kind. Catalogs are read
// concurrently, each up to the full limit; kinds then consume the entry
// budget in realtycms.NewsOrder, each taking what the earlier ones left.
func (b *Builder) NewsSitemap(ctx context.Context) ([]byte, error) {
	perKind := make([][]realtycms.NewsEntry, len(realtycms.NewsOrder))
	g, gctx := errgroup.WithContext(ctx)
	for i, kind := range realtycms.NewsOrder {
		catalog, ok := b.catalogs[kind]
		if !ok {
			continue
		}
		g.Go(func() error {
			entries, err := catalog.NewsEntries(gctx, b.newsLimit)
			if err != nil {
				return fmt.Errorf("news sitemap %s: %w", kind, err)
			}
			perKind[i] = entries
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	set := urlset{Xmlns: sitemapNS, News: newsNS, Image: imageNS}
	remaining := b.newsLimit
	for _, entries := range perKind {
		if len(entries) > remaining {
			entries = entries[:remaining]
		}
		remaining -= len(entries)

		for _, e := range entries {
			set.URLs = append(set.URLs, urlEntry{
				Loc:     b.loc(e.Path),
				LastMod: e.UpdatedAt.UTC().Format(time.RFC3339),
				News: &newsEntry{
					PublicationName:     realtycms.SiteName,
					PublicationLanguage: b.language,
					PublicationDate:     e.PublicationDate.UTC().Format(time.RFC3339),
					Title:               e.Title,
					Genres:              strings.Join(e.Genres, ", "),
					Keywords:            strings.Join(e.Keywords, ", "),
					StockTickers:        strings.Join(e.StockTickers, " "),
				},
				Images: images(e.ImageURL),
			})
		}
	}
	return render(set)
}

// Robots renders robots.txt pointing crawlers at both sitemaps.
func (b *Builder) Robots() string {
	return fmt.Sprintf("User-agent: *\nAllow: /\nSitemap: %s/sitemap.xml\nSitemap: %s/news-sitemap.xml\n", b.baseURL, b.baseURL)
}

// Gzip compresses a rendered document.
func Gzip(doc []byte) ([]byte, error) {
	var buf bytes.Buffer
	if err := WriteGzip(&buf, doc); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// WriteGzip writes doc gzip-compressed to w.
func WriteGzip(w io.Writer, doc []byte) error {
	zw, err := gzip.NewWriterLevel(w, gzip.BestCompression)
	if err != nil {
		return err
	}
	if _, err := zw.Write(doc); err != nil {
		zw.Close()
		return err
	}
	return zw.Close()
}

func (b *Builder) loc(path string) string {
	if path == "/" {
		return b.baseURL + "/"
	}
	return b.baseURL + "/" + strings.TrimPrefix(path, "/")
}

func images(url string) []imageEntry {
	if url == "" {
		return nil
	}
	return []imageEntry{{Loc: url}}
}

func render(set urlset) ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteString(xml.Header)
	enc := xml.NewEncoder(&buf)
	if err := enc.Encode(set); err != nil {
		return nil, fmt.Errorf("encode sitemap: %w", err)
	}
	if err := enc.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
