package realtycms

import (
	"fmt"
	"strings"
	"time"
)

// SiteName is used in meta titles, structured data and news sitemaps.
const SiteName = "IndRealty"

// DefaultTwitterCard is the card kind used when none is supplied.
const DefaultTwitterCard = "summary_large_image"

// SeoInput is the raw content the SEO metadata is computed from.
type SeoInput struct {
	Kind        Kind
	Title       string
	Summary     string
	ImageURL    string
	Slug        string
	Locations   []string
	Categories  []string
	BuilderName string
	Rating      float64
}

// SeoOverride holds caller supplied SEO values. Empty fields are computed.
type SeoOverride struct {
	MetaTitle       string   `json:"metaTitle"`
	MetaDescription string   `json:"metaDescription"`
	Slug            string   `json:"slug"`
	Keywords        []string `json:"keywords"`
	OgTitle         string   `json:"ogTitle"`
	OgDescription   string   `json:"ogDescription"`
	OgImage         string   `json:"ogImage"`
	TwitterCard     string   `json:"twitterCard"`
	CanonicalURL    string   `json:"canonicalUrl"`
}

type seoProfile struct {
	baseKeywords []string
	location     string
	category     string
	builder      string
	title        func(in SeoInput) string
	structured   func(in SeoInput, meta SeoMetadata, now time.Time) map[string]any
}

var newsProfile = seoProfile{
	baseKeywords: []string{"real estate news", "property updates", "India real estate"},
	location:     "real estate news in %s",
	category:     "%s updates",
	title: func(in SeoInput) string {
		return fmt.Sprintf("%s | Latest Updates | %s", in.Title, SiteName)
	},
	structured: newsArticle,
}

var seoProfiles = map[Kind]seoProfile{
	KindProperty: newsProfile,
	KindWhatsNew: newsProfile,
	KindInvestment: {
		baseKeywords: []string{"real estate investment", "property investment", "India investment"},
		location:     "investment in %s",
		category:     "%s investment",
		title: func(in SeoInput) string {
			return fmt.Sprintf("%s | Investment Opportunity | %s", in.Title, SiteName)
		},
		structured: investmentOffer,
	},
	KindBuilderReview: {
		baseKeywords: []string{"builder review", "real estate builder", "construction company review", "builder ratings"},
		location:     "builder review in %s",
		category:     "%s builder review",
		builder:      "%s review",
		title: func(in SeoInput) string {
			return fmt.Sprintf("%s Review | %s | %s", in.BuilderName, in.Title, SiteName)
		},
		structured: builderReview,
	},
}

// CanonicalURL returns the default canonical URL of a slug.
func CanonicalURL(baseURL string, kind Kind, slug string) string {
	return fmt.Sprintf("%s/%s/%s", strings.TrimRight(baseURL, "/"), SpecFor(kind).Path, slug)
}

// BuildSEO computes the SEO metadata of a content item. Override values win
// over computed ones. The function has no side effects; now only feeds the
// structured data timestamps.
func BuildSEO(in SeoInput, override *SeoOverride, baseURL string, now time.Time) SeoMetadata {
	if override == nil {
		override = &SeoOverride{}
	}
	profile, ok := seoProfiles[in.Kind]
	if !ok {
		profile = newsProfile
	}

	meta := SeoMetadata{
		MetaTitle:       firstNonEmpty(override.MetaTitle, profile.title(in)),
		MetaDescription: firstNonEmpty(override.MetaDescription, in.Summary),
		Slug:            in.Slug,
		OgTitle:         firstNonEmpty(override.OgTitle, in.Title),
		OgDescription:   firstNonEmpty(override.OgDescription, in.Summary),
		OgImage:         firstNonEmpty(override.OgImage, in.ImageURL),
		TwitterCard:     firstNonEmpty(override.TwitterCard, DefaultTwitterCard),
		CanonicalURL:    firstNonEmpty(override.CanonicalURL, CanonicalURL(baseURL, in.Kind, in.Slug)),
	}
	if len(override.Keywords) > 0 {
		meta.Keywords = append([]string(nil), override.Keywords...)
	} else {
		meta.Keywords = profile.keywords(in)
	}
	meta.StructuredData = profile.structured(in, meta, now)
	return meta
}

func (p seoProfile) keywords(in SeoInput) []string {
	seen := make(map[string]bool)
	var out []string
	add := func(k string) {
		if k == "" || seen[k] {
			return
		}
		seen[k] = true
		out = append(out, k)
	}
	for _, k := range p.baseKeywords {
		add(k)
	}
	for _, l := range in.Locations {
		add(fmt.Sprintf(p.location, l))
	}
	if p.builder != "" && in.BuilderName != "" {
		add(fmt.Sprintf(p.builder, in.BuilderName))
	}
	for _, c := range in.Categories {
		add(fmt.Sprintf(p.category, c))
	}
	return out
}

func organization() map[string]any {
	return map[string]any{"@type": "Organization", "name": SiteName}
}

func newsArticle(in SeoInput, meta SeoMetadata, now time.Time) map[string]any {
	ts := now.UTC().Format(time.RFC3339)
	return map[string]any{
		"@context":      "https://schema.org",
		"@type":         "NewsArticle",
		"headline":      in.Title,
		"description":   in.Summary,
		"image":         in.ImageURL,
		"url":           meta.CanonicalURL,
		"datePublished": ts,
		"dateModified":  ts,
		"author":        organization(),
	}
}

func investmentOffer(in SeoInput, meta SeoMetadata, now time.Time) map[string]any {
	return map[string]any{
		"@context":       "https://schema.org",
		"@type":          "InvestmentOrDeposit",
		"name":           in.Title,
		"description":    in.Summary,
		"image":          in.ImageURL,
		"url":            meta.CanonicalURL,
		"investmentType": strings.Join(in.Categories, ", "),
		"areaServed":     strings.Join(in.Locations, ", "),
		"offers": map[string]any{
			"@type":    "Offer",
			"category": "RealEstateInvestment",
		},
	}
}

func builderReview(in SeoInput, meta SeoMetadata, now time.Time) map[string]any {
	ts := now.UTC().Format(time.RFC3339)
	rating := min(max(in.Rating, 1), 5)
	return map[string]any{
		"@context": "https://schema.org",
		"@type":    "Review",
		"itemReviewed": map[string]any{
			"@type": "Organization",
			"name":  in.BuilderName,
		},
		"reviewRating": map[string]any{
			"@type":       "Rating",
			"ratingValue": rating,
			"bestRating":  "5",
		},
		"author":        organization(),
		"headline":      in.Title,
		"description":   in.Summary,
		"image":         in.ImageURL,
		"url":           meta.CanonicalURL,
		"datePublished": ts,
		"dateModified":  ts,
	}
}

// seoInputOf extracts the SEO input of an item.
func seoInputOf[E Extra](it *Item[E]) SeoInput {
	in := SeoInput{
		Kind:       it.Kind(),
		Title:      it.Title,
		Summary:    it.Summary,
		ImageURL:   it.ImageURL,
		Slug:       it.SEO.Slug,
		Locations:  it.Locations,
		Categories: it.Categories,
	}
	if br, ok := any(it.Extra).(BuilderReviewExtra); ok {
		in.BuilderName = br.BuilderName
		in.Rating = br.Rating
	}
	return in
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}
