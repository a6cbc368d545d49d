package realtycms

import (
	"maps"
	"slices"

	"github.com/google/uuid"
)

// Kind identifies one of the content types served by the API.
type Kind string

// Content kind constants (typed).
const (
	KindProperty      Kind = "property"
	KindInvestment    Kind = "investment"
	KindWhatsNew      Kind = "whatsNew"
	KindBuilderReview Kind = "builderReview"
)

// NewsOrder is the order in which kinds consume the news sitemap budget.
var NewsOrder = []Kind{KindWhatsNew, KindProperty, KindInvestment, KindBuilderReview}

// KindSpec holds the per-kind constants shared by routing, SEO and messages.
type KindSpec struct {
	Kind     Kind
	Path     string // public site path, used in canonical URLs and sitemaps
	Segment  string // API route segment under /api
	ItemKey  string // JSON key wrapping a single item
	ListKey  string // JSON key wrapping item lists
	TopField string // JSON name of the top flag
	Label    string // human label used in messages
	TopLabel string
	Plural   string
	Folder   string // image folder for uploads attached to this kind
}

var kindSpecs = map[Kind]KindSpec{
	KindProperty: {
		Kind:     KindProperty,
		Path:     "properties",
		Segment:  "properties",
		ItemKey:  "property",
		ListKey:  "properties",
		TopField: "isTopProperty",
		Label:    "Property",
		TopLabel: "Property",
		Plural:   "properties",
		Folder:   "properties",
	},
	KindInvestment: {
		Kind:     KindInvestment,
		Path:     "investment",
		Segment:  "investment",
		ItemKey:  "investment",
		ListKey:  "investments",
		TopField: "isTopInvestment",
		Label:    "Investment",
		TopLabel: "Investment",
		Plural:   "investments",
		Folder:   "investments",
	},
	KindWhatsNew: {
		Kind:     KindWhatsNew,
		Path:     "whats-new",
		Segment:  "whatsNew",
		ItemKey:  "whatsNew",
		ListKey:  "whatsNew",
		TopField: "isTopWhatsNew",
		Label:    "WhatsNew",
		TopLabel: "WhatsNew",
		Plural:   "whats new",
		Folder:   "whatsNew",
	},
	KindBuilderReview: {
		Kind:     KindBuilderReview,
		Path:     "builder-review",
		Segment:  "builderReview",
		ItemKey:  "builderReview",
		ListKey:  "builderReviews",
		TopField: "isTopBuilderReview",
		Label:    "Builder review",
		TopLabel: "BuilderReview",
		Plural:   "builder reviews",
		Folder:   "builderReviews",
	},
}

// SpecFor returns the constants for a kind. Unknown kinds yield a zero spec.
func SpecFor(k Kind) KindSpec {
	return kindSpecs[k]
}

// Kinds returns all kinds in API order.
func Kinds() []Kind {
	return []Kind{KindProperty, KindInvestment, KindWhatsNew, KindBuilderReview}
}

// Extra is implemented by the type-specific part of a content item.
type Extra interface {
	Kind() Kind
}

// PropertyExtra carries no fields beyond the common ones.
type PropertyExtra struct{}

func (PropertyExtra) Kind() Kind { return KindProperty }

// InvestmentExtra tracks users who expressed interest. The set is append-only
// and is maintained through an InterestRepository.
type InvestmentExtra struct {
	InterestedUsers []uuid.UUID `json:"interestedUsers"`
}

func (InvestmentExtra) Kind() Kind { return KindInvestment }

// WhatsNewExtra carries no fields beyond the common ones.
type WhatsNewExtra struct{}

func (WhatsNewExtra) Kind() Kind { return KindWhatsNew }

// BuilderReviewExtra holds the reviewed builder and its ratings.
type BuilderReviewExtra struct {
	BuilderName     string             `json:"builderName" validate:"required"`
	Rating          float64            `json:"rating" validate:"required,min=1,max=5"`
	CategoryRatings map[string]float64 `json:"categoryRatings,omitempty" validate:"omitempty,dive,min=1,max=5"`
}

func (BuilderReviewExtra) Kind() Kind { return KindBuilderReview }

func kindOf[E Extra]() Kind {
	var zero E
	return zero.Kind()
}

func cloneExtra[E Extra](e E) E {
	switch x := any(e).(type) {
	case InvestmentExtra:
		x.InterestedUsers = slices.Clone(x.InterestedUsers)
		return any(x).(E)
	case BuilderReviewExtra:
		x.CategoryRatings = maps.Clone(x.CategoryRatings)
		return any(x).(E)
	}
	return e
}
