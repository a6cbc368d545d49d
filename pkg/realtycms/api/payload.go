package api

import (
	"encoding/json"
	"fmt"
	"mime"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/indrealty/realty-cms/pkg/realtycms"
)

// stringList accepts either a JSON array of strings or a single string.
type stringList []string

func (l *stringList) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		*l = nil
		return nil
	}
	var one string
	if err := json.Unmarshal(data, &one); err == nil {
		*l = stringList{one}
		return nil
	}
	var many []string
	if err := json.Unmarshal(data, &many); err != nil {
		return fmt.Errorf("expected string or array of strings")
	}
	*l = many
	return nil
}

// number accepts a JSON number or a numeric string.
type number float64

func (n *number) UnmarshalJSON(data []byte) error {
	s := strings.Trim(string(data), `"`)
	if s == "" || s == "null" {
		*n = 0
		return nil
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return fmt.Errorf("expected a number")
	}
	*n = number(f)
	return nil
}

// ContentPayload is the union of all fields accepted by create and update
// requests of every kind.
type ContentPayload struct {
	Title       *string                  `json:"title"`
	Summary     *string                  `json:"summary"`
	Description *string                  `json:"description"`
	ImageURL    *string                  `json:"imageUrl"`
	Locations   stringList               `json:"locations"`
	Categories  stringList               `json:"categories"`
	IsTop       bool                     `json:"isTop"`
	IsNews      *bool                    `json:"isNews"`
	NewsMeta    *realtycms.NewsMetaInput `json:"newsMeta"`
	SEO         *realtycms.SeoOverride   `json:"seo"`

	BuilderName     *string            `json:"builderName"`
	Rating          *number            `json:"rating"`
	CategoryRatings map[string]float64 `json:"categoryRatings"`

	Image *realtycms.ImageUpload `json:"-"`
}

// decodePayload reads a JSON or multipart request into p. The uploaded file,
// if any, is taken from the "image" form field.
func decodePayload(r *http.Request, maxMemory int64) (*ContentPayload, error) {
	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if mediaType == "multipart/form-data" {
		return decodeForm(r, maxMemory)
	}
	var p ContentPayload
	if err := json.NewDecoder(r.Body).Decode(&p); err != nil {
		return nil, fmt.Errorf("%w: invalid request body: %v", realtycms.ErrValidation, err)
	}
	return &p, nil
}

func decodeForm(r *http.Request, maxMemory int64) (*ContentPayload, error) {
	if err := r.ParseMultipartForm(maxMemory); err != nil {
		return nil, fmt.Errorf("%w: invalid multipart form: %v", realtycms.ErrValidation, err)
	}
	form := r.MultipartForm.Value
	var p ContentPayload
	p.Title = formString(form, "title")
	p.Summary = formString(form, "summary")
	p.Description = formString(form, "description")
	p.ImageURL = formString(form, "imageUrl")
	p.Locations = formList(form, "locations")
	p.Categories = formList(form, "categories")
	p.BuilderName = formString(form, "builderName")

	if v := formString(form, "isTop"); v != nil {
		p.IsTop, _ = strconv.ParseBool(*v)
	}
	if v := formString(form, "isNews"); v != nil {
		b, err := strconv.ParseBool(*v)
		if err != nil {
			return nil, fmt.Errorf("%w: isNews must be a boolean", realtycms.ErrValidation)
		}
		p.IsNews = &b
	}
	if v := formString(form, "rating"); v != nil {
		var n number
		if err := n.UnmarshalJSON([]byte(*v)); err != nil {
			return nil, fmt.Errorf("%w: rating must be a number", realtycms.ErrValidation)
		}
		p.Rating = &n
	}
	for _, field := range []struct {
		name string
		dst  any
	}{
		{"seo", &p.SEO},
		{"newsMeta", &p.NewsMeta},
		{"categoryRatings", &p.CategoryRatings},
	} {
		if v := formString(form, field.name); v != nil && *v != "" {
			if err := json.Unmarshal([]byte(*v), field.dst); err != nil {
				return nil, fmt.Errorf("%w: %s must be a JSON object", realtycms.ErrValidation, field.name)
			}
		}
	}
	if v := formString(form, "publicationDate"); v != nil && *v != "" {
		ts, err := time.Parse(time.RFC3339, *v)
		if err != nil {
			return nil, fmt.Errorf("%w: publicationDate must be an RFC 3339 timestamp", realtycms.ErrValidation)
		}
		if p.NewsMeta == nil {
			p.NewsMeta = &realtycms.NewsMetaInput{}
		}
		p.NewsMeta.PublicationDate = &ts
	}

	if files := r.MultipartForm.File["image"]; len(files) > 0 {
		header := files[0]
		file, err := header.Open()
		if err != nil {
			return nil, fmt.Errorf("failed to open uploaded file: %w", err)
		}
		p.Image = &realtycms.ImageUpload{
			Reader:      file,
			FileName:    header.Filename,
			ContentType: header.Header.Get("Content-Type"),
			Size:        header.Size,
		}
	}
	return &p, nil
}

func formString(form map[string][]string, key string) *string {
	values := form[key]
	if len(values) == 0 {
		return nil
	}
	return &values[0]
}

// formList collects repeated fields, also under the key[] spelling. Each
// value is one entry, commas included.
func formList(form map[string][]string, key string) stringList {
	values := append(append([]string(nil), form[key]...), form[key+"[]"]...)
	if len(values) == 0 {
		return nil
	}
	out := stringList{}
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			out = append(out, v)
		}
	}
	return out
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

// ExtraMapper builds and patches the kind-specific fields from a payload.
type ExtraMapper[E realtycms.Extra] interface {
	New(p *ContentPayload) E
	Patch(p *ContentPayload) func(*E)
}

// NoExtra maps kinds without client supplied fields.
type NoExtra[E realtycms.Extra] struct{}

func (NoExtra[E]) New(*ContentPayload) E {
	var zero E
	return zero
}

func (NoExtra[E]) Patch(*ContentPayload) func(*E) { return nil }

// BuilderReviewFields maps builderName, rating and categoryRatings.
type BuilderReviewFields struct{}

func (BuilderReviewFields) New(p *ContentPayload) realtycms.BuilderReviewExtra {
	extra := realtycms.BuilderReviewExtra{
		BuilderName:     deref(p.BuilderName),
		CategoryRatings: p.CategoryRatings,
	}
	if p.Rating != nil {
		extra.Rating = float64(*p.Rating)
	}
	return extra
}

func (BuilderReviewFields) Patch(p *ContentPayload) func(*realtycms.BuilderReviewExtra) {
	if p.BuilderName == nil && p.Rating == nil && p.CategoryRatings == nil {
		return nil
	}
	return func(extra *realtycms.BuilderReviewExtra) {
		if p.BuilderName != nil {
			extra.BuilderName = *p.BuilderName
		}
		if p.Rating != nil {
			extra.Rating = float64(*p.Rating)
		}
		if p.CategoryRatings != nil {
			extra.CategoryRatings = p.CategoryRatings
		}
	}
}
