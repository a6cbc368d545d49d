package realtycms

import (
	"cmp"
	"slices"
	"strings"

	"github.com/google/uuid"
)

// MatchesFilter reports whether item satisfies the predicates of f. Paging
// and ordering are left to the caller. Search is a case-insensitive substring
// match, mirroring the ILIKE queries of the postgres repository.
func MatchesFilter[E Extra](item *Item[E], f ListFilter) bool {
	if f.IsTop != nil && item.IsTop != *f.IsTop {
		return false
	}
	if f.IsNews != nil && item.IsNews != *f.IsNews {
		return false
	}
	if f.ExcludeID != uuid.Nil && item.ID == f.ExcludeID {
		return false
	}
	if f.Category != "" && !slices.Contains(item.Categories, f.Category) {
		return false
	}
	if f.Location != "" && !slices.Contains(item.Locations, f.Location) {
		return false
	}
	if f.Search == "" {
		return true
	}
	needle := strings.ToLower(f.Search)
	return slices.ContainsFunc(searchFields(item, f.Scope), func(v string) bool {
		return strings.Contains(strings.ToLower(v), needle)
	})
}

func searchFields[E Extra](item *Item[E], scope SearchScope) []string {
	br, isReview := any(item.Extra).(BuilderReviewExtra)
	switch scope {
	case SearchTitle:
		return []string{item.Title}
	case SearchBuilderName:
		if !isReview {
			return nil
		}
		return []string{br.BuilderName}
	}

	fields := []string{
		item.Title,
		item.Summary,
		item.Description,
		item.SEO.MetaTitle,
		item.SEO.MetaDescription,
	}
	fields = append(fields, item.SEO.Keywords...)
	fields = append(fields, item.Locations...)
	fields = append(fields, item.Categories...)
	if isReview {
		fields = append(fields, br.BuilderName)
	}
	return fields
}

// SortItems orders items the way repositories return them.
func SortItems[E Extra](items []*Item[E], order Order) {
	slices.SortStableFunc(items, func(a, b *Item[E]) int {
		if order == OrderPublicationDesc {
			if c := b.NewsMeta.PublicationDate.Compare(a.NewsMeta.PublicationDate); c != 0 {
				return c
			}
		}
		return cmp.Compare(b.CreatedAt.UnixNano(), a.CreatedAt.UnixNano())
	})
}

// Page applies offset and limit to an ordered slice.
func Page[T any](items []T, offset, limit int) []T {
	if offset >= len(items) {
		return []T{}
	}
	items = items[max(offset, 0):]
	if limit > 0 && len(items) > limit {
		items = items[:limit]
	}
	return items
}
