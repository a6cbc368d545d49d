package realtycms

import (
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

var slugPattern = regexp.MustCompile(`^[a-z0-9-]+$`)

// Slugify derives a URL-safe slug from a title: accents are folded, the text
// is lower-cased, anything outside [a-z0-9 -] is dropped and runs of spaces
// and hyphens become a single hyphen. The result may be empty.
func Slugify(title string) string {
	folded, _, err := transform.String(transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC), title)
	if err != nil {
		folded = title
	}
	folded = strings.ReplaceAll(strings.ToLower(folded), "&", " and ")

	var b strings.Builder
	b.Grow(len(folded))
	pendingHyphen := false
	for _, r := range folded {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			if pendingHyphen && b.Len() > 0 {
				b.WriteByte('-')
			}
			pendingHyphen = false
			b.WriteRune(r)
		case r == '-' || unicode.IsSpace(r):
			pendingHyphen = true
		}
	}
	return b.String()
}

// ValidSlug reports whether s is a well formed slug.
func ValidSlug(s string) bool {
	return slugPattern.MatchString(s)
}

// ResolveSlug returns the caller supplied slug when present, otherwise the
// slug derived from title.
func ResolveSlug(title, supplied string) (string, error) {
	if s := strings.TrimSpace(supplied); s != "" {
		if !ValidSlug(s) {
			return "", ErrInvalidSlug
		}
		return s, nil
	}
	s := Slugify(title)
	if s == "" {
		return "", ErrEmptySlug
	}
	return s, nil
}
