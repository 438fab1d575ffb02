package news

import (
	"regexp"
	"strings"
	"unicode"

	"github.com/google/uuid"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

const slugAlphabet = "abcdefghijklmnopqrstuvwxyz0123456789"

var nonSlugChars = regexp.MustCompile(`[^a-z0-9]+`)

// Slugify lower-cases the title, strips diacritics and joins the remaining
// alphanumeric runs with dashes.
func Slugify(title string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	plain, _, err := transform.String(t, title)
	if err != nil {
		plain = title
	}
	slug := nonSlugChars.ReplaceAllString(strings.ToLower(plain), "-")
	slug = strings.Trim(slug, "-")
	if slug == "" {
		return "artikel"
	}
	return slug
}

// UniqueSlug appends a random 5 character suffix to Slugify(title).
func UniqueSlug(title string) string {
	return Slugify(title) + "-" + randomSuffix(5)
}

func randomSuffix(n int) string {
	id := uuid.New()
	var b strings.Builder
	for i := 0; i < n; i++ {
		b.WriteByte(slugAlphabet[int(id[i])%len(slugAlphabet)])
	}
	return b.String()
}
