package blog

import (
	"fmt"
	"path"
	"regexp"
	"strings"

	"golang.org/x/text/unicode/norm"
)

var (
	nonAlnumRe      = regexp.MustCompile(`[^a-z0-9]+`)
	canonicalNameRe = regexp.MustCompile(`^(\d{4})-(\d{2})-(\d{2})-(.+)\.md$`)
)

// Filename derives the storage key for a post from its title and date:
// "{date}-{slug}.md". The title is NFC-normalized so composed and
// decomposed input produce the same key, then lowercased with every run
// of non-alphanumeric characters collapsed to a single hyphen.
// Collisions are not detected here; a create against an existing key is
// rejected by the store's version check.
func Filename(title, date string) string {
	slug := strings.ToLower(norm.NFC.String(title))
	slug = nonAlnumRe.ReplaceAllString(slug, "-")
	slug = strings.Trim(slug, "-")

	return fmt.Sprintf("%s-%s.md", date, slug)
}

// Slug derives the compact public identifier for a filename. Canonical
// names of the form YYYY-MM-DD-words.md become the two-digit year, month
// and day followed by the CamelCased words:
//
//	2024-03-10-hello-world.md -> 240310HelloWorld
//
// Anything else falls back to the filename with its extension stripped.
// The result is stable for a given filename and survives storage layout
// changes, so it is safe to use as the public post identifier.
func Slug(filename string) string {
	m := canonicalNameRe.FindStringSubmatch(filename)
	if m == nil {
		return strings.TrimSuffix(filename, path.Ext(filename))
	}

	var b strings.Builder
	b.WriteString(m[1][2:]) // two-digit year
	b.WriteString(m[2])
	b.WriteString(m[3])

	for _, word := range strings.Split(m[4], "-") {
		if word == "" {
			continue
		}

		runes := []rune(word)
		b.WriteString(strings.ToUpper(string(runes[0])))
		b.WriteString(string(runes[1:]))
	}

	return b.String()
}
