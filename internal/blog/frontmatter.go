// Package blog implements the content synchronization engine: parsing and
// serializing post files, deriving stable identifiers, versioned reads and
// writes against the remote store, and keeping the denormalized listing
// aggregate in step with every save and delete.
package blog

import (
	"fmt"
	"regexp"
	"strings"
	"time"
)

const dateLayout = "2006-01-02"

// PostContent is the parsed form of a post file: the header fields plus
// the free-form body.
type PostContent struct {
	Title string
	Date  string
	Body  string
}

var (
	// headerRe matches a frontmatter block at the very start of the text.
	// The optional blank line after the closing marker belongs to the
	// serialized form, not the body, so it is consumed here.
	headerRe = regexp.MustCompile(`(?s)^---\n(.*?)\n---\n\n?(.*)$`)

	titleLineRe = regexp.MustCompile(`(?m)^title:[ \t]*(.+)$`)
	dateLineRe  = regexp.MustCompile(`(?m)^date:[ \t]*(.+)$`)
)

// ParsePost extracts the title, date and body from a post's raw text.
// Without a header block the whole text is the body and the fields take
// their defaults: "Untitled" and today's date. The date value is kept
// verbatim as text; parsing it into a calendar type here would invite
// timezone-induced day shifts.
func ParsePost(raw string) PostContent {
	pc := PostContent{
		Title: "Untitled",
		Date:  time.Now().Format(dateLayout),
		Body:  raw,
	}

	m := headerRe.FindStringSubmatch(raw)
	if m == nil {
		return pc
	}

	header := m[1]
	pc.Body = m[2]

	// First match wins; duplicate keys further down are ignored.
	if tm := titleLineRe.FindStringSubmatch(header); tm != nil {
		pc.Title = stripQuotes(strings.TrimSpace(tm[1]))
	}

	if dm := dateLineRe.FindStringSubmatch(header); dm != nil {
		pc.Date = strings.TrimSpace(dm[1])
	}

	return pc
}

// stripQuotes removes one matching pair of surrounding quote characters.
// Interior quotes and mismatched or nested pairs beyond the first layer
// are kept verbatim.
func stripQuotes(s string) string {
	if len(s) < 2 {
		return s
	}

	first, last := s[0], s[len(s)-1]
	if first == last && (first == '"' || first == '\'') {
		return s[1 : len(s)-1]
	}

	return s
}

// RenderPost serializes a post back to its file form: quoted title,
// verbatim date, a blank line, then the body. Round-trips through
// ParsePost for titles free of quote characters.
func RenderPost(title, date, body string) string {
	return fmt.Sprintf("---\ntitle: \"%s\"\ndate: %s\n---\n\n%s", title, date, body)
}
