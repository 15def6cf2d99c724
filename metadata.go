package postshot

import (
	"strings"
	"time"

	"golang.org/x/net/html"
)

// createdAtLayouts are tried in order when parsing created_at.
var createdAtLayouts = []string{
	time.RubyDate,
	time.RFC1123Z,
	time.RFC1123,
	time.RFC3339,
}

func parseCreatedAt(s string) (time.Time, bool) {
	for _, layout := range createdAtLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// formatCreatedAt formats t like "Wed Aug 27 1:08PM 2008 PDT", without leading zeros.
func formatCreatedAt(t time.Time) string {
	parts := []string{
		t.Format("Mon Jan"),
		strings.TrimLeft(t.Format("02"), "0"),
		strings.TrimLeft(t.Format("03:04PM 2006"), "0"),
		t.Format("MST"),
	}
	var out []string
	for _, p := range parts {
		if p != "" {
			out = append(out, p)
		}
	}
	return strings.Join(out, " ")
}

// stripTags returns the text content of an HTML fragment.
func stripTags(s string) string {
	var b strings.Builder
	z := html.NewTokenizer(strings.NewReader(s))
	for {
		switch z.Next() {
		case html.ErrorToken:
			return strings.TrimSpace(b.String())
		case html.TextToken:
			b.Write(z.Text())
		}
	}
}

// Metadata builds the line under the post text: date, client, place and reply target.
func (p *Post) Metadata(loc *time.Location) string {
	if loc == nil {
		loc = time.UTC
	}
	var parts []string
	if t, ok := parseCreatedAt(p.CreatedAt); ok {
		parts = append(parts, formatCreatedAt(t.In(loc)))
	}
	if source := stripTags(p.Source); source != "" {
		parts = append(parts, "via "+source)
	}
	if p.Place != nil && p.Place.FullName != "" {
		parts = append(parts, "from "+p.Place.FullName)
	}
	if p.InReplyToScreenName != "" {
		parts = append(parts, "in reply to "+p.InReplyToScreenName)
	}
	return strings.Join(parts, " ")
}
