// Package htmlsanitize cleans user-supplied HTML before it is stored.
package htmlsanitize

import (
	"html"
	"strings"

	"github.com/microcosm-cc/bluemonday"
)

var (
	// post bodies: formatting, links, images, tables
	richPolicy = func() *bluemonday.Policy {
		p := bluemonday.UGCPolicy()
		p.AllowAttrs("class").OnElements("table", "th", "td", "code", "pre")
		p.RequireNoFollowOnLinks(true)
		p.AddTargetBlankToFullyQualifiedLinks(true)
		return p
	}()

	// comments and captions: no markup at all
	plainPolicy = bluemonday.StrictPolicy()
)

// Sanitize returns s with everything outside the post policy removed.
func Sanitize(s string) string {
	if s == "" {
		return ""
	}
	return strings.TrimSpace(richPolicy.Sanitize(s))
}

// PlainText strips all markup from s. Entities the policy escapes are
// turned back into characters; the result is text, not HTML.
func PlainText(s string) string {
	return strings.TrimSpace(html.UnescapeString(plainPolicy.Sanitize(s)))
}
