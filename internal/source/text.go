package source

import (
	"html"
	"regexp"
	"strings"
)

var (
	htmlTagRe    = regexp.MustCompile(`<[^>]*>`)
	paragraphRe  = regexp.MustCompile(`(?i)</p>\s*<p[^>]*>|<p>|<br\s*/?>`)
	whitespaceRe = regexp.MustCompile(`[ \t]{2,}`)
)

// stripHTML turns a post body into plain text. Paragraph and line breaks
// become newlines; other tags are dropped.
func stripHTML(s string) string {
	s = paragraphRe.ReplaceAllString(s, "\n")
	s = htmlTagRe.ReplaceAllString(s, " ")
	s = html.UnescapeString(s)
	s = whitespaceRe.ReplaceAllString(s, " ")
	return strings.TrimSpace(s)
}
