package normalize

import (
	"html"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// CleanText converts an HTML or HTML-encoded string to plain text and
// collapses whitespace. Entities are unescaped first so double-encoded
// markup is stripped too.
func CleanText(content string) string {
	if content == "" {
		return ""
	}
	text := content
	if strings.ContainsAny(text, "<&") {
		text = html.UnescapeString(text)
	}
	if strings.Contains(text, "<") {
		if doc, err := goquery.NewDocumentFromReader(strings.NewReader(text)); err == nil {
			doc.Find("script, style").Remove()
			// Keep block boundaries from gluing words together.
			doc.Find("br, p, li, div, h1, h2, h3, h4, tr").Each(func(_ int, s *goquery.Selection) {
				s.AppendHtml(" ")
			})
			text = doc.Text()
		}
	}
	return strings.Join(strings.Fields(text), " ")
}

// Truncate returns at most n runes of s.
func Truncate(s string, n int) string {
	if n <= 0 {
		return s
	}
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n])
}
