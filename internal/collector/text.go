package collector

import (
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// stripHTML turns a feed description (often an HTML fragment) into one line of plain text.
func stripHTML(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return ""
	}
	text := s
	if strings.ContainsAny(s, "<&") {
		doc, err := goquery.NewDocumentFromReader(strings.NewReader(s))
		if err == nil {
			text = doc.Text()
		}
	}
	return strings.Join(strings.Fields(text), " ")
}

// truncateRunes cuts s to at most limit runes and appends an ellipsis when it had to cut.
func truncateRunes(s string, limit int) string {
	if limit <= 0 {
		return ""
	}
	rs := []rune(s)
	if len(rs) <= limit {
		return s
	}
	return strings.TrimSpace(string(rs[:limit])) + "…"
}

var xmlDeclEncoding = regexp.MustCompile(`(?i)^(\s*<\?xml[^>]*?\sencoding\s*=\s*)("[^"]*"|'[^']*')`)

// transcoded reports whether colly has already converted the body to UTF-8, which it
// does when Content-Type names a charset other than UTF-8.
func transcoded(contentType string) bool {
	ct := strings.ToLower(contentType)
	if !strings.Contains(ct, "charset") {
		return false
	}
	return !strings.Contains(ct, "utf-8") && !strings.Contains(ct, "utf8")
}

// rewriteXMLEncoding makes the XML declaration match a body that is already UTF-8,
// so the feed parser does not decode it a second time.
func rewriteXMLEncoding(body []byte) []byte {
	return xmlDeclEncoding.ReplaceAll(body, []byte(`${1}"UTF-8"`))
}
