// internal/app/system/htmlsanitize/htmlsanitize.go
package htmlsanitize

import (
	"html"
	"html/template"
	"strings"
	"sync"

	"github.com/microcosm-cc/bluemonday"
)

var (
	richOnce   sync.Once
	richPolicy *bluemonday.Policy

	inlineOnce   sync.Once
	inlinePolicy *bluemonday.Policy
)

// rich is used for blog post bodies and workshop descriptions.
func rich() *bluemonday.Policy {
	richOnce.Do(func() {
		p := bluemonday.UGCPolicy()
		p.AllowElements("u", "s", "sub", "sup", "mark")
		p.AllowAttrs("class").OnElements("table", "tr", "td", "th", "p", "span")
		p.AllowStyles("text-align", "width").OnElements("table", "td", "th", "p")
		richPolicy = p
	})
	return richPolicy
}

// inline is used for alert messages: text plus light emphasis only.
func inline() *bluemonday.Policy {
	inlineOnce.Do(func() {
		p := bluemonday.NewPolicy()
		p.AllowElements("b", "strong", "i", "em", "br")
		inlinePolicy = p
	})
	return inlinePolicy
}

// Sanitize strips anything unsafe from user-authored HTML.
func Sanitize(s string) string {
	if s == "" {
		return ""
	}
	return rich().Sanitize(s)
}

// SanitizeToHTML is Sanitize typed for direct template output.
func SanitizeToHTML(s string) template.HTML {
	return template.HTML(Sanitize(s))
}

// Inline sanitizes a short message, keeping only emphasis tags.
func Inline(s string) template.HTML {
	if s == "" {
		return ""
	}
	return template.HTML(inline().Sanitize(s))
}

// IsPlainText reports whether s has no markup at all.
func IsPlainText(s string) bool {
	return !(strings.Contains(s, "<") && strings.Contains(s, ">"))
}

// PlainTextToHTML escapes s and wraps it in a paragraph, keeping line breaks.
func PlainTextToHTML(s string) string {
	if s == "" {
		return ""
	}
	escaped := html.EscapeString(s)
	escaped = strings.ReplaceAll(escaped, "\r\n", "\n")
	return "<p>" + strings.ReplaceAll(escaped, "\n", "<br>") + "</p>"
}

// PrepareForDisplay renders post content that may be either plain text
// typed into a textarea or HTML.
func PrepareForDisplay(s string) template.HTML {
	if s == "" {
		return ""
	}
	if IsPlainText(s) {
		return template.HTML(PlainTextToHTML(s))
	}
	return SanitizeToHTML(s)
}

// Excerpt returns the first n runes of the text content of s.
func Excerpt(s string, n int) string {
	text := strings.Join(strings.Fields(bluemonday.StrictPolicy().Sanitize(s)), " ")
	text = html.UnescapeString(text)
	r := []rune(text)
	if len(r) <= n {
		return text
	}
	return strings.TrimSpace(string(r[:n])) + "…"
}
