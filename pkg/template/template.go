// Package template provides the placeholder substitution used by outbound
// automation messages.
package template

import (
	"regexp"
	"strings"
)

var placeholderPattern = regexp.MustCompile(`\{\{([\w.]+)\}\}`)

// Render replaces every {{identifier}} placeholder with the matching value
// from vars. Missing variables render as the empty string. There is no
// escaping, no expressions and no nesting.
func Render(input string, vars map[string]string) string {
	return placeholderPattern.ReplaceAllStringFunc(input, func(match string) string {
		name := placeholderPattern.FindStringSubmatch(match)[1]

		return vars[name]
	})
}

// NewlinesToParagraphs turns soft line breaks in plain-text email bodies into
// paragraph tags so the rendered HTML keeps the author's spacing.
func NewlinesToParagraphs(body string) string {
	normalized := strings.ReplaceAll(body, "\r\n", "\n")
	paragraphs := strings.Split(normalized, "\n")

	var sb strings.Builder
	for _, p := range paragraphs {
		sb.WriteString("<p>")
		sb.WriteString(p)
		sb.WriteString("</p>")
	}

	return sb.String()
}
