// Package sanitizer cleans user-supplied text and renders markdown into safe HTML.
package sanitizer

import (
	"bytes"
	"strings"
	"sync"

	"github.com/microcosm-cc/bluemonday"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
)

var (
	strictPolicy  *bluemonday.Policy
	contentPolicy *bluemonday.Policy
	markdown      goldmark.Markdown
	initOnce      sync.Once
)

func initPolicies() {
	initOnce.Do(func() {
		strictPolicy = bluemonday.StrictPolicy()

		contentPolicy = bluemonday.NewPolicy()
		contentPolicy.AllowStandardURLs()
		contentPolicy.AllowElements(
			"p", "br", "hr",
			"h2", "h3", "h4",
			"strong", "b", "em", "i", "del",
			"ul", "ol", "li",
			"code", "pre", "blockquote",
			"table", "thead", "tbody", "tr", "th", "td",
		)
		contentPolicy.AllowAttrs("href").OnElements("a")
		contentPolicy.RequireNoFollowOnLinks(true)
		contentPolicy.AddTargetBlankToFullyQualifiedLinks(true)

		markdown = goldmark.New(goldmark.WithExtensions(extension.GFM))
	})
}

// StripHTML removes every tag and collapses surrounding whitespace.
// Use for single-line form values such as titles and names.
func StripHTML(s string) string {
	initPolicies()
	return strings.Join(strings.Fields(strictPolicy.Sanitize(s)), " ")
}

// SanitizeHTML keeps basic formatting and drops scripts, event handlers
// and javascript: URLs.
func SanitizeHTML(s string) string {
	initPolicies()
	return contentPolicy.Sanitize(s)
}

// Markdown renders src and sanitizes the output. Raw HTML in src is escaped
// by goldmark and whatever survives rendering still goes through the policy.
func Markdown(src string) (string, error) {
	initPolicies()

	var buf bytes.Buffer
	if err := markdown.Convert([]byte(src), &buf); err != nil {
		return "", err
	}
	return contentPolicy.SanitizeReader(&buf).String(), nil
}
