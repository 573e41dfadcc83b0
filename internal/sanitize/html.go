package sanitize

import (
	"html"
	"strings"

	"github.com/microcosm-cc/bluemonday"
)

var (
	// StrictPolicy removes all HTML tags and attributes.
	StrictPolicy = bluemonday.StrictPolicy()

	// UGCPolicy allows basic formatting such as paragraphs, emphasis, links and lists.
	UGCPolicy = bluemonday.UGCPolicy()
)

// Text strips all markup and returns trimmed plain text. Entities produced
// by the policy are decoded again since the result is served as JSON, not HTML.
// Use for: event titles, locations, user names, tags.
func Text(input string) string {
	return strings.TrimSpace(html.UnescapeString(StrictPolicy.Sanitize(input)))
}

// HTML keeps safe formatting. Use for: event descriptions, requirements, bios.
func HTML(input string) string {
	return strings.TrimSpace(UGCPolicy.Sanitize(input))
}

// TextSlice sanitizes each entry and drops the ones that end up empty.
func TextSlice(inputs []string) []string {
	if inputs == nil {
		return nil
	}
	sanitized := make([]string, 0, len(inputs))
	for _, input := range inputs {
		if clean := Text(input); clean != "" {
			sanitized = append(sanitized, clean)
		}
	}
	return sanitized
}
