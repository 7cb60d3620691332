package utils

import (
	"strings"

	"github.com/microcosm-cc/bluemonday"
)

var richText = bluemonday.UGCPolicy()

// SanitizeHTML strips scripts, event handlers and unsafe URLs from rich text
// descriptions while keeping basic formatting.
func SanitizeHTML(s string) string {
	return strings.TrimSpace(richText.Sanitize(s))
}
