package utils

import (
	"html"
	"strings"

	"github.com/microcosm-cc/bluemonday"
)

var (
	ugcPolicy    = bluemonday.UGCPolicy()
	strictPolicy = bluemonday.StrictPolicy()
	wordPolicy   = newWordPolicy()
)

// Like the strict policy, but stripped tags leave a space behind so
// "<p>one</p><p>two</p>" stays two words.
func newWordPolicy() *bluemonday.Policy {
	p := bluemonday.StrictPolicy()
	p.AddSpaceWhenStrippingTag(true)
	return p
}

// SanitizeHTML keeps safe user-generated markup (links, emphasis, lists) and strips the rest.
func SanitizeHTML(input string) string {
	return strings.TrimSpace(ugcPolicy.Sanitize(input))
}

// SanitizeText strips all markup; used for single-line fields such as titles and names.
// The result is plain text, so entities the policy emits are decoded again;
// escaping is left to whoever renders it.
func SanitizeText(input string) string {
	return strings.TrimSpace(html.UnescapeString(strictPolicy.Sanitize(input)))
}

// PlainText reduces markup to its readable words, one space where each tag was.
func PlainText(input string) string {
	return strings.TrimSpace(html.UnescapeString(wordPolicy.Sanitize(input)))
}
