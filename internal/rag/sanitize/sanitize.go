// Package sanitize strips model reasoning markup from generated answers.
package sanitize

import (
	"regexp"
	"strings"
)

var thinkBlock = regexp.MustCompile(`(?s)<think>.*?</think>`)

const openTag = "<think>"

// Sanitize removes every <think>...</think> region and trims the result.
// When an unterminated <think> is left over the input is returned unchanged,
// so a truncated answer is never cut down to nothing.
func Sanitize(text string) string {
	cleaned := thinkBlock.ReplaceAllString(text, "")
	if strings.Contains(cleaned, openTag) {
		return text
	}
	return strings.TrimSpace(cleaned)
}
