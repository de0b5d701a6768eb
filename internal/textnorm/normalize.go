// Package textnorm canonicalizes email body text for the statistical
// classifier and prepares text for the remote-model prompt.
package textnorm

import (
	"regexp"
	"strings"
	"unicode/utf8"
)

var (
	urlPattern    = regexp.MustCompile(`https?://\S+|www\.\S+`)
	emailPattern  = regexp.MustCompile(`\S+@\S+`)
	nonWordChars  = regexp.MustCompile(`[^\w\s]`)
	digitRuns     = regexp.MustCompile(`\d+`)
	whitespaceRun = regexp.MustCompile(`\s+`)
)

// Normalize lowercases text and replaces URLs, email addresses and digit
// runs with sentinel tokens. Substitution order is load-bearing: URLs and
// addresses must be replaced before punctuation is stripped, otherwise
// they would be shredded into meaningless fragments first.
func Normalize(text string) string {
	if text == "" {
		return ""
	}

	text = strings.ToLower(text)
	text = urlPattern.ReplaceAllString(text, " URL ")
	text = emailPattern.ReplaceAllString(text, " EMAIL ")
	text = nonWordChars.ReplaceAllString(text, " ")
	text = digitRuns.ReplaceAllString(text, " NUM ")
	text = whitespaceRun.ReplaceAllString(text, " ")

	return strings.TrimSpace(text)
}

// Truncate shortens text to at most maxSize bytes, trimming back to a
// valid UTF-8 boundary and marking the cut.
func Truncate(text string, maxSize int) string {
	if maxSize <= 0 || len(text) <= maxSize {
		return text
	}

	truncated := text[:maxSize]
	for !utf8.ValidString(truncated) && len(truncated) > 0 {
		truncated = truncated[:len(truncated)-1]
	}

	return truncated + "\n[... Content truncated due to size limits ...]"
}
