package validation

import (
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/microcosm-cc/bluemonday"
)

var (
	hashtagRegex = regexp.MustCompile(`#[^\s#]+`)
	strict       = bluemonday.StrictPolicy()
)

// ExtractHashtags returns the lower-cased hashtags of content in order of first appearance,
// without duplicates and without the leading '#'.
func ExtractHashtags(content string) []string {
	matches := hashtagRegex.FindAllString(content, -1)
	tags := make([]string, 0, len(matches))
	seen := make(map[string]struct{}, len(matches))
	for _, m := range matches {
		tag := strings.ToLower(m[1:])
		if _, ok := seen[tag]; ok {
			continue
		}
		seen[tag] = struct{}{}
		tags = append(tags, tag)
	}
	return tags
}

// StripMarkup removes every HTML element and attribute from s.
func StripMarkup(s string) string {
	return strings.TrimSpace(strict.Sanitize(s))
}

// CharCount counts characters rather than bytes.
func CharCount(s string) int {
	return utf8.RuneCountInString(s)
}

// Truncate cuts s to at most max characters.
func Truncate(s string, max int) string {
	if max < 0 || utf8.RuneCountInString(s) <= max {
		return s
	}
	r := []rune(s)
	return string(r[:max])
}
