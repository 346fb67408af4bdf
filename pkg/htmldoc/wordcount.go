package htmldoc

import (
	"regexp"
	"strings"
)

var (
	tagPattern        = regexp.MustCompile(`<[^>]*>`)
	whitespacePattern = regexp.MustCompile(`\s+`)
)

// StripTags removes every tag from s.
func StripTags(s string) string {
	return tagPattern.ReplaceAllString(s, "")
}

// WordCount strips tags, collapses whitespace, splits on spaces and counts
// the non-empty tokens.
func WordCount(s string) int {
	collapsed := strings.TrimSpace(whitespacePattern.ReplaceAllString(StripTags(s), " "))
	count := 0
	for _, w := range strings.Split(collapsed, " ") {
		if w != "" {
			count++
		}
	}
	return count
}
