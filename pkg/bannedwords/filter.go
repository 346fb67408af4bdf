// Package bannedwords removes blocklisted words and phrases from article
// text without touching markup or URLs.
package bannedwords

import (
	"errors"
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/soypete/autopilot/pkg/htmldoc"
)

// ErrExcessiveRemoval is returned when removal would drop more than half of
// the article text. The input is left unchanged.
var ErrExcessiveRemoval = errors.New("banned word removal would remove too much text")

var (
	multiSpace       = regexp.MustCompile(`[ \t]{2,}`)
	spaceBeforePunct = regexp.MustCompile(`[ \t]+([.,;:!?])`)
)

// Filter matches a fixed blocklist case-insensitively on whole words.
type Filter struct {
	words    []string
	patterns []*regexp.Regexp
}

// New builds a filter. Blank and duplicate entries are ignored.
func New(words []string) *Filter {
	f := &Filter{}
	seen := make(map[string]bool)
	for _, w := range words {
		w = strings.TrimSpace(w)
		key := strings.ToLower(w)
		if w == "" || seen[key] {
			continue
		}
		seen[key] = true
		f.words = append(f.words, w)
		f.patterns = append(f.patterns, regexp.MustCompile(`(?i)`+regexp.QuoteMeta(w)))
	}
	return f
}

// Empty reports whether the blocklist has no entries.
func (f *Filter) Empty() bool {
	return f == nil || len(f.words) == 0
}

// Words returns the blocklist.
func (f *Filter) Words() []string {
	if f == nil {
		return nil
	}
	return append([]string(nil), f.words...)
}

// Scan lists the blocklist entries present in text, in blocklist order.
func (f *Filter) Scan(text string) []string {
	if f.Empty() {
		return nil
	}
	var found []string
	for i, re := range f.patterns {
		if len(matches(re, text)) > 0 {
			found = append(found, f.words[i])
		}
	}
	return found
}

// Clean removes every blocklisted occurrence from a plain text string and
// tidies the whitespace around removals. Text without matches is returned
// unchanged.
func (f *Filter) Clean(text string) string {
	if f.Empty() {
		return text
	}
	out := text
	// A pass can join words into a new match, so repeat until stable. Every
	// changing pass shortens the text.
	for {
		changed := false
		for _, re := range f.patterns {
			locs := matches(re, out)
			if len(locs) == 0 {
				continue
			}
			changed = true
			var b strings.Builder
			prev := 0
			for _, loc := range locs {
				b.WriteString(out[prev:loc[0]])
				prev = loc[1]
			}
			b.WriteString(out[prev:])
			out = b.String()
		}
		if !changed {
			break
		}
		out = multiSpace.ReplaceAllString(out, " ")
		out = spaceBeforePunct.ReplaceAllString(out, "$1")
	}
	return out
}

// Apply removes blocklisted text from the document's text nodes. It returns
// the number of text nodes changed.
func (f *Filter) Apply(doc *htmldoc.Document) (int, error) {
	if f.Empty() {
		return 0, nil
	}
	n, ok := doc.RewriteText(f.Clean, func(before, after int) bool {
		return before == 0 || after*2 >= before
	})
	if !ok {
		return 0, ErrExcessiveRemoval
	}
	return n, nil
}

// Remove is Apply over an HTML string.
func (f *Filter) Remove(html string) (string, error) {
	if f.Empty() {
		return html, nil
	}
	doc, err := htmldoc.Parse(html)
	if err != nil {
		return html, err
	}
	n, err := f.Apply(doc)
	if err != nil {
		return html, err
	}
	if n == 0 {
		return html, nil
	}
	return doc.HTML(), nil
}

// matches returns whole-word match locations.
func matches(re *regexp.Regexp, s string) [][]int {
	var out [][]int
	for _, loc := range re.FindAllStringIndex(s, -1) {
		if wordBoundary(s, loc[0], true) && wordBoundary(s, loc[1], false) {
			out = append(out, loc)
		}
	}
	return out
}

func wordBoundary(s string, i int, before bool) bool {
	var r rune
	if before {
		if i == 0 {
			return true
		}
		r, _ = utf8.DecodeLastRuneInString(s[:i])
	} else {
		if i >= len(s) {
			return true
		}
		r, _ = utf8.DecodeRuneInString(s[i:])
	}
	return !unicode.IsLetter(r) && !unicode.IsDigit(r)
}
