// Package slug builds URL slugs and resolves collisions.
package slug

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

const (
	maxLength = 80
	fallback  = "post"
)

var nonAlnum = regexp.MustCompile(`[^a-z0-9]+`)

// special covers letters that do not decompose into ASCII plus a mark.
var special = strings.NewReplacer(
	"ß", "ss", "æ", "ae", "Æ", "ae", "ø", "o", "Ø", "o", "œ", "oe", "Œ", "oe",
	"ł", "l", "Ł", "l", "đ", "d", "Đ", "d", "&", " en ",
)

// Make lowercases s, folds it to ASCII and joins word runs with hyphens.
func Make(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	folded, _, err := transform.String(t, special.Replace(s))
	if err != nil {
		folded = s
	}
	out := strings.Trim(nonAlnum.ReplaceAllString(strings.ToLower(folded), "-"), "-")
	if len(out) > maxLength {
		out = out[:maxLength]
		if i := strings.LastIndex(out, "-"); i > 0 {
			out = out[:i]
		}
		out = strings.Trim(out, "-")
	}
	if out == "" {
		return fallback
	}
	return out
}

// Unique returns base when it is free, otherwise the first free base-2,
// base-3, ... suffix.
func Unique(base string, existing map[string]bool) string {
	if !existing[base] {
		return base
	}
	for i := 2; ; i++ {
		candidate := fmt.Sprintf("%s-%d", base, i)
		if !existing[candidate] {
			return candidate
		}
	}
}

// Lister returns existing slugs that may collide with base.
type Lister interface {
	ExistingSlugs(ctx context.Context, base string) ([]string, error)
}

// Generate slugifies title and resolves collisions against the lister.
func Generate(ctx context.Context, title string, lister Lister) (string, error) {
	base := Make(title)
	if lister == nil {
		return base, nil
	}
	slugs, err := lister.ExistingSlugs(ctx, base)
	if err != nil {
		return "", fmt.Errorf("failed to list existing slugs: %w", err)
	}
	existing := make(map[string]bool, len(slugs))
	for _, s := range slugs {
		existing[s] = true
	}
	return Unique(base, existing), nil
}
