// Package links selects and discovers affiliate and internal link
// candidates for an article.
package links

import (
	"sort"
	"strings"
	"unicode"
)

// Relevance is a coarse textual relevance grade.
type Relevance string

const (
	RelevanceHigh   Relevance = "high"
	RelevanceMedium Relevance = "medium"
	RelevanceLow    Relevance = "low"
)

// Candidate is a link that may be woven into an article.
type Candidate struct {
	ID         string    `json:"id,omitempty"`
	URL        string    `json:"url"`
	Title      string    `json:"title"`
	AnchorHint string    `json:"anchorHint,omitempty"`
	Category   string    `json:"category,omitempty"`
	Relevance  Relevance `json:"relevance,omitempty"`
	Reason     string    `json:"reason,omitempty"`
	UsageCount int       `json:"usageCount"`
}

// Anchor returns the preferred anchor text.
func (c Candidate) Anchor() string {
	if strings.TrimSpace(c.AnchorHint) != "" {
		return strings.TrimSpace(c.AnchorHint)
	}
	return strings.TrimSpace(c.Title)
}

// SanitizeIndices keeps the 1-based indices in 1..n, drops duplicates and
// keeps at most limit of them in their original order.
func SanitizeIndices(raw []int, n, limit int) []int {
	out := make([]int, 0, len(raw))
	seen := make(map[int]bool)
	for _, i := range raw {
		if i < 1 || i > n || seen[i] {
			continue
		}
		seen[i] = true
		out = append(out, i)
		if limit > 0 && len(out) == limit {
			break
		}
	}
	return out
}

func tokens(s string) map[string]bool {
	out := make(map[string]bool)
	for _, f := range strings.FieldsFunc(strings.ToLower(s), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	}) {
		if len(f) >= 3 {
			out[f] = true
		}
	}
	return out
}

func keywordHits(text string, keywords []string) int {
	have := tokens(text)
	hits := 0
	for _, kw := range keywords {
		for w := range tokens(kw) {
			if have[w] {
				hits++
				break
			}
		}
	}
	return hits
}

// ScoreRelevance grades text (a title, URL or both) by keyword overlap.
func ScoreRelevance(text string, keywords []string) Relevance {
	if len(keywords) == 0 {
		return RelevanceLow
	}
	hits := keywordHits(text, keywords)
	switch {
	case hits >= 2 || float64(hits)/float64(len(keywords)) >= 0.5:
		return RelevanceHigh
	case hits == 1:
		return RelevanceMedium
	default:
		return RelevanceLow
	}
}

// Rank grades every candidate against the keywords and returns at most limit
// of them, most relevant and least used first.
func Rank(candidates []Candidate, keywords []string, limit int) []Candidate {
	type scored struct {
		c    Candidate
		hits int
	}
	list := make([]scored, len(candidates))
	for i, c := range candidates {
		text := c.Title + " " + c.URL + " " + c.AnchorHint + " " + c.Category
		c.Relevance = ScoreRelevance(text, keywords)
		list[i] = scored{c: c, hits: keywordHits(text, keywords)}
	}
	sort.SliceStable(list, func(i, j int) bool {
		if list[i].hits != list[j].hits {
			return list[i].hits > list[j].hits
		}
		return list[i].c.UsageCount < list[j].c.UsageCount
	})
	if limit > 0 && len(list) > limit {
		list = list[:limit]
	}
	out := make([]Candidate, len(list))
	for i, s := range list {
		out[i] = s.c
	}
	return out
}
