package links

import (
	"context"
	"fmt"
	"strings"

	"github.com/soypete/autopilot/pkg/llm"
)

const (
	indexListSchema = `{"type": "array", "items": {"type": "integer"}}`

	internalChoiceSchema = `{
  "type": "array",
  "items": {
    "type": "object",
    "required": ["index"],
    "properties": {
      "index": {"type": "integer"},
      "reason": {"type": "string"}
    }
  }
}`
)

// Selector picks relevant candidates with a model call.
type Selector struct {
	backend     llm.Backend
	temperature float64
}

// NewSelector creates a selector.
func NewSelector(backend llm.Backend) *Selector {
	return &Selector{backend: backend, temperature: 0.2}
}

func numbered(candidates []Candidate) string {
	var b strings.Builder
	for i, c := range candidates {
		fmt.Fprintf(&b, "%d. %s (%s)", i+1, c.Title, c.URL)
		if c.Category != "" {
			fmt.Fprintf(&b, " [%s]", c.Category)
		}
		if c.Relevance != "" {
			fmt.Fprintf(&b, " relevance: %s", c.Relevance)
		}
		b.WriteString("\n")
	}
	return b.String()
}

// SelectAffiliate returns up to limit affiliate candidates the model judges
// relevant to the article.
func (s *Selector) SelectAffiliate(ctx context.Context, title string, keywords []string, candidates []Candidate, limit int) ([]Candidate, error) {
	if len(candidates) == 0 || limit <= 0 {
		return nil, nil
	}

	prompt := fmt.Sprintf(`Article title: %s
Keywords: %s

Affiliate links:
%s
Select at most %d links that fit this article naturally. Respond with a JSON array of link numbers, for example [1, 3]. Respond with [] if none fit.`,
		title, strings.Join(keywords, ", "), numbered(candidates), limit)

	resp, err := s.backend.Infer(ctx, &llm.InferenceRequest{
		SystemPrompt: "You select affiliate links for articles. Respond with JSON only.",
		UserPrompt:   prompt,
		Temperature:  s.temperature,
		MaxTokens:    200,
		Metadata:     map[string]string{"feature": "affiliate_selection"},
	})
	if err != nil {
		return nil, fmt.Errorf("affiliate selection call failed: %w", err)
	}

	var raw []int
	if err := llm.DecodeJSON(resp.Text, indexListSchema, &raw); err != nil {
		return nil, fmt.Errorf("affiliate selection unusable: %w", err)
	}

	var out []Candidate
	for _, i := range SanitizeIndices(raw, len(candidates), limit) {
		out = append(out, candidates[i-1])
	}
	return out, nil
}

// SelectInternal returns up to limit internal pages worth linking to, each
// with the model's reason.
func (s *Selector) SelectInternal(ctx context.Context, title string, keywords []string, candidates []Candidate, limit int) ([]Candidate, error) {
	if len(candidates) == 0 || limit <= 0 {
		return nil, nil
	}

	prompt := fmt.Sprintf(`Article title: %s
Keywords: %s

Existing pages on the same website:
%s
Select at most %d pages a reader of this article would benefit from. Respond with a JSON array like [{"index": 2, "reason": "explains the brewing method in depth"}].`,
		title, strings.Join(keywords, ", "), numbered(candidates), limit)

	resp, err := s.backend.Infer(ctx, &llm.InferenceRequest{
		SystemPrompt: "You plan internal links for a website. Respond with JSON only.",
		UserPrompt:   prompt,
		Temperature:  s.temperature,
		MaxTokens:    600,
		Metadata:     map[string]string{"feature": "internal_links"},
	})
	if err != nil {
		return nil, fmt.Errorf("internal link selection call failed: %w", err)
	}

	var choices []struct {
		Index  int    `json:"index"`
		Reason string `json:"reason"`
	}
	if err := llm.DecodeJSON(resp.Text, internalChoiceSchema, &choices); err != nil {
		return nil, fmt.Errorf("internal link selection unusable: %w", err)
	}

	raw := make([]int, len(choices))
	reasons := make(map[int]string, len(choices))
	for i, c := range choices {
		raw[i] = c.Index
		if _, ok := reasons[c.Index]; !ok {
			reasons[c.Index] = strings.TrimSpace(c.Reason)
		}
	}

	var out []Candidate
	for _, i := range SanitizeIndices(raw, len(candidates), limit) {
		c := candidates[i-1]
		c.Reason = reasons[i]
		out = append(out, c)
	}
	return out, nil
}
