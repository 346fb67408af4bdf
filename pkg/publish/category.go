package publish

import (
	"context"
	"fmt"
	"strings"

	"github.com/soypete/autopilot/pkg/llm"
)

const categoryChoiceSchema = `{
  "type": "object",
  "required": ["id"],
  "properties": {
    "id": {"type": "integer"},
    "reason": {"type": "string"}
  }
}`

// SelectCategory picks the category for a post. A configured category wins
// when the CMS still lists it (or lists nothing at all).
// Otherwise the model chooses from cats; an unusable answer falls back to the
// first category. It returns nil when cats is empty and nothing is configured.
// The returned error reports a failed model call; the fallback is still set.
func SelectCategory(ctx context.Context, backend llm.Backend, configured *int64, cats []Category, title string, keywords []string) (*int64, error) {
	if configured != nil && (len(cats) == 0 || hasCategory(cats, *configured)) {
		id := *configured
		return &id, nil
	}
	if len(cats) == 0 {
		return nil, nil
	}

	first := cats[0].ID
	if backend == nil || len(cats) == 1 {
		return &first, nil
	}

	var list strings.Builder
	for _, c := range cats {
		fmt.Fprintf(&list, "- id %d: %s\n", c.ID, c.Name)
	}
	prompt := fmt.Sprintf(`Article title: %s
Keywords: %s

Categories:
%s
Pick the single best category. Respond with JSON: {"id": <category id>}`,
		title, strings.Join(keywords, ", "), list.String())

	resp, err := backend.Infer(ctx, &llm.InferenceRequest{
		SystemPrompt: "You file blog posts into categories. Respond with JSON only.",
		UserPrompt:   prompt,
		Temperature:  0.2,
		MaxTokens:    100,
		Metadata:     map[string]string{"feature": "category_selection"},
	})
	if err != nil {
		return &first, fmt.Errorf("category selection call failed: %w", err)
	}

	var choice struct {
		ID int64 `json:"id"`
	}
	if err := llm.DecodeJSON(resp.Text, categoryChoiceSchema, &choice); err != nil {
		return &first, nil
	}
	if hasCategory(cats, choice.ID) {
		id := choice.ID
		return &id, nil
	}
	return &first, nil
}

func hasCategory(cats []Category, id int64) bool {
	for _, c := range cats {
		if c.ID == id {
			return true
		}
	}
	return false
}
