package images

import (
	"context"
	"fmt"
	"strings"

	"github.com/soypete/autopilot/pkg/llm"
)

const maxPromptContext = 600

// PromptFromContext builds an image prompt from the article topic and the
// text around a placeholder.
func PromptFromContext(topic, section, style string) string {
	section = strings.Join(strings.Fields(section), " ")
	if r := []rune(section); len(r) > maxPromptContext {
		section = string(r[:maxPromptContext])
	}

	var b strings.Builder
	fmt.Fprintf(&b, "A high-quality editorial photograph for an article about %s.", strings.TrimSpace(topic))
	if section != "" {
		fmt.Fprintf(&b, " The image illustrates this section: %s.", strings.TrimRight(section, ". "))
	}
	if style == "vivid" {
		b.WriteString(" Bold colours, dramatic lighting.")
	} else {
		b.WriteString(" Natural light, realistic colours.")
	}
	b.WriteString(" No text, letters, logos or watermarks.")
	return b.String()
}

// Refiner rewrites prompts with a model call.
type Refiner struct {
	backend llm.Backend
}

// NewRefiner creates a prompt refiner.
func NewRefiner(backend llm.Backend) *Refiner {
	return &Refiner{backend: backend}
}

// Refine returns a sharper prompt, or base when the model answer is unusable.
func (r *Refiner) Refine(ctx context.Context, base string) (string, error) {
	resp, err := r.backend.Infer(ctx, &llm.InferenceRequest{
		SystemPrompt: "You write prompts for an image generation model. Reply with the prompt only, one paragraph, in English.",
		UserPrompt:   "Improve this image prompt so it is concrete and visual:\n\n" + base,
		Temperature:  0.7,
		MaxTokens:    300,
		Metadata:     map[string]string{"feature": "image_prompt"},
	})
	if err != nil {
		return base, fmt.Errorf("prompt refinement failed: %w", err)
	}
	refined := strings.Trim(strings.TrimSpace(resp.Text), `"`)
	if len(refined) < 20 {
		return base, nil
	}
	return refined, nil
}
