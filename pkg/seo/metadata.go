// Package seo produces search metadata for finished articles.
package seo

import (
	"context"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/soypete/autopilot/pkg/llm"
)

const (
	TitleMin       = 55
	TitleMax       = 60
	DescriptionMin = 150
	DescriptionMax = 155
)

// Metadata is the SEO payload attached to a result and sent to the CMS.
type Metadata struct {
	SEOTitle        string   `json:"seoTitle"`
	MetaDescription string   `json:"metaDescription"`
	FocusKeyword    string   `json:"focusKeyword"`
	ExtraKeywords   []string `json:"extraKeywords"`
	LSIKeywords     []string `json:"lsiKeywords"`
}

const metadataSchema = `{
  "type": "object",
  "required": ["seoTitle", "metaDescription", "focusKeyword"],
  "properties": {
    "seoTitle": {"type": "string", "minLength": 1},
    "metaDescription": {"type": "string", "minLength": 1},
    "focusKeyword": {"type": "string", "minLength": 1},
    "extraKeywords": {"type": "array", "items": {"type": "string"}},
    "lsiKeywords": {"type": "array", "items": {"type": "string"}}
  }
}`

// Generator asks the model for metadata.
type Generator struct {
	backend     llm.Backend
	temperature float64
	maxTokens   int
}

// NewGenerator creates a metadata generator.
func NewGenerator(backend llm.Backend) *Generator {
	return &Generator{backend: backend, temperature: 0.4, maxTokens: 600}
}

// Input is the article data the metadata is derived from.
type Input struct {
	Title    string
	Topic    string
	Keywords []string
	Language string
	Text     string
}

// Generate returns model-produced metadata. On any failure it returns the
// deterministic fallback together with the error so callers can record it.
func (g *Generator) Generate(ctx context.Context, in Input) (*Metadata, error) {
	prompt := buildPrompt(in)
	resp, err := g.backend.Infer(ctx, &llm.InferenceRequest{
		SystemPrompt: "You are an SEO specialist. Respond with a single JSON object and nothing else.",
		UserPrompt:   prompt,
		Temperature:  g.temperature,
		MaxTokens:    g.maxTokens,
		Metadata:     map[string]string{"feature": "seo_metadata"},
	})
	if err != nil {
		return Fallback(in.Title, in.Topic, in.Keywords), fmt.Errorf("seo metadata call failed: %w", err)
	}

	var m Metadata
	if err := llm.DecodeJSON(resp.Text, metadataSchema, &m); err != nil {
		return Fallback(in.Title, in.Topic, in.Keywords), fmt.Errorf("seo metadata unusable: %w", err)
	}
	m.SEOTitle = strings.TrimSpace(m.SEOTitle)
	m.MetaDescription = strings.TrimSpace(m.MetaDescription)
	m.FocusKeyword = strings.TrimSpace(m.FocusKeyword)
	return &m, nil
}

func buildPrompt(in Input) string {
	text := in.Text
	if utf8.RuneCountInString(text) > 3000 {
		text = string([]rune(text)[:3000])
	}
	var b strings.Builder
	fmt.Fprintf(&b, "Create SEO metadata in %s for this article.\n\n", in.Language)
	fmt.Fprintf(&b, "Title: %s\nTopic: %s\nKeywords: %s\n\n", in.Title, in.Topic, strings.Join(in.Keywords, ", "))
	fmt.Fprintf(&b, "Article excerpt:\n%s\n\n", text)
	fmt.Fprintf(&b, "Return JSON with keys seoTitle (%d-%d characters), metaDescription (%d-%d characters), ",
		TitleMin, TitleMax, DescriptionMin, DescriptionMax)
	b.WriteString("focusKeyword, extraKeywords (array) and lsiKeywords (array of 5-10 related terms).")
	return b.String()
}

// CheckLengths reports title and description lengths outside the target
// ranges. The ranges are advisory.
func CheckLengths(m *Metadata) []string {
	if m == nil {
		return nil
	}
	var warnings []string
	if n := utf8.RuneCountInString(m.SEOTitle); n < TitleMin || n > TitleMax {
		warnings = append(warnings, fmt.Sprintf("seo title is %d characters, want %d-%d", n, TitleMin, TitleMax))
	}
	if n := utf8.RuneCountInString(m.MetaDescription); n < DescriptionMin || n > DescriptionMax {
		warnings = append(warnings, fmt.Sprintf("meta description is %d characters, want %d-%d", n, DescriptionMin, DescriptionMax))
	}
	return warnings
}

// Fallback builds metadata without a model call.
func Fallback(title, topic string, keywords []string) *Metadata {
	if topic == "" {
		topic = title
	}
	if title == "" {
		title = topic
	}

	m := &Metadata{
		SEOTitle:      truncateWords(title, TitleMax),
		ExtraKeywords: []string{},
		LSIKeywords:   []string{},
	}

	desc := topic
	if len(keywords) > 0 {
		desc = topic + ": " + strings.Join(keywords, ", ")
	}
	if utf8.RuneCountInString(desc) < DescriptionMin {
		desc = strings.TrimRight(desc, ". ") + ". Lees alles wat je moet weten in deze complete gids met praktische tips en advies."
	}
	m.MetaDescription = truncateWords(desc, DescriptionMax)

	if len(keywords) > 0 {
		m.FocusKeyword = keywords[0]
		m.ExtraKeywords = append(m.ExtraKeywords, keywords[1:]...)
	} else {
		m.FocusKeyword = strings.ToLower(strings.TrimSpace(topic))
	}
	return m
}

// truncateWords cuts s to at most limit runes, on a word boundary when one
// exists.
func truncateWords(s string, limit int) string {
	s = strings.TrimSpace(s)
	r := []rune(s)
	if len(r) <= limit {
		return s
	}
	cut := string(r[:limit])
	if i := strings.LastIndex(cut, " "); i > 0 {
		cut = cut[:i]
	}
	return strings.TrimRight(cut, " ,.;:-")
}
