package pipeline

import (
	"context"
	"strings"

	"github.com/soypete/autopilot/pkg/llm"
)

type researchData struct {
	Topic              string
	Keywords           []string
	Language           string
	ContentType        string
	ProjectName        string
	ProjectDescription string
	Knowledge          []string
}

// research is stage 2. A failed call aborts the run.
func (r *run) research(ctx context.Context) error {
	r.step(20, "Researching the topic")

	data := researchData{
		Topic:       r.req.Topic,
		Keywords:    r.req.Keywords,
		Language:    r.req.LanguageName(),
		ContentType: string(r.req.ContentType),
	}
	if p := r.brief.project; p != nil {
		data.ProjectName = p.Name
		data.ProjectDescription = p.Description
	}
	for _, k := range r.brief.knowledge {
		fact := strings.TrimSpace(k.Content)
		if k.Title != "" {
			fact = k.Title + ": " + fact
		}
		data.Knowledge = append(data.Knowledge, fact)
	}

	prompt, err := render("research.tmpl", data)
	if err != nil {
		return &StageError{Stage: StageResearch, Err: err}
	}

	resp, err := r.p.deps.LLM.Infer(ctx, &llm.InferenceRequest{
		SystemPrompt: "You are an expert researcher. You collect accurate, current facts and never invent sources.",
		UserPrompt:   prompt,
		Temperature:  r.p.opts.ResearchTemperature,
		MaxTokens:    r.p.opts.ResearchMaxTokens,
		Metadata:     map[string]string{"feature": "research", "job_id": r.jobID},
	})
	if err != nil {
		return &StageError{Stage: StageResearch, Err: err, Retryable: true}
	}

	r.researchText = strings.TrimSpace(resp.Text)
	if r.researchText == "" {
		r.log.Warn("Research returned no text", "stage", r.stage)
	}
	r.log.Debug("Research done", "stage", r.stage, "tokens", resp.TokensUsed)
	r.step(30, "Research complete")
	return nil
}
