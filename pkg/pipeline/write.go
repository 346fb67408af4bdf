package pipeline

import (
	"context"
	"fmt"
	"strings"

	"github.com/soypete/autopilot/pkg/htmldoc"
	"github.com/soypete/autopilot/pkg/llm"
	"github.com/soypete/autopilot/pkg/progress"
	"github.com/soypete/autopilot/pkg/youtube"
)

type promptLink struct {
	URL    string
	Anchor string
	Reason string
}

type promptProduct struct {
	Index       int
	Name        string
	Price       string
	Description string
}

type writerData struct {
	Topic        string
	Keywords     []string
	Language     string
	ContentType  string
	WordCount    int
	Structure    string
	DirectAnswer bool
	ImageCount   int
	Products     []promptProduct
	Affiliates   []promptLink
	Internal     []promptLink
	Video        string
	FAQ          bool
	FAQHeading   string
	Research     string
}

type systemData struct {
	Language  string
	Tone      string
	Avoid     []string
	Preferred []string
}

func (r *run) writerPrompts() (system, user string, err error) {
	sys := systemData{Language: r.req.LanguageName(), Tone: r.req.Tone}
	if t := r.brief.tone; t != nil {
		parts := []string{}
		if t.Prompt != "" {
			parts = append(parts, t.Prompt)
		}
		if t.Formality != "" {
			parts = append(parts, "Formality: "+t.Formality+".")
		}
		if r.req.Tone != "" {
			parts = append(parts, r.req.Tone)
		}
		sys.Tone = strings.Join(parts, "\n")
		sys.Preferred = t.Preferred
		sys.Avoid = t.Avoid
	}
	sys.Avoid = append(append([]string(nil), sys.Avoid...), r.p.banned.Words()...)

	data := writerData{
		Topic:        r.req.Topic,
		Keywords:     r.req.Keywords,
		Language:     r.req.LanguageName(),
		ContentType:  string(r.req.ContentType),
		WordCount:    r.req.WordCountTarget,
		Structure:    structureFor(r.req.ContentType),
		DirectAnswer: r.features.IncludeDirectAnswer,
		FAQ:          r.features.IncludeFAQ,
		FAQHeading:   faqHeading(r.req.Language),
		Research:     r.researchText,
	}
	if r.features.IncludeImages {
		data.ImageCount = r.features.ImageCount
	}
	if r.useProducts() {
		for i, p := range r.req.Products {
			data.Products = append(data.Products, promptProduct{
				Index:       i + 1,
				Name:        p.Name,
				Price:       p.Price,
				Description: p.Description,
			})
		}
	}
	for _, c := range r.brief.affiliates {
		data.Affiliates = append(data.Affiliates, promptLink{URL: c.URL, Anchor: c.Anchor()})
	}
	for _, c := range r.brief.internal {
		data.Internal = append(data.Internal, promptLink{URL: c.URL, Anchor: c.Anchor(), Reason: c.Reason})
	}
	if v := r.brief.video; v != nil {
		data.Video = youtube.EmbedHTML(*v)
	}
	if data.Research == "" {
		data.Research = "(no research available, rely on general knowledge)"
	}

	if system, err = render("writer_system.tmpl", sys); err != nil {
		return "", "", err
	}
	if user, err = render("writer.tmpl", data); err != nil {
		return "", "", err
	}
	return system, user, nil
}

func (r *run) useProducts() bool {
	return len(r.req.Products) > 0 && (r.features.IncludeProducts || r.req.ContentType.IsProductType())
}

// write is stage 3: one large model call. Errors and short output abort the
// run; the caller is told to retry.
func (r *run) write(ctx context.Context) error {
	r.step(35, "Writing the article")

	system, user, err := r.writerPrompts()
	if err != nil {
		return &StageError{Stage: StageWriting, Err: err}
	}
	r.log.Debug("Writer prompt built", "stage", r.stage, "prompt_tokens", llm.EstimateTokens(system+user))

	stop := startHeartbeat(r.p.opts.Heartbeat, func() {
		r.emit(progress.Heartbeat(StageWriting, r.progress, "Still writing"))
	})
	resp, err := r.p.deps.LLM.Infer(ctx, &llm.InferenceRequest{
		SystemPrompt: system,
		UserPrompt:   user,
		Temperature:  r.p.opts.WriterTemperature,
		MaxTokens:    r.p.opts.WriterMaxTokens,
		Metadata:     map[string]string{"feature": "writer", "job_id": r.jobID},
	})
	stop()
	if err != nil {
		return &StageError{Stage: StageWriting, Err: fmt.Errorf("writer call failed: %w", err), Retryable: true}
	}

	draft := htmldoc.CleanModelOutput(resp.Text)
	if len(draft) < r.p.opts.MinContentLength {
		return &StageError{
			Stage:     StageWriting,
			Err:       fmt.Errorf("%w: %d characters, need %d", ErrContentTooShort, len(draft), r.p.opts.MinContentLength),
			Retryable: true,
		}
	}
	r.draft = draft
	r.log.Info("Draft written", "stage", r.stage, "chars", len(draft), "tokens", resp.TokensUsed)
	r.step(60, "Draft written")
	return nil
}
