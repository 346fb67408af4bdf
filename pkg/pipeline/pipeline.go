// Package pipeline turns a generation request into a finished article in five
// stages: context assembly, research, draft writing, enrichment and
// finalization.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/soypete/autopilot/pkg/article"
	"github.com/soypete/autopilot/pkg/bannedwords"
	"github.com/soypete/autopilot/pkg/credits"
	"github.com/soypete/autopilot/pkg/images"
	"github.com/soypete/autopilot/pkg/jobs"
	"github.com/soypete/autopilot/pkg/links"
	"github.com/soypete/autopilot/pkg/llm"
	"github.com/soypete/autopilot/pkg/logger"
	"github.com/soypete/autopilot/pkg/metrics"
	"github.com/soypete/autopilot/pkg/progress"
	"github.com/soypete/autopilot/pkg/publish"
	"github.com/soypete/autopilot/pkg/seo"
	"github.com/soypete/autopilot/pkg/storage"
	"github.com/soypete/autopilot/pkg/youtube"
)

// LinkDiscoverer finds internal pages of a website.
type LinkDiscoverer interface {
	Discover(ctx context.Context, websiteURL string, limit int) ([]links.Candidate, error)
}

// ImageStore persists a remote image and returns the URL to use instead.
type ImageStore interface {
	Store(ctx context.Context, src string) (string, error)
}

// PublisherFactory picks the publish target of a project.
type PublisherFactory interface {
	ForProject(accountID string, p *storage.Project) (publish.Publisher, error)
}

// Deps are the collaborators of a pipeline. LLM, Store and Jobs are
// required; every other field may be nil, which disables the feature.
type Deps struct {
	LLM        llm.Backend
	Store      storage.Store
	Jobs       jobs.Manager
	Images     images.Generator
	Mirror     ImageStore
	Sitemaps   links.Source
	Discoverer LinkDiscoverer
	YouTube    *youtube.Client
	Publishers PublisherFactory
	Logger     *logger.Logger
}

// Pipeline runs generation requests.
type Pipeline struct {
	deps     Deps
	opts     Options
	log      *logger.Logger
	selector *links.Selector
	seo      *seo.Generator
	refiner  *images.Refiner
	banned   *bannedwords.Filter
}

// New creates a pipeline.
func New(deps Deps, opts Options) (*Pipeline, error) {
	if deps.LLM == nil {
		return nil, errors.New("pipeline needs an llm backend")
	}
	if deps.Store == nil {
		return nil, errors.New("pipeline needs a store")
	}
	if deps.Jobs == nil {
		return nil, errors.New("pipeline needs a job manager")
	}
	log := deps.Logger
	if log == nil {
		log = logger.NewNop()
	}
	if opts.ImageConcurrency < 1 {
		opts.ImageConcurrency = 1
	}
	opts.BannedWords = append([]string(nil), opts.BannedWords...)

	return &Pipeline{
		deps:     deps,
		opts:     opts,
		log:      log,
		selector: links.NewSelector(deps.LLM),
		seo:      seo.NewGenerator(deps.LLM),
		refiner:  images.NewRefiner(deps.LLM),
		banned:   bannedwords.New(opts.BannedWords),
	}, nil
}

// Options returns the pipeline tuning.
func (p *Pipeline) Options() Options { return p.opts }

// RequiredCredits is the pre-check amount for a run with features f.
func (p *Pipeline) RequiredCredits(f article.Features) int {
	cost := p.opts.Costs.Cost(credits.OpBlogPost)
	if f.Publish {
		cost += p.opts.Costs.Cost(credits.OpPublish)
	}
	return cost
}

// Prepare normalizes and validates req, checks the account can pay for it
// and creates a pending job. Nothing external is called for an invalid
// request.
func (p *Pipeline) Prepare(ctx context.Context, req article.Request) (*jobs.Job, article.Request, error) {
	req = req.Normalize(p.opts.DefaultWordCount)
	if err := req.Validate(); err != nil {
		return nil, req, err
	}
	if req.AccountID == "" {
		return nil, req, &article.ValidationError{Problems: []string{"account id is required"}}
	}

	balance, err := p.deps.Store.Balance(ctx, req.AccountID)
	if err != nil {
		return nil, req, fmt.Errorf("failed to read credit balance: %w", err)
	}
	if need := p.RequiredCredits(p.effectiveFeatures(ctx, req)); !credits.HasEnoughCredits(balance, need) {
		return nil, req, fmt.Errorf("%w: need %d, have %d", credits.ErrInsufficientCredits, need, balance.Total())
	}

	job, err := p.deps.Jobs.Create(ctx, jobs.TypeBlogPost, req.AccountID, req)
	if err != nil {
		return nil, req, fmt.Errorf("failed to create job: %w", err)
	}
	return job, req, nil
}

// effectiveFeatures merges the project's overrides into the request
// features. A project that cannot be loaded leaves them as requested; the
// run reports that as a degradation later.
func (p *Pipeline) effectiveFeatures(ctx context.Context, req article.Request) article.Features {
	if req.ProjectID == "" {
		return req.Features
	}
	project, err := p.deps.Store.GetProject(ctx, req.ProjectID)
	if err != nil {
		return req.Features
	}
	return req.Features.Apply(project.Overrides)
}

// Run prepares and executes req.
func (p *Pipeline) Run(ctx context.Context, req article.Request, sink progress.Sink) (*article.Result, error) {
	job, req, err := p.Prepare(ctx, req)
	if err != nil {
		return nil, err
	}
	return p.Execute(ctx, job.ID, req, sink)
}

// Execute runs the five stages for a prepared request. The sink always
// receives exactly one terminal event. A fatal failure returns a
// *StageError; degraded features are listed in the result.
func (p *Pipeline) Execute(ctx context.Context, jobID string, req article.Request, sink progress.Sink) (*article.Result, error) {
	if sink == nil {
		sink = progress.Discard
	}
	if p.opts.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, p.opts.Timeout)
		defer cancel()
	}

	metrics.ActiveGenerations.Inc()
	defer metrics.ActiveGenerations.Dec()

	r := &run{
		p:      p,
		req:    req,
		jobID:  jobID,
		sink:   sink,
		log:    p.log.With("job_id", jobID, "account_id", req.AccountID),
		result: &article.Result{JobID: jobID},
	}

	if _, err := p.deps.Jobs.Transition(ctx, jobID, jobs.StatusGenerating, nil, nil); err != nil {
		return nil, r.fail(ctx, &StageError{Stage: StageContext, Err: fmt.Errorf("failed to start job: %w", err)})
	}
	r.markIdea(ctx)

	stages := []struct {
		name string
		fn   func(context.Context) error
	}{
		{StageContext, r.assembleContext},
		{StageResearch, r.research},
		{StageWriting, r.write},
		{StageEnrich, r.enrich},
		{StageFinalize, r.finalize},
	}
	for _, st := range stages {
		if se := r.timed(ctx, st.name, st.fn); se != nil {
			return nil, r.fail(ctx, se)
		}
	}

	return r.complete(ctx), nil
}

// run is the state of one execution.
type run struct {
	p      *Pipeline
	req    article.Request
	jobID  string
	sink   progress.Sink
	log    *logger.Logger
	result *article.Result

	progress int
	stage    string
	prevIdea string

	brief        brief
	researchText string
	draft        string
	title        string
	features     article.Features
}

// timed runs a stage and records its duration.
func (r *run) timed(ctx context.Context, stage string, fn func(context.Context) error) *StageError {
	r.stage = stage
	start := time.Now()
	err := fn(ctx)
	metrics.StageDuration.WithLabelValues(stage).Observe(time.Since(start).Seconds())
	if err == nil {
		return nil
	}
	var se *StageError
	if !errors.As(err, &se) {
		se = &StageError{Stage: stage, Err: err}
	}
	return se
}

func (r *run) emit(e progress.Event) {
	if err := r.sink.Emit(e); err != nil {
		r.log.Debug("Progress event dropped", "error", err, "status", e.Status)
	}
}

// step reports a stage boundary. Progress never goes backwards.
func (r *run) step(progressValue int, status string) {
	if progressValue > r.progress {
		r.progress = progressValue
	}
	r.emit(progress.Step(r.stage, r.progress, status))
}

func (r *run) degrade(kind article.DegradationKind, err error) {
	msg := "unavailable"
	if err != nil {
		msg = err.Error()
	}
	r.result.Degradations = append(r.result.Degradations, article.Degradation{Kind: kind, Message: msg})
	metrics.DegradationsTotal.WithLabelValues(string(kind)).Inc()
	r.log.Warn("Feature degraded", "stage", r.stage, "kind", string(kind), "error", msg)
}

// markIdea moves the source article idea to generating and remembers the
// previous status for compensation.
func (r *run) markIdea(ctx context.Context) {
	if r.req.ArticleIdeaID == "" {
		return
	}
	prev, err := r.p.deps.Store.SetIdeaStatus(ctx, r.req.ArticleIdeaID, storage.IdeaGenerating)
	if err != nil {
		r.degrade(article.DegradeIdeaStatus, err)
		return
	}
	r.prevIdea = prev
}

// fail compensates and reports a fatal error.
func (r *run) fail(ctx context.Context, se *StageError) error {
	r.log.Error("Generation failed", "stage", se.Stage, "error", se.Err)
	metrics.GenerationsTotal.WithLabelValues("failed").Inc()

	// Compensating writes must not inherit an expired deadline.
	cctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 10*time.Second)
	defer cancel()

	if r.req.ArticleIdeaID != "" && r.prevIdea != "" {
		if _, err := r.p.deps.Store.SetIdeaStatus(cctx, r.req.ArticleIdeaID, r.prevIdea); err != nil {
			r.log.Warn("Failed to revert article idea", "idea_id", r.req.ArticleIdeaID, "error", err)
		}
	}
	if _, err := r.p.deps.Jobs.Transition(cctx, r.jobID, jobs.StatusFailed, nil, se); err != nil {
		r.log.Warn("Failed to mark job failed", "error", err)
	}

	r.emit(progress.Failure(r.jobID, se, r.progress))
	return se
}

func (r *run) complete(ctx context.Context) *article.Result {
	r.result.Success = true
	metrics.GenerationsTotal.WithLabelValues("completed").Inc()

	if r.req.ArticleIdeaID != "" && r.prevIdea != "" {
		if _, err := r.p.deps.Store.SetIdeaStatus(ctx, r.req.ArticleIdeaID, storage.IdeaGenerated); err != nil {
			r.degrade(article.DegradeIdeaStatus, err)
		} else if r.result.ContentID != "" {
			if err := r.p.deps.Store.LinkIdeaContent(ctx, r.req.ArticleIdeaID, r.result.ContentID); err != nil {
				r.degrade(article.DegradeIdeaStatus, err)
			}
		}
	}

	if _, err := r.p.deps.Jobs.Transition(ctx, r.jobID, jobs.StatusCompleted, r.result, nil); err != nil {
		r.log.Warn("Failed to mark job completed", "error", err)
	}

	r.log.Info("Generation completed",
		"word_count", r.result.WordCount,
		"images", len(r.result.ImageURLs),
		"degradations", len(r.result.Degradations))
	r.emit(progress.Complete(r.result))
	return r.result
}
