package pipeline

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/soypete/autopilot/pkg/article"
	"github.com/soypete/autopilot/pkg/links"
	"github.com/soypete/autopilot/pkg/storage"
	"github.com/soypete/autopilot/pkg/youtube"
)

// brief is everything the writer needs besides the research.
type brief struct {
	project    *storage.Project
	tone       *storage.ToneProfile
	affiliates []links.Candidate // selected for the writer
	pool       []links.Candidate // every active affiliate link
	internal   []links.Candidate
	knowledge  []storage.KnowledgeSnippet
	video      *youtube.Video
}

// assembleContext is stage 1. Nothing here is fatal.
func (r *run) assembleContext(ctx context.Context) error {
	r.step(5, "Loading project context")
	r.features = r.req.Features

	if r.req.ProjectID != "" {
		project, err := r.p.deps.Store.GetProject(ctx, r.req.ProjectID)
		if err != nil {
			r.degrade(article.DegradeProject, err)
		} else {
			r.brief.project = project
			r.features = r.req.Features.Apply(project.Overrides)
		}
	}

	r.loadTone(ctx)
	r.loadKnowledge(ctx)
	r.selectAffiliates(ctx)
	r.selectInternal(ctx)
	r.findVideo(ctx)

	r.step(15, "Context assembled")
	return nil
}

func (r *run) loadTone(ctx context.Context) {
	p := r.brief.project
	if p == nil || p.ToneProfileID == "" {
		return
	}
	tone, err := r.p.deps.Store.GetToneProfile(ctx, p.ToneProfileID)
	if err != nil {
		r.degrade(article.DegradeTone, err)
		return
	}
	r.brief.tone = tone
}

func (r *run) loadKnowledge(ctx context.Context) {
	p := r.brief.project
	if p == nil {
		return
	}
	snippets, err := r.p.deps.Store.KnowledgeSnippets(ctx, p.ID, r.p.opts.KnowledgeLimit)
	if err != nil {
		r.degrade(article.DegradeKnowledge, err)
		return
	}
	r.brief.knowledge = snippets
}

func (r *run) selectAffiliates(ctx context.Context) {
	p := r.brief.project
	if p == nil || !r.features.IncludeAffiliateLinks {
		return
	}
	rows, err := r.p.deps.Store.ActiveAffiliateLinks(ctx, p.ID)
	if err != nil {
		r.degrade(article.DegradeAffiliateSelection, err)
		return
	}
	if len(rows) == 0 {
		return
	}

	pool := make([]links.Candidate, 0, len(rows))
	for _, l := range rows {
		pool = append(pool, links.Candidate{
			ID:         l.ID,
			URL:        l.URL,
			Title:      l.Title,
			AnchorHint: l.AnchorText,
			Category:   l.Category,
			UsageCount: l.UsageCount,
		})
	}
	pool = links.Rank(pool, r.req.Keywords, r.p.opts.MaxCandidates)
	r.brief.pool = pool

	selected, err := r.p.selector.SelectAffiliate(ctx, r.req.Topic, r.req.Keywords, pool, r.p.opts.MaxAffiliateSelect)
	if err != nil {
		r.degrade(article.DegradeAffiliateSelection, err)
		return
	}
	r.brief.affiliates = selected
	r.log.Debug("Affiliate links selected", "stage", r.stage, "candidates", len(pool), "selected", len(selected))
}

func (r *run) selectInternal(ctx context.Context) {
	p := r.brief.project
	if p == nil || !r.features.IncludeInternalLinks {
		return
	}

	var (
		found []links.Candidate
		err   error
	)
	switch {
	case p.SitemapURL != "" && r.p.deps.Sitemaps != nil:
		found, err = r.p.deps.Sitemaps.Candidates(ctx, p.SitemapURL, r.p.opts.SitemapLimit)
	case p.WebsiteURL != "" && r.p.deps.Discoverer != nil:
		found, err = r.p.deps.Discoverer.Discover(ctx, p.WebsiteURL, r.p.opts.SitemapLimit)
	default:
		return
	}
	if err != nil {
		r.degrade(article.DegradeSitemap, err)
		return
	}
	if len(found) == 0 {
		return
	}

	found = links.Rank(found, r.req.Keywords, r.p.opts.MaxCandidates)
	selected, err := r.p.selector.SelectInternal(ctx, r.req.Topic, r.req.Keywords, found, r.p.opts.MaxInternalSelect)
	if err != nil {
		r.degrade(article.DegradeInternalLinks, err)
		return
	}
	r.brief.internal = selected
}

func (r *run) findVideo(ctx context.Context) {
	if !r.features.IncludeYouTube {
		return
	}
	if id := strings.TrimSpace(r.req.YouTubeVideoID); id != "" {
		if !youtube.ValidID(id) {
			r.degrade(article.DegradeYouTube, fmt.Errorf("invalid video id %q", id))
			return
		}
		r.brief.video = &youtube.Video{ID: id}
		return
	}
	if !r.p.deps.YouTube.Enabled() {
		r.degrade(article.DegradeYouTube, errors.New("youtube lookup is not configured"))
		return
	}
	v, err := r.p.deps.YouTube.Search(ctx, r.req.Topic, r.req.Language)
	if err != nil {
		r.degrade(article.DegradeYouTube, err)
		return
	}
	r.brief.video = v
}
