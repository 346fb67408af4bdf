package pipeline

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/soypete/autopilot/pkg/article"
	"github.com/soypete/autopilot/pkg/credits"
	"github.com/soypete/autopilot/pkg/htmldoc"
	"github.com/soypete/autopilot/pkg/jobs"
	"github.com/soypete/autopilot/pkg/metrics"
	"github.com/soypete/autopilot/pkg/publish"
	"github.com/soypete/autopilot/pkg/seo"
	"github.com/soypete/autopilot/pkg/slug"
	"github.com/soypete/autopilot/pkg/storage"
)

// finalize is stage 5: metadata, persistence, charging and publishing. Only
// the article itself is load-bearing at this point; everything else
// degrades.
func (r *run) finalize(ctx context.Context) error {
	res := r.result
	res.Content = r.draft
	res.WordCount = htmldoc.WordCount(r.draft)
	if floor := r.req.WordCountTarget - r.p.opts.WordCountTolerance; res.WordCount < floor {
		r.log.Warn("Article is shorter than requested", "stage", r.stage, "word_count", res.WordCount, "target", r.req.WordCountTarget)
	}

	r.step(88, "Generating SEO metadata")
	meta, err := r.p.seo.Generate(ctx, seo.Input{
		Title:    r.title,
		Topic:    r.req.Topic,
		Keywords: r.req.Keywords,
		Language: r.req.LanguageName(),
		Text:     htmldoc.StripTags(r.draft),
	})
	if err != nil {
		r.degrade(article.DegradeSEO, err)
	}
	for _, w := range seo.CheckLengths(meta) {
		r.log.Info("SEO length out of range", "stage", r.stage, "warning", w)
	}
	res.SEOMetadata = meta
	if meta != nil {
		res.MetaDescription = meta.MetaDescription
	}
	res.Slug = slug.Make(r.title)

	r.step(92, "Saving the article")
	record := r.saveContent(ctx)
	r.saveLibrary(ctx)
	r.countAffiliateUsage(ctx)

	r.step(95, "Charging credits")
	r.charge(ctx, credits.OpBlogPost, "blog post: "+r.title)

	if r.features.Publish {
		r.step(97, "Publishing")
		r.publish(ctx, record)
	}
	return nil
}

func (r *run) saveContent(ctx context.Context) *storage.ContentRecord {
	res := r.result
	rec := &storage.ContentRecord{
		AccountID:       r.req.AccountID,
		ProjectID:       r.req.ProjectID,
		JobID:           r.jobID,
		Title:           res.Title,
		Content:         res.Content,
		MetaDescription: res.MetaDescription,
		Slug:            res.Slug,
		Status:          storage.ContentDraft,
		WordCount:       res.WordCount,
		ImageURLs:       res.ImageURLs,
	}
	if res.SEOMetadata != nil {
		if raw, err := json.Marshal(res.SEOMetadata); err == nil {
			rec.SEO = raw
		}
	}
	if err := r.p.deps.Store.CreateContent(ctx, rec); err != nil {
		r.degrade(article.DegradeContentRecord, err)
		return nil
	}
	res.ContentID = rec.ID
	return rec
}

func (r *run) saveLibrary(ctx context.Context) {
	if !r.features.AutoSaveLibrary {
		return
	}
	item := &storage.LibraryItem{
		AccountID: r.req.AccountID,
		ContentID: r.result.ContentID,
		Kind:      "article",
		Title:     r.result.Title,
		Content:   r.result.Content,
		Tags:      r.req.Keywords,
	}
	if err := r.p.deps.Store.SaveLibraryItem(ctx, item); err != nil {
		r.degrade(article.DegradeLibrary, err)
	}
}

// countAffiliateUsage bumps usage only for links whose exact URL is an
// anchor href in the final HTML.
func (r *run) countAffiliateUsage(ctx context.Context) {
	doc, err := htmldoc.Parse(r.result.Content)
	if err != nil {
		r.log.Warn("Failed to parse article for affiliate usage", "stage", r.stage, "error", err)
		return
	}
	linked := make(map[string]bool)
	for _, href := range doc.Links() {
		linked[href] = true
	}
	for _, c := range r.brief.pool {
		if c.ID == "" || !linked[c.URL] {
			continue
		}
		if err := r.p.deps.Store.IncrementAffiliateUsage(ctx, c.ID); err != nil {
			r.log.Warn("Failed to count affiliate usage", "link_id", c.ID, "error", err)
		}
	}
}

// charge deducts the cost of op. A failed charge never fails the run.
func (r *run) charge(ctx context.Context, op credits.Operation, memo string) {
	cost := r.p.opts.Costs.Cost(op)
	if cost <= 0 {
		return
	}
	bal, err := r.p.deps.Store.DeductCredits(ctx, r.req.AccountID, cost, memo)
	if err != nil {
		r.degrade(article.DegradeCredits, fmt.Errorf("%s charge: %w", op, err))
		return
	}
	if bal.Unlimited {
		return
	}
	r.result.CreditsUsed += cost
	metrics.CreditsDeductedTotal.WithLabelValues(string(op)).Add(float64(cost))
}

func (r *run) publish(ctx context.Context, record *storage.ContentRecord) {
	res := r.result
	fail := func(err error) {
		res.PublishError = err.Error()
		r.degrade(article.DegradePublish, err)
	}

	if r.p.deps.Publishers == nil {
		fail(errors.New("no publish target configured"))
		return
	}
	pub, err := r.p.deps.Publishers.ForProject(r.req.AccountID, r.brief.project)
	if err != nil {
		fail(err)
		return
	}
	if pub == nil {
		fail(errors.New("no publish target configured"))
		return
	}

	if _, err := r.p.deps.Jobs.Transition(ctx, r.jobID, jobs.StatusPublishing, nil, nil); err != nil {
		r.log.Warn("Failed to mark job publishing", "error", err)
	}

	s, err := slug.Generate(ctx, r.title, pub)
	if err != nil {
		r.log.Warn("Slug lookup failed, using base slug", "stage", r.stage, "error", err)
		s = slug.Make(r.title)
	}
	res.Slug = s

	post := publish.Post{
		Title:            r.title,
		HTMLContent:      res.Content,
		Excerpt:          res.MetaDescription,
		Tags:             r.req.Keywords,
		FeaturedImageURL: res.FeaturedImageURL,
		Slug:             s,
	}
	if m := res.SEOMetadata; m != nil {
		post.SEOTitle = m.SEOTitle
		post.SEODescription = m.MetaDescription
		post.FocusKeyword = m.FocusKeyword
	}

	cats, err := pub.Categories(ctx)
	if err != nil {
		r.log.Warn("Failed to list categories", "stage", r.stage, "error", err)
	}
	var configured *int64
	if p := r.brief.project; p != nil {
		configured = p.WordPressCategoryID
	}
	cat, err := publish.SelectCategory(ctx, r.p.deps.LLM, configured, cats, r.title, r.req.Keywords)
	if err != nil {
		r.log.Warn("Category selection fell back", "stage", r.stage, "error", err)
	}
	if cat != nil {
		post.CategoryIDs = []int64{*cat}
	}

	published, err := pub.Publish(ctx, post)
	if err != nil {
		fail(fmt.Errorf("publish to %s failed: %w", pub.Name(), err))
		return
	}
	res.PublishedURL = published.PublishedURL
	r.log.Info("Article published", "stage", r.stage, "target", pub.Name(), "url", published.PublishedURL)

	r.charge(ctx, credits.OpPublish, "publish: "+r.title)

	if record != nil {
		record.Status = storage.ContentPublished
		record.PublishedURL = published.PublishedURL
		record.Slug = s
		if err := r.p.deps.Store.UpdateContent(ctx, record); err != nil {
			r.degrade(article.DegradeContentRecord, err)
		}
	}
}
