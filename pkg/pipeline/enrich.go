package pipeline

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/sync/errgroup"

	"github.com/soypete/autopilot/pkg/article"
	"github.com/soypete/autopilot/pkg/htmldoc"
	"github.com/soypete/autopilot/pkg/images"
	"github.com/soypete/autopilot/pkg/links"
	"github.com/soypete/autopilot/pkg/llm"
	"github.com/soypete/autopilot/pkg/metrics"
	"github.com/soypete/autopilot/pkg/youtube"
)

// minWeaveRatio is the share of text a model rewrite must keep.
const minWeaveRatio = 0.8

var sponsoredRel = html.Attribute{Key: "rel", Val: "sponsored nofollow"}

// enrich is stage 4. Every sub-step is best-effort; the draft is parsed once
// and serialized once.
func (r *run) enrich(ctx context.Context) error {
	r.step(65, "Enriching the article")

	doc, err := htmldoc.Parse(r.draft)
	if err != nil {
		return &StageError{Stage: StageEnrich, Err: fmt.Errorf("failed to parse draft: %w", err)}
	}

	r.title = doc.ExtractTitle()
	if r.title == "" {
		r.title = r.req.Topic
	}

	r.filterBanned(doc, false)
	r.step(68, "Content policy applied")

	r.featuredImage(ctx)
	r.resolveImages(ctx, doc)
	r.step(74, "Images placed")

	doc = r.weaveAffiliates(ctx, doc)
	r.insertInternal(doc)
	r.step(78, "Links inserted")

	if r.useProducts() {
		if _, err := doc.InsertProductBoxes(r.req.Products, productCTA(r.req.Language)); err != nil {
			r.degrade(article.DegradeProducts, err)
		}
	}
	if v := r.brief.video; v != nil && !doc.HasEmbed("/embed/"+v.ID) {
		if err := doc.InsertBlock(youtube.EmbedHTML(*v), 2); err != nil {
			r.degrade(article.DegradeYouTube, err)
		}
	}
	if n := doc.SeparateAdjacentImages(); n > 0 {
		r.log.Debug("Separated adjacent images", "stage", r.stage, "count", n)
	}
	r.step(82, "Layout repaired")

	r.filterBanned(doc, true)

	r.draft = doc.HTML()
	r.result.Title = r.title
	r.result.ImageURLs = doc.ImageURLs()
	r.step(85, "Enrichment complete")
	return nil
}

// filterBanned removes blocklisted words. Residue is reported only on the
// final pass.
func (r *run) filterBanned(doc *htmldoc.Document, final bool) {
	f := r.p.banned
	if f.Empty() {
		return
	}
	if _, err := f.Apply(doc); err != nil {
		r.degrade(article.DegradeBannedWords, err)
		return
	}
	if left := f.Scan(doc.Text()); len(left) > 0 {
		if final {
			r.degrade(article.DegradeBannedWords, fmt.Errorf("still present after filtering: %s", strings.Join(left, ", ")))
		} else {
			r.log.Debug("Banned words left after first pass", "stage", r.stage, "words", left)
		}
	}
}

func (r *run) imageRequest(prompt, query string) images.Request {
	return images.Request{
		Prompt:  prompt,
		Query:   query,
		Size:    r.p.opts.ImageSize,
		Style:   r.p.opts.ImageStyle,
		Quality: r.p.opts.ImageQuality,
	}
}

// generateImage produces one image URL, refining the prompt and mirroring
// the result when configured.
func (r *run) generateImage(ctx context.Context, prompt, query string) (string, error) {
	if r.p.opts.RefineImages {
		refined, err := r.p.refiner.Refine(ctx, prompt)
		if err != nil {
			r.log.Debug("Image prompt refinement failed", "error", err)
		}
		prompt = refined
	}

	url, err := r.p.deps.Images.Generate(ctx, r.imageRequest(prompt, query))
	if err != nil {
		return "", err
	}
	if url == "" {
		return "", images.ErrEmptyResult
	}

	if r.p.deps.Mirror != nil {
		local, err := r.p.deps.Mirror.Store(ctx, url)
		if err != nil {
			r.log.Warn("Image mirror failed, keeping provider url", "error", err)
			return url, nil
		}
		return local, nil
	}
	return url, nil
}

func (r *run) featuredImage(ctx context.Context) {
	if !r.features.IncludeImages || !r.features.IncludeFeaturedImage {
		return
	}
	if r.p.deps.Images == nil {
		r.degrade(article.DegradeFeaturedImage, errors.New("no image provider configured"))
		return
	}
	prompt := images.PromptFromContext(r.req.Topic, r.title, r.p.opts.ImageStyle)
	url, err := r.generateImage(ctx, prompt, r.req.Topic)
	if err != nil {
		r.degrade(article.DegradeFeaturedImage, err)
		return
	}
	r.result.FeaturedImageURL = url
}

type imageTask struct {
	index  int
	prompt string
	query  string
	url    string
	err    error
}

// resolveImages fills placeholders concurrently. One failed image never
// cancels the others. Whatever stays unresolved is stripped.
func (r *run) resolveImages(ctx context.Context, doc *htmldoc.Document) {
	indices := doc.PlaceholderIndices()

	if len(indices) > 0 && r.features.IncludeImages && r.p.deps.Images != nil {
		tasks := make([]*imageTask, len(indices))
		for i, idx := range indices {
			section := doc.PlaceholderContext(idx, 3)
			tasks[i] = &imageTask{
				index:  idx,
				prompt: images.PromptFromContext(r.req.Topic, section, r.p.opts.ImageStyle),
				query:  r.req.Topic,
			}
		}

		var g errgroup.Group
		g.SetLimit(r.p.opts.ImageConcurrency)
		for _, t := range tasks {
			g.Go(func() error {
				t.url, t.err = r.generateImage(ctx, t.prompt, t.query)
				return nil
			})
		}
		_ = g.Wait()

		for _, t := range tasks {
			if t.err != nil {
				metrics.ImagesTotal.WithLabelValues("failed").Inc()
				r.degrade(article.DegradeImage, fmt.Errorf("image %d: %w", t.index, t.err))
				continue
			}
			if doc.ReplacePlaceholder(t.index, t.url, r.title) > 0 {
				metrics.ImagesTotal.WithLabelValues("resolved").Inc()
			}
		}
	} else if len(indices) > 0 && r.features.IncludeImages {
		r.degrade(article.DegradeImage, errors.New("no image provider configured"))
	}

	if n := doc.StripUnresolvedPlaceholders(); n > 0 {
		metrics.ImagesTotal.WithLabelValues("stripped").Add(float64(n))
		r.log.Info("Stripped unresolved image placeholders", "stage", r.stage, "count", n)
	}
}

// weaveCandidates lists affiliate links not yet in the document, selected
// ones first.
func (r *run) weaveCandidates(doc *htmldoc.Document) []links.Candidate {
	seen := make(map[string]bool)
	var out []links.Candidate
	for _, list := range [][]links.Candidate{r.brief.affiliates, r.brief.pool} {
		for _, c := range list {
			if len(out) >= r.p.opts.MaxAffiliateWeave {
				return out
			}
			if c.URL == "" || seen[c.URL] || doc.HasLink(c.URL) {
				continue
			}
			seen[c.URL] = true
			out = append(out, c)
		}
	}
	return out
}

type weaveData struct {
	Max   int
	Links []promptLink
	HTML  string
}

// weaveAffiliates asks the model to work unused affiliate links into the
// text. The rewrite is kept only when it is safe; otherwise links go in by
// anchor matching.
func (r *run) weaveAffiliates(ctx context.Context, doc *htmldoc.Document) *htmldoc.Document {
	if !r.features.IncludeAffiliateLinks || r.p.opts.MaxAffiliateWeave <= 0 {
		return doc
	}
	cands := r.weaveCandidates(doc)
	if len(cands) == 0 {
		return doc
	}

	woven, err := r.modelWeave(ctx, doc, cands)
	if err == nil {
		return woven
	}
	r.degrade(article.DegradeAffiliateWeave, err)

	placed := 0
	for _, c := range cands {
		if doc.InsertLink(c.URL, c.Anchor(), sponsoredRel) {
			placed++
		}
	}
	r.log.Debug("Affiliate links inserted by anchor", "stage", r.stage, "placed", placed, "candidates", len(cands))
	return doc
}

func (r *run) modelWeave(ctx context.Context, doc *htmldoc.Document, cands []links.Candidate) (*htmldoc.Document, error) {
	data := weaveData{Max: len(cands), HTML: doc.HTML()}
	for _, c := range cands {
		data.Links = append(data.Links, promptLink{URL: c.URL, Anchor: c.Anchor()})
	}
	prompt, err := render("weave.tmpl", data)
	if err != nil {
		return nil, err
	}

	resp, err := r.p.deps.LLM.Infer(ctx, &llm.InferenceRequest{
		SystemPrompt: "You edit HTML articles. You add links without changing anything else.",
		UserPrompt:   prompt,
		Temperature:  0.3,
		MaxTokens:    r.p.opts.WriterMaxTokens,
		Metadata:     map[string]string{"feature": "affiliate_weave", "job_id": r.jobID},
	})
	if err != nil {
		return nil, fmt.Errorf("affiliate weave call failed: %w", err)
	}

	woven, err := htmldoc.Parse(htmldoc.CleanModelOutput(resp.Text))
	if err != nil {
		return nil, fmt.Errorf("affiliate weave output does not parse: %w", err)
	}
	if err := acceptRewrite(doc, woven); err != nil {
		return nil, err
	}
	// The title was extracted before; drop one the model added back.
	woven.ExtractTitle()
	return woven, nil
}

// acceptRewrite checks that a model rewrite kept every image and most of the
// text.
func acceptRewrite(before, after *htmldoc.Document) error {
	kept := make(map[string]bool)
	for _, u := range after.ImageURLs() {
		kept[u] = true
	}
	for _, u := range before.ImageURLs() {
		if !kept[u] {
			return fmt.Errorf("affiliate weave dropped image %s", u)
		}
	}
	oldLen, newLen := len(before.Text()), len(after.Text())
	if float64(newLen) < minWeaveRatio*float64(oldLen) {
		return fmt.Errorf("affiliate weave kept %d of %d characters", newLen, oldLen)
	}
	return nil
}

// insertInternal links up to MaxInternalInsert selected pages. A page whose
// anchor is not in the text is offered once as a related-reading line.
func (r *run) insertInternal(doc *htmldoc.Document) {
	if len(r.brief.internal) == 0 {
		return
	}
	target := r.p.opts.MaxInternalInsert
	placed := 0
	var unmatched []links.Candidate
	for _, c := range r.brief.internal {
		if placed >= target {
			break
		}
		if doc.HasLink(c.URL) {
			placed++
			continue
		}
		if doc.InsertLink(c.URL, c.Anchor()) {
			placed++
			continue
		}
		unmatched = append(unmatched, c)
	}
	if placed < target && len(unmatched) > 0 {
		c := unmatched[0]
		doc.AppendLinkParagraph(c.URL, c.Anchor(), relatedLead(r.req.Language))
		placed++
	}
	r.log.Debug("Internal links placed", "stage", r.stage, "count", placed)
}
