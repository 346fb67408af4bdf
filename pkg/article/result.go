package article

import "github.com/soypete/autopilot/pkg/seo"

// DegradationKind names the optional feature that failed.
type DegradationKind string

const (
	DegradeProject            DegradationKind = "project"
	DegradeAffiliateSelection DegradationKind = "affiliate_selection"
	DegradeInternalLinks      DegradationKind = "internal_links"
	DegradeSitemap            DegradationKind = "sitemap"
	DegradeKnowledge          DegradationKind = "knowledge"
	DegradeTone               DegradationKind = "tone"
	DegradeYouTube            DegradationKind = "youtube"
	DegradeBannedWords        DegradationKind = "banned_words"
	DegradeAffiliateWeave     DegradationKind = "affiliate_weave"
	DegradeFeaturedImage      DegradationKind = "featured_image"
	DegradeImage              DegradationKind = "image"
	DegradeImageRepair        DegradationKind = "image_repair"
	DegradeInternalLinkInsert DegradationKind = "internal_link_insert"
	DegradeProducts           DegradationKind = "products"
	DegradeSEO                DegradationKind = "seo"
	DegradeLibrary            DegradationKind = "library"
	DegradePublish            DegradationKind = "publish"
	DegradeCredits            DegradationKind = "credits"
	DegradeContentRecord      DegradationKind = "content_record"
	DegradeIdeaStatus         DegradationKind = "idea_status"
)

// Degradation is a non-fatal failure of an optional feature.
type Degradation struct {
	Kind    DegradationKind `json:"kind"`
	Message string          `json:"message"`
}

// Result is the outcome of a generation run.
type Result struct {
	Success          bool          `json:"success"`
	JobID            string        `json:"jobId,omitempty"`
	ContentID        string        `json:"contentId,omitempty"`
	Title            string        `json:"title,omitempty"`
	Content          string        `json:"content,omitempty"`
	MetaDescription  string        `json:"metaDescription,omitempty"`
	SEOMetadata      *seo.Metadata `json:"seoMetadata,omitempty"`
	WordCount        int           `json:"wordCount,omitempty"`
	CreditsUsed      int           `json:"creditsUsed"`
	ImageURLs        []string      `json:"imageUrls,omitempty"`
	FeaturedImageURL string        `json:"featuredImageUrl,omitempty"`
	PublishedURL     string        `json:"publishedUrl,omitempty"`
	PublishError     string        `json:"publishError,omitempty"`
	Slug             string        `json:"slug,omitempty"`
	Degradations     []Degradation `json:"degradations,omitempty"`
}

// Degraded reports whether a degradation of the given kind was recorded.
func (r *Result) Degraded(kind DegradationKind) bool {
	for _, d := range r.Degradations {
		if d.Kind == kind {
			return true
		}
	}
	return false
}
