package storage

import (
	"encoding/json"
	"time"

	"github.com/soypete/autopilot/pkg/article"
	"github.com/soypete/autopilot/pkg/credits"
)

// Account holds the two credit buckets of a customer.
type Account struct {
	ID                  string    `json:"id"`
	Email               string    `json:"email,omitempty"`
	SubscriptionCredits int       `json:"subscriptionCredits"`
	TopUpCredits        int       `json:"topUpCredits"`
	Unlimited           bool      `json:"unlimited"`
	CreatedAt           time.Time `json:"createdAt"`
	UpdatedAt           time.Time `json:"updatedAt"`
}

// Balance returns the credit buckets as a credits.Balance.
func (a *Account) Balance() credits.Balance {
	return credits.Balance{
		Subscription: a.SubscriptionCredits,
		TopUp:        a.TopUpCredits,
		Unlimited:    a.Unlimited,
	}
}

// CreditTransaction is one ledger entry. Amount is negative for charges.
type CreditTransaction struct {
	ID                string    `json:"id"`
	AccountID         string    `json:"accountId"`
	Amount            int       `json:"amount"`
	Memo              string    `json:"memo"`
	SubscriptionAfter int       `json:"subscriptionAfter"`
	TopUpAfter        int       `json:"topUpAfter"`
	CreatedAt         time.Time `json:"createdAt"`
}

// AutopilotOverrides are the per-project feature settings.
type AutopilotOverrides = article.Overrides

// Project is a customer website with its publishing settings.
type Project struct {
	ID                   string             `json:"id"`
	AccountID            string             `json:"accountId"`
	Name                 string             `json:"name"`
	Description          string             `json:"description,omitempty"`
	WebsiteURL           string             `json:"websiteUrl,omitempty"`
	SitemapURL           string             `json:"sitemapUrl,omitempty"`
	Language             string             `json:"language,omitempty"`
	ToneProfileID        string             `json:"toneProfileId,omitempty"`
	WordPressURL         string             `json:"wordpressUrl,omitempty"`
	WordPressUser        string             `json:"wordpressUser,omitempty"`
	WordPressAppPassword string             `json:"-"`
	WordPressToken       string             `json:"-"`
	WordPressCategoryID  *int64             `json:"wordpressCategoryId,omitempty"`
	BolcomPartnerID      string             `json:"bolcomPartnerId,omitempty"`
	Overrides            AutopilotOverrides `json:"overrides"`
	CreatedAt            time.Time          `json:"createdAt"`
}

// AffiliateLink is a link the project earns commission on.
type AffiliateLink struct {
	ID         string    `json:"id"`
	ProjectID  string    `json:"projectId"`
	URL        string    `json:"url"`
	Title      string    `json:"title"`
	AnchorText string    `json:"anchorText,omitempty"`
	Category   string    `json:"category,omitempty"`
	Active     bool      `json:"active"`
	UsageCount int       `json:"usageCount"`
	CreatedAt  time.Time `json:"createdAt"`
}

// ToneProfile describes a client's writing voice.
type ToneProfile struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Prompt    string    `json:"prompt"`
	Formality string    `json:"formality,omitempty"`
	Preferred []string  `json:"preferred,omitempty"`
	Avoid     []string  `json:"avoid,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
}

// KnowledgeSnippet is a fact from the project's knowledge base.
type KnowledgeSnippet struct {
	ID        string    `json:"id"`
	ProjectID string    `json:"projectId"`
	Title     string    `json:"title,omitempty"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"createdAt"`
}

// Content record statuses.
const (
	ContentDraft     = "draft"
	ContentPublished = "published"
)

// ContentRecord is a generated article.
type ContentRecord struct {
	ID              string          `json:"id"`
	AccountID       string          `json:"accountId"`
	ProjectID       string          `json:"projectId,omitempty"`
	JobID           string          `json:"jobId,omitempty"`
	Title           string          `json:"title"`
	Content         string          `json:"content"`
	MetaDescription string          `json:"metaDescription,omitempty"`
	SEO             json.RawMessage `json:"seo,omitempty"`
	Slug            string          `json:"slug,omitempty"`
	Status          string          `json:"status"`
	WordCount       int             `json:"wordCount"`
	ImageURLs       []string        `json:"imageUrls,omitempty"`
	PublishedURL    string          `json:"publishedUrl,omitempty"`
	CreatedAt       time.Time       `json:"createdAt"`
	UpdatedAt       time.Time       `json:"updatedAt"`
}

// LibraryItem is a reusable copy of generated content.
type LibraryItem struct {
	ID        string    `json:"id"`
	AccountID string    `json:"accountId"`
	ContentID string    `json:"contentId,omitempty"`
	Kind      string    `json:"kind"`
	Title     string    `json:"title"`
	Content   string    `json:"content"`
	Tags      []string  `json:"tags,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
}

// Article idea statuses.
const (
	IdeaOpen       = "idea"
	IdeaGenerating = "generating"
	IdeaGenerated  = "generated"
)

// ArticleIdea is a planned article that a generation run can be started from.
type ArticleIdea struct {
	ID        string    `json:"id"`
	ProjectID string    `json:"projectId,omitempty"`
	Title     string    `json:"title"`
	Keywords  []string  `json:"keywords,omitempty"`
	Status    string    `json:"status"`
	ContentID string    `json:"contentId,omitempty"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// BlogPost is an article on the built-in blog.
type BlogPost struct {
	ID               string    `json:"id"`
	AccountID        string    `json:"accountId"`
	Slug             string    `json:"slug"`
	Title            string    `json:"title"`
	Content          string    `json:"content"`
	Excerpt          string    `json:"excerpt,omitempty"`
	FeaturedImageURL string    `json:"featuredImageUrl,omitempty"`
	SEOTitle         string    `json:"seoTitle,omitempty"`
	SEODescription   string    `json:"seoDescription,omitempty"`
	Tags             []string  `json:"tags,omitempty"`
	PublishedAt      time.Time `json:"publishedAt"`
}

// JobRecord is the persisted form of a job.
type JobRecord struct {
	ID          string          `json:"id"`
	Type        string          `json:"type"`
	AccountID   string          `json:"accountId,omitempty"`
	Status      string          `json:"status"`
	Input       json.RawMessage `json:"input,omitempty"`
	Output      json.RawMessage `json:"output,omitempty"`
	Error       string          `json:"error,omitempty"`
	CreatedAt   time.Time       `json:"createdAt"`
	StartedAt   *time.Time      `json:"startedAt,omitempty"`
	CompletedAt *time.Time      `json:"completedAt,omitempty"`
}

// JobFilter narrows ListJobs.
type JobFilter struct {
	AccountID string
	Status    string
	Limit     int
	Offset    int
}
