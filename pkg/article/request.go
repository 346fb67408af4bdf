// Package article holds the request and result types that flow through the
// content generation pipeline.
package article

import (
	"errors"
	"fmt"
	"regexp"
	"strings"

	"golang.org/x/text/language"
)

// ContentType selects the structural skeleton of the article.
type ContentType string

const (
	ContentListicle      ContentType = "listicle"
	ContentHowTo         ContentType = "how-to"
	ContentGuide         ContentType = "guide"
	ContentProductReview ContentType = "product-review"
	ContentComparison    ContentType = "comparison"
	ContentProductList   ContentType = "product-list"
)

// IsProductType reports whether the content type requires products.
func (c ContentType) IsProductType() bool {
	return c == ContentProductReview || c == ContentProductList
}

func (c ContentType) valid() bool {
	switch c {
	case ContentListicle, ContentHowTo, ContentGuide, ContentProductReview, ContentComparison, ContentProductList:
		return true
	}
	return false
}

var (
	productListPattern = regexp.MustCompile(`(?i)\b(beste|best|top\s*\d+)\b`)
	reviewPattern      = regexp.MustCompile(`(?i)\breview\b`)
	comparisonPattern  = regexp.MustCompile(`(?i)\s(vs\.?|versus)\s`)
	howToPattern       = regexp.MustCompile(`(?i)\b(hoe |how to|stappenplan)`)
	listiclePattern    = regexp.MustCompile(`(?i)\b\d+\s+(tips|manieren|ways|ideeën|ideas|redenen|reasons)\b`)
)

// DeriveContentType guesses a content type from the topic wording. A topic
// with no recognised wording becomes a product list when products are
// supplied, a guide otherwise.
func DeriveContentType(topic string, hasProducts bool) ContentType {
	switch {
	case productListPattern.MatchString(topic):
		return ContentProductList
	case reviewPattern.MatchString(topic):
		return ContentProductReview
	case comparisonPattern.MatchString(" " + topic + " "):
		return ContentComparison
	case howToPattern.MatchString(topic):
		return ContentHowTo
	case listiclePattern.MatchString(topic):
		return ContentListicle
	case hasProducts:
		return ContentProductList
	default:
		return ContentGuide
	}
}

// Product is an item rendered as a product box.
type Product struct {
	Name        string `json:"name"`
	URL         string `json:"url"`
	ImageURL    string `json:"imageUrl,omitempty"`
	Price       string `json:"price,omitempty"`
	Description string `json:"description,omitempty"`
}

// Features enumerates the optional parts of a generation run.
type Features struct {
	IncludeFAQ            bool `json:"includeFAQ"`
	IncludeYouTube        bool `json:"includeYouTube"`
	IncludeDirectAnswer   bool `json:"includeDirectAnswer"`
	IncludeImages         bool `json:"includeImages"`
	ImageCount            int  `json:"imageCount"`
	IncludeFeaturedImage  bool `json:"includeFeaturedImage"`
	IncludeAffiliateLinks bool `json:"includeAffiliateLinks"`
	IncludeInternalLinks  bool `json:"includeInternalLinks"`
	IncludeProducts       bool `json:"includeProducts"`
	Publish               bool `json:"publish"`
	AutoSaveLibrary       bool `json:"autoSaveLibrary"`
}

// Overrides are project-level feature settings. Nil fields keep the request
// value.
type Overrides struct {
	IncludeFAQ            *bool `json:"includeFAQ,omitempty"`
	IncludeYouTube        *bool `json:"includeYouTube,omitempty"`
	IncludeDirectAnswer   *bool `json:"includeDirectAnswer,omitempty"`
	IncludeImages         *bool `json:"includeImages,omitempty"`
	ImageCount            *int  `json:"imageCount,omitempty"`
	IncludeAffiliateLinks *bool `json:"includeAffiliateLinks,omitempty"`
	IncludeInternalLinks  *bool `json:"includeInternalLinks,omitempty"`
	Publish               *bool `json:"publish,omitempty"`
}

// Apply returns a copy of f with the overrides applied.
func (f Features) Apply(o Overrides) Features {
	set := func(dst *bool, src *bool) {
		if src != nil {
			*dst = *src
		}
	}
	set(&f.IncludeFAQ, o.IncludeFAQ)
	set(&f.IncludeYouTube, o.IncludeYouTube)
	set(&f.IncludeDirectAnswer, o.IncludeDirectAnswer)
	set(&f.IncludeImages, o.IncludeImages)
	set(&f.IncludeAffiliateLinks, o.IncludeAffiliateLinks)
	set(&f.IncludeInternalLinks, o.IncludeInternalLinks)
	set(&f.Publish, o.Publish)
	if o.ImageCount != nil {
		f.ImageCount = min(max(*o.ImageCount, 0), maxImages)
	}
	return f
}

// Request is one generation request. It is not modified after Normalize.
type Request struct {
	AccountID       string      `json:"accountId"`
	ProjectID       string      `json:"projectId,omitempty"`
	ArticleIdeaID   string      `json:"articleIdeaId,omitempty"`
	Topic           string      `json:"topic"`
	Keywords        []string    `json:"keywords,omitempty"`
	WordCountTarget int         `json:"wordCountTarget,omitempty"`
	Tone            string      `json:"tone,omitempty"`
	Language        string      `json:"language,omitempty"`
	ContentType     ContentType `json:"contentType,omitempty"`
	Products        []Product   `json:"products,omitempty"`
	YouTubeVideoID  string      `json:"youtubeVideoId,omitempty"`
	Features        Features    `json:"features"`
}

const (
	defaultWordCount = 1500
	defaultLanguage  = "nl"
	minWordCount     = 300
	maxWordCount     = 6000
	maxImages        = 8
)

// Normalize returns a trimmed copy with defaults filled in.
func (r Request) Normalize(defaultWords int) Request {
	r.Topic = strings.TrimSpace(r.Topic)
	r.Tone = strings.TrimSpace(r.Tone)
	r.Language = strings.TrimSpace(r.Language)

	seen := make(map[string]bool, len(r.Keywords))
	keywords := make([]string, 0, len(r.Keywords))
	for _, k := range r.Keywords {
		k = strings.TrimSpace(k)
		key := strings.ToLower(k)
		if k == "" || seen[key] {
			continue
		}
		seen[key] = true
		keywords = append(keywords, k)
	}
	r.Keywords = keywords

	if r.WordCountTarget == 0 {
		r.WordCountTarget = defaultWords
		if r.WordCountTarget == 0 {
			r.WordCountTarget = defaultWordCount
		}
	}
	if r.Language == "" {
		r.Language = defaultLanguage
	}
	if r.ContentType == "" && r.Topic != "" {
		r.ContentType = DeriveContentType(r.Topic, len(r.Products) > 0)
	}
	if r.Features.IncludeImages && r.Features.ImageCount == 0 {
		r.Features.ImageCount = 2
	}
	r.Products = append([]Product(nil), r.Products...)
	return r
}

// ErrValidation is matched by every ValidationError.
var ErrValidation = errors.New("invalid request")

// ValidationError lists the problems with a request.
type ValidationError struct {
	Problems []string
}

func (e *ValidationError) Error() string {
	return "invalid request: " + strings.Join(e.Problems, "; ")
}

func (e *ValidationError) Is(target error) bool {
	return target == ErrValidation
}

// Validate checks the request before any external call is made.
func (r Request) Validate() error {
	var problems []string

	if r.Topic == "" {
		problems = append(problems, "topic is required")
	}
	if r.ContentType != "" && !r.ContentType.valid() {
		problems = append(problems, fmt.Sprintf("unknown content type %q", r.ContentType))
	}
	if r.ContentType.IsProductType() && len(r.Products) == 0 {
		problems = append(problems, fmt.Sprintf("content type %s requires at least one product", r.ContentType))
	}
	for i, p := range r.Products {
		if strings.TrimSpace(p.Name) == "" || strings.TrimSpace(p.URL) == "" {
			problems = append(problems, fmt.Sprintf("product %d needs a name and url", i+1))
		}
	}
	if r.WordCountTarget < minWordCount || r.WordCountTarget > maxWordCount {
		problems = append(problems, fmt.Sprintf("wordCountTarget must be between %d and %d", minWordCount, maxWordCount))
	}
	if r.Features.ImageCount < 0 || r.Features.ImageCount > maxImages {
		problems = append(problems, fmt.Sprintf("imageCount must be between 0 and %d", maxImages))
	}
	if r.Language != "" {
		if _, err := language.Parse(r.Language); err != nil {
			problems = append(problems, fmt.Sprintf("language %q is not a valid tag", r.Language))
		}
	}

	if len(problems) > 0 {
		return &ValidationError{Problems: problems}
	}
	return nil
}

// LanguageName returns the English display name of the request language.
func (r Request) LanguageName() string {
	switch tag, err := language.Parse(r.Language); {
	case err != nil:
		return "Dutch"
	default:
		base, _ := tag.Base()
		if name, ok := languageNames[base.String()]; ok {
			return name
		}
		return base.String()
	}
}

var languageNames = map[string]string{
	"nl": "Dutch",
	"en": "English",
	"de": "German",
	"fr": "French",
	"es": "Spanish",
	"it": "Italian",
}
