// Package publish pushes finished articles to a CMS.
package publish

import (
	"context"
	"fmt"
	"strings"
)

// Post is the CMS-agnostic publish payload.
type Post struct {
	Title            string
	HTMLContent      string
	Excerpt          string
	Tags             []string
	CategoryIDs      []int64
	FeaturedImageURL string
	Slug             string
	SEOTitle         string
	SEODescription   string
	FocusKeyword     string
}

// Published identifies the post on the remote side.
type Published struct {
	PublishedURL string `json:"publishedUrl"`
	RemoteID     string `json:"remoteId"`
}

// Category is a CMS taxonomy term.
type Category struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
	Slug string `json:"slug"`
}

// Publisher is a publish target.
type Publisher interface {
	Name() string
	Publish(ctx context.Context, post Post) (*Published, error)
	// Categories lists the taxonomy terms posts can be filed under. Targets
	// without categories return nil.
	Categories(ctx context.Context) ([]Category, error)
	// ExistingSlugs lists slugs equal to base or starting with base + "-".
	ExistingSlugs(ctx context.Context, base string) ([]string, error)
}

// APIError is a non-2xx response from a CMS.
type APIError struct {
	StatusCode int
	Code       string
	Message    string
}

func (e *APIError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("cms returned %d (%s): %s", e.StatusCode, e.Code, e.Message)
	}
	return fmt.Sprintf("cms returned %d: %s", e.StatusCode, e.Message)
}

func matchesBase(slug, base string) bool {
	return slug == base || strings.HasPrefix(slug, base+"-")
}
