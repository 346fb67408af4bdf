package publish

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/soypete/autopilot/pkg/storage"
)

// InternalBlog publishes to the built-in blog.
type InternalBlog struct {
	store     storage.BlogStore
	baseURL   string
	accountID string
}

var _ Publisher = (*InternalBlog)(nil)

// NewInternalBlog creates a publisher backed by store. Post URLs are
// baseURL + "/blog/" + slug.
func NewInternalBlog(store storage.BlogStore, baseURL, accountID string) *InternalBlog {
	return &InternalBlog{
		store:     store,
		baseURL:   strings.TrimRight(baseURL, "/"),
		accountID: accountID,
	}
}

func (b *InternalBlog) Name() string { return "blog" }

// Categories returns nil; the built-in blog has no taxonomy.
func (b *InternalBlog) Categories(context.Context) ([]Category, error) { return nil, nil }

func (b *InternalBlog) ExistingSlugs(ctx context.Context, base string) ([]string, error) {
	return b.store.BlogSlugs(ctx, base)
}

// Publish stores the post. The slug must already be unique.
func (b *InternalBlog) Publish(ctx context.Context, post Post) (*Published, error) {
	if post.Slug == "" {
		return nil, fmt.Errorf("blog post needs a slug")
	}
	p := &storage.BlogPost{
		AccountID:        b.accountID,
		Slug:             post.Slug,
		Title:            post.Title,
		Content:          post.HTMLContent,
		Excerpt:          post.Excerpt,
		FeaturedImageURL: post.FeaturedImageURL,
		SEOTitle:         post.SEOTitle,
		SEODescription:   post.SEODescription,
		Tags:             post.Tags,
		PublishedAt:      time.Now().UTC(),
	}
	if err := b.store.CreateBlogPost(ctx, p); err != nil {
		return nil, fmt.Errorf("failed to store blog post: %w", err)
	}
	return &Published{
		PublishedURL: b.baseURL + "/blog/" + p.Slug,
		RemoteID:     p.ID,
	}, nil
}
