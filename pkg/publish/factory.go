package publish

import (
	"time"

	"github.com/soypete/autopilot/pkg/config"
	"github.com/soypete/autopilot/pkg/storage"
)

// Factory builds the publisher for a project.
type Factory struct {
	Blog        storage.BlogStore
	BlogBaseURL string
	Timeout     time.Duration
}

// NewFactory creates a factory from configuration.
func NewFactory(cfg config.PublishConfig, blog storage.BlogStore) *Factory {
	return &Factory{
		Blog:        blog,
		BlogBaseURL: cfg.InternalBlogBaseURL,
		Timeout:     time.Duration(cfg.TimeoutSeconds) * time.Second,
	}
}

// ForProject returns the WordPress publisher when the project has a
// WordPress connection, the built-in blog when one is configured, and nil
// otherwise.
func (f *Factory) ForProject(accountID string, p *storage.Project) (Publisher, error) {
	if p != nil && p.WordPressURL != "" {
		return NewWordPress(WordPressConfig{
			BaseURL:     p.WordPressURL,
			Username:    p.WordPressUser,
			AppPassword: p.WordPressAppPassword,
			Token:       p.WordPressToken,
			Timeout:     f.Timeout,
		})
	}
	if f.Blog != nil && f.BlogBaseURL != "" {
		return NewInternalBlog(f.Blog, f.BlogBaseURL, accountID), nil
	}
	return nil, nil
}
