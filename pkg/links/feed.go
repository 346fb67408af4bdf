package links

import (
	"context"
	"fmt"
	"strings"

	"github.com/mmcdole/gofeed"
)

// FeedSource reads candidates from an RSS or Atom feed.
type FeedSource struct {
	fetcher *Fetcher
	parser  *gofeed.Parser
}

// NewFeedSource creates a feed source.
func NewFeedSource(f *Fetcher) *FeedSource {
	return &FeedSource{fetcher: f, parser: gofeed.NewParser()}
}

// Candidates returns feed items as link candidates.
func (s *FeedSource) Candidates(ctx context.Context, feedURL string, limit int) ([]Candidate, error) {
	body, err := s.fetcher.Get(ctx, feedURL)
	if err != nil {
		return nil, err
	}
	feed, err := s.parser.ParseString(string(body))
	if err != nil {
		return nil, fmt.Errorf("failed to parse feed %s: %w", feedURL, err)
	}

	var out []Candidate
	seen := make(map[string]bool)
	for _, item := range feed.Items {
		if limit > 0 && len(out) >= limit {
			break
		}
		link := strings.TrimSpace(item.Link)
		if link == "" || seen[link] {
			continue
		}
		seen[link] = true

		title := strings.TrimSpace(item.Title)
		if title == "" {
			title, _ = TitleFromURL(link)
		}
		c := Candidate{URL: link, Title: title}
		if len(item.Categories) > 0 {
			c.Category = item.Categories[0]
		}
		out = append(out, c)
	}
	return out, nil
}

// Discoverer finds internal pages of a website, trying the sitemap first
// and the feed second.
type Discoverer struct {
	Sitemap Source
	Feed    Source
}

// NewDiscoverer wires both sources to one fetcher.
func NewDiscoverer(f *Fetcher) *Discoverer {
	return &Discoverer{Sitemap: NewSitemapSource(f), Feed: NewFeedSource(f)}
}

// Discover returns up to limit candidates for websiteURL.
func (d *Discoverer) Discover(ctx context.Context, websiteURL string, limit int) ([]Candidate, error) {
	base := strings.TrimRight(websiteURL, "/")
	if base == "" {
		return nil, fmt.Errorf("no website url")
	}

	var errs []string
	if d.Sitemap != nil {
		for _, loc := range []string{base + "/sitemap.xml", base + "/sitemap_index.xml"} {
			found, err := d.Sitemap.Candidates(ctx, loc, limit)
			if err == nil && len(found) > 0 {
				return found, nil
			}
			if err != nil {
				errs = append(errs, err.Error())
			}
		}
	}
	if d.Feed != nil {
		found, err := d.Feed.Candidates(ctx, base+"/feed", limit)
		if err == nil && len(found) > 0 {
			return found, nil
		}
		if err != nil {
			errs = append(errs, err.Error())
		}
	}
	if len(errs) > 0 {
		return nil, fmt.Errorf("link discovery failed: %s", strings.Join(errs, "; "))
	}
	return nil, nil
}
