package links

import (
	"context"
	"encoding/xml"
	"fmt"
	"net/url"
	"path"
	"strings"
	"unicode"
)

// Source discovers internal-link candidates for a website.
type Source interface {
	Candidates(ctx context.Context, location string, limit int) ([]Candidate, error)
}

// maxSitemapDepth bounds sitemap index nesting.
const maxSitemapDepth = 2

var assetExtensions = map[string]bool{
	".jpg": true, ".jpeg": true, ".png": true, ".gif": true, ".webp": true, ".svg": true,
	".pdf": true, ".xml": true, ".css": true, ".js": true, ".zip": true, ".mp4": true, ".mp3": true,
}

type sitemapEntry struct {
	Loc string `xml:"loc"`
}

// sitemapDoc decodes both <urlset> and <sitemapindex> roots.
type sitemapDoc struct {
	XMLName  xml.Name
	URLs     []sitemapEntry `xml:"url"`
	Sitemaps []sitemapEntry `xml:"sitemap"`
}

// SitemapSource reads candidates from an XML sitemap.
type SitemapSource struct {
	fetcher *Fetcher
}

// NewSitemapSource creates a sitemap source.
func NewSitemapSource(f *Fetcher) *SitemapSource {
	return &SitemapSource{fetcher: f}
}

// Candidates walks the sitemap at sitemapURL, following nested indexes.
func (s *SitemapSource) Candidates(ctx context.Context, sitemapURL string, limit int) ([]Candidate, error) {
	var out []Candidate
	seen := make(map[string]bool)
	if err := s.walk(ctx, sitemapURL, 0, limit, seen, &out); err != nil && len(out) == 0 {
		return nil, err
	}
	return out, nil
}

func (s *SitemapSource) walk(ctx context.Context, loc string, depth, limit int, seen map[string]bool, out *[]Candidate) error {
	body, err := s.fetcher.Get(ctx, loc)
	if err != nil {
		return err
	}

	var doc sitemapDoc
	if err := xml.Unmarshal(body, &doc); err != nil {
		return fmt.Errorf("failed to parse sitemap %s: %w", loc, err)
	}

	switch doc.XMLName.Local {
	case "sitemapindex":
		if depth >= maxSitemapDepth {
			return nil
		}
		var firstErr error
		for _, sm := range doc.Sitemaps {
			if limit > 0 && len(*out) >= limit {
				return nil
			}
			child := strings.TrimSpace(sm.Loc)
			if child == "" {
				continue
			}
			if err := s.walk(ctx, child, depth+1, limit, seen, out); err != nil && firstErr == nil {
				firstErr = err
			}
		}
		return firstErr
	case "urlset":
		for _, u := range doc.URLs {
			if limit > 0 && len(*out) >= limit {
				return nil
			}
			loc := strings.TrimSpace(u.Loc)
			title, ok := TitleFromURL(loc)
			if !ok || seen[loc] {
				continue
			}
			seen[loc] = true
			*out = append(*out, Candidate{URL: loc, Title: title})
		}
		return nil
	default:
		return fmt.Errorf("unexpected sitemap root <%s> in %s", doc.XMLName.Local, loc)
	}
}

// TitleFromURL derives a readable title from the last path segment. It
// reports false for the homepage and non-page assets.
func TitleFromURL(rawURL string) (string, bool) {
	u, err := url.Parse(rawURL)
	if err != nil || u.Host == "" {
		return "", false
	}
	p := strings.Trim(u.Path, "/")
	if p == "" {
		return "", false
	}
	seg := path.Base(p)
	ext := strings.ToLower(path.Ext(seg))
	if assetExtensions[ext] {
		return "", false
	}
	seg = strings.TrimSuffix(seg, path.Ext(seg))
	if unescaped, err := url.PathUnescape(seg); err == nil {
		seg = unescaped
	}

	words := strings.FieldsFunc(seg, func(r rune) bool { return r == '-' || r == '_' || r == '+' })
	if len(words) == 0 {
		return "", false
	}
	title := strings.Join(words, " ")
	r := []rune(title)
	r[0] = unicode.ToUpper(r[0])
	return string(r), true
}
