// Package youtube looks up videos to embed in articles.
package youtube

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"html"
	"net/http"
	"net/url"
	"regexp"
	"strings"
	"time"
)

const apiBaseURL = "https://www.googleapis.com/youtube/v3"

// ErrNoVideo is returned when a search has no results.
var ErrNoVideo = errors.New("no matching video")

var videoIDPattern = regexp.MustCompile(`^[A-Za-z0-9_-]{11}$`)

// Video is a single YouTube video.
type Video struct {
	ID    string `json:"id"`
	Title string `json:"title"`
}

// Client calls the YouTube Data API.
type Client struct {
	apiKey  string
	baseURL string
	http    *http.Client
}

// NewClient creates a client. An empty baseURL uses the public API.
func NewClient(apiKey, baseURL string) *Client {
	if baseURL == "" {
		baseURL = apiBaseURL
	}
	return &Client{
		apiKey:  apiKey,
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: 10 * time.Second},
	}
}

// Enabled reports whether an API key is configured.
func (c *Client) Enabled() bool {
	return c != nil && c.apiKey != ""
}

type searchResponse struct {
	Items []struct {
		ID struct {
			VideoID string `json:"videoId"`
		} `json:"id"`
		Snippet struct {
			Title string `json:"title"`
		} `json:"snippet"`
	} `json:"items"`
}

// Search returns the most relevant embeddable video for query.
func (c *Client) Search(ctx context.Context, query, language string) (*Video, error) {
	if !c.Enabled() {
		return nil, fmt.Errorf("youtube api key not configured")
	}

	q := url.Values{}
	q.Set("part", "snippet")
	q.Set("type", "video")
	q.Set("videoEmbeddable", "true")
	q.Set("maxResults", "1")
	q.Set("q", query)
	q.Set("key", c.apiKey)
	if language != "" {
		q.Set("relevanceLanguage", language)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/search?"+q.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("youtube search failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("youtube search returned status %d", resp.StatusCode)
	}

	var body searchResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, fmt.Errorf("failed to decode youtube response: %w", err)
	}
	for _, item := range body.Items {
		if videoIDPattern.MatchString(item.ID.VideoID) {
			return &Video{ID: item.ID.VideoID, Title: html.UnescapeString(item.Snippet.Title)}, nil
		}
	}
	return nil, ErrNoVideo
}

// ValidID reports whether id looks like a YouTube video id.
func ValidID(id string) bool {
	return videoIDPattern.MatchString(id)
}

// EmbedHTML renders the responsive embed block for a video.
func EmbedHTML(v Video) string {
	title := v.Title
	if title == "" {
		title = "YouTube video"
	}
	return fmt.Sprintf(`<div class="video-embed"><iframe src="https://www.youtube.com/embed/%s" title="%s" loading="lazy" allow="accelerometer; encrypted-media; gyroscope; picture-in-picture" allowfullscreen></iframe></div>`,
		url.PathEscape(v.ID), html.EscapeString(title))
}
