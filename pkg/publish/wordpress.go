package publish

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"net/url"
	"path"
	"strconv"
	"strings"
	"time"

	"golang.org/x/oauth2"
)

// WordPressConfig configures a WordPress REST target. Token takes precedence
// over the application password.
type WordPressConfig struct {
	BaseURL     string
	Username    string
	AppPassword string
	Token       string
	Timeout     time.Duration
}

// WordPress publishes through the WordPress REST API.
type WordPress struct {
	base     string
	client   *http.Client
	username string
	password string
}

var _ Publisher = (*WordPress)(nil)

// maxMediaBytes caps the featured image sideload.
const maxMediaBytes = 15 << 20

// NewWordPress creates a WordPress publisher.
func NewWordPress(cfg WordPressConfig) (*WordPress, error) {
	base := strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if base == "" {
		return nil, errors.New("wordpress base url is required")
	}
	if cfg.Token == "" && (cfg.Username == "" || cfg.AppPassword == "") {
		return nil, errors.New("wordpress needs a token or a username and application password")
	}
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 30 * time.Second
	}

	wp := &WordPress{base: base}
	if cfg.Token != "" {
		src := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: cfg.Token, TokenType: "Bearer"})
		wp.client = oauth2.NewClient(context.Background(), src)
		wp.client.Timeout = timeout
	} else {
		wp.client = &http.Client{Timeout: timeout}
		wp.username = cfg.Username
		wp.password = cfg.AppPassword
	}
	return wp, nil
}

// Name returns "wordpress".
func (w *WordPress) Name() string { return "wordpress" }

func (w *WordPress) endpoint(p string, q url.Values) string {
	u := w.base + "/wp-json/wp/v2/" + p
	if len(q) > 0 {
		u += "?" + q.Encode()
	}
	return u
}

func (w *WordPress) do(ctx context.Context, method, endpoint, contentType string, body io.Reader, header http.Header, out any) error {
	req, err := http.NewRequestWithContext(ctx, method, endpoint, body)
	if err != nil {
		return err
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	for k, v := range header {
		req.Header[k] = v
	}
	req.Header.Set("Accept", "application/json")
	if w.username != "" {
		req.SetBasicAuth(w.username, w.password)
	}

	resp, err := w.client.Do(req)
	if err != nil {
		return fmt.Errorf("wordpress request failed: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, 10<<20))
	if err != nil {
		return fmt.Errorf("failed to read wordpress response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		apiErr := &APIError{StatusCode: resp.StatusCode, Message: strings.TrimSpace(string(data))}
		var body struct {
			Code    string `json:"code"`
			Message string `json:"message"`
		}
		if json.Unmarshal(data, &body) == nil && body.Message != "" {
			apiErr.Code = body.Code
			apiErr.Message = body.Message
		}
		return apiErr
	}
	if out == nil {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("failed to decode wordpress response: %w", err)
	}
	return nil
}

func (w *WordPress) getJSON(ctx context.Context, endpoint string, out any) error {
	return w.do(ctx, http.MethodGet, endpoint, "", nil, nil, out)
}

func (w *WordPress) postJSON(ctx context.Context, endpoint string, in, out any) error {
	raw, err := json.Marshal(in)
	if err != nil {
		return err
	}
	return w.do(ctx, http.MethodPost, endpoint, "application/json", bytes.NewReader(raw), nil, out)
}

// Categories lists up to 100 categories.
func (w *WordPress) Categories(ctx context.Context) ([]Category, error) {
	var cats []Category
	q := url.Values{"per_page": {"100"}}
	if err := w.getJSON(ctx, w.endpoint("categories", q), &cats); err != nil {
		return nil, fmt.Errorf("failed to list categories: %w", err)
	}
	return cats, nil
}

// ExistingSlugs searches posts for slugs that collide with base.
func (w *WordPress) ExistingSlugs(ctx context.Context, base string) ([]string, error) {
	var posts []struct {
		Slug string `json:"slug"`
	}
	q := url.Values{
		"search":   {strings.ReplaceAll(base, "-", " ")},
		"per_page": {"100"},
		"_fields":  {"slug"},
	}
	if err := w.getJSON(ctx, w.endpoint("posts", q), &posts); err != nil {
		return nil, fmt.Errorf("failed to list slugs: %w", err)
	}

	var out []string
	for _, p := range posts {
		if matchesBase(p.Slug, base) {
			out = append(out, p.Slug)
		}
	}
	return out, nil
}

type wpTerm struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

// tagIDs resolves tag names, creating missing tags. Tags that cannot be
// resolved are left off the post.
func (w *WordPress) tagIDs(ctx context.Context, names []string) []int64 {
	var ids []int64
	for _, name := range names {
		name = strings.TrimSpace(name)
		if name == "" {
			continue
		}

		var found []wpTerm
		q := url.Values{"search": {name}, "per_page": {"100"}}
		if err := w.getJSON(ctx, w.endpoint("tags", q), &found); err == nil {
			matched := false
			for _, t := range found {
				if strings.EqualFold(t.Name, name) {
					ids = append(ids, t.ID)
					matched = true
					break
				}
			}
			if matched {
				continue
			}
		}

		var created wpTerm
		if err := w.postJSON(ctx, w.endpoint("tags", nil), map[string]string{"name": name}, &created); err == nil && created.ID != 0 {
			ids = append(ids, created.ID)
		}
	}
	return ids
}

// uploadMedia copies a remote image into the media library.
func (w *WordPress) uploadMedia(ctx context.Context, src, title string) (int64, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, src, nil)
	if err != nil {
		return 0, err
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return 0, fmt.Errorf("failed to download featured image: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return 0, fmt.Errorf("featured image download returned %d", resp.StatusCode)
	}
	data, err := io.ReadAll(io.LimitReader(resp.Body, maxMediaBytes))
	if err != nil {
		return 0, err
	}

	contentType := resp.Header.Get("Content-Type")
	if contentType == "" {
		contentType = http.DetectContentType(data)
	}
	name := path.Base(resp.Request.URL.Path)
	if name == "" || name == "/" || name == "." || !strings.Contains(name, ".") {
		ext := ".jpg"
		if exts, _ := mime.ExtensionsByType(contentType); len(exts) > 0 {
			ext = exts[0]
		}
		name = "featured" + ext
	}

	header := http.Header{}
	header.Set("Content-Disposition", mime.FormatMediaType("attachment", map[string]string{"filename": name}))

	var media struct {
		ID int64 `json:"id"`
	}
	if err := w.do(ctx, http.MethodPost, w.endpoint("media", nil), contentType, bytes.NewReader(data), header, &media); err != nil {
		return 0, fmt.Errorf("failed to upload featured image: %w", err)
	}
	if title != "" && media.ID != 0 {
		_ = w.postJSON(ctx, w.endpoint("media/"+strconv.FormatInt(media.ID, 10), nil), map[string]string{"alt_text": title}, nil)
	}
	return media.ID, nil
}

type wpPost struct {
	Title         string            `json:"title"`
	Content       string            `json:"content"`
	Excerpt       string            `json:"excerpt,omitempty"`
	Status        string            `json:"status"`
	Slug          string            `json:"slug,omitempty"`
	Categories    []int64           `json:"categories,omitempty"`
	Tags          []int64           `json:"tags,omitempty"`
	FeaturedMedia int64             `json:"featured_media,omitempty"`
	Meta          map[string]string `json:"meta,omitempty"`
}

// Publish creates a published post with Yoast SEO meta.
func (w *WordPress) Publish(ctx context.Context, post Post) (*Published, error) {
	body := wpPost{
		Title:      post.Title,
		Content:    post.HTMLContent,
		Excerpt:    post.Excerpt,
		Status:     "publish",
		Slug:       post.Slug,
		Categories: post.CategoryIDs,
		Tags:       w.tagIDs(ctx, post.Tags),
	}

	meta := map[string]string{}
	if post.SEOTitle != "" {
		meta["_yoast_wpseo_title"] = post.SEOTitle
	}
	if post.SEODescription != "" {
		meta["_yoast_wpseo_metadesc"] = post.SEODescription
	}
	if post.FocusKeyword != "" {
		meta["_yoast_wpseo_focuskw"] = post.FocusKeyword
	}
	if len(meta) > 0 {
		body.Meta = meta
	}

	if post.FeaturedImageURL != "" {
		if id, err := w.uploadMedia(ctx, post.FeaturedImageURL, post.Title); err == nil {
			body.FeaturedMedia = id
		}
	}

	var created struct {
		ID   int64  `json:"id"`
		Link string `json:"link"`
	}
	if err := w.postJSON(ctx, w.endpoint("posts", nil), body, &created); err != nil {
		return nil, fmt.Errorf("failed to create post: %w", err)
	}
	return &Published{PublishedURL: created.Link, RemoteID: strconv.FormatInt(created.ID, 10)}, nil
}
