package publish

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeWordPress struct {
	mu        sync.Mutex
	auth      []string
	posts     []map[string]any
	tags      map[string]int64
	media     [][]byte
	failPosts bool
}

func (f *fakeWordPress) handler(t *testing.T) http.Handler {
	mux := http.NewServeMux()
	record := func(r *http.Request) {
		f.mu.Lock()
		f.auth = append(f.auth, r.Header.Get("Authorization"))
		f.mu.Unlock()
	}
	writeJSON := func(w http.ResponseWriter, status int, v any) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_ = json.NewEncoder(w).Encode(v)
	}

	mux.HandleFunc("/wp-json/wp/v2/categories", func(w http.ResponseWriter, r *http.Request) {
		record(r)
		assert.Equal(t, "100", r.URL.Query().Get("per_page"))
		writeJSON(w, 200, []Category{{ID: 3, Name: "Koffie", Slug: "koffie"}, {ID: 9, Name: "Thee", Slug: "thee"}})
	})
	mux.HandleFunc("/wp-json/wp/v2/posts", func(w http.ResponseWriter, r *http.Request) {
		record(r)
		if r.Method == http.MethodGet {
			assert.Equal(t, "slug", r.URL.Query().Get("_fields"))
			writeJSON(w, 200, []map[string]string{
				{"slug": "beste-koffie"},
				{"slug": "beste-koffie-2"},
				{"slug": "beste-koffiebonen"},
			})
			return
		}
		if f.failPosts {
			writeJSON(w, 403, map[string]string{"code": "rest_cannot_create", "message": "Sorry, you are not allowed"})
			return
		}
		var body map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		f.mu.Lock()
		f.posts = append(f.posts, body)
		f.mu.Unlock()
		writeJSON(w, 201, map[string]any{"id": 42, "link": "https://example.nl/beste-koffie-3/"})
	})
	mux.HandleFunc("/wp-json/wp/v2/tags", func(w http.ResponseWriter, r *http.Request) {
		record(r)
		f.mu.Lock()
		defer f.mu.Unlock()
		if r.Method == http.MethodGet {
			name := r.URL.Query().Get("search")
			if id, ok := f.tags[name]; ok {
				writeJSON(w, 200, []map[string]any{{"id": id, "name": name}})
				return
			}
			writeJSON(w, 200, []any{})
			return
		}
		var body map[string]string
		_ = json.NewDecoder(r.Body).Decode(&body)
		if body["name"] == "kapot" {
			writeJSON(w, 500, map[string]string{"message": "boom"})
			return
		}
		id := int64(100 + len(f.tags))
		f.tags[body["name"]] = id
		writeJSON(w, 201, map[string]any{"id": id, "name": body["name"]})
	})
	mux.HandleFunc("/wp-json/wp/v2/media", func(w http.ResponseWriter, r *http.Request) {
		record(r)
		assert.Contains(t, r.Header.Get("Content-Disposition"), "filename=")
		data, _ := io.ReadAll(r.Body)
		f.mu.Lock()
		f.media = append(f.media, data)
		f.mu.Unlock()
		writeJSON(w, 201, map[string]any{"id": 77})
	})
	mux.HandleFunc("/wp-json/wp/v2/media/77", func(w http.ResponseWriter, r *http.Request) {
		record(r)
		writeJSON(w, 200, map[string]any{"id": 77})
	})
	mux.HandleFunc("/images/hero.png", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "image/png")
		_, _ = w.Write([]byte("\x89PNG fake"))
	})
	return mux
}

func newFakeWordPress(t *testing.T) (*fakeWordPress, *httptest.Server) {
	f := &fakeWordPress{tags: map[string]int64{"koffie": 5}}
	srv := httptest.NewServer(f.handler(t))
	t.Cleanup(srv.Close)
	return f, srv
}

func TestNewWordPress_Validation(t *testing.T) {
	_, err := NewWordPress(WordPressConfig{})
	assert.Error(t, err)

	_, err = NewWordPress(WordPressConfig{BaseURL: "https://example.nl", Username: "admin"})
	assert.Error(t, err)

	wp, err := NewWordPress(WordPressConfig{BaseURL: "https://example.nl/", Token: "tok"})
	require.NoError(t, err)
	assert.Equal(t, "wordpress", wp.Name())
}

func TestWordPress_Categories(t *testing.T) {
	f, srv := newFakeWordPress(t)
	wp, err := NewWordPress(WordPressConfig{BaseURL: srv.URL, Username: "admin", AppPassword: "abcd efgh"})
	require.NoError(t, err)

	cats, err := wp.Categories(context.Background())
	require.NoError(t, err)
	require.Len(t, cats, 2)
	assert.Equal(t, int64(3), cats[0].ID)
	assert.Equal(t, "Koffie", cats[0].Name)

	require.NotEmpty(t, f.auth)
	assert.Contains(t, f.auth[0], "Basic ")
}

func TestWordPress_ExistingSlugs(t *testing.T) {
	_, srv := newFakeWordPress(t)
	wp, err := NewWordPress(WordPressConfig{BaseURL: srv.URL, Token: "secret"})
	require.NoError(t, err)

	slugs, err := wp.ExistingSlugs(context.Background(), "beste-koffie")
	require.NoError(t, err)
	assert.Equal(t, []string{"beste-koffie", "beste-koffie-2"}, slugs)
}

func TestWordPress_Publish(t *testing.T) {
	f, srv := newFakeWordPress(t)
	wp, err := NewWordPress(WordPressConfig{BaseURL: srv.URL, Token: "secret"})
	require.NoError(t, err)

	pub, err := wp.Publish(context.Background(), Post{
		Title:            "Beste koffie",
		HTMLContent:      "<p>Tekst</p>",
		Excerpt:          "Kort",
		Tags:             []string{"koffie", "bonen", "kapot", " "},
		CategoryIDs:      []int64{3},
		FeaturedImageURL: srv.URL + "/images/hero.png",
		Slug:             "beste-koffie-3",
		SEOTitle:         "Beste koffie 2026",
		SEODescription:   "Alles over koffie",
		FocusKeyword:     "koffie",
	})
	require.NoError(t, err)
	assert.Equal(t, "https://example.nl/beste-koffie-3/", pub.PublishedURL)
	assert.Equal(t, "42", pub.RemoteID)

	require.Len(t, f.posts, 1)
	post := f.posts[0]
	assert.Equal(t, "publish", post["status"])
	assert.Equal(t, "beste-koffie-3", post["slug"])
	assert.Equal(t, []any{float64(3)}, post["categories"])
	assert.Equal(t, []any{float64(5), float64(101)}, post["tags"])
	assert.Equal(t, float64(77), post["featured_media"])

	meta, ok := post["meta"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "Beste koffie 2026", meta["_yoast_wpseo_title"])
	assert.Equal(t, "Alles over koffie", meta["_yoast_wpseo_metadesc"])
	assert.Equal(t, "koffie", meta["_yoast_wpseo_focuskw"])

	require.Len(t, f.media, 1)
	assert.Equal(t, "\x89PNG fake", string(f.media[0]))

	for _, a := range f.auth {
		assert.Equal(t, "Bearer secret", a)
	}
}

func TestWordPress_PublishError(t *testing.T) {
	f, srv := newFakeWordPress(t)
	f.failPosts = true
	wp, err := NewWordPress(WordPressConfig{BaseURL: srv.URL, Username: "admin", AppPassword: "pw"})
	require.NoError(t, err)

	_, err = wp.Publish(context.Background(), Post{Title: "x", HTMLContent: "<p>x</p>"})
	require.Error(t, err)

	var apiErr *APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, 403, apiErr.StatusCode)
	assert.Equal(t, "rest_cannot_create", apiErr.Code)
	assert.Contains(t, err.Error(), "not allowed")
}
