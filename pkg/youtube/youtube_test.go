package youtube

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSearch(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/search", r.URL.Path)
		assert.Equal(t, "yt-key", r.URL.Query().Get("key"))
		assert.Equal(t, "nl", r.URL.Query().Get("relevanceLanguage"))
		if r.URL.Query().Get("q") == "leeg" {
			w.Write([]byte(`{"items": []}`))
			return
		}
		w.Write([]byte(`{"items": [{"id": {"videoId": "dQw4w9WgXcQ"}, "snippet": {"title": "Koffie &amp; bonen"}}]}`))
	}))
	defer srv.Close()

	c := NewClient("yt-key", srv.URL)
	v, err := c.Search(context.Background(), "koffie zetten", "nl")
	require.NoError(t, err)
	assert.Equal(t, "dQw4w9WgXcQ", v.ID)
	assert.Equal(t, "Koffie & bonen", v.Title)

	_, err = c.Search(context.Background(), "leeg", "nl")
	assert.ErrorIs(t, err, ErrNoVideo)

	_, err = NewClient("", srv.URL).Search(context.Background(), "x", "")
	assert.Error(t, err)
}

func TestSearch_Status(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	}))
	defer srv.Close()

	_, err := NewClient("k", srv.URL).Search(context.Background(), "x", "")
	assert.ErrorContains(t, err, "403")
}

func TestEmbedHTML(t *testing.T) {
	out := EmbedHTML(Video{ID: "dQw4w9WgXcQ", Title: `"Koffie" <zetten>`})
	assert.Contains(t, out, `src="https://www.youtube.com/embed/dQw4w9WgXcQ"`)
	assert.Contains(t, out, `title="&#34;Koffie&#34; &lt;zetten&gt;"`)
	assert.True(t, ValidID("dQw4w9WgXcQ"))
	assert.False(t, ValidID("short"))
}
