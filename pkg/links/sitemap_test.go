package links

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testFetcher() *Fetcher {
	cfg := DefaultFetcherConfig()
	cfg.RequestsPerSecond = 1000
	return NewFetcher(cfg)
}

func sitemapServer(t *testing.T) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	var srv *httptest.Server
	mux.HandleFunc("/sitemap_index.xml", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprintf(w, `<?xml version="1.0" encoding="UTF-8"?>
<sitemapindex xmlns="http://www.sitemaps.org/schemas/sitemap/0.9">
  <sitemap><loc>%[1]s/post-sitemap.xml</loc></sitemap>
  <sitemap><loc>%[1]s/missing.xml</loc></sitemap>
  <sitemap><loc>%[1]s/page-sitemap.xml</loc></sitemap>
</sitemapindex>`, srv.URL)
	})
	mux.HandleFunc("/post-sitemap.xml", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprintf(w, `<urlset xmlns="http://www.sitemaps.org/schemas/sitemap/0.9">
  <url><loc>%[1]s/</loc></url>
  <url><loc>%[1]s/blog/beste-koffiebonen-2024/</loc></url>
  <url><loc>%[1]s/wp-content/uploads/foto.jpg</loc></url>
  <url><loc>%[1]s/blog/koffie_malen.html</loc></url>
  <url><loc>%[1]s/blog/beste-koffiebonen-2024/</loc></url>
</urlset>`, srv.URL)
	})
	mux.HandleFunc("/page-sitemap.xml", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprintf(w, `<urlset><url><loc>%s/over-ons</loc></url></urlset>`, srv.URL)
	})
	srv = httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func TestSitemapSource_Index(t *testing.T) {
	srv := sitemapServer(t)
	got, err := NewSitemapSource(testFetcher()).Candidates(context.Background(), srv.URL+"/sitemap_index.xml", 0)
	require.NoError(t, err)

	var titles []string
	for _, c := range got {
		titles = append(titles, c.Title)
	}
	assert.Equal(t, []string{"Beste koffiebonen 2024", "Koffie malen", "Over ons"}, titles)
}

func TestSitemapSource_Limit(t *testing.T) {
	srv := sitemapServer(t)
	got, err := NewSitemapSource(testFetcher()).Candidates(context.Background(), srv.URL+"/sitemap_index.xml", 1)
	require.NoError(t, err)
	assert.Len(t, got, 1)
}

func TestSitemapSource_Errors(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/html":
			fmt.Fprint(w, "<html><body>nope</body></html>")
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	s := NewSitemapSource(testFetcher())
	_, err := s.Candidates(context.Background(), srv.URL+"/sitemap.xml", 10)
	var fe *FetchError
	require.ErrorAs(t, err, &fe)
	assert.Equal(t, ErrNotFound, fe.Kind)

	_, err = s.Candidates(context.Background(), srv.URL+"/html", 10)
	assert.Error(t, err)

	_, err = s.Candidates(context.Background(), "ftp://x", 10)
	require.ErrorAs(t, err, &fe)
	assert.Equal(t, ErrInvalidURL, fe.Kind)
}

func TestFetcher_Caches(t *testing.T) {
	var hits int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&hits, 1)
		assert.Contains(t, r.Header.Get("User-Agent"), "AutopilotBot")
		fmt.Fprint(w, "ok")
	}))
	defer srv.Close()

	f := testFetcher()
	for i := 0; i < 3; i++ {
		body, err := f.Get(context.Background(), srv.URL+"/x")
		require.NoError(t, err)
		assert.Equal(t, "ok", string(body))
	}
	assert.Equal(t, int32(1), atomic.LoadInt32(&hits))
}

func TestTitleFromURL(t *testing.T) {
	tests := []struct {
		in     string
		want   string
		wantOK bool
	}{
		{"https://site.test/blog/koffie-zetten/", "Koffie zetten", true},
		{"https://site.test/", "", false},
		{"https://site.test/logo.png", "", false},
		{"https://site.test/caf%C3%A9-tips", "Café tips", true},
		{"not a url", "", false},
	}
	for _, tt := range tests {
		got, ok := TitleFromURL(tt.in)
		assert.Equal(t, tt.wantOK, ok, tt.in)
		assert.Equal(t, tt.want, got, tt.in)
	}
}
