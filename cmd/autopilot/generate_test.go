package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"testing/iotest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/soypete/autopilot/pkg/article"
)

func TestGenerateFlags_Request(t *testing.T) {
	path := filepath.Join(t.TempDir(), "req.json")
	require.NoError(t, os.WriteFile(path, []byte(`{
		"topic": "Alles over koffiebonen",
		"keywords": ["koffie"],
		"features": {"includeFAQ": true}
	}`), 0o600))

	f := generateFlags{requestFile: path, keywords: []string{"bonen", "branden"}, images: 2, publish: true}
	req, err := f.request()
	require.NoError(t, err)

	assert.Equal(t, "Alles over koffiebonen", req.Topic)
	assert.Equal(t, []string{"bonen", "branden"}, req.Keywords)
	assert.True(t, req.Features.IncludeFAQ)
	assert.True(t, req.Features.IncludeImages)
	assert.Equal(t, 2, req.Features.ImageCount)
	assert.True(t, req.Features.Publish)

	f = generateFlags{contentType: string(article.ContentHowTo)}
	_, err = f.request()
	assert.ErrorContains(t, err, "topic is required")
}

func TestRelay(t *testing.T) {
	stream := `{"status":"Researching","progress":20,"stage":"research"}
{"status":"Still writing","progress":35,"stage":"writing","heartbeat":true}
{"status":"complete","progress":100,"success":true,"title":"Klaar","creditsUsed":50}`

	var out bytes.Buffer
	// one byte at a time exercises partial lines
	require.NoError(t, relay(iotest.OneByteReader(strings.NewReader(stream)), &out))
	lines := strings.Split(strings.TrimSpace(out.String()), "\n")
	require.Len(t, lines, 3)
	assert.Contains(t, lines[2], `"title":"Klaar"`)
}

func TestRelay_Failures(t *testing.T) {
	var out bytes.Buffer
	err := relay(strings.NewReader(`{"status":"Researching","progress":20}`+"\n"), &out)
	assert.ErrorContains(t, err, "ended before")

	err = relay(strings.NewReader(`{"status":"error","progress":35,"error":"phase 3 (writing) failed: boom","success":false}`+"\n"), &out)
	assert.ErrorContains(t, err, "boom")
}
