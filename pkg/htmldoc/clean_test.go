package htmldoc

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCleanModelOutput(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"fenced html", "```html\n<h1>Titel</h1>\n<p>Tekst</p>\n```", "<h1>Titel</h1>\n<p>Tekst</p>"},
		{"bare fence", "```\n<p>Tekst</p>\n```", "<p>Tekst</p>"},
		{"language line", "html\n<p>Tekst</p>", "<p>Tekst</p>"},
		{"quoted", "\"<p>Tekst</p>\"", "<p>Tekst</p>"},
		{"document shell", "<!DOCTYPE html><html><head></head><body><p>Tekst</p></body></html>", "<p>Tekst</p>"},
		{"plain html untouched", "<p>Tekst</p>", "<p>Tekst</p>"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, CleanModelOutput(tt.in))
		})
	}
}

func TestCleanModelOutput_Markdown(t *testing.T) {
	out := CleanModelOutput("# Titel\n\nTekst met **vet**.\n\n- een\n- twee")
	assert.Contains(t, out, "<h1>Titel</h1>")
	assert.Contains(t, out, "<strong>vet</strong>")
	assert.Contains(t, out, "<li>een</li>")
}

func TestLooksLikeMarkdown(t *testing.T) {
	assert.True(t, LooksLikeMarkdown("## Kop\nTekst"))
	assert.False(t, LooksLikeMarkdown("<h2>Kop</h2>\n**vet**"))
	assert.False(t, LooksLikeMarkdown("Gewone zin."))
}
