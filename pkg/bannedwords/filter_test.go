package bannedwords

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestScan(t *testing.T) {
	f := New([]string{"revolutionair", "Game-changer", "", "REVOLUTIONAIR"})
	assert.Equal(t, []string{"revolutionair", "Game-changer"}, f.Words())

	got := f.Scan("Dit Revolutionaire apparaat is een echte game-changer.")
	assert.Equal(t, []string{"Game-changer"}, got)

	assert.Empty(t, New(nil).Scan("anything"))
}

func TestClean(t *testing.T) {
	f := New([]string{"revolutionair", "ongekend"})
	tests := []struct {
		in, want string
	}{
		{"Een revolutionair apparaat.", "Een apparaat."},
		{"Het is ongekend.", "Het is."},
		{"Revolutionaire koffie", "Revolutionaire koffie"},
		{"Geen probleem hier", "Geen probleem hier"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, f.Clean(tt.in), tt.in)
	}
}

func TestClean_NestedMatches(t *testing.T) {
	f := New([]string{"in de"})
	in := "Koffie " + strings.Repeat("in ", 7) + strings.Repeat("de ", 7) + "keuken"
	assert.Equal(t, "Koffie keuken", f.Clean(in))
}

func TestRemove_LeavesMarkupAndURLs(t *testing.T) {
	f := New([]string{"revolutionair"})
	out, err := f.Remove(`<p>Een <a href="https://shop.test/revolutionair">revolutionair apparaat</a> voor thuis en op kantoor.</p>`)
	require.NoError(t, err)
	assert.Equal(t, `<p>Een <a href="https://shop.test/revolutionair"> apparaat</a> voor thuis en op kantoor.</p>`, out)
}

func TestRemove_Idempotent(t *testing.T) {
	f := New([]string{"x y", "baanbrekend", "echt", "in de"})
	inputs := []string{
		"<p>x x y y en nog een hele zin met genoeg tekst erbij</p>",
		"<p>Koffie in in in in in in in de de de de de de de keuken smaakt het best met vers gemalen bonen en schoon water uit de kraan.</p>",
		"<p>Baanbrekend en echt baanbrekend , echt !</p><p>Niets aan de hand hier, gewoon tekst.</p>",
		"<h2>Echt</h2><p>Een tekst die lang genoeg is om te blijven staan.</p>",
		"<p>schoon</p>",
	}
	for _, in := range inputs {
		once, err := f.Remove(in)
		require.NoError(t, err)
		twice, err := f.Remove(once)
		require.NoError(t, err)
		assert.Equal(t, once, twice, in)
		assert.Empty(t, f.Scan(strings.ToLower(once)), in)
	}
}

func TestRemove_RefusesExcessiveRemoval(t *testing.T) {
	f := New([]string{"baanbrekend"})
	in := "<p>baanbrekend baanbrekend baanbrekend ok</p>"
	out, err := f.Remove(in)
	assert.ErrorIs(t, err, ErrExcessiveRemoval)
	assert.Equal(t, in, out)
}
