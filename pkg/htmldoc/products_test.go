package htmldoc

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/soypete/autopilot/pkg/article"
)

func TestInsertProductBoxes_Markers(t *testing.T) {
	d := mustParse(t, `<h2>Top keuze</h2><p>Intro</p><p>[PRODUCT-1]</p><p>[PRODUCT-7]</p>`)
	n, err := d.InsertProductBoxes([]article.Product{
		{Name: "Moccamaster", URL: "https://shop.test/m", Price: "€ 199"},
	}, "")
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	out := d.HTML()
	assert.NotContains(t, out, "[PRODUCT-")
	assert.Contains(t, out, `class="product-box"`)
	assert.Contains(t, out, `rel="sponsored nofollow noopener"`)
	assert.Contains(t, out, "Bekijk prijs")
	assert.True(t, strings.Index(out, "Intro") < strings.Index(out, "Moccamaster"))
}

func TestInsertProductBoxes_FallbackPlacement(t *testing.T) {
	d := mustParse(t, `<h2>Een</h2><p>a</p><p>b</p><h2>Veelgestelde vragen</h2><p>?</p>`)
	n, err := d.InsertProductBoxes([]article.Product{
		{Name: "Eerste", URL: "/1"},
		{Name: "Tweede", URL: "/2"},
		{Name: "Derde", URL: "/3"},
	}, "Koop")
	require.NoError(t, err)
	assert.Equal(t, 3, n)

	out := d.HTML()
	assert.True(t, strings.Index(out, "Eerste") < strings.Index(out, "<p>b</p>"))
	assert.True(t, strings.Index(out, "Derde") < strings.Index(out, "Veelgestelde"))
}

func TestInsertProductBoxes_EscapesFields(t *testing.T) {
	d := mustParse(t, `<p>x</p>`)
	_, err := d.InsertProductBoxes([]article.Product{{Name: `<script>alert(1)</script>`, URL: "/p"}}, "")
	require.NoError(t, err)
	assert.NotContains(t, d.HTML(), "<script>")
}
