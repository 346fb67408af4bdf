package article

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDeriveContentType(t *testing.T) {
	tests := []struct {
		topic       string
		hasProducts bool
		want        ContentType
	}{
		{"Beste koffiezetapparaten", false, ContentProductList},
		{"Top 10 laptops voor studenten", false, ContentProductList},
		{"Philips 3200 review", true, ContentProductReview},
		{"Nespresso vs Dolce Gusto", true, ContentComparison},
		{"Hoe ontkalk je een koffiemachine", false, ContentHowTo},
		{"How to brew pour-over coffee", false, ContentHowTo},
		{"7 tips voor betere espresso", true, ContentListicle},
		{"Alles over koffiebonen", false, ContentGuide},
		{"Alles over koffiebonen", true, ContentProductList},
	}
	for _, tt := range tests {
		t.Run(tt.topic, func(t *testing.T) {
			assert.Equal(t, tt.want, DeriveContentType(tt.topic, tt.hasProducts))
		})
	}
}

func TestNormalize(t *testing.T) {
	req := Request{
		Topic:    "  Beste koffiezetapparaten ",
		Keywords: []string{"koffie", " Koffie", "", "espresso"},
		Features: Features{IncludeImages: true},
	}.Normalize(0)

	assert.Equal(t, "Beste koffiezetapparaten", req.Topic)
	assert.Equal(t, []string{"koffie", "espresso"}, req.Keywords)
	assert.Equal(t, 1500, req.WordCountTarget)
	assert.Equal(t, "nl", req.Language)
	assert.Equal(t, ContentProductList, req.ContentType)
	assert.Equal(t, 2, req.Features.ImageCount)
}

func TestValidate(t *testing.T) {
	valid := Request{
		Topic:    "Alles over koffiebonen",
		Keywords: []string{"koffie"},
	}.Normalize(1500)
	require.NoError(t, valid.Validate())

	tests := []struct {
		name    string
		mutate  func(*Request)
		problem string
	}{
		{"missing topic", func(r *Request) { r.Topic = "" }, "topic is required"},
		{"product type without products", func(r *Request) { r.ContentType = ContentProductList }, "requires at least one product"},
		{"product missing url", func(r *Request) { r.Products = []Product{{Name: "X"}} }, "needs a name and url"},
		{"word count too small", func(r *Request) { r.WordCountTarget = 10 }, "wordCountTarget"},
		{"too many images", func(r *Request) { r.Features.ImageCount = 20 }, "imageCount"},
		{"bad language", func(r *Request) { r.Language = "not a tag!" }, "not a valid tag"},
		{"unknown type", func(r *Request) { r.ContentType = "poem" }, "unknown content type"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := valid
			tt.mutate(&r)
			err := r.Validate()
			require.Error(t, err)
			assert.True(t, errors.Is(err, ErrValidation))
			var ve *ValidationError
			require.True(t, errors.As(err, &ve))
			assert.Contains(t, ve.Error(), tt.problem)
		})
	}
}

func TestFeaturesApply(t *testing.T) {
	yes, no, three := true, false, 3
	base := Features{IncludeFAQ: false, IncludeImages: true, ImageCount: 2, Publish: true}

	got := base.Apply(Overrides{IncludeFAQ: &yes, Publish: &no, ImageCount: &three})

	assert.True(t, got.IncludeFAQ)
	assert.False(t, got.Publish)
	assert.Equal(t, 3, got.ImageCount)
	assert.True(t, got.IncludeImages)
	// original untouched
	assert.False(t, base.IncludeFAQ)
	assert.True(t, base.Publish)
}

func TestFeaturesApply_ClampsImageCount(t *testing.T) {
	huge, negative := 500, -2
	base := Features{IncludeImages: true, ImageCount: 2}

	assert.Equal(t, 8, base.Apply(Overrides{ImageCount: &huge}).ImageCount)
	assert.Equal(t, 0, base.Apply(Overrides{ImageCount: &negative}).ImageCount)
}

func TestLanguageName(t *testing.T) {
	assert.Equal(t, "Dutch", Request{Language: "nl"}.LanguageName())
	assert.Equal(t, "English", Request{Language: "en-GB"}.LanguageName())
}

func TestResultDegraded(t *testing.T) {
	r := &Result{Degradations: []Degradation{{Kind: DegradeImage, Message: "boom"}}}
	assert.True(t, r.Degraded(DegradeImage))
	assert.False(t, r.Degraded(DegradePublish))
}
