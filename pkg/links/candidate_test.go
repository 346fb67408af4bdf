package links

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSanitizeIndices(t *testing.T) {
	tests := []struct {
		name   string
		raw    []int
		n, limit int
		want   []int
	}{
		{"out of range dropped", []int{1, 3, 99, 0, -1}, 3, 4, []int{1, 3}},
		{"duplicates dropped", []int{2, 2, 1}, 3, 4, []int{2, 1}},
		{"truncated to max", []int{1, 2, 3, 4, 5}, 5, 3, []int{1, 2, 3}},
		{"empty", nil, 3, 4, []int{}},
		{"no candidates", []int{1}, 0, 4, []int{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, SanitizeIndices(tt.raw, tt.n, tt.limit))
		})
	}
}

func TestSanitizeIndices_AlwaysInRange(t *testing.T) {
	raw := []int{-5, -1, 0, 1, 2, 3, 4, 7, 100, 2, 1}
	for n := 0; n <= 6; n++ {
		for limit := 1; limit <= 5; limit++ {
			got := SanitizeIndices(raw, n, limit)
			assert.LessOrEqual(t, len(got), limit)
			seen := map[int]bool{}
			for _, i := range got {
				assert.True(t, i >= 1 && i <= n, "index %d outside 1..%d", i, n)
				assert.False(t, seen[i])
				seen[i] = true
			}
		}
	}
}

func TestScoreRelevance(t *testing.T) {
	kw := []string{"koffiezetapparaat", "filterkoffie"}
	assert.Equal(t, RelevanceHigh, ScoreRelevance("Het beste koffiezetapparaat voor filterkoffie", kw))
	assert.Equal(t, RelevanceHigh, ScoreRelevance("koffiezetapparaat kopen", kw))
	assert.Equal(t, RelevanceMedium, ScoreRelevance("koffiezetapparaat kopen", []string{"koffiezetapparaat", "thee", "melk"}))
	assert.Equal(t, RelevanceLow, ScoreRelevance("Tuinmeubelen", kw))
	assert.Equal(t, RelevanceLow, ScoreRelevance("anything", nil))
}

func TestRank(t *testing.T) {
	cands := []Candidate{
		{URL: "https://site.test/tuin", Title: "Tuin"},
		{URL: "https://site.test/koffie-bonen", Title: "Koffie bonen", UsageCount: 4},
		{URL: "https://site.test/koffie-malen", Title: "Koffie malen", UsageCount: 1},
	}
	got := Rank(cands, []string{"koffie"}, 2)
	assert.Len(t, got, 2)
	assert.Equal(t, "Koffie malen", got[0].Title)
	assert.Equal(t, "Koffie bonen", got[1].Title)
	assert.Equal(t, RelevanceHigh, got[0].Relevance)
}

func TestCandidateAnchor(t *testing.T) {
	assert.Equal(t, "bonen", Candidate{Title: "Koffiebonen", AnchorHint: " bonen "}.Anchor())
	assert.Equal(t, "Koffiebonen", Candidate{Title: "Koffiebonen"}.Anchor())
}
