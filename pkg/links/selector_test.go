package links

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/soypete/autopilot/pkg/testutil"
)

var threeCandidates = []Candidate{
	{URL: "https://shop.test/a", Title: "Moccamaster"},
	{URL: "https://shop.test/b", Title: "Philips"},
	{URL: "https://shop.test/c", Title: "Senseo"},
}

func TestSelectAffiliate(t *testing.T) {
	mock := testutil.NewMockLLMBackend().AddResponse("Mijn keuze: [1, 3, 99, 0, -1]")
	got, err := NewSelector(mock).SelectAffiliate(context.Background(), "Beste koffiezetapparaten", []string{"koffie"}, threeCandidates, 4)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "https://shop.test/a", got[0].URL)
	assert.Equal(t, "https://shop.test/c", got[1].URL)

	req := mock.InferCalls[0].Request
	assert.Contains(t, req.UserPrompt, "2. Philips (https://shop.test/b)")
	assert.Equal(t, "affiliate_selection", req.Metadata["feature"])
}

func TestSelectAffiliate_Failures(t *testing.T) {
	_, err := NewSelector(testutil.NewMockLLMBackend().AddError(errors.New("boom"))).
		SelectAffiliate(context.Background(), "t", nil, threeCandidates, 4)
	assert.Error(t, err)

	_, err = NewSelector(testutil.NewMockLLMBackend().AddResponse(`["een"]`)).
		SelectAffiliate(context.Background(), "t", nil, threeCandidates, 4)
	assert.Error(t, err)

	mock := testutil.NewMockLLMBackend()
	got, err := NewSelector(mock).SelectAffiliate(context.Background(), "t", nil, nil, 4)
	assert.NoError(t, err)
	assert.Empty(t, got)
	assert.Zero(t, mock.GetCallCount())
}

func TestSelectInternal(t *testing.T) {
	mock := testutil.NewMockLLMBackend().AddResponse(`[
		{"index": 2, "reason": "vergelijkbaar merk"},
		{"index": 7, "reason": "bestaat niet"},
		{"index": 2, "reason": "dubbel"},
		{"index": 3}
	]`)
	got, err := NewSelector(mock).SelectInternal(context.Background(), "Koffie", nil, threeCandidates, 5)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "Philips", got[0].Title)
	assert.Equal(t, "vergelijkbaar merk", got[0].Reason)
	assert.Equal(t, "Senseo", got[1].Title)
	assert.Empty(t, got[1].Reason)
}
