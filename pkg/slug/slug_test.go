package slug

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMake(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"De Beste Koffiezetapparaten van 2025", "de-beste-koffiezetapparaten-van-2025"},
		{"Crème brûlée & café", "creme-brulee-en-cafe"},
		{"Straße in Ørsted", "strasse-in-orsted"},
		{"  --Hallo!!  Wereld--  ", "hallo-wereld"},
		{"", "post"},
		{"!!!", "post"},
		{"ideeën voor thuis", "ideeen-voor-thuis"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, Make(tt.in), tt.in)
	}
}

func TestMake_TruncatesOnBoundary(t *testing.T) {
	got := Make(strings.Repeat("koffie ", 20))
	assert.LessOrEqual(t, len(got), maxLength)
	assert.False(t, strings.HasSuffix(got, "-"))
	assert.True(t, strings.HasSuffix(got, "koffie"))
}

func TestUnique(t *testing.T) {
	tests := []struct {
		name     string
		existing []string
		want     string
	}{
		{"free", nil, "koffie"},
		{"taken", []string{"koffie"}, "koffie-2"},
		{"gap", []string{"koffie", "koffie-2", "koffie-4"}, "koffie-3"},
		{"unrelated", []string{"thee", "koffie-2"}, "koffie"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			set := make(map[string]bool)
			for _, s := range tt.existing {
				set[s] = true
			}
			assert.Equal(t, tt.want, Unique("koffie", set))
		})
	}
}

func TestUnique_NeverCollides(t *testing.T) {
	set := map[string]bool{}
	for i := 0; i < 25; i++ {
		s := Unique("post", set)
		require.False(t, set[s])
		if i == 0 {
			assert.Equal(t, "post", s)
		} else {
			assert.Equal(t, fmt.Sprintf("post-%d", i+1), s)
		}
		set[s] = true
	}
}

type listerFunc func(ctx context.Context, base string) ([]string, error)

func (f listerFunc) ExistingSlugs(ctx context.Context, base string) ([]string, error) {
	return f(ctx, base)
}

func TestGenerate(t *testing.T) {
	l := listerFunc(func(_ context.Context, base string) ([]string, error) {
		assert.Equal(t, "koffie-kopen", base)
		return []string{"koffie-kopen", "koffie-kopen-2"}, nil
	})
	got, err := Generate(context.Background(), "Koffie kopen", l)
	require.NoError(t, err)
	assert.Equal(t, "koffie-kopen-3", got)

	got, err = Generate(context.Background(), "Koffie kopen", nil)
	require.NoError(t, err)
	assert.Equal(t, "koffie-kopen", got)

	_, err = Generate(context.Background(), "x", listerFunc(func(context.Context, string) ([]string, error) {
		return nil, errors.New("down")
	}))
	assert.Error(t, err)
}
