package llm

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const indexSchema = `{"type": "array", "items": {"type": "integer"}}`

func TestDecodeJSON(t *testing.T) {
	var got []int
	require.NoError(t, DecodeJSON("Keuze:\n```json\n[2, 1]\n```", indexSchema, &got))
	assert.Equal(t, []int{2, 1}, got)
}

func TestDecodeJSON_Errors(t *testing.T) {
	var got []int
	assert.ErrorIs(t, DecodeJSON("geen idee", indexSchema, &got), ErrNoJSON)
	assert.ErrorIs(t, DecodeJSON(`["a", "b"]`, indexSchema, &got), ErrSchemaMismatch)

	var any map[string]any
	assert.NoError(t, DecodeJSON(`{"x": 1}`, "", &any))
}
