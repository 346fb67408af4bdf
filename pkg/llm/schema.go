package llm

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/xeipuuv/gojsonschema"
)

var (
	// ErrNoJSON is returned when model output holds no parsable JSON.
	ErrNoJSON = errors.New("no JSON found in model output")
	// ErrSchemaMismatch is returned when extracted JSON fails validation.
	ErrSchemaMismatch = errors.New("model output does not match schema")
)

// DecodeJSON extracts JSON from model output, validates it against a JSON
// schema when one is given, and unmarshals it into v.
func DecodeJSON(text, schema string, v any) error {
	raw, ok := ExtractJSON(text)
	if !ok {
		return ErrNoJSON
	}

	if schema != "" {
		result, err := gojsonschema.Validate(gojsonschema.NewStringLoader(schema), gojsonschema.NewStringLoader(raw))
		if err != nil {
			return fmt.Errorf("schema validation error: %w", err)
		}
		if !result.Valid() {
			problems := make([]string, len(result.Errors()))
			for i, e := range result.Errors() {
				problems[i] = e.String()
			}
			return fmt.Errorf("%w: %s", ErrSchemaMismatch, strings.Join(problems, "; "))
		}
	}

	if err := json.Unmarshal([]byte(raw), v); err != nil {
		return fmt.Errorf("failed to decode model JSON: %w", err)
	}
	return nil
}
