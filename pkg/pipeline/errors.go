package pipeline

import (
	"errors"
	"fmt"
)

// Stage names, as reported in progress events and metrics.
const (
	StageContext  = "context"
	StageResearch = "research"
	StageWriting  = "writing"
	StageEnrich   = "enrichment"
	StageFinalize = "finalization"
)

// ErrContentTooShort is returned when the writer produces less than the
// minimum content length.
var ErrContentTooShort = errors.New("generated content is too short")

// StageError is a fatal pipeline failure.
type StageError struct {
	Stage     string
	Err       error
	Retryable bool
}

func (e *StageError) Error() string {
	msg := fmt.Sprintf("phase %d (%s) failed: %v", stageNumber(e.Stage), e.Stage, e.Err)
	if e.Retryable {
		msg += "; please try again"
	}
	return msg
}

func (e *StageError) Unwrap() error { return e.Err }

func stageNumber(stage string) int {
	switch stage {
	case StageContext:
		return 1
	case StageResearch:
		return 2
	case StageWriting:
		return 3
	case StageEnrich:
		return 4
	case StageFinalize:
		return 5
	}
	return 0
}
