package httpapi

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/soypete/autopilot/pkg/article"
	"github.com/soypete/autopilot/pkg/credits"
	"github.com/soypete/autopilot/pkg/jobs"
)

// APIError is the error body of every non-streaming failure.
type APIError struct {
	Message  string   `json:"message"`
	Code     string   `json:"code,omitempty"`
	Problems []string `json:"problems,omitempty"`
}

type errorEnvelope struct {
	Error APIError `json:"error"`
}

func respondError(c *gin.Context, status int, code string, err error) {
	msg := http.StatusText(status)
	if err != nil {
		msg = err.Error()
	}
	body := APIError{Message: msg, Code: code}
	var ve *article.ValidationError
	if errors.As(err, &ve) {
		body.Problems = ve.Problems
	}
	c.JSON(status, errorEnvelope{Error: body})
}

// respondPrepareError maps a rejected request to its status code.
func respondPrepareError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, article.ErrValidation):
		respondError(c, http.StatusBadRequest, "invalid_request", err)
	case errors.Is(err, credits.ErrInsufficientCredits):
		respondError(c, http.StatusPaymentRequired, "insufficient_credits", err)
	default:
		_ = c.Error(err)
		respondError(c, http.StatusInternalServerError, "internal", err)
	}
}

func respondJobError(c *gin.Context, err error) {
	if errors.Is(err, jobs.ErrNotFound) {
		respondError(c, http.StatusNotFound, "job_not_found", err)
		return
	}
	_ = c.Error(err)
	respondError(c, http.StatusInternalServerError, "internal", err)
}
