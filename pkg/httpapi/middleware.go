package httpapi

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/soypete/autopilot/pkg/logger"
	"github.com/soypete/autopilot/pkg/metrics"
)

const (
	accountHeader = "X-Account-ID"
	jobHeader     = "X-Job-ID"
	accountKey    = "account_id"
)

func requestLogger(log *logger.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		metrics.HTTPRequestsTotal.WithLabelValues(c.Request.Method, route, strconv.Itoa(c.Writer.Status())).Inc()

		kv := []interface{}{
			"method", c.Request.Method,
			"path", c.FullPath(),
			"status", c.Writer.Status(),
			"latency_ms", time.Since(start).Milliseconds(),
			"client_ip", c.ClientIP(),
		}
		if id := c.GetString(accountKey); id != "" {
			kv = append(kv, "account_id", id)
		}
		if len(c.Errors) > 0 {
			kv = append(kv, "error", c.Errors.String())
		}
		switch {
		case c.Writer.Status() >= http.StatusInternalServerError:
			log.Error("Request failed", kv...)
		case c.FullPath() == "/health" || c.FullPath() == "/metrics":
			log.Debug("Request", kv...)
		default:
			log.Info("Request", kv...)
		}
	}
}

func recovery(log *logger.Logger) gin.HandlerFunc {
	return gin.CustomRecovery(func(c *gin.Context, recovered any) {
		log.Error("Handler panicked", "path", c.Request.URL.Path, "panic", recovered)
		respondError(c, http.StatusInternalServerError, "internal", nil)
	})
}

// requireAccount reads the caller's account from X-Account-ID.
func requireAccount() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := strings.TrimSpace(c.GetHeader(accountHeader))
		if id == "" {
			respondError(c, http.StatusUnauthorized, "missing_account", nil)
			c.Abort()
			return
		}
		c.Set(accountKey, id)
		c.Next()
	}
}
