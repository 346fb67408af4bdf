package httpapi

import (
	"io"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"github.com/soypete/autopilot/pkg/progress"
)

const (
	wsWriteWait  = 10 * time.Second
	wsPongWait   = 60 * time.Second
	wsPingPeriod = wsPongWait * 9 / 10
)

func sseName(e progress.Event) string {
	if e.Terminal() {
		return e.Status
	}
	return "progress"
}

// handleJobEvents streams a job's progress as server-sent events until the
// terminal event.
func (s *Server) handleJobEvents(c *gin.Context) {
	job, ok := s.ownedJob(c)
	if !ok {
		return
	}
	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")
	c.Header("X-Accel-Buffering", "no")

	if job.Status.Terminal() {
		e := finalEvent(job)
		c.SSEvent(sseName(e), e)
		return
	}

	ctx := c.Request.Context()
	events, release, err := s.bus.Subscribe(ctx, job.ID)
	if err != nil {
		respondError(c, http.StatusServiceUnavailable, "progress_unavailable", err)
		return
	}
	defer release()

	c.Stream(func(io.Writer) bool {
		select {
		case <-ctx.Done():
			return false
		case e, ok := <-events:
			if !ok {
				return false
			}
			c.SSEvent(sseName(e), e)
			return !e.Terminal()
		}
	})
}

func (s *Server) upgrader() *websocket.Upgrader {
	allowed := make(map[string]bool, len(s.cfg.CORSOrigins))
	for _, o := range s.cfg.CORSOrigins {
		allowed[o] = true
	}
	return &websocket.Upgrader{
		CheckOrigin: func(r *http.Request) bool {
			origin := r.Header.Get("Origin")
			return len(allowed) == 0 || origin == "" || allowed[origin]
		},
	}
}

// handleJobSocket is handleJobEvents over a WebSocket: one JSON event per
// text message, closed normally after the terminal event.
func (s *Server) handleJobSocket(c *gin.Context) {
	job, ok := s.ownedJob(c)
	if !ok {
		return
	}
	conn, err := s.upgrader().Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		s.log.Debug("WebSocket upgrade failed", "job_id", job.ID, "error", err)
		return
	}
	defer conn.Close()

	closeNormal := func() {
		msg := websocket.FormatCloseMessage(websocket.CloseNormalClosure, "done")
		_ = conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(wsWriteWait))
	}

	if job.Status.Terminal() {
		_ = conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
		if err := conn.WriteJSON(finalEvent(job)); err == nil {
			closeNormal()
		}
		return
	}

	ctx := c.Request.Context()
	events, release, err := s.bus.Subscribe(ctx, job.ID)
	if err != nil {
		s.log.Warn("Progress subscription failed", "job_id", job.ID, "error", err)
		return
	}
	defer release()

	// The reader only notices the peer going away.
	gone := make(chan struct{})
	conn.SetReadLimit(512)
	_ = conn.SetReadDeadline(time.Now().Add(wsPongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(wsPongWait))
	})
	go func() {
		defer close(gone)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	ping := time.NewTicker(wsPingPeriod)
	defer ping.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-gone:
			return
		case <-ping.C:
			if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(wsWriteWait)); err != nil {
				return
			}
		case e, ok := <-events:
			if !ok {
				return
			}
			_ = conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
			if err := conn.WriteJSON(e); err != nil {
				s.log.Debug("WebSocket write failed", "job_id", job.ID, "error", err)
				return
			}
			if e.Terminal() {
				closeNormal()
				return
			}
		}
	}
}
