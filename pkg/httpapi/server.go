// Package httpapi exposes the generation pipeline over HTTP.
package httpapi

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/soypete/autopilot/pkg/article"
	"github.com/soypete/autopilot/pkg/jobs"
	"github.com/soypete/autopilot/pkg/logger"
	"github.com/soypete/autopilot/pkg/progress"
)

// Generator runs generation requests. *pipeline.Pipeline satisfies it.
type Generator interface {
	Prepare(ctx context.Context, req article.Request) (*jobs.Job, article.Request, error)
	Execute(ctx context.Context, jobID string, req article.Request, sink progress.Sink) (*article.Result, error)
}

// Config holds server options.
type Config struct {
	CORSOrigins []string
	MediaDir    string
	Version     string

	ReadTimeout     time.Duration
	IdleTimeout     time.Duration
	ShutdownTimeout time.Duration
}

// DefaultConfig returns default server configuration. There is no write
// timeout: generation streams stay open for minutes.
func DefaultConfig() Config {
	return Config{
		ReadTimeout:     30 * time.Second,
		IdleTimeout:     120 * time.Second,
		ShutdownTimeout: 30 * time.Second,
	}
}

// Server is the HTTP API.
type Server struct {
	gen    Generator
	jobs   jobs.Manager
	bus    progress.Bus
	log    *logger.Logger
	cfg    Config
	engine *gin.Engine

	// detached runs started by POST /api/jobs
	running sync.WaitGroup
}

// New builds the server and its routes.
func New(gen Generator, jm jobs.Manager, bus progress.Bus, log *logger.Logger, cfg Config) *Server {
	if log == nil {
		log = logger.NewNop()
	}
	if bus == nil {
		bus = progress.NewMemoryBus(0, 0)
	}
	def := DefaultConfig()
	if cfg.ReadTimeout <= 0 {
		cfg.ReadTimeout = def.ReadTimeout
	}
	if cfg.IdleTimeout <= 0 {
		cfg.IdleTimeout = def.IdleTimeout
	}
	if cfg.ShutdownTimeout <= 0 {
		cfg.ShutdownTimeout = def.ShutdownTimeout
	}
	s := &Server{gen: gen, jobs: jm, bus: bus, log: log, cfg: cfg}
	s.engine = s.newEngine()
	return s
}

func (s *Server) newEngine() *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	r := gin.New()
	r.Use(requestLogger(s.log))
	r.Use(recovery(s.log))

	corsCfg := cors.Config{
		AllowMethods:  []string{"GET", "POST", "OPTIONS"},
		AllowHeaders:  []string{"Origin", "Content-Type", "Accept", accountHeader},
		ExposeHeaders: []string{jobHeader},
		MaxAge:        12 * time.Hour,
	}
	if len(s.cfg.CORSOrigins) == 0 {
		corsCfg.AllowAllOrigins = true
	} else {
		corsCfg.AllowOrigins = s.cfg.CORSOrigins
	}
	r.Use(cors.New(corsCfg))

	r.GET("/health", s.handleHealth)
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))
	if s.cfg.MediaDir != "" {
		r.Static("/media", s.cfg.MediaDir)
	}

	api := r.Group("/api")
	api.Use(requireAccount())
	{
		api.POST("/generate", s.handleGenerate)
		api.POST("/jobs", s.handleCreateJob)
		api.GET("/jobs", s.handleListJobs)
		api.GET("/jobs/:id", s.handleGetJob)
		api.GET("/jobs/:id/events", s.handleJobEvents)
		api.GET("/jobs/:id/ws", s.handleJobSocket)
	}
	return r
}

// Handler returns the root handler.
func (s *Server) Handler() http.Handler { return s.engine }

// ListenAndServe serves on addr until ctx is cancelled, then shuts down
// gracefully and waits for detached jobs to finish.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:        addr,
		Handler:     s.engine,
		ReadTimeout: s.cfg.ReadTimeout,
		IdleTimeout: s.cfg.IdleTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		s.log.Info("HTTP server listening", "addr", addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	s.log.Info("Shutting down HTTP server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), s.cfg.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	return s.Wait(shutdownCtx)
}

// Wait blocks until every detached job has returned or ctx is done.
func (s *Server) Wait(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		s.running.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
