package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/soypete/autopilot/pkg/article"
	"github.com/soypete/autopilot/pkg/jobs"
	"github.com/soypete/autopilot/pkg/progress"
)

const maxListLimit = 100

func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok", "version": s.cfg.Version})
}

func (s *Server) bindRequest(c *gin.Context) (article.Request, bool) {
	var req article.Request
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, "invalid_json", fmt.Errorf("invalid request body: %w", err))
		return req, false
	}
	req.AccountID = c.GetString(accountKey)
	return req, true
}

// handleGenerate runs the pipeline inside the request and streams progress
// as NDJSON. A client that disconnects does not abort the run.
func (s *Server) handleGenerate(c *gin.Context) {
	req, ok := s.bindRequest(c)
	if !ok {
		return
	}
	job, req, err := s.gen.Prepare(c.Request.Context(), req)
	if err != nil {
		respondPrepareError(c, err)
		return
	}

	c.Header("Content-Type", "application/x-ndjson")
	c.Header("Cache-Control", "no-cache")
	c.Header("X-Accel-Buffering", "no")
	c.Header(jobHeader, job.ID)
	c.Status(http.StatusOK)

	stream := progress.NewStream(c.Writer, job.ID)
	defer func() {
		if err := stream.Close(); err != nil {
			s.log.Debug("Closing progress stream failed", "job_id", job.ID, "error", err)
		}
	}()

	sink := progress.Multi(stream, progress.BusSink(s.bus, job.ID))
	ctx := context.WithoutCancel(c.Request.Context())
	if _, err := s.gen.Execute(ctx, job.ID, req, sink); err != nil {
		s.log.Warn("Streamed generation failed", "job_id", job.ID, "error", err)
	}
}

// handleCreateJob starts a detached run and returns its id at once.
func (s *Server) handleCreateJob(c *gin.Context) {
	req, ok := s.bindRequest(c)
	if !ok {
		return
	}
	job, req, err := s.gen.Prepare(c.Request.Context(), req)
	if err != nil {
		respondPrepareError(c, err)
		return
	}

	s.running.Add(1)
	go func() {
		defer s.running.Done()
		if _, err := s.gen.Execute(context.Background(), job.ID, req, progress.BusSink(s.bus, job.ID)); err != nil {
			s.log.Warn("Background generation failed", "job_id", job.ID, "error", err)
		}
	}()

	c.Header(jobHeader, job.ID)
	c.JSON(http.StatusAccepted, gin.H{"jobId": job.ID, "status": job.Status})
}

func (s *Server) handleListJobs(c *gin.Context) {
	f := jobs.Filter{
		AccountID: c.GetString(accountKey),
		Status:    jobs.Status(c.Query("status")),
		Limit:     20,
	}
	if v := c.Query("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			respondError(c, http.StatusBadRequest, "invalid_limit", errors.New("limit must be a positive integer"))
			return
		}
		f.Limit = min(n, maxListLimit)
	}

	list, err := s.jobs.List(c.Request.Context(), f)
	if err != nil {
		respondJobError(c, err)
		return
	}
	if list == nil {
		list = []*jobs.Job{}
	}
	c.JSON(http.StatusOK, gin.H{"jobs": list})
}

func (s *Server) handleGetJob(c *gin.Context) {
	job, ok := s.ownedJob(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, job)
}

// ownedJob loads the :id job. Jobs of other accounts are reported as not
// found.
func (s *Server) ownedJob(c *gin.Context) (*jobs.Job, bool) {
	job, err := s.jobs.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondJobError(c, err)
		return nil, false
	}
	if job.AccountID != c.GetString(accountKey) {
		respondJobError(c, fmt.Errorf("%w: %s", jobs.ErrNotFound, job.ID))
		return nil, false
	}
	return job, true
}

// finalEvent rebuilds the terminal event of a finished job from its record.
func finalEvent(job *jobs.Job) progress.Event {
	if job.Status == jobs.StatusCompleted {
		var res article.Result
		if err := json.Unmarshal(job.Output, &res); err == nil {
			return progress.Complete(&res)
		}
		return progress.Complete(&article.Result{Success: true, JobID: job.ID})
	}
	msg := job.Error
	if msg == "" {
		msg = "generation failed"
	}
	return progress.Failure(job.ID, errors.New(msg), 0)
}
