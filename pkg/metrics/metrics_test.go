package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestHTTPRequestsTotal(t *testing.T) {
	// Reset counter before test
	HTTPRequestsTotal.Reset()

	HTTPRequestsTotal.WithLabelValues("GET", "/health", "200").Inc()
	HTTPRequestsTotal.WithLabelValues("GET", "/health", "200").Inc()
	HTTPRequestsTotal.WithLabelValues("POST", "/api/jobs", "202").Inc()

	count := testutil.ToFloat64(HTTPRequestsTotal.WithLabelValues("GET", "/health", "200"))
	if count != 2 {
		t.Errorf("Expected 2 GET requests, got %f", count)
	}

	count = testutil.ToFloat64(HTTPRequestsTotal.WithLabelValues("POST", "/api/jobs", "202"))
	if count != 1 {
		t.Errorf("Expected 1 POST request, got %f", count)
	}
}

func TestPipelineCollectors(t *testing.T) {
	GenerationsTotal.Reset()
	DegradationsTotal.Reset()
	CreditsDeductedTotal.Reset()

	GenerationsTotal.WithLabelValues("completed").Inc()
	DegradationsTotal.WithLabelValues("image").Add(2)
	CreditsDeductedTotal.WithLabelValues("blog_post").Add(50)

	if got := testutil.ToFloat64(GenerationsTotal.WithLabelValues("completed")); got != 1 {
		t.Errorf("completed generations = %f, want 1", got)
	}
	if got := testutil.ToFloat64(DegradationsTotal.WithLabelValues("image")); got != 2 {
		t.Errorf("image degradations = %f, want 2", got)
	}
	if got := testutil.ToFloat64(CreditsDeductedTotal.WithLabelValues("blog_post")); got != 50 {
		t.Errorf("blog_post credits = %f, want 50", got)
	}

	ActiveGenerations.Set(0)
	ActiveGenerations.Inc()
	if got := testutil.ToFloat64(ActiveGenerations); got != 1 {
		t.Errorf("active generations = %f, want 1", got)
	}
	ActiveGenerations.Dec()

	StageDuration.WithLabelValues("research").Observe(1.5)
	if n := testutil.CollectAndCount(StageDuration); n < 1 {
		t.Errorf("stage duration series = %d, want >= 1", n)
	}
}

func TestRegistered(t *testing.T) {
	err := prometheus.Register(GenerationsTotal)
	if _, ok := err.(prometheus.AlreadyRegisteredError); !ok {
		t.Errorf("GenerationsTotal should already be registered, got %v", err)
	}
}
