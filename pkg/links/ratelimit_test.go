package links

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestRateLimiter_Allow(t *testing.T) {
	r := NewRateLimiter(2)
	assert.True(t, r.Allow("a.test"))
	assert.True(t, r.Allow("a.test"))
	assert.False(t, r.Allow("a.test"))
	assert.True(t, r.Allow("b.test"), "hosts have independent buckets")
}

func TestRateLimiter_WaitRespectsContext(t *testing.T) {
	r := NewRateLimiter(1)
	r.SetLimit("slow.test", 0.01)
	assert.NoError(t, r.Wait(context.Background(), "slow.test"))

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	assert.ErrorIs(t, r.Wait(ctx, "slow.test"), context.DeadlineExceeded)
}

func TestRateLimiter_WaitRefills(t *testing.T) {
	r := NewRateLimiter(1)
	r.SetLimit("fast.test", 50)
	for i := 0; i < 60; i++ {
		assert.NoError(t, r.Wait(context.Background(), "fast.test"))
	}
}

func TestHost(t *testing.T) {
	assert.Equal(t, "example.com", Host("https://Example.com:8443/path"))
	assert.Equal(t, "", Host("::bad"))
	assert.NoError(t, NewRateLimiter(1).WaitForURL(context.Background(), "::bad"))
}
