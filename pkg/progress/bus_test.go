package progress

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/soypete/autopilot/pkg/article"
)

func receive(t *testing.T, ch <-chan Event) Event {
	t.Helper()
	select {
	case e, ok := <-ch:
		require.True(t, ok, "channel closed")
		return e
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for event")
	}
	return Event{}
}

func TestMemoryBus_ReplayAndFanOut(t *testing.T) {
	bus := NewMemoryBus(8, time.Minute)
	ctx := context.Background()

	require.NoError(t, bus.Publish(ctx, "job", Step("context", 5, "Context")))

	a, releaseA, err := bus.Subscribe(ctx, "job")
	require.NoError(t, err)
	b, releaseB, err := bus.Subscribe(ctx, "job")
	require.NoError(t, err)
	defer releaseB()

	assert.Equal(t, 5, receive(t, a).Progress)
	assert.Equal(t, 5, receive(t, b).Progress)
	assert.Equal(t, 2, bus.Subscribers("job"))

	require.NoError(t, BusSink(bus, "job").Emit(Step("research", 20, "Onderzoek")))
	assert.Equal(t, 20, receive(t, a).Progress)
	assert.Equal(t, 20, receive(t, b).Progress)

	releaseA()
	releaseA()
	_, ok := <-a
	assert.False(t, ok)
	assert.Equal(t, 1, bus.Subscribers("job"))
}

func TestMemoryBus_PublishNeverBlocks(t *testing.T) {
	bus := NewMemoryBus(1, time.Minute)
	ctx := context.Background()
	ch, release, err := bus.Subscribe(ctx, "slow")
	require.NoError(t, err)
	defer release()

	done := make(chan struct{})
	go func() {
		for i := 0; i < 100; i++ {
			_ = bus.Publish(ctx, "slow", Step("writing", 35, "bezig"))
		}
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("publish blocked on a slow subscriber")
	}
	assert.Equal(t, 35, receive(t, ch).Progress)

	last, ok := bus.Last("slow")
	require.True(t, ok)
	assert.Equal(t, 35, last.Progress)
}

func TestMemoryBus_ContextCancelReleases(t *testing.T) {
	bus := NewMemoryBus(4, time.Minute)
	ctx, cancel := context.WithCancel(context.Background())
	ch, _, err := bus.Subscribe(ctx, "job")
	require.NoError(t, err)
	cancel()

	select {
	case _, ok := <-ch:
		assert.False(t, ok)
	case <-time.After(2 * time.Second):
		t.Fatal("subscription not released")
	}
}

func TestRedisBus(t *testing.T) {
	addr := os.Getenv("REDIS_ADDR")
	if addr == "" {
		t.Skip("REDIS_ADDR not set")
	}
	bus, err := NewRedisBus(RedisOptions{Addr: addr, TTL: time.Minute}, nil)
	require.NoError(t, err)
	defer bus.Close()

	ctx := context.Background()
	jobID := uuid.New().String()
	require.NoError(t, bus.Publish(ctx, jobID, Step("context", 5, "Context")))

	ch, release, err := bus.Subscribe(ctx, jobID)
	require.NoError(t, err)
	defer release()
	assert.Equal(t, 5, receive(t, ch).Progress)

	require.NoError(t, bus.Publish(ctx, jobID, Complete(&article.Result{Success: true, Title: "Koffie"})))
	e := receive(t, ch)
	assert.True(t, e.Terminal())
	assert.Equal(t, "Koffie", e.Title)
}
