package pipeline

import (
	"sync"
	"time"
)

// startHeartbeat calls beat every interval until stop is called. stop waits
// for an in-flight beat to return, so callers may write to the same sink
// afterwards without racing.
func startHeartbeat(interval time.Duration, beat func()) (stop func()) {
	if interval <= 0 {
		return func() {}
	}
	done := make(chan struct{})
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-done:
				return
			case <-ticker.C:
				beat()
			}
		}
	}()

	var once sync.Once
	return func() {
		once.Do(func() {
			close(done)
			wg.Wait()
		})
	}
}
