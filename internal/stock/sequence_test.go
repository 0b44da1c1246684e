package stock

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestCommitClockStrictlyIncreases(t *testing.T) {
	var clock commitClock
	previous := clock.Next()
	for i := 0; i < 1000; i++ {
		next := clock.Next()
		require.True(t, next.After(previous))
		previous = next
	}
}

func TestCommitClockUnderContention(t *testing.T) {
	var clock commitClock
	const workers = 8
	const perWorker = 500

	results := make(chan time.Time, workers*perWorker)
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < perWorker; j++ {
				results <- clock.Next()
			}
		}()
	}
	wg.Wait()
	close(results)

	seen := make(map[time.Time]struct{}, workers*perWorker)
	for ts := range results {
		_, dup := seen[ts]
		require.False(t, dup, "timestamp handed out twice: %v", ts)
		seen[ts] = struct{}{}
	}
}
