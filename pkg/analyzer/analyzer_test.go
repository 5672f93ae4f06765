package analyzer

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTrackerCountsTicks(t *testing.T) {
	var mu sync.Mutex
	var seen []string
	tracker := NewTracker(func(done, total int, path string) {
		mu.Lock()
		seen = append(seen, path)
		mu.Unlock()
		assert.Equal(t, 2, total)
	})

	tracker.Add(2)
	tracker.Tick("a.py")
	tracker.Tick("b.py")

	assert.Equal(t, 2, tracker.Current())
	assert.Equal(t, 2, tracker.Total())
	assert.Equal(t, []string{"a.py", "b.py"}, seen)
}

func TestTrackerConcurrentTicks(t *testing.T) {
	tracker := NewTracker(nil)
	tracker.Add(100)

	var wg sync.WaitGroup
	for i := 0; i < 100; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			tracker.Tick("f.py")
		}()
	}
	wg.Wait()

	assert.Equal(t, 100, tracker.Current())
}

func TestTrackerContext(t *testing.T) {
	assert.Nil(t, TrackerFromContext(context.Background()))

	tracker := NewTracker(nil)
	ctx := WithTracker(context.Background(), tracker)
	got := TrackerFromContext(ctx)
	require.NotNil(t, got)
	assert.Same(t, tracker, got)
}
