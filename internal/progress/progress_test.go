package progress

import (
	"bytes"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTrackerReport(t *testing.T) {
	var buf bytes.Buffer
	tr := newTracker(&buf, "Analyzing", 0)

	at := tr.Analyzer()
	at.Add(4)

	var wg sync.WaitGroup
	for _, p := range []string{"a.py", "b.py", "c.py", "d.py"} {
		wg.Add(1)
		go func() {
			defer wg.Done()
			at.Tick(p)
		}()
	}
	wg.Wait()

	assert.Equal(t, 4, tr.max)
	assert.Equal(t, 4, at.Current())
	assert.Contains(t, buf.String(), "Analyzing")
	tr.FinishSuccess()
}

func TestTrackerFinishMessages(t *testing.T) {
	var buf bytes.Buffer
	tr := newTracker(&buf, "history", 2)
	tr.Tick()
	tr.FinishSkipped("no commits")
	assert.Contains(t, buf.String(), "history skipped (no commits)")

	buf.Reset()
	tr = newTracker(&buf, "history", 2)
	tr.FinishError(errors.New("boom"))
	assert.Contains(t, buf.String(), "history error: boom")
}
