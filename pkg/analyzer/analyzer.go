// Package analyzer holds the contracts shared by source analyzers and the
// progress tracking they report through a context.
package analyzer

import (
	"context"
	"sync/atomic"

	"github.com/panbanda/ckmetrics/pkg/source"
)

// SourceAnalyzer analyzes a set of files read from a content source.
type SourceAnalyzer[T any] interface {
	// Analyze processes files read through src. The context carries cancellation
	// and an optional Tracker.
	Analyze(ctx context.Context, files []string, src source.ContentSource) (T, error)

	// Close releases any resources held by the analyzer.
	Close()
}

// ProgressFunc receives (done, total, path) after each file.
type ProgressFunc func(done, total int, path string)

// Tracker counts processed files. Safe for concurrent use.
type Tracker struct {
	total    atomic.Int64
	done     atomic.Int64
	callback ProgressFunc
}

// NewTracker returns a tracker that reports to callback, which may be nil.
func NewTracker(callback ProgressFunc) *Tracker {
	return &Tracker{callback: callback}
}

// Add grows the expected total by n.
func (t *Tracker) Add(n int) {
	t.total.Add(int64(n))
}

// Tick marks path as processed.
func (t *Tracker) Tick(path string) {
	done := t.done.Add(1)
	if t.callback != nil {
		t.callback(int(done), int(t.total.Load()), path)
	}
}

// Current returns the number of processed files.
func (t *Tracker) Current() int {
	return int(t.done.Load())
}

// Total returns the expected number of files.
func (t *Tracker) Total() int {
	return int(t.total.Load())
}

type trackerKey struct{}

// WithTracker attaches t to ctx.
func WithTracker(ctx context.Context, t *Tracker) context.Context {
	return context.WithValue(ctx, trackerKey{}, t)
}

// TrackerFromContext returns the tracker attached to ctx, or nil.
func TrackerFromContext(ctx context.Context) *Tracker {
	t, _ := ctx.Value(trackerKey{}).(*Tracker)
	return t
}
