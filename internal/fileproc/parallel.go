// Package fileproc provides concurrent file processing utilities.
package fileproc

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"sort"
	"sync"

	"github.com/panbanda/ckmetrics/pkg/analyzer"
	"github.com/panbanda/ckmetrics/pkg/parser"
	"github.com/panbanda/ckmetrics/pkg/source"
	"github.com/sourcegraph/conc/pool"
)

// ErrTooLarge marks a file skipped for exceeding the size limit.
var ErrTooLarge = errors.New("file exceeds size limit")

// ProcessingError represents an error that occurred while processing a file.
type ProcessingError struct {
	Path string
	Err  error
}

func (e ProcessingError) Error() string {
	return fmt.Sprintf("%s: %v", e.Path, e.Err)
}

func (e ProcessingError) Unwrap() error {
	return e.Err
}

// ProcessingErrors collects multiple file processing errors.
type ProcessingErrors struct {
	Errors []ProcessingError
	mu     sync.Mutex
}

// Add appends an error to the collection (thread-safe).
func (e *ProcessingErrors) Add(path string, err error) {
	e.mu.Lock()
	e.Errors = append(e.Errors, ProcessingError{Path: path, Err: err})
	e.mu.Unlock()
}

// HasErrors returns true if any errors were collected.
func (e *ProcessingErrors) HasErrors() bool {
	if e == nil {
		return false
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.Errors) > 0
}

// Sorted returns a copy of the collected errors ordered by path.
func (e *ProcessingErrors) Sorted() []ProcessingError {
	if e == nil {
		return nil
	}
	e.mu.Lock()
	out := append([]ProcessingError(nil), e.Errors...)
	e.mu.Unlock()
	sort.Slice(out, func(i, j int) bool { return out[i].Path < out[j].Path })
	return out
}

// Error implements the error interface.
func (e *ProcessingErrors) Error() string {
	e.mu.Lock()
	defer e.mu.Unlock()
	if len(e.Errors) == 0 {
		return "no errors"
	}
	if len(e.Errors) == 1 {
		return e.Errors[0].Error()
	}
	return fmt.Sprintf("%d files failed to process (first: %v)", len(e.Errors), e.Errors[0])
}

// DefaultWorkerMultiplier is the multiplier applied to NumCPU for worker count.
const DefaultWorkerMultiplier = 2

// Workers resolves a configured worker count; n <= 0 means 2x NumCPU.
func Workers(n int) int {
	if n > 0 {
		return n
	}
	return runtime.NumCPU() * DefaultWorkerMultiplier
}

// Options tunes MapSourceFiles.
type Options struct {
	// Workers bounds concurrency; <= 0 means 2x NumCPU and 1 runs files one at a time.
	Workers int
	// MaxFileSize skips larger files with ErrTooLarge; 0 disables the limit.
	MaxFileSize int64
}

// MapSourceFiles reads each file from src and calls fn with a parser owned by the
// calling worker. results[i] belongs to files[i] and is the zero value when the
// file failed; failures are collected per path. Progress is ticked on the tracker
// carried by ctx. A cancelled context stops scheduling and its error is returned.
func MapSourceFiles[T any](
	ctx context.Context,
	files []string,
	src source.ContentSource,
	opts Options,
	fn func(*parser.Parser, string, []byte) (T, error),
) ([]T, *ProcessingErrors, error) {
	errs := &ProcessingErrors{}
	if len(files) == 0 {
		return nil, errs, ctx.Err()
	}

	workers := Workers(opts.Workers)
	results := make([]T, len(files))

	parsers := newParserPool(workers)
	defer parsers.close()

	tracker := analyzer.TrackerFromContext(ctx)
	if tracker != nil {
		tracker.Add(len(files))
	}

	p := pool.New().WithMaxGoroutines(workers).WithContext(ctx)
	for i, path := range files {
		if ctx.Err() != nil {
			break
		}
		p.Go(func(ctx context.Context) error {
			if tracker != nil {
				defer tracker.Tick(path)
			}

			select {
			case <-ctx.Done():
				return ctx.Err()
			default:
			}

			content, err := src.Read(path)
			if err != nil {
				errs.Add(path, fmt.Errorf("read: %w", err))
				return nil
			}
			if opts.MaxFileSize > 0 && int64(len(content)) > opts.MaxFileSize {
				errs.Add(path, ErrTooLarge)
				return nil
			}

			psr := parsers.get()
			defer parsers.put(psr)

			result, err := fn(psr, path, content)
			if err != nil {
				errs.Add(path, err)
				return nil
			}
			results[i] = result
			return nil
		})
	}
	_ = p.Wait()

	if err := ctx.Err(); err != nil {
		return nil, errs, err
	}
	return results, errs, nil
}

// parserPool hands out parsers so each running worker owns exactly one.
type parserPool struct {
	mu   sync.Mutex
	free []*parser.Parser
	all  []*parser.Parser
}

func newParserPool(size int) *parserPool {
	return &parserPool{
		free: make([]*parser.Parser, 0, size),
		all:  make([]*parser.Parser, 0, size),
	}
}

func (p *parserPool) get() *parser.Parser {
	p.mu.Lock()
	defer p.mu.Unlock()
	if n := len(p.free); n > 0 {
		psr := p.free[n-1]
		p.free = p.free[:n-1]
		return psr
	}
	psr := parser.New()
	p.all = append(p.all, psr)
	return psr
}

func (p *parserPool) put(psr *parser.Parser) {
	p.mu.Lock()
	p.free = append(p.free, psr)
	p.mu.Unlock()
}

func (p *parserPool) close() {
	p.mu.Lock()
	defer p.mu.Unlock()
	for _, psr := range p.all {
		psr.Close()
	}
	p.all = nil
	p.free = nil
}
