package ck

import (
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"time"
)

// ErrInvalidRoot is matched by errors returned for a root that is missing or not a directory.
var ErrInvalidRoot = errors.New("invalid analysis root")

// RootError reports an analysis root that cannot be analyzed.
type RootError struct {
	Path string
	Err  error
}

func (e *RootError) Error() string {
	return fmt.Sprintf("%s %q: %v", ErrInvalidRoot, e.Path, e.Err)
}

func (e *RootError) Unwrap() error {
	return e.Err
}

// Is makes errors.Is(err, ErrInvalidRoot) hold for every RootError.
func (e *RootError) Is(target error) bool {
	return target == ErrInvalidRoot
}

// ScanError reports a failure enumerating files under a root.
type ScanError struct {
	Root string
	Err  error
}

func (e *ScanError) Error() string {
	return fmt.Sprintf("scan %s: %v", e.Root, e.Err)
}

func (e *ScanError) Unwrap() error {
	return e.Err
}

// ParseFailure records a file that could not be read or parsed.
type ParseFailure struct {
	Path string
	Err  error
}

func (f ParseFailure) Error() string {
	return fmt.Sprintf("%s: %v", f.Path, f.Err)
}

// MarshalJSON renders the cause as a string.
func (f ParseFailure) MarshalJSON() ([]byte, error) {
	return json.Marshal(f.View())
}

// FailureView is the serializable form of a ParseFailure.
type FailureView struct {
	Path  string `json:"path" yaml:"path" toon:"path"`
	Error string `json:"error" yaml:"error" toon:"error"`
}

// View returns the serializable form of the failure.
func (f ParseFailure) View() FailureView {
	v := FailureView{Path: f.Path}
	if f.Err != nil {
		v.Error = f.Err.Error()
	}
	return v
}

// Report is the result of one analysis run.
type Report struct {
	GeneratedAt time.Time `json:"generated_at"`
	Root        string    `json:"root,omitempty"`

	// Files maps each parsed file to the metrics of the classes it declares.
	Files map[string]map[string]MetricRecord `json:"files"`

	// Failures lists files that could not be read or parsed, sorted by path.
	Failures []ParseFailure `json:"failures,omitempty"`

	// Skipped lists files left out for exceeding the size limit.
	Skipped []string `json:"skipped,omitempty"`

	// InheritanceCycles lists groups of classes whose bases loop back on themselves.
	InheritanceCycles [][]string `json:"inheritance_cycles,omitempty"`

	// DuplicateClasses maps class names declared in several files to those files.
	DuplicateClasses map[string][]string `json:"duplicate_classes,omitempty"`

	registry *Registry
}

// NewReport returns an empty report.
func NewReport() *Report {
	return &Report{
		GeneratedAt: time.Now().UTC(),
		Files:       make(map[string]map[string]MetricRecord),
	}
}

// Registry returns the merged class registry behind the report, or nil.
func (r *Report) Registry() *Registry {
	return r.registry
}

// ClassEntry is one row of a flattened report.
type ClassEntry struct {
	Path  string       `json:"path" yaml:"path" toon:"path"`
	Class string       `json:"class" yaml:"class" toon:"class"`
	MetricRecord `yaml:",inline"`
}

// Classes flattens the report into rows ordered by path then class name.
func (r *Report) Classes() []ClassEntry {
	paths := make([]string, 0, len(r.Files))
	for p := range r.Files {
		paths = append(paths, p)
	}
	sort.Strings(paths)

	var out []ClassEntry
	for _, p := range paths {
		classes := r.Files[p]
		names := make([]string, 0, len(classes))
		for n := range classes {
			names = append(names, n)
		}
		sort.Strings(names)
		for _, n := range names {
			out = append(out, ClassEntry{Path: p, Class: n, MetricRecord: classes[n]})
		}
	}
	return out
}

// ClassCount returns the number of file/class rows in the report.
func (r *Report) ClassCount() int {
	n := 0
	for _, classes := range r.Files {
		n += len(classes)
	}
	return n
}

// SortKey selects the metric used to order class rows.
type SortKey string

const (
	SortByLCOM SortKey = "lcom"
	SortByWMC  SortKey = "wmc"
	SortByCBO  SortKey = "cbo"
	SortByRFC  SortKey = "rfc"
	SortByDIT  SortKey = "dit"
	SortByNOC  SortKey = "noc"
)

// ParseSortKey converts a flag value into a SortKey.
func ParseSortKey(s string) (SortKey, error) {
	switch k := SortKey(s); k {
	case SortByLCOM, SortByWMC, SortByCBO, SortByRFC, SortByDIT, SortByNOC:
		return k, nil
	case "":
		return SortByLCOM, nil
	default:
		return "", fmt.Errorf("unknown sort key %q (want lcom, wmc, cbo, rfc, dit or noc)", s)
	}
}

// Value returns the metric selected by k.
func (k SortKey) Value(m MetricRecord) float64 {
	switch k {
	case SortByWMC:
		return float64(m.WMC)
	case SortByCBO:
		return float64(m.CBO)
	case SortByRFC:
		return float64(m.RFC)
	case SortByDIT:
		return float64(m.DIT)
	case SortByNOC:
		return float64(m.NOC)
	default:
		return m.LCOM
	}
}

// SortEntries orders rows by the selected metric, highest first.
// Ties keep path then class order.
func SortEntries(entries []ClassEntry, key SortKey) {
	sort.SliceStable(entries, func(i, j int) bool {
		return key.Value(entries[i].MetricRecord) > key.Value(entries[j].MetricRecord)
	})
}

// TopEntries returns the first n rows, or all rows when n is not positive.
func TopEntries(entries []ClassEntry, n int) []ClassEntry {
	if n <= 0 || n >= len(entries) {
		return entries
	}
	return entries[:n]
}
