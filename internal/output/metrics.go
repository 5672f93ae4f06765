package output

import (
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/fatih/color"
	"github.com/panbanda/ckmetrics/pkg/analyzer/ck"
	"github.com/panbanda/ckmetrics/pkg/config"
	"github.com/panbanda/ckmetrics/pkg/history"
	"github.com/panbanda/ckmetrics/pkg/stats"
)

var metricHeaders = []string{"File", "Class", "WMC", "DIT", "NOC", "RFC", "CBO", "LCOM"}

// MetricsView renders a C&K report as a class table followed by a summary and diagnostics.
type MetricsView struct {
	report     *ck.Report
	thresholds config.ThresholdConfig
	sort       ck.SortKey
	top        int
	revision   string
}

// ViewOption configures a MetricsView.
type ViewOption func(*MetricsView)

// WithThresholds flags metrics above the given limits.
func WithThresholds(t config.ThresholdConfig) ViewOption {
	return func(v *MetricsView) { v.thresholds = t }
}

// WithSort orders classes by the given metric, highest first.
func WithSort(key ck.SortKey) ViewOption {
	return func(v *MetricsView) { v.sort = key }
}

// WithTop limits the table to the first n classes; 0 shows all.
func WithTop(n int) ViewOption {
	return func(v *MetricsView) { v.top = n }
}

// WithRevision labels the report with the analyzed revision.
func WithRevision(rev string) ViewOption {
	return func(v *MetricsView) { v.revision = rev }
}

// NewMetricsView wraps a report for rendering.
func NewMetricsView(report *ck.Report, opts ...ViewOption) *MetricsView {
	v := &MetricsView{
		report:     report,
		thresholds: config.DefaultConfig().Thresholds,
		sort:       ck.SortByLCOM,
	}
	for _, opt := range opts {
		opt(v)
	}
	return v
}

// ReportData is the serializable form of a report.
type ReportData struct {
	Root              string           `json:"root,omitempty" yaml:"root,omitempty" toon:"root"`
	Revision          string           `json:"revision,omitempty" yaml:"revision,omitempty" toon:"revision"`
	GeneratedAt       string           `json:"generated_at" yaml:"generated_at" toon:"generated_at"`
	Summary           stats.Project    `json:"summary" yaml:"summary" toon:"summary"`
	Classes           []ClassRow       `json:"classes" yaml:"classes" toon:"classes"`
	Failures          []ck.FailureView `json:"failures,omitempty" yaml:"failures,omitempty" toon:"failures"`
	Skipped           []string         `json:"skipped,omitempty" yaml:"skipped,omitempty" toon:"skipped"`
	InheritanceCycles [][]string       `json:"inheritance_cycles,omitempty" yaml:"inheritance_cycles,omitempty" toon:"inheritance_cycles"`
	DuplicateClasses  []DuplicateClass `json:"duplicate_classes,omitempty" yaml:"duplicate_classes,omitempty" toon:"duplicate_classes"`
}

// ClassRow is one class with its metrics, flattened for tabular encoders.
type ClassRow struct {
	Path  string  `json:"path" yaml:"path" toon:"path"`
	Class string  `json:"class" yaml:"class" toon:"class"`
	WMC   int     `json:"wmc" yaml:"wmc" toon:"wmc"`
	DIT   int     `json:"dit" yaml:"dit" toon:"dit"`
	NOC   int     `json:"noc" yaml:"noc" toon:"noc"`
	RFC   int     `json:"rfc" yaml:"rfc" toon:"rfc"`
	CBO   int     `json:"cbo" yaml:"cbo" toon:"cbo"`
	LCOM  float64 `json:"lcom" yaml:"lcom" toon:"lcom"`

	// Coupling lists the Class.method matches counted by CBO.
	Coupling []string `json:"coupling,omitempty" yaml:"coupling,omitempty" toon:"coupling,omitempty"`
}

// DuplicateClass is a class name declared in more than one file.
type DuplicateClass struct {
	Class string   `json:"class" yaml:"class" toon:"class"`
	Files []string `json:"files" yaml:"files" toon:"files"`
}

// entries returns the sorted and truncated class rows.
func (v *MetricsView) entries() []ck.ClassEntry {
	entries := v.report.Classes()
	ck.SortEntries(entries, v.sort)
	return ck.TopEntries(entries, v.top)
}

// Data builds the serializable form of the view.
func (v *MetricsView) Data() ReportData {
	entries := v.entries()
	rows := make([]ClassRow, 0, len(entries))
	for _, e := range entries {
		m := e.MetricRecord
		rows = append(rows, ClassRow{
			Path: e.Path, Class: e.Class,
			WMC: m.WMC, DIT: m.DIT, NOC: m.NOC, RFC: m.RFC, CBO: m.CBO, LCOM: m.LCOM,
			Coupling: v.coupling(e.Class),
		})
	}
	d := ReportData{
		Root:              v.report.Root,
		Revision:          v.revision,
		GeneratedAt:       v.report.GeneratedAt.Format(time.RFC3339),
		Summary:           stats.Compute(v.report),
		Classes:           rows,
		Skipped:           v.report.Skipped,
		InheritanceCycles: v.report.InheritanceCycles,
		DuplicateClasses:  v.duplicates(),
	}
	for _, f := range v.report.Failures {
		d.Failures = append(d.Failures, f.View())
	}
	return d
}

// coupling names, for each call counted by CBO, the other class whose method it matched.
// Calls are matched by name alone, so a row may list classes the code never uses.
func (v *MetricsView) coupling(class string) []string {
	reg := v.report.Registry()
	if reg == nil {
		return nil
	}
	partners := ck.CouplingPartners(reg, class)
	if len(partners) == 0 {
		return nil
	}
	out := make([]string, 0, len(partners))
	for call, owner := range partners {
		out = append(out, owner+"."+call)
	}
	sort.Strings(out)
	return out
}

func (v *MetricsView) duplicates() []DuplicateClass {
	if len(v.report.DuplicateClasses) == 0 {
		return nil
	}
	names := make([]string, 0, len(v.report.DuplicateClasses))
	for name := range v.report.DuplicateClasses {
		names = append(names, name)
	}
	sort.Strings(names)
	out := make([]DuplicateClass, 0, len(names))
	for _, name := range names {
		out = append(out, DuplicateClass{Class: name, Files: v.report.DuplicateClasses[name]})
	}
	return out
}

func (v *MetricsView) RenderData() any {
	return v.Data()
}

func (v *MetricsView) title() string {
	if v.revision != "" {
		return "C&K Metrics @ " + v.revision
	}
	return "C&K Metrics"
}

// rows formats the class table, highlighting values above their thresholds when colored.
func (v *MetricsView) rows(entries []ck.ClassEntry, colored bool) [][]string {
	t := v.thresholds
	rows := make([][]string, 0, len(entries))
	for _, e := range entries {
		m := e.MetricRecord
		rows = append(rows, []string{
			e.Path,
			e.Class,
			flag(strconv.Itoa(m.WMC), m.WMC > t.WMC, colored),
			flag(strconv.Itoa(m.DIT), m.DIT > t.DIT, colored),
			flag(strconv.Itoa(m.NOC), m.NOC > t.NOC, colored),
			flag(strconv.Itoa(m.RFC), m.RFC > t.RFC, colored),
			flag(strconv.Itoa(m.CBO), m.CBO > t.CBO, colored),
			flag(formatFloat(m.LCOM), m.LCOM > t.LCOM, colored),
		})
	}
	return rows
}

// flag marks a value above its threshold: red when colored, a trailing "!" otherwise.
func flag(value string, over, colored bool) string {
	if !over {
		return value
	}
	if colored {
		return color.RedString(value)
	}
	return value + "!"
}

func formatFloat(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}

func (v *MetricsView) summaryLines() []string {
	s := stats.Compute(v.report)
	lines := []string{
		fmt.Sprintf("Files: %d  Classes: %d  Failures: %d  Skipped: %d", s.Files, s.Classes, s.Failures, s.Skipped),
	}
	if s.Classes == 0 {
		return lines
	}
	lines = append(lines,
		fmt.Sprintf("Mean WMC: %.2f  Mean DIT: %.2f  Mean NOC: %.2f", s.WMC.Mean, s.DIT.Mean, s.NOC.Mean),
		fmt.Sprintf("Mean RFC: %.2f  Mean CBO: %.2f  Mean LCOM: %.2f", s.RFC.Mean, s.CBO.Mean, s.LCOM.Mean),
		fmt.Sprintf("Above mean: WMC %d, CBO %d, LCOM %d", len(s.AboveMeanWMC), len(s.AboveMeanCBO), len(s.AboveMeanLCOM)),
	)
	return lines
}

// diagnostics lists failures, skipped files, cycles and duplicates, one line each.
func (v *MetricsView) diagnostics() (failures, warnings []string) {
	for _, f := range v.report.Failures {
		failures = append(failures, f.Error())
	}
	for _, p := range v.report.Skipped {
		warnings = append(warnings, "skipped (size limit): "+p)
	}
	for _, c := range v.report.InheritanceCycles {
		warnings = append(warnings, "inheritance cycle: "+strings.Join(c, " -> "))
	}
	for _, d := range v.duplicates() {
		warnings = append(warnings, fmt.Sprintf("class %s declared in: %s", d.Class, strings.Join(d.Files, ", ")))
	}
	return failures, warnings
}

func (v *MetricsView) RenderText(w io.Writer, colored bool) error {
	entries := v.entries()
	table := NewTable(v.title(), metricHeaders, v.rows(entries, colored), nil, nil)
	if len(entries) > 0 {
		if err := table.RenderText(w, colored); err != nil {
			return err
		}
	} else {
		writeHeading(w, v.title(), colored, "=")
		fmt.Fprintln(w, "No classes found.")
		fmt.Fprintln(w)
	}

	for _, line := range v.summaryLines() {
		fmt.Fprintln(w, line)
	}

	failures, warnings := v.diagnostics()
	if len(failures) > 0 {
		fmt.Fprintln(w)
		writeLabel(w, fmt.Sprintf("Parse failures (%d)", len(failures)), color.FgRed, colored)
		for _, f := range failures {
			fmt.Fprintf(w, "  %s\n", f)
		}
	}
	if len(warnings) > 0 {
		fmt.Fprintln(w)
		writeLabel(w, "Warnings", color.FgYellow, colored)
		for _, msg := range warnings {
			fmt.Fprintf(w, "  %s\n", msg)
		}
	}
	return nil
}

func writeLabel(w io.Writer, label string, attr color.Attribute, colored bool) {
	if colored {
		color.New(attr, color.Bold).Fprintln(w, label)
		return
	}
	fmt.Fprintln(w, label)
}

func (v *MetricsView) RenderMarkdown(w io.Writer) error {
	fmt.Fprintf(w, "# %s\n\n", v.title())

	entries := v.entries()
	if len(entries) == 0 {
		fmt.Fprintln(w, "No classes found.")
		fmt.Fprintln(w)
	} else if err := NewTable("", metricHeaders, v.rows(entries, false), nil, nil).RenderMarkdown(w); err != nil {
		return err
	}

	summary := &Section{Title: "Summary", Content: strings.Join(v.summaryLines(), "\n\n")}
	if err := summary.RenderMarkdown(w); err != nil {
		return err
	}

	failures, warnings := v.diagnostics()
	if len(failures) > 0 {
		fmt.Fprintf(w, "## Parse failures\n\n")
		for _, f := range failures {
			fmt.Fprintf(w, "- `%s`\n", f)
		}
		fmt.Fprintln(w)
	}
	if len(warnings) > 0 {
		fmt.Fprintf(w, "## Warnings\n\n")
		for _, msg := range warnings {
			fmt.Fprintf(w, "- %s\n", msg)
		}
		fmt.Fprintln(w)
	}
	return nil
}

// HistoryView renders per-revision summaries and metric trends.
type HistoryView struct {
	result *history.Result
}

// NewHistoryView wraps a history result for rendering.
func NewHistoryView(result *history.Result) *HistoryView {
	return &HistoryView{result: result}
}

func (h *HistoryView) RenderData() any {
	return h.result
}

func (h *HistoryView) table() *Table {
	headers := []string{"Commit", "Date", "Classes", "Mean WMC", "Mean CBO", "Mean LCOM", "Failures", "Summary"}
	rows := make([][]string, 0, len(h.result.Revisions))
	for _, rev := range h.result.Revisions {
		s := rev.Stats
		rows = append(rows, []string{
			rev.Commit.ShortSHA(),
			rev.Commit.Date.Format("2006-01-02"),
			strconv.Itoa(s.Classes),
			fmt.Sprintf("%.2f", s.WMC.Mean),
			fmt.Sprintf("%.2f", s.CBO.Mean),
			fmt.Sprintf("%.2f", s.LCOM.Mean),
			strconv.Itoa(s.Failures),
			rev.Commit.Summary,
		})
	}
	return NewTable("C&K History", headers, rows, nil, nil)
}

func (h *HistoryView) trendLines() []string {
	line := func(name string, t stats.Trend) string {
		return fmt.Sprintf("%s: %s (slope %.3f per revision, R² %.2f)", name, t.Direction(), t.Slope, t.RSquared)
	}
	lines := []string{
		line("WMC", h.result.WMC),
		line("CBO", h.result.CBO),
		line("LCOM", h.result.LCOM),
	}
	if h.result.Ref != "" {
		ref := "Ref: " + h.result.Ref
		if h.result.Dirty {
			ref += " (uncommitted changes not analyzed)"
		}
		lines = append(lines, ref)
	}
	return lines
}

func (h *HistoryView) RenderText(w io.Writer, colored bool) error {
	if err := h.table().RenderText(w, colored); err != nil {
		return err
	}
	writeLabel(w, "Trends", color.FgCyan, colored)
	for _, l := range h.trendLines() {
		fmt.Fprintf(w, "  %s\n", l)
	}
	return nil
}

func (h *HistoryView) RenderMarkdown(w io.Writer) error {
	if err := h.table().RenderMarkdown(w); err != nil {
		return err
	}
	fmt.Fprintf(w, "## Trends\n\n")
	for _, l := range h.trendLines() {
		fmt.Fprintf(w, "- %s\n", l)
	}
	fmt.Fprintln(w)
	return nil
}
