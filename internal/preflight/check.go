package preflight

import (
	"fmt"
	"io"
	"os"
	"runtime"
	"strings"
)

// CheckStatus represents the result of a preflight check.
type CheckStatus int

const (
	// StatusPass indicates the check passed successfully.
	StatusPass CheckStatus = iota
	// StatusWarn indicates a non-critical warning.
	StatusWarn
	// StatusFail indicates the check failed.
	StatusFail
)

// String returns the string representation of a CheckStatus.
func (s CheckStatus) String() string {
	switch s {
	case StatusPass:
		return "PASS"
	case StatusWarn:
		return "WARN"
	case StatusFail:
		return "FAIL"
	default:
		return "UNKNOWN"
	}
}

// MarshalText encodes the status in lower case for JSON output.
func (s CheckStatus) MarshalText() ([]byte, error) {
	return []byte(strings.ToLower(s.String())), nil
}

// CheckResult holds the result of a single preflight check.
type CheckResult struct {
	Name     string      `json:"name"`
	Status   CheckStatus `json:"status"`
	Message  string      `json:"message"`
	Details  string      `json:"details,omitempty"`
	Required bool        `json:"required"`
}

// IsCritical returns true if this is a required check that failed.
func (r CheckResult) IsCritical() bool {
	return r.Required && r.Status == StatusFail
}

// Checker performs preflight validation checks.
type Checker struct {
	backend string
	goos    string
	verbose bool
	output  io.Writer

	// Replaced in tests.
	descriptorLimit func() (uint64, error)
	inotifyLimit    func() (int, error)
}

// Option configures a Checker.
type Option func(*Checker)

// WithBackend sets the event backend the checks account for
// ("fsnotify" or "poll").
func WithBackend(backend string) Option {
	return func(c *Checker) {
		c.backend = backend
	}
}

// WithVerbose enables printing of result details.
func WithVerbose(verbose bool) Option {
	return func(c *Checker) {
		c.verbose = verbose
	}
}

// WithOutput sets the output writer.
func WithOutput(w io.Writer) Option {
	return func(c *Checker) {
		c.output = w
	}
}

// New creates a new Checker with the given options.
func New(opts ...Option) *Checker {
	c := &Checker{
		backend:         "fsnotify",
		goos:            runtime.GOOS,
		output:          os.Stdout,
		descriptorLimit: descriptorLimit,
		inotifyLimit:    readInotifyLimit,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// RunAll runs every check that applies to the backend and platform for a
// watch list of the given size.
func (c *Checker) RunAll(targets int) []CheckResult {
	results := []CheckResult{
		c.CheckWatchTargets(targets),
		c.CheckFileDescriptors(targets),
	}
	if c.backend == "fsnotify" && c.goos == "linux" {
		results = append(results, c.CheckInotifyWatches(targets))
	}
	return results
}

// HasCriticalFailures returns true if any required check failed.
func (c *Checker) HasCriticalFailures(results []CheckResult) bool {
	for _, r := range results {
		if r.IsCritical() {
			return true
		}
	}
	return false
}

// Warnings returns the results worth telling the user about.
func (c *Checker) Warnings(results []CheckResult) []CheckResult {
	var out []CheckResult
	for _, r := range results {
		if r.Status != StatusPass {
			out = append(out, r)
		}
	}
	return out
}

// SummaryStatus returns a summary status string for the results.
func (c *Checker) SummaryStatus(results []CheckResult) string {
	if c.HasCriticalFailures(results) {
		return "failed"
	}
	if len(c.Warnings(results)) > 0 {
		return "ready_with_warnings"
	}
	return "ready"
}

// PrintResults prints check results to the configured output. The summary
// line is left to the caller.
func (c *Checker) PrintResults(results []CheckResult) {
	_, _ = fmt.Fprintln(c.output, "kwatch system check")
	_, _ = fmt.Fprintln(c.output, "===================")
	_, _ = fmt.Fprintln(c.output)

	for _, r := range results {
		_, _ = fmt.Fprintf(c.output, "[%s] %s: %s\n", r.Status, r.Name, r.Message)
		if c.verbose && r.Details != "" {
			_, _ = fmt.Fprintf(c.output, "      %s\n", r.Details)
		}
	}

	_, _ = fmt.Fprintln(c.output)
}

// CheckWatchTargets warns when resolution produced nothing to watch.
func (c *Checker) CheckWatchTargets(targets int) CheckResult {
	result := CheckResult{Name: "watch_targets"}
	if targets == 0 {
		result.Status = StatusWarn
		result.Message = "no regular files to watch"
		result.Details = "Check the -d and -x entries; excluded and unreadable paths are skipped"
		return result
	}
	result.Status = StatusPass
	result.Message = fmt.Sprintf("%d files", targets)
	return result
}
