// Package ui renders indexing progress in the terminal.
package ui

import (
	"context"
	"io"
	"os"
	"slices"
	"time"

	"github.com/mattn/go-isatty"
)

// Stage is the phase a source is in during a run.
type Stage int

const (
	// StageReading enumerates and reads the documents of a source.
	StageReading Stage = iota
	// StageIndexing chunks, embeds and writes documents.
	StageIndexing
	// StageReconciling removes chunks of paths that disappeared.
	StageReconciling
	// StageComplete indicates the source is done.
	StageComplete
)

var stageLabels = [...][2]string{
	StageReading:     {"Reading", "READ"},
	StageIndexing:    {"Indexing", "INDEX"},
	StageReconciling: {"Reconciling", "PRUNE"},
	StageComplete:    {"Complete", "DONE"},
}

func (s Stage) String() string {
	if s < 0 || int(s) >= len(stageLabels) {
		return "Unknown"
	}
	return stageLabels[s][0]
}

// Icon is the bracketed tag the plain renderer prints.
func (s Stage) Icon() string {
	if s < 0 || int(s) >= len(stageLabels) {
		return "???"
	}
	return stageLabels[s][1]
}

// ProgressEvent reports where a run is within one source.
type ProgressEvent struct {
	Stage       Stage
	Source      string
	Current     int
	Total       int
	CurrentFile string
	Message     string
}

// ErrorEvent is a failed or skipped document.
type ErrorEvent struct {
	File   string
	Err    error
	IsWarn bool
}

// EmbedderInfo describes the embedding provider.
type EmbedderInfo struct {
	Model      string
	Dimensions int
}

// CompletionStats contains the final counts of a run.
type CompletionStats struct {
	Mode      string // "full" or "incremental"
	Sources   int
	Added     int
	Updated   int
	Unchanged int
	Removed   int
	Failed    int
	Chunks    int
	Warnings  int
	Duration  time.Duration
	Embedder  EmbedderInfo
}

// Documents is the number of documents the run looked at.
func (s CompletionStats) Documents() int {
	return s.Added + s.Updated + s.Unchanged + s.Failed
}

// Renderer receives the events of an index run. The index manager
// calls UpdateProgress, AddError and Complete; the command owning the
// terminal calls Start and Stop.
type Renderer interface {
	Start(ctx context.Context) error
	UpdateProgress(event ProgressEvent)
	AddError(event ErrorEvent)
	Complete(stats CompletionStats)
	Stop() error
}

// Config configures the UI renderer.
type Config struct {
	Output     io.Writer
	ForcePlain bool
	NoColor    bool
	AgentID    string // shown in the TUI header
}

// ConfigOption is a function that modifies Config.
type ConfigOption func(*Config)

// WithForcePlain forces plain text output.
func WithForcePlain(force bool) ConfigOption {
	return func(c *Config) {
		c.ForcePlain = force
	}
}

// WithNoColor disables color output.
func WithNoColor(noColor bool) ConfigOption {
	return func(c *Config) {
		c.NoColor = noColor
	}
}

// WithAgentID sets the agent shown in the header.
func WithAgentID(agentID string) ConfigOption {
	return func(c *Config) {
		c.AgentID = agentID
	}
}

// NewConfig creates a new Config with the given output and options.
func NewConfig(output io.Writer, opts ...ConfigOption) Config {
	cfg := Config{Output: output}
	for _, opt := range opts {
		opt(&cfg)
	}
	return cfg
}

// NewRenderer returns the live view on an interactive terminal and
// plain lines everywhere else.
func NewRenderer(cfg Config) Renderer {
	if !cfg.ForcePlain && IsTTY(cfg.Output) && !DetectCI() {
		if tui, err := NewTUIRenderer(cfg); err == nil {
			return tui
		}
	}
	return NewPlainRenderer(cfg)
}

// IsTTY checks if output is a terminal.
func IsTTY(w io.Writer) bool {
	if w == nil {
		return false
	}
	if f, ok := w.(*os.File); ok {
		return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
	}
	return false
}

// DetectNoColor checks if NO_COLOR environment variable is set.
func DetectNoColor() bool {
	_, exists := os.LookupEnv("NO_COLOR")
	return exists
}

var ciEnv = []string{"CI", "GITHUB_ACTIONS", "GITLAB_CI", "JENKINS_URL", "BUILDKITE"}

// DetectCI reports whether a CI system's marker variable is set.
func DetectCI() bool {
	return slices.ContainsFunc(ciEnv, func(name string) bool {
		_, ok := os.LookupEnv(name)
		return ok
	})
}

// Nop discards every event. It is the default for library callers.
type Nop struct{}

func (Nop) Start(context.Context) error  { return nil }
func (Nop) UpdateProgress(ProgressEvent) {}
func (Nop) AddError(ErrorEvent)          {}
func (Nop) Complete(CompletionStats)     {}
func (Nop) Stop() error                  { return nil }

var _ Renderer = Nop{}
