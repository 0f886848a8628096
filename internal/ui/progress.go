package ui

import (
	"sync"
	"time"
)

// SourceRow is the progress of one source within a run.
type SourceRow struct {
	Label    string
	Stage    Stage
	Current  int
	Total    int
	Failed   int
	Warnings int
}

// Fraction is Current/Total capped at 1, or 0 while the total is unknown.
func (r SourceRow) Fraction() float64 {
	if r.Total == 0 {
		return 0
	}
	return min(float64(r.Current)/float64(r.Total), 1)
}

// Done reports whether the source has finished.
func (r SourceRow) Done() bool {
	return r.Stage == StageComplete
}

// Snapshot is a copy of the tracker state for rendering.
type Snapshot struct {
	Rows        []SourceRow
	Active      string
	CurrentFile string
	Elapsed     time.Duration
	ErrorCount  int
	WarnCount   int
}

// ActiveRow returns the row being worked on.
func (s Snapshot) ActiveRow() (SourceRow, bool) {
	for _, r := range s.Rows {
		if r.Label == s.Active {
			return r, true
		}
	}
	return SourceRow{}, false
}

// ProgressTracker folds renderer events into one row per source, in the
// order sources were first seen. It is safe for concurrent use.
type ProgressTracker struct {
	mu       sync.Mutex
	rows     []SourceRow
	byLabel  map[string]int
	active   string
	file     string
	started  time.Time
	errors   []ErrorEvent
	warnings []ErrorEvent
}

// NewProgressTracker creates an empty tracker.
func NewProgressTracker() *ProgressTracker {
	return &ProgressTracker{
		byLabel: make(map[string]int),
		started: time.Now(),
	}
}

// Apply records a progress event. Moving to another source marks the
// previous one complete.
func (p *ProgressTracker) Apply(event ProgressEvent) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if event.Source != p.active {
		if i, ok := p.byLabel[p.active]; ok {
			p.rows[i].Stage = StageComplete
		}
		p.active = event.Source
		p.file = ""
	}

	i, ok := p.byLabel[event.Source]
	if !ok {
		i = len(p.rows)
		p.byLabel[event.Source] = i
		p.rows = append(p.rows, SourceRow{Label: event.Source})
	}

	row := &p.rows[i]
	if event.Stage != row.Stage {
		row.Current = 0
	}
	row.Stage = event.Stage
	if event.Total > 0 {
		row.Total = event.Total
	}
	if event.Current > 0 {
		row.Current = event.Current
	}
	if event.CurrentFile != "" {
		p.file = event.CurrentFile
	}
}

// AddError records an error or warning against the active source.
func (p *ProgressTracker) AddError(event ErrorEvent) {
	p.mu.Lock()
	defer p.mu.Unlock()

	i, ok := p.byLabel[p.active]
	if event.IsWarn {
		p.warnings = append(p.warnings, event)
		if ok {
			p.rows[i].Warnings++
		}
		return
	}
	p.errors = append(p.errors, event)
	if ok {
		p.rows[i].Failed++
	}
}

// Finish marks every source complete.
func (p *ProgressTracker) Finish() {
	p.mu.Lock()
	defer p.mu.Unlock()

	for i := range p.rows {
		p.rows[i].Stage = StageComplete
	}
	p.active = ""
	p.file = ""
}

// Snapshot returns a copy of the current state.
func (p *ProgressTracker) Snapshot() Snapshot {
	p.mu.Lock()
	defer p.mu.Unlock()

	rows := make([]SourceRow, len(p.rows))
	copy(rows, p.rows)
	return Snapshot{
		Rows:        rows,
		Active:      p.active,
		CurrentFile: p.file,
		Elapsed:     time.Since(p.started),
		ErrorCount:  len(p.errors),
		WarnCount:   len(p.warnings),
	}
}

// Errors returns the recorded errors.
func (p *ProgressTracker) Errors() []ErrorEvent {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]ErrorEvent(nil), p.errors...)
}

// Warnings returns the recorded warnings.
func (p *ProgressTracker) Warnings() []ErrorEvent {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]ErrorEvent(nil), p.warnings...)
}
