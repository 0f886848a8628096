package ui

import (
	"context"
	"fmt"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/dustin/go-humanize"
)

// TUIRenderer draws a live per-source view of an indexing run.
type TUIRenderer struct {
	mu      sync.Mutex
	cfg     Config
	program *tea.Program
	model   *indexModel
	tracker *ProgressTracker
	cancel  context.CancelFunc
	done    chan struct{}
}

// NewTUIRenderer fails when the output is not a terminal.
func NewTUIRenderer(cfg Config) (*TUIRenderer, error) {
	if !IsTTY(cfg.Output) {
		return nil, fmt.Errorf("output is not a TTY")
	}

	tracker := NewProgressTracker()
	model := newIndexModel(tracker, cfg.AgentID)
	model.styles = GetStyles(cfg.NoColor || DetectNoColor())

	return &TUIRenderer{
		cfg:     cfg,
		tracker: tracker,
		model:   model,
		done:    make(chan struct{}),
	}, nil
}

// Start implements Renderer.
func (r *TUIRenderer) Start(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.program != nil {
		return nil
	}

	ctx, r.cancel = context.WithCancel(ctx)

	var opts []tea.ProgramOption
	if f, ok := r.cfg.Output.(*os.File); ok {
		opts = append(opts, tea.WithOutput(f))
	}
	r.program = tea.NewProgram(r.model, opts...)

	go func() {
		defer close(r.done)
		_, _ = r.program.Run()
	}()
	go func() {
		<-ctx.Done()
		r.program.Quit()
	}()
	return nil
}

// UpdateProgress implements Renderer.
func (r *TUIRenderer) UpdateProgress(event ProgressEvent) {
	r.tracker.Apply(event)
}

// AddError implements Renderer.
func (r *TUIRenderer) AddError(event ErrorEvent) {
	r.tracker.AddError(event)
}

// Complete implements Renderer.
func (r *TUIRenderer) Complete(stats CompletionStats) {
	r.tracker.Finish()

	r.mu.Lock()
	defer r.mu.Unlock()
	if r.program != nil {
		r.program.Send(completeMsg(stats))
	}
}

// Stop implements Renderer. It waits briefly for the final frame.
func (r *TUIRenderer) Stop() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.program == nil {
		return nil
	}
	r.program.Quit()
	r.cancel()

	select {
	case <-r.done:
	case <-time.After(2 * time.Second):
	}
	return nil
}

var _ Renderer = (*TUIRenderer)(nil)

type completeMsg CompletionStats

type refreshMsg time.Time

// indexModel polls the tracker on a timer instead of receiving every
// event, so a fast run never floods the program.
type indexModel struct {
	tracker *ProgressTracker
	agentID string
	width   int

	spinner spinner.Model
	bar     progress.Model
	styles  Styles

	result      *CompletionStats
	interrupted bool
}

func newIndexModel(tracker *ProgressTracker, agentID string) *indexModel {
	s := spinner.New()
	s.Spinner = spinner.MiniDot

	return &indexModel{
		tracker: tracker,
		agentID: agentID,
		width:   80,
		spinner: s,
		bar: progress.New(
			progress.WithSolidFill(ColorAccent),
			progress.WithWidth(30),
			progress.WithoutPercentage(),
		),
		styles: DefaultStyles(),
	}
}

func refresh() tea.Cmd {
	return tea.Tick(150*time.Millisecond, func(t time.Time) tea.Msg {
		return refreshMsg(t)
	})
}

// Init implements tea.Model.
func (m *indexModel) Init() tea.Cmd {
	return tea.Batch(m.spinner.Tick, refresh())
}

// Update implements tea.Model.
func (m *indexModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		if k := msg.String(); k == "ctrl+c" || k == "q" {
			m.interrupted = true
			return m, tea.Quit
		}
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.bar.Width = min(max(msg.Width/3, 10), 40)
	case completeMsg:
		stats := CompletionStats(msg)
		m.result = &stats
		return m, tea.Quit
	case refreshMsg:
		return m, refresh()
	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}
	return m, nil
}

// View implements tea.Model.
func (m *indexModel) View() string {
	if m.result != nil {
		return m.summaryView(*m.result)
	}
	if m.interrupted {
		return "Indexing interrupted.\n"
	}

	snap := m.tracker.Snapshot()
	var b strings.Builder

	header := m.styles.Header.Render("agentmemory index")
	meta := []string{shortDuration(snap.Elapsed)}
	if m.agentID != "" {
		meta = append([]string{"agent " + m.agentID}, meta...)
	}
	b.WriteString(header + m.styles.Dim.Render("  "+strings.Join(meta, " • ")) + "\n\n")

	if len(snap.Rows) == 0 {
		b.WriteString(m.spinner.View() + " " + m.styles.Label.Render("Starting...") + "\n")
	}
	for _, row := range snap.Rows {
		b.WriteString(m.rowView(row, row.Label == snap.Active) + "\n")
	}

	if snap.CurrentFile != "" {
		b.WriteString("\n" + m.styles.Dim.Render(shortenPath(snap.CurrentFile, m.width-2)) + "\n")
	}

	b.WriteString("\n" + m.footerView(snap) + "\n")
	return b.String()
}

func (m *indexModel) rowView(row SourceRow, active bool) string {
	label := fmt.Sprintf("%-16s", row.Label)

	var icon, detail string
	switch {
	case row.Done():
		icon = m.styles.Success.Render("✓")
		detail = m.styles.Label.Render(humanize.Comma(int64(row.Total)) + " documents")
	case active && row.Stage == StageIndexing && row.Total > 0:
		icon = m.spinner.View()
		detail = m.bar.ViewAs(row.Fraction()) + m.styles.Label.Render(fmt.Sprintf(" %d/%d", row.Current, row.Total))
	case active:
		icon = m.spinner.View()
		detail = m.styles.Label.Render(row.Stage.String() + "...")
	default:
		icon = m.styles.Dim.Render("○")
	}

	line := icon + " " + m.styles.Active.Render(label) + " " + detail
	if row.Failed > 0 {
		line += m.styles.Error.Render(fmt.Sprintf("  ✗ %d", row.Failed))
	}
	if row.Warnings > 0 {
		line += m.styles.Warning.Render(fmt.Sprintf("  ⚠ %d", row.Warnings))
	}
	return line
}

func (m *indexModel) footerView(snap Snapshot) string {
	var parts []string
	if snap.ErrorCount > 0 {
		parts = append(parts, m.styles.Error.Render(fmt.Sprintf("%d failed", snap.ErrorCount)))
	}
	if snap.WarnCount > 0 {
		parts = append(parts, m.styles.Warning.Render(fmt.Sprintf("%d warnings", snap.WarnCount)))
	}
	parts = append(parts, m.styles.Dim.Render("q to quit"))
	return strings.Join(parts, m.styles.Dim.Render(" • "))
}

func (m *indexModel) summaryView(s CompletionStats) string {
	var b strings.Builder

	b.WriteString(m.styles.Success.Render(fmt.Sprintf("✓ %s index: %s documents, %s chunks written",
		s.Mode, humanize.Comma(int64(s.Documents())), humanize.Comma(int64(s.Chunks)))))
	b.WriteString(m.styles.Dim.Render(" in "+shortDuration(s.Duration)) + "\n")
	b.WriteString(m.styles.Label.Render(fmt.Sprintf("  added %d • updated %d • unchanged %d • removed %d",
		s.Added, s.Updated, s.Unchanged, s.Removed)) + "\n")

	if s.Failed > 0 {
		b.WriteString(m.styles.Error.Render(fmt.Sprintf("  ✗ %d documents failed", s.Failed)) + "\n")
	}
	if s.Warnings > 0 {
		b.WriteString(m.styles.Warning.Render(fmt.Sprintf("  ⚠ %d warnings", s.Warnings)) + "\n")
	}
	if s.Embedder.Model != "" {
		b.WriteString(m.styles.Dim.Render(fmt.Sprintf("  %s, %d dims", s.Embedder.Model, s.Embedder.Dimensions)) + "\n")
	}
	return b.String()
}

// shortDuration rounds to tenths of a second under a minute, whole
// seconds above.
func shortDuration(d time.Duration) string {
	if d < time.Minute {
		return d.Round(100 * time.Millisecond).String()
	}
	return d.Round(time.Second).String()
}

// shortenPath keeps the tail of path within max runes.
func shortenPath(path string, max int) string {
	runes := []rune(path)
	if max < 2 || len(runes) <= max {
		return path
	}
	return "…" + string(runes[len(runes)-max+1:])
}
