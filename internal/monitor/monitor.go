// Package monitor re-runs a dry-run whenever the manifest or sample payload
// changes on disk and shows the result in a terminal UI.
package monitor

import (
	"context"
	"os"
	"sort"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/cockroachdb/errors"
	"github.com/mattn/go-isatty"
	"github.com/sdpower/connector-go/internal/calculator"
	"github.com/sdpower/connector-go/internal/loader"
	"github.com/sdpower/connector-go/internal/manifest"
	"github.com/sdpower/connector-go/internal/types"
)

type Options struct {
	// ManifestPath and PayloadPath fall back to the built-in manifest and
	// sample payload when empty.
	ManifestPath string
	PayloadPath  string
	Debounce     time.Duration
	NoColor      bool
	// BreakdownLabel groups the cost bars; empty picks the first metadata label
	BreakdownLabel string
}

type Monitor struct {
	options Options
	calc    *calculator.Calculator
	loader  *loader.Loader
}

// Snapshot is one dry-run of the watched files
type Snapshot struct {
	Provider  string
	Result    *types.DryRunResult
	Breakdown []types.UsageBreakdown
	Problems  []types.ValidationError
	Err       error
	At        time.Time
}

type snapshotMsg Snapshot

type reloadMsg struct{}

func New(opts Options, calc *calculator.Calculator, payloadLoader *loader.Loader) *Monitor {
	if opts.Debounce <= 0 {
		opts.Debounce = 300 * time.Millisecond
	}
	return &Monitor{
		options: opts,
		calc:    calc,
		loader:  payloadLoader,
	}
}

// Snapshot loads both files and dry-runs them. Load and dry-run failures are
// carried in Snapshot.Err so the view can show them.
func (m *Monitor) Snapshot() Snapshot {
	snap := Snapshot{At: time.Now()}

	connector := manifest.Default()
	if m.options.ManifestPath != "" {
		loaded, err := manifest.Load(m.options.ManifestPath)
		if err != nil {
			snap.Err = err
			return snap
		}
		connector = loaded
	}
	snap.Provider = connector.Slug
	snap.Problems = manifest.Validate(connector)

	payload := manifest.SamplePayload()
	if m.options.PayloadPath != "" {
		raw, err := m.loader.ReadPayload(m.options.PayloadPath)
		if err != nil {
			snap.Err = err
			return snap
		}
		payload = raw
	}

	normalized, err := m.calc.Normalize(connector, payload)
	if err != nil {
		snap.Err = err
		return snap
	}
	snap.Result = m.calc.Summarize(connector, normalized)

	label := m.options.BreakdownLabel
	if label == "" {
		label = firstLabel(connector.Mapping.MetadataPaths)
	}
	if label != "" {
		snap.Breakdown = m.calc.Breakdown(normalized.Rows, label)
	}
	return snap
}

func firstLabel(paths map[string]string) string {
	labels := make([]string, 0, len(paths))
	for label := range paths {
		labels = append(labels, label)
	}
	sort.Strings(labels)
	if len(labels) == 0 {
		return ""
	}
	return labels[0]
}

// Start runs the live view until the user quits or ctx is cancelled.
func (m *Monitor) Start(ctx context.Context) error {
	if !isatty.IsTerminal(os.Stdout.Fd()) && !isatty.IsCygwinTerminal(os.Stdout.Fd()) {
		return errors.WithHint(
			errors.New("watch requires an interactive terminal (TTY)"),
			"use `connector dryrun` for non-interactive output")
	}

	p := tea.NewProgram(
		newModel(m),
		tea.WithAltScreen(),
		tea.WithContext(ctx),
	)

	var watched []string
	for _, path := range []string{m.options.ManifestPath, m.options.PayloadPath} {
		if path != "" && path != loader.StdinPath {
			watched = append(watched, path)
		}
	}
	if len(watched) > 0 {
		watcher, err := NewFileWatcher(m.options.Debounce, func() { p.Send(reloadMsg{}) }, watched...)
		if err != nil {
			return err
		}
		watcher.Start()
		defer watcher.Stop()
	}

	_, err := p.Run()
	if errors.Is(err, tea.ErrProgramKilled) && ctx.Err() != nil {
		return nil
	}
	return err
}

type model struct {
	monitor *Monitor
	snap    Snapshot
	runs    int
	width   int
}

func newModel(m *Monitor) model {
	return model{monitor: m, width: 80}
}

func (m model) Init() tea.Cmd {
	return m.refresh()
}

func (m model) refresh() tea.Cmd {
	return func() tea.Msg {
		return snapshotMsg(m.monitor.Snapshot())
	}
}

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c", "q":
			return m, tea.Quit
		case "r":
			return m, m.refresh()
		}

	case tea.WindowSizeMsg:
		m.width = msg.Width

	case reloadMsg:
		return m, m.refresh()

	case snapshotMsg:
		m.snap = Snapshot(msg)
		m.runs++
	}

	return m, nil
}
