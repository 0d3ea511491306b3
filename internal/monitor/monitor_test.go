package monitor

import (
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/sdpower/connector-go/internal/calculator"
	"github.com/sdpower/connector-go/internal/loader"
	"github.com/sdpower/connector-go/internal/pricing"
	"github.com/sdpower/connector-go/internal/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newMonitor(opts Options) *Monitor {
	calc := calculator.New(pricing.NewService(), calculator.Options{
		NewID: func() string { return "run" },
	})
	opts.NoColor = true
	return New(opts, calc, loader.New(1))
}

func TestSnapshot_Defaults(t *testing.T) {
	snap := newMonitor(Options{}).Snapshot()

	require.NoError(t, snap.Err)
	assert.Equal(t, "notion-ai", snap.Provider)
	assert.Equal(t, 3, snap.Result.SampleCount)
	assert.Empty(t, snap.Problems)
	require.Len(t, snap.Breakdown, 2)
	assert.Equal(t, "model", snap.Breakdown[0].Label)
}

func TestSnapshot_PayloadError(t *testing.T) {
	path := filepath.Join(t.TempDir(), "payload.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"events":[]}`), 0644))

	snap := newMonitor(Options{PayloadPath: path}).Snapshot()
	assert.ErrorIs(t, snap.Err, types.ErrEmptyRecords)
	assert.Nil(t, snap.Result)
}

func TestSnapshot_MissingManifest(t *testing.T) {
	snap := newMonitor(Options{ManifestPath: filepath.Join(t.TempDir(), "nope.json")}).Snapshot()
	assert.Error(t, snap.Err)
}

func TestModel_UpdateAndView(t *testing.T) {
	mon := newMonitor(Options{})
	m := newModel(mon)

	assert.Contains(t, m.View(), "Running dry-run")

	updated, _ := m.Update(snapshotMsg(mon.Snapshot()))
	view := updated.View()
	assert.Contains(t, view, "notion-ai")
	assert.Contains(t, view, "evt_003")
	assert.Contains(t, view, "Monthly estimate (×30): $0.62")
	assert.Contains(t, view, "Cost by model")
	assert.Contains(t, view, "Run 1")

	_, cmd := updated.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("q")})
	require.NotNil(t, cmd)
	assert.Equal(t, tea.Quit(), cmd())
}

func TestModel_ReloadTriggersRefresh(t *testing.T) {
	m := newModel(newMonitor(Options{}))

	_, cmd := m.Update(reloadMsg{})
	require.NotNil(t, cmd)
	msg, ok := cmd().(snapshotMsg)
	require.True(t, ok)
	assert.NoError(t, msg.Err)
}

func TestModel_ErrorView(t *testing.T) {
	m := newModel(newMonitor(Options{}))
	updated, _ := m.Update(snapshotMsg(Snapshot{Err: types.RecordsPathError{Path: "$.meta", Found: "object"}}))
	assert.Contains(t, updated.View(), "Error: Records path did not return an array")
}

func TestRenderCostBar(t *testing.T) {
	assert.Equal(t, "[█████░░░░░]", renderCostBar(0.5, 10, true))
	assert.Equal(t, "[░░░░░░░░░░]", renderCostBar(-1, 10, true))
	assert.Equal(t, "[██████████]", renderCostBar(2, 10, true))
	assert.True(t, strings.Contains(renderCostBar(0.5, 10, false), "█"))
}

func TestCostColor(t *testing.T) {
	assert.Equal(t, cheapColor.Clamped().Hex(), costColor(0).Hex())
	assert.Equal(t, expensiveColor.Clamped().Hex(), costColor(1).Hex())
	assert.Equal(t, costColor(0).Hex(), costColor(-3).Hex())
}

func TestFileWatcher_Debounces(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "manifest.json")
	other := filepath.Join(dir, "other.json")
	require.NoError(t, os.WriteFile(path, []byte("{}"), 0644))

	var calls int32
	watcher, err := NewFileWatcher(50*time.Millisecond, func() { atomic.AddInt32(&calls, 1) }, path)
	require.NoError(t, err)
	watcher.Start()
	defer watcher.Stop()

	for i := 0; i < 5; i++ {
		require.NoError(t, os.WriteFile(path, []byte(`{"slug":"x"}`), 0644))
	}
	require.NoError(t, os.WriteFile(other, []byte("{}"), 0644))

	require.Eventually(t, func() bool { return atomic.LoadInt32(&calls) >= 1 }, 2*time.Second, 10*time.Millisecond)
	time.Sleep(150 * time.Millisecond)
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
}

func TestFileWatcher_MissingDirectory(t *testing.T) {
	_, err := NewFileWatcher(time.Millisecond, func() {}, filepath.Join(t.TempDir(), "gone", "manifest.json"))
	assert.Error(t, err)
}
