package status

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/codeassist/internal/adapters/driving/tui/keymap"
	"github.com/custodia-labs/codeassist/internal/adapters/driving/tui/styles"
)

// fakeClock returns a bar whose clock is advanced by the returned func.
func fakeClock(bar *Bar) func(time.Duration) {
	now := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	bar.now = func() time.Time { return now }
	return func(d time.Duration) { now = now.Add(d) }
}

func TestNewBar_Defaults(t *testing.T) {
	bar := NewBar(nil, nil)

	require.NotNil(t, bar.styles)
	require.NotNil(t, bar.keymap)
	assert.Equal(t, StateReady, bar.State())
	assert.Empty(t, bar.Message())
	assert.False(t, bar.Busy())

	explicit := NewBar(styles.DefaultStyles(), keymap.DefaultKeyMap())
	assert.Equal(t, 80, explicit.width)
}

func TestBar_Busy(t *testing.T) {
	tests := []struct {
		state State
		busy  bool
	}{
		{StateReady, false},
		{StateSearching, true},
		{StateThinking, true},
		{StateGenerating, true},
		{StateIndexing, true},
		{StateError, false},
		{StateResults, false},
	}
	for _, tt := range tests {
		t.Run(string(tt.state), func(t *testing.T) {
			bar := NewBar(nil, nil)
			bar.SetState(tt.state)
			assert.Equal(t, tt.busy, bar.Busy())
		})
	}
}

func TestBar_ElapsedWhileBusy(t *testing.T) {
	bar := NewBar(nil, nil)
	bar.SetWidth(160)
	advance := fakeClock(bar)

	bar.SetState(StateThinking)
	advance(3*time.Second + 400*time.Millisecond)
	assert.Contains(t, bar.View(), "Asking the model... 3s")

	// Re-entering the same state keeps the clock running.
	bar.SetState(StateThinking)
	advance(2 * time.Second)
	assert.Contains(t, bar.View(), "Asking the model... 5s")

	bar.SetState(StateGenerating)
	assert.Contains(t, bar.View(), "Generating code... 0s")
}

func TestBar_View(t *testing.T) {
	tests := []struct {
		name    string
		state   State
		message string
		hits    int
		want    []string
		notWant []string
	}{
		{name: "ready", state: StateReady, want: []string{"Ready", "quit"}},
		{name: "ready with note", state: StateReady, message: "Indexed 3 files into 9 chunks", want: []string{"Indexed 3 files"}},
		{name: "error", state: StateError, want: []string{"Error"}},
		{name: "error detail", state: StateError, message: "connection refused", want: []string{"Error: connection refused"}},
		{name: "single result", state: StateResults, hits: 1, want: []string{"1 result"}, notWant: []string{"1 results"}},
		{name: "results use result hints", state: StateResults, hits: 5, want: []string{"5 results", "preview", " · "}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			bar := NewBar(nil, nil)
			bar.SetWidth(160)
			bar.SetState(tt.state)
			bar.SetMessage(tt.message)
			bar.SetResultCount(tt.hits)

			view := bar.View()
			for _, w := range tt.want {
				assert.Contains(t, view, w)
			}
			for _, w := range tt.notWant {
				assert.NotContains(t, view, w)
			}
		})
	}
}

func TestBar_Clear(t *testing.T) {
	bar := NewBar(nil, nil)
	bar.SetState(StateError)
	bar.SetMessage("boom")
	bar.SetResultCount(2)

	bar.Clear()

	assert.Equal(t, StateReady, bar.State())
	assert.Empty(t, bar.Message())
	assert.Contains(t, bar.View(), "Ready")
}
