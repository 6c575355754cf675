package rest

import (
	"context"
	"sync"
	"time"

	"github.com/tcymc/tcy-updater/api"
	"github.com/tcymc/tcy-updater/internal/progress"
)

// updateTracker records the progress of the background run. It's the progress.Reporter
// handed to the sequencer and the self updater.
type updateTracker struct {
	mu    sync.Mutex
	state api.UpdatesState
}

// start marks a run as in progress. It returns false if one already is.
func (t *updateTracker) start(status string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.state.Running {
		return false
	}

	t.state.Running = true
	t.state.Percent = 0
	t.state.Speed = "--"
	t.state.Status = status

	return true
}

// release clears the running flag of a run which never started.
func (t *updateTracker) release() {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.state.Running = false
}

// finish records the outcome of a run.
func (t *updateTracker) finish(result *api.SequenceResult, err error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.state.Running = false
	t.state.Speed = "--"
	t.state.LastRun = time.Now()
	t.state.LastResult = result
	t.state.LastError = ""

	if err != nil {
		t.state.LastError = err.Error()
		t.state.Status = "Failed"

		return
	}

	if result != nil && result.Failed() {
		t.state.LastError = result.Error
		t.state.Status = "Failed at " + result.FailedAt

		return
	}

	t.state.Status = "Done"
}

func (t *updateTracker) snapshot() api.UpdatesState {
	t.mu.Lock()
	defer t.mu.Unlock()

	return t.state
}

// Progress implements progress.Reporter.
func (t *updateTracker) Progress(_ context.Context, ev progress.Event) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.state.Percent = ev.Percent
	t.state.Speed = ev.Speed
	t.state.Status = ev.Status
}

// Log implements progress.Reporter.
func (t *updateTracker) Log(_ context.Context, msg string) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.state.Status = msg
}
