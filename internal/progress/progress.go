// Package progress defines the sink long running operations report their progress to.
package progress

import (
	"context"
	"sync"
)

// Event is a single progress update.
type Event struct {
	// Percent is in the 0-100 range.
	Percent int

	// Speed is a human readable transfer speed, "--" when not transferring.
	Speed string

	// Status describes the step being performed.
	Status string
}

// Reporter receives progress updates and user facing log messages.
type Reporter interface {
	Progress(ctx context.Context, ev Event)
	Log(ctx context.Context, msg string)
}

// Nop is a Reporter discarding everything.
type Nop struct{}

// Progress implements Reporter.
func (Nop) Progress(context.Context, Event) {}

// Log implements Reporter.
func (Nop) Log(context.Context, string) {}

// Multi forwards every call to all of its reporters.
type Multi []Reporter

// Progress implements Reporter.
func (m Multi) Progress(ctx context.Context, ev Event) {
	for _, r := range m {
		r.Progress(ctx, ev)
	}
}

// Log implements Reporter.
func (m Multi) Log(ctx context.Context, msg string) {
	for _, r := range m {
		r.Log(ctx, msg)
	}
}

// Recorder keeps every call in memory. It's safe for concurrent use.
type Recorder struct {
	mu     sync.Mutex
	events []Event
	logs   []string
}

// Progress implements Reporter.
func (r *Recorder) Progress(_ context.Context, ev Event) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.events = append(r.events, ev)
}

// Log implements Reporter.
func (r *Recorder) Log(_ context.Context, msg string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.logs = append(r.logs, msg)
}

// Events returns a copy of the recorded events.
func (r *Recorder) Events() []Event {
	r.mu.Lock()
	defer r.mu.Unlock()

	return append([]Event{}, r.events...)
}

// Logs returns a copy of the recorded log messages.
func (r *Recorder) Logs() []string {
	r.mu.Lock()
	defer r.mu.Unlock()

	return append([]string{}, r.logs...)
}

// Last returns the most recent event.
func (r *Recorder) Last() (Event, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if len(r.events) == 0 {
		return Event{}, false
	}

	return r.events[len(r.events)-1], true
}
