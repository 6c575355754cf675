package progress

import (
	"context"
	"fmt"
	"io"
	"sync"

	"github.com/schollz/progressbar/v3"
)

// Terminal renders progress as a single line progress bar and prints log messages above it.
type Terminal struct {
	mu  sync.Mutex
	w   io.Writer
	bar *progressbar.ProgressBar
}

// NewTerminal returns a Reporter drawing to the provided writer, usually os.Stderr.
func NewTerminal(w io.Writer) *Terminal {
	return &Terminal{w: w}
}

// Progress implements Reporter.
func (t *Terminal) Progress(_ context.Context, ev Event) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.bar == nil {
		t.bar = progressbar.NewOptions(100,
			progressbar.OptionSetWriter(t.w),
			progressbar.OptionSetWidth(30),
			progressbar.OptionSetRenderBlankState(true),
			progressbar.OptionClearOnFinish(),
		)
	}

	desc := ev.Status
	if ev.Speed != "" && ev.Speed != NoSpeed {
		desc += " [" + ev.Speed + "]"
	}

	t.bar.Describe(desc)
	_ = t.bar.Set(ev.Percent)

	if ev.Percent >= 100 {
		_ = t.bar.Finish()
		t.bar = nil
	}
}

// Log implements Reporter.
func (t *Terminal) Log(_ context.Context, msg string) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.bar != nil {
		_ = t.bar.Clear()
	}

	_, _ = fmt.Fprintln(t.w, msg)

	if t.bar != nil {
		_ = t.bar.RenderBlank()
	}
}
