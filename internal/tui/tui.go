// Package tui implements the full-screen terminal view shown while updates are applied.
package tui

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gdamore/tcell/v2"
	"github.com/rivo/tview"

	"github.com/tcymc/tcy-updater/internal/progress"
)

// FooterItem is a labelled value shown at the bottom of the screen.
type FooterItem struct {
	Label string
	Value string
}

// TUI represents a terminal user interface. It implements progress.Reporter.
type TUI struct {
	app      *tview.Application
	frame    *tview.Frame
	screen   tcell.Screen
	bar      *ProgressBar
	status   *tview.TextView
	textView *tview.TextView
	logger   *slog.Logger

	title string

	mu     sync.Mutex
	footer []FooterItem

	running  atomic.Bool
	finished atomic.Bool
}

// NewTUI constructs the update view. A nil screen uses the terminal.
func NewTUI(title string, screen tcell.Screen) (*TUI, error) {
	ret := &TUI{
		title: title,
	}

	if screen == nil {
		var err error

		screen, err = tcell.NewScreen()
		if err != nil {
			return nil, err
		}
	}

	ret.screen = screen

	// Define a text view to show recent log entries.
	ret.textView = tview.NewTextView().
		SetDynamicColors(true).
		SetScrollable(false).
		SetWordWrap(true).
		SetChangedFunc(ret.draw)
	ret.textView.SetBorder(true).SetTitle(" Log ")

	ret.logger = slog.New(NewCustomTextHandler(ret.textView))

	// Define the progress area.
	ret.status = tview.NewTextView().SetDynamicColors(true).SetChangedFunc(ret.draw)
	ret.bar = NewProgressBar()
	ret.bar.SetFilledColor(tcell.ColorGreen)

	progressArea := tview.NewFlex().SetDirection(tview.FlexRow).
		AddItem(ret.status, 1, 0, false).
		AddItem(ret.bar, 1, 0, false)
	progressArea.SetBorder(true).SetTitle(" Progress ")

	layout := tview.NewFlex().SetDirection(tview.FlexRow).
		AddItem(progressArea, 4, 0, false).
		AddItem(ret.textView, 0, 1, false)

	// Define a frame to hold the TUI's primary content.
	ret.frame = tview.NewFrame(layout).SetBorders(0, 0, 1, 1, 0, 0)

	// Define the TUI application. Once the work is finished, any key exits.
	ret.app = tview.NewApplication().SetScreen(ret.screen).SetRoot(ret.frame, true).
		SetInputCapture(func(event *tcell.EventKey) *tcell.EventKey {
			if ret.finished.Load() {
				ret.app.Stop()

				return nil
			}

			return event
		})

	return ret, nil
}

// SetFooter replaces the values shown at the bottom of the screen.
func (t *TUI) SetFooter(items ...FooterItem) {
	t.mu.Lock()
	t.footer = slices.Clone(items)
	t.mu.Unlock()

	t.draw()
}

// Progress implements progress.Reporter.
func (t *TUI) Progress(_ context.Context, ev progress.Event) {
	t.bar.SetProgress(int64(ev.Percent))

	speed := ""
	if ev.Speed != "" && ev.Speed != progress.NoSpeed {
		speed = " [yellow]" + ev.Speed + "[white]"
	}

	t.status.SetText(fmt.Sprintf("[green]%3d%%[white]%s %s", ev.Percent, speed, tview.Escape(ev.Status)))
}

// Log implements progress.Reporter.
func (t *TUI) Log(ctx context.Context, msg string) {
	t.logger.InfoContext(ctx, tview.Escape(msg))
}

// Handler returns a slog handler writing to the log pane.
func (t *TUI) Handler() slog.Handler {
	return t.logger.Handler()
}

// Run starts the interface and runs fn in the background. Once fn returns, its outcome is shown
// and the interface exits on the next key press. The error returned by fn is returned.
func (t *TUI) Run(ctx context.Context, fn func(ctx context.Context) error) error {
	var fnErr error

	go func() {
		// Wait for the application to accept updates.
		t.app.QueueUpdate(func() {})

		fnErr = fn(ctx)

		if fnErr != nil {
			t.logger.ErrorContext(ctx, tview.Escape(fnErr.Error()))
		}

		t.finished.Store(true)
		t.logger.InfoContext(ctx, "Press any key to exit")
	}()

	// Refresh the header clock.
	stop := make(chan struct{})
	defer close(stop)

	go func() {
		ticker := time.NewTicker(time.Second)
		defer ticker.Stop()

		for {
			select {
			case <-stop:
				return
			case <-ticker.C:
				t.draw()
			}
		}
	}()

	t.running.Store(true)
	t.redrawScreen()

	err := t.app.Run()
	t.running.Store(false)

	if err != nil {
		return err
	}

	return fnErr
}

// Stop exits the interface.
func (t *TUI) Stop() {
	t.app.Stop()
}

// draw requests a redraw when the application is running.
func (t *TUI) draw() {
	if !t.running.Load() {
		return
	}

	t.app.QueueUpdateDraw(t.redrawScreen)
}

// redrawScreen clears and completely re-draws the TUI frame. This is necessary when updating
// header or footer values, such as showing the current time.
func (t *TUI) redrawScreen() {
	t.frame.Clear()

	t.frame.AddText(t.title, true, tview.AlignCenter, tcell.ColorWhite)
	t.frame.AddText(time.Now().Format("2006-01-02 15:04"), true, tview.AlignRight, tcell.ColorWhite)

	t.mu.Lock()
	footer := slices.Clone(t.footer)
	t.mu.Unlock()

	consoleWidth, _ := t.screen.Size()

	// The frame stacks footer lines from the bottom up.
	slices.Reverse(footer)

	for _, item := range footer {
		for _, line := range wrapFooterText(item.Label, item.Value, consoleWidth) {
			t.frame.AddText(line, false, tview.AlignLeft, tcell.ColorWhite)
		}
	}
}

// Performs a very basic text wrapping at a given maximum length, only on spaces. Returns a
// reversed array, since that is how the frame's footer logic expects things.
func wrapFooterText(label string, text string, maxLineLength int) []string {
	ret := []string{}

	currentLine := "[green]" + label + ":[white] "
	currentLen := len(label) + 2

	for _, word := range strings.Split(text, " ") {
		if currentLen+len(word) > maxLineLength && currentLen > 0 {
			ret = append(ret, currentLine)
			currentLine = ""
			currentLen = 0
		}

		currentLine += word + " "
		currentLen += len(word) + 1
	}

	if len(currentLine) > 0 {
		ret = append(ret, currentLine)
	}

	slices.Reverse(ret)

	return ret
}
