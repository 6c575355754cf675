package progress

import (
	"context"
	"fmt"
	"time"
)

// NoSpeed is reported when no transfer is in progress.
const NoSpeed = "--"

// Speed formats the average transfer speed of a download.
func Speed(bytes int64, elapsed time.Duration) string {
	if elapsed <= 100*time.Millisecond || bytes <= 0 {
		return "0 KB/s"
	}

	speed := float64(bytes) / elapsed.Seconds()
	if speed > 1024*1024 {
		return fmt.Sprintf("%.1f MB/s", speed/1024/1024)
	}

	return fmt.Sprintf("%.0f KB/s", speed/1024)
}

// Transfer converts the byte counts of one download into throttled progress events.
type Transfer struct {
	reporter Reporter
	status   func(percent int) string
	start    time.Time

	now func() time.Time
}

// NewTransfer starts tracking a download. The status function builds the status line for a given percentage.
func NewTransfer(reporter Reporter, status func(percent int) string) *Transfer {
	return newTransfer(reporter, status, time.Now)
}

func newTransfer(reporter Reporter, status func(percent int) string, now func() time.Time) *Transfer {
	throttle := NewThrottle(reporter)
	throttle.now = now

	return &Transfer{
		reporter: throttle,
		status:   status,
		start:    now(),
		now:      now,
	}
}

// Update reports the current state of the download. Unknown sizes are ignored.
func (t *Transfer) Update(ctx context.Context, done int64, total int64) {
	if total <= 0 {
		return
	}

	percent := min(100, int(done*100/total))

	t.reporter.Progress(ctx, Event{
		Percent: percent,
		Speed:   Speed(done, t.now().Sub(t.start)),
		Status:  t.status(percent),
	})
}

// Callback returns Update bound to a context, for use as a download progress function.
func (t *Transfer) Callback(ctx context.Context) func(done int64, total int64) {
	return func(done int64, total int64) {
		t.Update(ctx, done, total)
	}
}

// Steps returns a download progress function which only reports each 10% boundary once.
func Steps(ctx context.Context, reporter Reporter, status func(percent int) string) func(done int64, total int64) {
	last := -1

	return func(done int64, total int64) {
		if total <= 0 {
			return
		}

		percent := min(100, int(done*100/total)) / 10 * 10
		if percent == last {
			return
		}

		last = percent
		reporter.Progress(ctx, Event{Percent: percent, Speed: NoSpeed, Status: status(percent)})
	}
}
