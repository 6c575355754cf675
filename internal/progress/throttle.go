package progress

import (
	"context"
	"time"

	"golang.org/x/time/rate"
)

// MaxUpdatesPerSecond is the highest rate at which throttled progress events get through.
const MaxUpdatesPerSecond = 10

// Throttle wraps a Reporter and drops progress events above MaxUpdatesPerSecond.
// Completion events (100%) and log messages always get through.
type Throttle struct {
	next    Reporter
	limiter *rate.Limiter

	now func() time.Time
}

// NewThrottle returns a throttled Reporter.
func NewThrottle(next Reporter) *Throttle {
	return &Throttle{
		next:    next,
		limiter: rate.NewLimiter(rate.Every(time.Second/MaxUpdatesPerSecond), 1),
		now:     time.Now,
	}
}

// Progress implements Reporter.
func (t *Throttle) Progress(ctx context.Context, ev Event) {
	if ev.Percent < 100 && !t.limiter.AllowN(t.now(), 1) {
		return
	}

	t.next.Progress(ctx, ev)
}

// Log implements Reporter.
func (t *Throttle) Log(ctx context.Context, msg string) {
	t.next.Log(ctx, msg)
}
