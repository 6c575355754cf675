package progress

import (
	"context"
	"log/slog"
)

// Slog reports progress through structured logging.
type Slog struct {
	Logger *slog.Logger
}

func (s Slog) logger() *slog.Logger {
	if s.Logger == nil {
		return slog.Default()
	}

	return s.Logger
}

// Progress implements Reporter.
func (s Slog) Progress(ctx context.Context, ev Event) {
	s.logger().DebugContext(ctx, "Progress", "percent", ev.Percent, "speed", ev.Speed, "status", ev.Status)
}

// Log implements Reporter.
func (s Slog) Log(ctx context.Context, msg string) {
	s.logger().InfoContext(ctx, msg)
}
