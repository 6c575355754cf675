package scheduling

import (
	"context"
	"log/slog"

	"github.com/tcymc/tcy-updater/api"
	"github.com/tcymc/tcy-updater/internal/manifest"
)

// Checker returns the versions pending installation.
type Checker interface {
	Check(ctx context.Context) ([]api.UpdateQueueItem, error)
}

// UpdateCheckJob returns a job looking for pending versions. When any are found, they're logged
// and passed to notify, if set.
func UpdateCheckJob(checker Checker, notify func(ctx context.Context, queue []api.UpdateQueueItem)) JobFunc {
	return func(ctx context.Context) error {
		queue, err := checker.Check(ctx)
		if err != nil {
			return err
		}

		if len(queue) == 0 {
			slog.DebugContext(ctx, "Mod-pack is up to date")

			return nil
		}

		slog.InfoContext(ctx, "Versions pending installation", "versions", manifest.Versions(queue))

		if notify != nil {
			notify(ctx, queue)
		}

		return nil
	}
}
