// Package sequencer applies a queue of versions in order and records the outcome in the local state.
package sequencer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"

	"golang.org/x/sync/semaphore"
	"golang.org/x/sync/singleflight"

	"github.com/tcymc/tcy-updater/api"
	"github.com/tcymc/tcy-updater/internal/manifest"
	"github.com/tcymc/tcy-updater/internal/patch"
	"github.com/tcymc/tcy-updater/internal/progress"
	"github.com/tcymc/tcy-updater/internal/state"
	"github.com/tcymc/tcy-updater/internal/versions"
)

// ErrRunInProgress is returned when a run is requested while another one is still going.
var ErrRunInProgress = errors.New("an update run is already in progress")

// Applier applies the patch of a single version.
type Applier interface {
	Apply(ctx context.Context, req patch.Request, reporter progress.Reporter) (*patch.Report, error)
}

// HistorySource returns the published version history.
type HistorySource interface {
	History(ctx context.Context) (*api.History, error)
}

// Sequencer runs update queues against a game root.
type Sequencer struct {
	state    *state.State
	applier  Applier
	history  HistorySource
	ordering versions.Ordering
	gameRoot string

	running *semaphore.Weighted
	checks  singleflight.Group
}

// New returns a Sequencer. The state is the only place the local version and skip list are read
// from and written to.
func New(s *state.State, applier Applier, history HistorySource, gameRoot string, ordering versions.Ordering) *Sequencer {
	if ordering == "" {
		ordering = versions.Lexical
	}

	return &Sequencer{
		state:    s,
		applier:  applier,
		history:  history,
		ordering: ordering,
		gameRoot: gameRoot,
		running:  semaphore.NewWeighted(1),
	}
}

// Check fetches the published history and returns the versions to offer. Concurrent calls
// share a single fetch.
func (s *Sequencer) Check(ctx context.Context) ([]api.UpdateQueueItem, error) {
	ret, err, _ := s.checks.Do("check", func() (any, error) {
		history, err := s.history.History(ctx)
		if err != nil {
			return nil, err
		}

		var local string

		var skipped []string

		s.state.View(func(st *state.State) {
			local = st.CurrentVersion
			skipped = slices.Clone(st.SkippedVersions)
		})

		return manifest.Resolver{Ordering: s.ordering}.ComputeQueue(local, skipped, history.History), nil
	})
	if err != nil {
		return nil, err
	}

	queue, _ := ret.([]api.UpdateQueueItem)

	return slices.Clone(queue), nil
}

// MarkSkipped records a version the user chose not to install now. The state is only written
// when the skip list changes.
func (s *Sequencer) MarkSkipped(ctx context.Context, version string) error {
	if version == "" {
		return errors.New("no version provided")
	}

	changed := false

	err := s.state.Update(func(st *state.State) bool {
		changed = st.AddSkipped(version)

		return changed
	})
	if err != nil {
		return fmt.Errorf("save skipped version: %w", err)
	}

	if changed {
		slog.InfoContext(ctx, "Marked version as skipped", "version", version)
	}

	return nil
}

// Running returns true while a run is in progress.
func (s *Sequencer) Running() bool {
	if !s.running.TryAcquire(1) {
		return true
	}

	s.running.Release(1)

	return false
}

// Run applies the queue in ascending version order, stopping at the first version which can't be
// applied. Versions without a download URL for the source are skipped. The resulting local
// version and skip list are saved in a single write.
func (s *Sequencer) Run(ctx context.Context, queue []api.UpdateQueueItem, source string, reporter progress.Reporter) (*api.SequenceResult, error) {
	if !s.running.TryAcquire(1) {
		return nil, ErrRunInProgress
	}

	defer s.running.Release(1)

	if reporter == nil {
		reporter = progress.Nop{}
	}

	items := slices.Clone(queue)
	slices.SortStableFunc(items, func(a api.UpdateQueueItem, b api.UpdateQueueItem) int {
		return s.ordering.Compare(a.Version, b.Version)
	})

	var mirrorPrefix string

	s.state.View(func(st *state.State) {
		mirrorPrefix = st.MirrorPrefix
	})

	result := &api.SequenceResult{Applied: []string{}}

	for i, item := range items {
		url, ok := item.Entry.URL(source)
		if !ok {
			slog.WarnContext(ctx, "No download URL for source, skipping version", "version", item.Version, "source", source)
			reporter.Log(ctx, fmt.Sprintf("Version %s has no download for source %q, skipping", item.Version, source))
			result.Skipped = append(result.Skipped, item.Version)

			continue
		}

		reporter.Log(ctx, fmt.Sprintf("Installing version %s (%d/%d)", item.Version, i+1, len(items)))
		slog.InfoContext(ctx, "Applying version", "version", item.Version, "source", source)

		report, err := s.applier.Apply(ctx, patch.Request{
			Version:      item.Version,
			URL:          url,
			Source:       source,
			GameRoot:     s.gameRoot,
			MirrorPrefix: mirrorPrefix,
		}, reporter)
		if err != nil {
			slog.ErrorContext(ctx, "Failed to apply version", "version", item.Version, "err", err)
			reporter.Log(ctx, fmt.Sprintf("Failed to install version %s: %v", item.Version, err))

			result.FailedAt = item.Version
			result.Error = err.Error()

			break
		}

		if report != nil && report.Err() != nil {
			slog.WarnContext(ctx, "Version applied with errors", "version", item.Version, "failed", report.Count(patch.OpFailed))
		}

		result.Applied = append(result.Applied, item.Version)
	}

	err := s.record(ctx, result.Applied)
	if err != nil {
		return result, err
	}

	return result, nil
}

// record saves the outcome of a run.
func (s *Sequencer) record(ctx context.Context, applied []string) error {
	if len(applied) == 0 {
		return nil
	}

	newest, _ := s.ordering.Max(applied)

	err := s.state.Update(func(st *state.State) bool {
		changed := false

		if s.ordering.IsNewer(newest, st.CurrentVersion) {
			slog.InfoContext(ctx, "Updating local version", "from", st.CurrentVersion, "to", newest)
			st.CurrentVersion = newest
			changed = true
		}

		if st.RemoveSkipped(applied...) {
			changed = true
		}

		return changed
	})
	if err != nil {
		return fmt.Errorf("save local state: %w", err)
	}

	return nil
}
