package scheduling

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/tcymc/tcy-updater/api"
)

func TestSchedulerStartup(t *testing.T) {
	t.Parallel()

	scheduler, err := NewScheduler()
	require.NoError(t, err)
	require.Empty(t, scheduler.jobs, "Scheduler should have no registered jobs after creation")
}

func TestSchedulerUsage(t *testing.T) {
	t.Parallel()

	scheduler, err := NewScheduler()
	require.NoError(t, err)

	// Register the update check.
	err = scheduler.RegisterJob(JobCheckUpdates, "*/30 * * * *", func(_ context.Context) error { return nil })
	require.NoError(t, err)
	require.Len(t, scheduler.jobs, 1)
	require.Contains(t, scheduler.jobs, JobCheckUpdates)

	// Register a second job.
	secondJob := JobName("second_job")
	err = scheduler.RegisterJob(secondJob, "*/5 * * * *", func(_ context.Context) error { return nil })
	require.NoError(t, err)
	require.Len(t, scheduler.jobs, 2)

	// Update the first job.
	err = scheduler.RegisterJob(JobCheckUpdates, "0 2 * * 1", func(_ context.Context) error { return nil })
	require.NoError(t, err)
	require.Len(t, scheduler.jobs, 2)

	scheduler.Start()

	next, err := scheduler.NextRun(JobCheckUpdates)
	require.NoError(t, err)
	require.False(t, next.IsZero())

	// Remove the second job.
	require.NoError(t, scheduler.RemoveJob(secondJob))
	require.ErrorIs(t, scheduler.RemoveJob(secondJob), ErrUnknownJob)
	require.Len(t, scheduler.jobs, 1)

	_, err = scheduler.NextRun(secondJob)
	require.ErrorIs(t, err, ErrUnknownJob)

	require.NoError(t, scheduler.Shutdown())
	require.Empty(t, scheduler.jobs)
}

func TestCrontabValidation(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name     string
		crontab  string
		expected error
	}{
		{
			name:     "Valid standard cron",
			crontab:  "0 0 * * *",
			expected: nil,
		},
		{
			name:     "Too few fields",
			crontab:  "0 0 * *",
			expected: ErrInvalidCronTab,
		},
		{
			name:     "Too many fields",
			crontab:  "0 0 * * * *",
			expected: ErrInvalidCronTab,
		},
		{
			name:     "Non-numeric characters",
			crontab:  "a b c d e",
			expected: ErrInvalidCronTab,
		},
		{
			name:     "Empty string",
			crontab:  "",
			expected: ErrInvalidCronTab,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			scheduler, err := NewScheduler()
			require.NoError(t, err)

			got := scheduler.RegisterJob(JobCheckUpdates, tc.crontab, func(_ context.Context) error { return nil })
			require.Equal(t, tc.expected, got, tc.name)
		})
	}
}

type fakeChecker struct {
	queue []api.UpdateQueueItem
	err   error
}

func (f *fakeChecker) Check(_ context.Context) ([]api.UpdateQueueItem, error) {
	return f.queue, f.err
}

func TestUpdateCheckJob(t *testing.T) {
	t.Parallel()

	var notified []api.UpdateQueueItem

	notify := func(_ context.Context, queue []api.UpdateQueueItem) {
		notified = queue
	}

	// Up to date.
	err := UpdateCheckJob(&fakeChecker{}, notify)(context.Background())
	require.NoError(t, err)
	require.Nil(t, notified)

	// Pending versions.
	queue := []api.UpdateQueueItem{{Version: "2"}, {Version: "3"}}
	err = UpdateCheckJob(&fakeChecker{queue: queue}, notify)(context.Background())
	require.NoError(t, err)
	require.Equal(t, queue, notified)

	// Failures are returned.
	err = UpdateCheckJob(&fakeChecker{err: errors.New("offline")}, nil)(context.Background())
	require.Error(t, err)
}
