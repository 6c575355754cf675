package progress

import (
	"bytes"
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

type fakeClock struct {
	t time.Time
}

func (c *fakeClock) now() time.Time {
	return c.t
}

func (c *fakeClock) advance(d time.Duration) {
	c.t = c.t.Add(d)
}

func TestSpeed(t *testing.T) {
	t.Parallel()

	require.Equal(t, "0 KB/s", Speed(1024, 50*time.Millisecond))
	require.Equal(t, "0 KB/s", Speed(0, time.Second))
	require.Equal(t, "512 KB/s", Speed(512*1024, time.Second))
	require.Equal(t, "1024 KB/s", Speed(1024*1024, time.Second))
	require.Equal(t, "2.5 MB/s", Speed(5*1024*1024, 2*time.Second))
}

func TestThrottle(t *testing.T) {
	t.Parallel()

	rec := &Recorder{}
	clock := &fakeClock{t: time.Unix(1000, 0)}

	throttle := NewThrottle(rec)
	throttle.now = clock.now

	ctx := context.Background()

	// First event goes through, the burst is then exhausted.
	throttle.Progress(ctx, Event{Percent: 1})
	throttle.Progress(ctx, Event{Percent: 2})
	throttle.Progress(ctx, Event{Percent: 3})
	require.Len(t, rec.Events(), 1)

	// Completion always goes through.
	throttle.Progress(ctx, Event{Percent: 100})
	require.Len(t, rec.Events(), 2)

	// After 100ms another event is allowed.
	clock.advance(100 * time.Millisecond)
	throttle.Progress(ctx, Event{Percent: 4})
	require.Len(t, rec.Events(), 3)

	// A full second of events allows at most 10.
	for range 100 {
		clock.advance(10 * time.Millisecond)
		throttle.Progress(ctx, Event{Percent: 50})
	}

	require.LessOrEqual(t, len(rec.Events()), 3+10)

	// Logs are never throttled.
	for range 5 {
		throttle.Log(ctx, "hello")
	}

	require.Len(t, rec.Logs(), 5)
}

func TestTransfer(t *testing.T) {
	t.Parallel()

	rec := &Recorder{}
	clock := &fakeClock{t: time.Unix(1000, 0)}

	tr := newTransfer(rec, func(p int) string { return "Downloading" }, clock.now)
	cb := tr.Callback(context.Background())

	// Unknown size is ignored.
	cb(10, 0)
	require.Empty(t, rec.Events())

	clock.advance(time.Second)
	cb(512*1024, 1024*1024)

	ev, ok := rec.Last()
	require.True(t, ok)
	require.Equal(t, Event{Percent: 50, Speed: "512 KB/s", Status: "Downloading"}, ev)

	// Throttled.
	cb(600*1024, 1024*1024)
	require.Len(t, rec.Events(), 1)

	// Completion isn't.
	cb(1024*1024, 1024*1024)
	ev, _ = rec.Last()
	require.Equal(t, 100, ev.Percent)
}

func TestSteps(t *testing.T) {
	t.Parallel()

	rec := &Recorder{}
	cb := Steps(context.Background(), rec, func(p int) string { return "Self update" })

	for done := int64(0); done <= 1000; done += 25 {
		cb(done, 1000)
	}

	percents := []int{}
	for _, ev := range rec.Events() {
		percents = append(percents, ev.Percent)
	}

	require.Equal(t, []int{0, 10, 20, 30, 40, 50, 60, 70, 80, 90, 100}, percents)
}

func TestMulti(t *testing.T) {
	t.Parallel()

	a := &Recorder{}
	b := &Recorder{}
	m := Multi{a, b, Nop{}}

	m.Progress(context.Background(), Event{Percent: 5})
	m.Log(context.Background(), "msg")

	require.Len(t, a.Events(), 1)
	require.Len(t, b.Events(), 1)
	require.Equal(t, []string{"msg"}, a.Logs())
	require.Equal(t, []string{"msg"}, b.Logs())
}

func TestTerminal(t *testing.T) {
	t.Parallel()

	buf := &bytes.Buffer{}
	term := NewTerminal(buf)

	term.Log(context.Background(), "Checking for updates")
	term.Progress(context.Background(), Event{Percent: 40, Speed: "1.0 MB/s", Status: "Downloading update.zip"})
	term.Progress(context.Background(), Event{Percent: 100, Speed: NoSpeed, Status: "Done"})

	require.True(t, strings.Contains(buf.String(), "Checking for updates"))
	require.Nil(t, term.bar)
}
