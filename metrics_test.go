package reactor

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sys/unix"
)

func TestMetrics_Disabled(t *testing.T) {
	r := newTestReactor(t, 16)
	r.ProcessEvents(AllEvents | DontWait)
	assert.Equal(t, MetricsSnapshot{}, r.Metrics())
}

func TestMetrics_CountsEvents(t *testing.T) {
	clock := newFakeClock()
	r := newTestReactor(t, 128, WithMetrics(true), WithClock(clock.Now))
	a, b := makeSocketpair(t)

	_, err := unix.Write(b, []byte("x"))
	require.NoError(t, err)

	proc := func(r *Reactor, fd int, clientData any, mask int) {
		buf := make([]byte, 8)
		_, _ = unix.Read(fd, buf)
	}
	require.NoError(t, r.RegisterFile(a, Readable, proc, nil))

	r.CreateTimer(10, func(*Reactor, int64, any) int { return NoMore }, nil, nil)
	clock.advance(10 * time.Millisecond)

	r.ProcessEvents(AllEvents | DontWait)

	snap := r.Metrics()
	assert.EqualValues(t, 1, snap.Ticks)
	assert.EqualValues(t, 1, snap.Polls)
	assert.GreaterOrEqual(t, snap.FileEvents, uint64(1))
	assert.EqualValues(t, 1, snap.TimeEvents)
	assert.GreaterOrEqual(t, snap.PollWakeups, uint64(1))
	require.Equal(t, 1, snap.PollLatency.Samples)
	assert.LessOrEqual(t, snap.PollLatency.P50, snap.PollLatency.Max)
}

func TestMetrics_LatencyWindowRolls(t *testing.T) {
	var w latencyWindow
	for i := 0; i < latencySampleSize*2; i++ {
		w.record(time.Duration(i) * time.Microsecond)
	}
	snap := w.snapshot()
	require.Equal(t, latencySampleSize, snap.Samples)
	// Only the newest window remains.
	assert.GreaterOrEqual(t, snap.P50, time.Duration(latencySampleSize)*time.Microsecond)
	assert.Equal(t, time.Duration(latencySampleSize*2-1)*time.Microsecond, snap.Max)
	assert.LessOrEqual(t, snap.P50, snap.P90)
	assert.LessOrEqual(t, snap.P90, snap.P99)
	assert.LessOrEqual(t, snap.P99, snap.Max)
}

func TestMetrics_EmptyWindow(t *testing.T) {
	var w latencyWindow
	assert.Equal(t, LatencySnapshot{}, w.snapshot())
}

func TestPercentileIndex(t *testing.T) {
	assert.Equal(t, 0, percentileIndex(1, 50))
	assert.Equal(t, 0, percentileIndex(2, 50))
	assert.Equal(t, 4, percentileIndex(10, 50))
	assert.Equal(t, 8, percentileIndex(10, 99))
	assert.Equal(t, 99, percentileIndex(100, 100))
}
