package probe

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

// scriptedPinger returns a pre-programmed sequence of results per peer,
// repeating the last scripted result if probed more times than scripted.
type scriptedPinger struct {
	results map[string][]Result
	calls   map[string]int
}

func newScriptedPinger() *scriptedPinger {
	return &scriptedPinger{results: map[string][]Result{}, calls: map[string]int{}}
}

func (s *scriptedPinger) program(addr string, results ...Result) {
	s.results[addr] = results
}

func (s *scriptedPinger) Ping(_ context.Context, addr string, _ time.Duration) Result {
	seq := s.results[addr]
	if len(seq) == 0 {
		return Result{Loss: true}
	}
	i := s.calls[addr]
	if i >= len(seq) {
		i = len(seq) - 1
	}
	s.calls[addr]++
	return seq[i]
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// TestPartialLossSmoothing: 7 successes at 50ms, 3 timeouts within a
// window of 10 -> rtt=50.0, loss=0.3.
func TestPartialLossSmoothing(t *testing.T) {
	pinger := newScriptedPinger()
	var seq []Result
	for i := 0; i < 7; i++ {
		seq = append(seq, Result{RTT: 50 * time.Millisecond})
	}
	for i := 0; i < 3; i++ {
		seq = append(seq, Result{Loss: true})
	}
	pinger.program("10.254.0.2", seq...)

	e, err := NewEngine(discardLogger(), pinger, Config{
		Peers:      []string{"10.254.0.2"},
		Interval:   time.Second,
		Timeout:    time.Second,
		WindowSize: 10,
	})
	require.NoError(t, err)

	for i := 0; i < 10; i++ {
		e.probeAll(context.Background())
	}
	ms := e.smoothedMetrics()
	require.Len(t, ms, 1)
	require.NotNil(t, ms[0].RTTMs)
	require.InDelta(t, 50.0, *ms[0].RTTMs, 1e-9)
	require.InDelta(t, 0.3, ms[0].LossRate, 1e-9)
}

// TestAllTimeoutsReportsAbsentRTT: if all probes in the window time out,
// RTT is absent and loss is 1.0.
func TestAllTimeoutsReportsAbsentRTT(t *testing.T) {
	pinger := newScriptedPinger()
	var seq []Result
	for i := 0; i < 10; i++ {
		seq = append(seq, Result{Loss: true})
	}
	pinger.program("10.254.0.9", seq...)

	e, err := NewEngine(discardLogger(), pinger, Config{
		Peers:      []string{"10.254.0.9"},
		Interval:   time.Second,
		Timeout:    time.Second,
		WindowSize: 10,
	})
	require.NoError(t, err)

	for i := 0; i < 10; i++ {
		e.probeAll(context.Background())
	}
	ms := e.smoothedMetrics()
	require.Len(t, ms, 1)
	require.Nil(t, ms[0].RTTMs)
	require.InDelta(t, 1.0, ms[0].LossRate, 1e-9)
}

// TestNoProbesYetReportsZeroLoss: before any probe cycle has run, loss is
// reported as 0.0 rather than absent.
func TestNoProbesYetReportsZeroLoss(t *testing.T) {
	pinger := newScriptedPinger()
	e, err := NewEngine(discardLogger(), pinger, Config{
		Peers:      []string{"10.254.0.5"},
		Interval:   time.Second,
		Timeout:    time.Second,
		WindowSize: 10,
	})
	require.NoError(t, err)

	ms := e.smoothedMetrics()
	require.Len(t, ms, 1)
	require.Nil(t, ms[0].RTTMs)
	require.InDelta(t, 0.0, ms[0].LossRate, 1e-9)
}

func TestRunOnceReturnsOneMetricPerPeer(t *testing.T) {
	pinger := newScriptedPinger()
	pinger.program("10.254.0.2", Result{RTT: 10 * time.Millisecond})
	pinger.program("10.254.0.3", Result{Loss: true})

	e, err := NewEngine(discardLogger(), pinger, Config{
		Peers:      []string{"10.254.0.2", "10.254.0.3"},
		Interval:   time.Second,
		Timeout:    time.Second,
		WindowSize: 10,
	})
	require.NoError(t, err)

	ms := e.RunOnce(context.Background())
	require.Len(t, ms, 2)
}
