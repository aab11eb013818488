// Package agent implements the Agent Coordinator: the shared state object
// and fallback state machine that couple the probe loop, the sync loop,
// and the route reconciler.
package agent

import (
	"sync"

	"github.com/sanverite/sdwan-control-plane/internal/telemetry"
)

// FallbackState is the coarse two-state machine governing whether the
// reconciler's overlay routes are trusted or flushed.
type FallbackState string

const (
	StateNormal   FallbackState = "normal"
	StateFallback FallbackState = "fallback"
)

// SharedState is the single small object the probe loop and sync loop
// coordinate through: the latest smoothed Metrics and the fallback flag,
// both guarded by one mutex. No blocking call is ever made while the lock
// is held — callers copy in or out and release immediately.
type SharedState struct {
	mu       sync.Mutex
	metrics  []telemetry.Metric
	hasData  bool
	fallback FallbackState
}

// NewSharedState constructs state in the initial Normal fallback state with
// no metrics yet recorded.
func NewSharedState() *SharedState {
	return &SharedState{fallback: StateNormal}
}

// SetMetrics records the latest probe cycle's smoothed metrics. Called only
// by the probe loop.
func (s *SharedState) SetMetrics(m []telemetry.Metric) {
	cp := append([]telemetry.Metric(nil), m...)
	s.mu.Lock()
	defer s.mu.Unlock()
	s.metrics = cp
	s.hasData = true
}

// LatestMetrics returns a defensive copy of the most recent metrics and
// whether any probe cycle has completed yet. Called only by the sync loop.
func (s *SharedState) LatestMetrics() ([]telemetry.Metric, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.hasData {
		return nil, false
	}
	return append([]telemetry.Metric(nil), s.metrics...), true
}

// Fallback reports the current fallback state.
func (s *SharedState) Fallback() FallbackState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.fallback
}

// EnterFallback transitions Normal->Fallback. Idempotent: returns false if
// already in Fallback (callers use this to decide whether to flush).
func (s *SharedState) EnterFallback() (transitioned bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.fallback == StateFallback {
		return false
	}
	s.fallback = StateFallback
	return true
}

// ExitFallback transitions Fallback->Normal. Idempotent: returns false if
// already Normal.
func (s *SharedState) ExitFallback() (transitioned bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.fallback == StateNormal {
		return false
	}
	s.fallback = StateNormal
	return true
}
