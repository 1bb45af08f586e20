package session

import (
	"context"
	"time"
)

// notify wakes every WaitUntil blocked on the current change channel.
func (s *Service) notify() {
	s.signalMu.Lock()
	defer s.signalMu.Unlock()
	close(s.changed)
	s.changed = make(chan struct{})
}

func (s *Service) changes() <-chan struct{} {
	s.signalMu.Lock()
	defer s.signalMu.Unlock()
	return s.changed
}

// WaitUntil blocks until cond holds, re-evaluating it on every session write and at the wait
// interval. It returns false when the ceiling passes or ctx ends first.
func (s *Service) WaitUntil(ctx context.Context, cond func() bool) bool {
	return s.waitUntil(ctx, cond, s.waitCeiling)
}

func (s *Service) waitUntil(ctx context.Context, cond func() bool, ceiling time.Duration) bool {
	deadline := time.NewTimer(ceiling)
	defer deadline.Stop()
	ticker := time.NewTicker(s.waitInterval)
	defer ticker.Stop()

	for {
		changed := s.changes()
		if cond() {
			return true
		}
		select {
		case <-changed:
		case <-ticker.C:
		case <-deadline.C:
			return false
		case <-ctx.Done():
			return false
		}
	}
}
