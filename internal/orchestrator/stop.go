package orchestrator

import "sync"

// stopSignal is the run-wide stop flag: set exactly once when the target is
// reached, observed cooperatively by every query loop. Setting it again is a
// no-op.
type stopSignal struct {
	once sync.Once
	ch   chan struct{}
}

func newStopSignal() *stopSignal {
	return &stopSignal{ch: make(chan struct{})}
}

func (s *stopSignal) set() {
	s.once.Do(func() { close(s.ch) })
}

func (s *stopSignal) stopped() bool {
	select {
	case <-s.ch:
		return true
	default:
		return false
	}
}
