package engines

import "sync"

// State tracks the lifecycle of an expensive engine handle.
type State int

const (
	StateUninitialized State = iota
	StateReady
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateReady:
		return "ready"
	case StateFailed:
		return "failed"
	default:
		return "uninitialized"
	}
}

// Handle guards lazy initialization of an engine that is expensive to bring
// up (model load, subprocess warmup). A failed initialization is cached so a
// broken engine is probed once per run instead of once per segment.
type Handle struct {
	mu    sync.Mutex
	state State
	err   error
}

// Ensure runs init exactly once. Subsequent calls return the cached result.
func (h *Handle) Ensure(init func() error) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	switch h.state {
	case StateReady:
		return nil
	case StateFailed:
		return h.err
	}
	if err := init(); err != nil {
		h.state = StateFailed
		h.err = err
		return err
	}
	h.state = StateReady
	return nil
}

// State returns the current lifecycle state.
func (h *Handle) State() State {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.state
}
