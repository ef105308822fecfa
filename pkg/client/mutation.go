package client

import (
	"context"
	"sync"

	"github.com/petermazzocco/project-journal/pkg/querycache"
)

type State int

const (
	StateIdle State = iota
	StatePending
	StateSuccess
	StateError
)

func (s State) String() string {
	switch s {
	case StatePending:
		return "pending"
	case StateSuccess:
		return "success"
	case StateError:
		return "error"
	default:
		return "idle"
	}
}

// MutationSpec wires a server call to the cache.
type MutationSpec[In, Out any] struct {
	Run func(ctx context.Context, in In) (Out, error)
	// Patch writes the server's answer into the cache. It is skipped on
	// failure.
	Patch func(cache *querycache.Cache, in In, out Out)
	// Invalidate lists the keys to mark stale once the call settles,
	// whatever the outcome.
	Invalidate func(in In) []querycache.Key
}

// Mutation runs one kind of write and tracks its state:
// idle -> pending -> success | error, and back to pending on the next call.
// There is no retry; callers invoke Mutate again.
type Mutation[In, Out any] struct {
	cache *querycache.Cache
	spec  MutationSpec[In, Out]

	mu    sync.Mutex
	state State
	data  Out
	err   error
	subs  []func(State)
}

func NewMutation[In, Out any](cache *querycache.Cache, spec MutationSpec[In, Out]) *Mutation[In, Out] {
	return &Mutation[In, Out]{cache: cache, spec: spec}
}

func (m *Mutation[In, Out]) Mutate(ctx context.Context, in In) (Out, error) {
	m.transition(StatePending, func() {
		var zero Out
		m.data, m.err = zero, nil
	})

	var keys []querycache.Key
	if m.spec.Invalidate != nil {
		keys = m.spec.Invalidate(in)
	}
	// Refetches started before this write must not land on top of it.
	for _, k := range keys {
		m.cache.Cancel(k)
	}

	out, err := m.spec.Run(ctx, in)
	if err == nil && m.spec.Patch != nil {
		m.spec.Patch(m.cache, in, out)
	}
	for _, k := range keys {
		m.cache.Invalidate(k)
	}

	if err != nil {
		m.transition(StateError, func() { m.err = err })
		var zero Out
		return zero, err
	}
	m.transition(StateSuccess, func() { m.data = out })
	return out, nil
}

func (m *Mutation[In, Out]) transition(s State, set func()) {
	m.mu.Lock()
	m.state = s
	set()
	subs := append([]func(State){}, m.subs...)
	m.mu.Unlock()
	for _, fn := range subs {
		fn(s)
	}
}

func (m *Mutation[In, Out]) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// Data is the result of the last successful call.
func (m *Mutation[In, Out]) Data() Out {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.data
}

func (m *Mutation[In, Out]) Err() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.err
}

// Reset returns the mutation to idle.
func (m *Mutation[In, Out]) Reset() {
	m.transition(StateIdle, func() {
		var zero Out
		m.data, m.err = zero, nil
	})
}

// OnChange calls fn on every state transition.
func (m *Mutation[In, Out]) OnChange(fn func(State)) {
	m.mu.Lock()
	m.subs = append(m.subs, fn)
	m.mu.Unlock()
}
