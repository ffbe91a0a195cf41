// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package auth

import (
	"context"
	"log/slog"
	"sync"

	"github.com/anubhavitis/peeksy/internal/logging"
)

// =============================================================================
// STATE
// =============================================================================

// State is a snapshot of the session. A nil Identity means signed out.
type State struct {
	Identity *Identity
	Loading  bool
}

// SignedIn reports whether an identity is present.
func (s State) SignedIn() bool {
	return s.Identity != nil
}

func (s State) equal(o State) bool {
	if s.Loading != o.Loading {
		return false
	}
	if s.Identity == nil || o.Identity == nil {
		return s.Identity == nil && o.Identity == nil
	}
	return *s.Identity == *o.Identity
}

func (s State) clone() State {
	if s.Identity != nil {
		id := *s.Identity
		s.Identity = &id
	}
	return s
}

// Listener receives state changes.
type Listener func(State)

type listenerEntry struct {
	id int
	fn Listener
}

// =============================================================================
// STORE
// =============================================================================

// Store tracks the current identity and whether an auth call is running.
type Store struct {
	provider Provider
	logger   *slog.Logger

	mu         sync.Mutex
	state      State
	inflight   int
	mutating   bool
	resolved   bool
	superseded bool
	closed     bool

	listeners []listenerEntry
	nextID    int

	// queue holds states not yet delivered; draining marks an active deliverer.
	queue      []State
	lastQueued State
	draining   bool

	startOnce     sync.Once
	unsubProvider func()
}

// Option configures a Store.
type Option func(*Store)

// WithLogger sets the logger used for swallowed failures.
func WithLogger(l *slog.Logger) Option {
	return func(s *Store) {
		if l != nil {
			s.logger = l
		}
	}
}

// NewStore creates a store in the Loading state. Call Start to resolve it.
func NewStore(p Provider, opts ...Option) *Store {
	s := &Store{
		provider: p,
		logger:   logging.Discard(),
		state:    State{Loading: true},
		inflight: 1,
	}
	s.lastQueued = s.state
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Start registers the provider listener and launches the initial session
// lookup. Only the first call has any effect.
func (s *Store) Start(ctx context.Context) {
	s.startOnce.Do(func() {
		unsub := s.provider.Subscribe(s.handleEvent)
		s.mu.Lock()
		if s.closed {
			s.mu.Unlock()
			unsub()
			return
		}
		s.unsubProvider = unsub
		s.mu.Unlock()

		go s.resolveInitial(ctx)
	})
}

func (s *Store) resolveInitial(ctx context.Context) {
	id, err := s.lookup(ctx)
	if err != nil {
		s.logger.Error("initial session lookup failed", "err", err)
	}

	s.mu.Lock()
	if s.closed || s.resolved {
		s.mu.Unlock()
		return
	}
	s.resolved = true
	s.inflight--
	// Events and completed mutations are newer than whatever the lookup read.
	if !s.superseded && err == nil {
		s.state.Identity = id
	}
	s.commitLocked()
	s.mu.Unlock()
	s.drain()
}

func (s *Store) lookup(ctx context.Context) (id *Identity, err error) {
	defer func() {
		if r := recover(); r != nil {
			id, err = nil, recovered(r)
		}
	}()
	return s.provider.CurrentSession(ctx)
}

// State returns the current snapshot.
func (s *Store) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.clone()
}

// Subscribe adds fn to the listeners. The returned func removes it and is
// safe to call more than once.
func (s *Store) Subscribe(fn Listener) (unsubscribe func()) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return func() {}
	}
	s.nextID++
	id := s.nextID
	s.listeners = append(s.listeners, listenerEntry{id: id, fn: fn})

	return func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		for i, l := range s.listeners {
			if l.id == id {
				s.listeners = append(s.listeners[:i:i], s.listeners[i+1:]...)
				return
			}
		}
	}
}

// Close detaches from the provider and drops all listeners.
func (s *Store) Close() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	s.listeners = nil
	s.queue = nil
	unsub := s.unsubProvider
	s.unsubProvider = nil
	s.mu.Unlock()

	if unsub != nil {
		unsub()
	}
}

// =============================================================================
// MUTATIONS
// =============================================================================

// SignIn authenticates with email and password.
func (s *Store) SignIn(ctx context.Context, email, password string) (Identity, error) {
	return s.authenticate(ctx, func(ctx context.Context) (Identity, error) {
		return s.provider.SignIn(ctx, email, password)
	})
}

// SignUp registers a new account and signs it in.
func (s *Store) SignUp(ctx context.Context, email, password string) (Identity, error) {
	return s.authenticate(ctx, func(ctx context.Context) (Identity, error) {
		return s.provider.SignUp(ctx, email, password)
	})
}

func (s *Store) authenticate(ctx context.Context, call func(context.Context) (Identity, error)) (id Identity, err error) {
	if err := s.begin(); err != nil {
		return Identity{}, err
	}
	defer func() {
		if r := recover(); r != nil {
			id, err = Identity{}, recovered(r)
		}
		s.end(func(st *State) {
			if err == nil {
				got := id
				st.Identity = &got
				s.superseded = true
			}
		})
	}()
	return call(ctx)
}

// SignOut ends the session. On failure the identity is kept and the error
// is logged and returned.
func (s *Store) SignOut(ctx context.Context) (err error) {
	if err := s.begin(); err != nil {
		return err
	}
	defer func() {
		if r := recover(); r != nil {
			err = recovered(r)
		}
		if err != nil {
			s.logger.Error("sign out failed", "err", err)
		}
		s.end(func(st *State) {
			if err == nil {
				st.Identity = nil
				s.superseded = true
			}
		})
	}()
	return s.provider.SignOut(ctx)
}

func (s *Store) begin() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return ErrClosed
	}
	if s.mutating {
		s.mu.Unlock()
		return ErrOperationInFlight
	}
	s.mutating = true
	s.inflight++
	s.commitLocked()
	s.mu.Unlock()
	s.drain()
	return nil
}

func (s *Store) end(apply func(*State)) {
	s.mu.Lock()
	s.mutating = false
	s.inflight--
	if !s.closed {
		apply(&s.state)
	}
	s.commitLocked()
	s.mu.Unlock()
	s.drain()
}

// =============================================================================
// PROVIDER EVENTS
// =============================================================================

func (s *Store) handleEvent(ev Event) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.superseded = true
	switch ev.Kind {
	case EventSignedIn, EventUserUpdated:
		if ev.Identity != nil {
			id := *ev.Identity
			s.state.Identity = &id
		}
	case EventSignedOut, EventSessionExpired:
		s.state.Identity = nil
	}
	s.logger.Debug("auth event", "event", ev.Kind.String())
	s.commitLocked()
	s.mu.Unlock()
	s.drain()
}

// =============================================================================
// NOTIFICATION
// =============================================================================

// commitLocked recomputes Loading and queues the state if it changed.
func (s *Store) commitLocked() {
	s.state.Loading = s.inflight > 0
	if s.closed || s.state.equal(s.lastQueued) {
		return
	}
	snap := s.state.clone()
	s.queue = append(s.queue, snap)
	s.lastQueued = snap
}

// drain delivers queued states in order. A call made while another drain is
// running (including from inside a listener) leaves delivery to that one.
func (s *Store) drain() {
	s.mu.Lock()
	if s.draining {
		s.mu.Unlock()
		return
	}
	s.draining = true
	for len(s.queue) > 0 {
		st := s.queue[0]
		s.queue = s.queue[1:]
		listeners := make([]listenerEntry, len(s.listeners))
		copy(listeners, s.listeners)
		s.mu.Unlock()

		for _, l := range listeners {
			l.fn(st.clone())
		}

		s.mu.Lock()
	}
	s.draining = false
	s.mu.Unlock()
}
