package core

import (
	"sync"
)

// SessionStore is the single owner of session state. All mutation goes
// through the transition methods; each one replaces the whole snapshot under
// the store lock.
//
// The generation counter advances on Start and Invalidate. Transitions that
// carry a generation apply only while it is still current, so an async
// caller that settles late cannot overwrite a newer outcome.
type SessionStore struct {
	mu         sync.RWMutex
	state      SessionState
	generation uint64

	// notifyMu orders deliveries; listenersMu guards the listener set only.
	notifyMu    sync.Mutex
	listenersMu sync.Mutex
	listeners   map[uint64]func(SessionState)
	nextID      uint64

	logger Logger
}

func NewSessionStore(logger Logger) *SessionStore {
	return &SessionStore{
		state:     SessionState{Loading: true},
		listeners: map[uint64]func(SessionState){},
		logger:    logger,
	}
}

// Snapshot returns a copy of the current state.
func (s *SessionStore) Snapshot() SessionState {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state.clone()
}

func (s *SessionStore) Generation() uint64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.generation
}

// Token returns the stored bearer token, empty when unauthenticated.
func (s *SessionStore) Token() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state.Token
}

// Start marks a login or initialization attempt in progress and opens a new generation.
func (s *SessionStore) Start() uint64 {
	var gen uint64
	s.transition(func(state *SessionState) bool {
		s.generation++
		gen = s.generation
		state.Loading = true
		state.Error = ""
		return true
	})
	return gen
}

// Success records an authenticated session for gen.
func (s *SessionStore) Success(gen uint64, token string) bool {
	user := s.decode(token)
	return s.transitionFor(gen, func(state *SessionState) {
		*state = SessionState{
			IsAuthenticated: true,
			Token:           token,
			User:            user,
		}
	})
}

// Failure records an unauthenticated session for gen. An empty reason means no error.
func (s *SessionStore) Failure(gen uint64, reason string) bool {
	return s.transitionFor(gen, func(state *SessionState) {
		*state = SessionState{Error: reason}
	})
}

// TokenUpdated swaps the token after a refresh without touching the
// authentication or loading flags. It only applies to an authenticated
// session of generation gen.
func (s *SessionStore) TokenUpdated(gen uint64, token string) bool {
	user := s.decode(token)
	return s.transition(func(state *SessionState) bool {
		if gen != s.generation || !state.IsAuthenticated {
			return false
		}
		state.Token = token
		state.User = user
		return true
	})
}

// Invalidate resets to an unauthenticated session and opens a new
// generation, discarding any pending async outcome.
func (s *SessionStore) Invalidate() uint64 {
	var gen uint64
	s.transition(func(state *SessionState) bool {
		s.generation++
		gen = s.generation
		*state = SessionState{}
		return true
	})
	return gen
}

// Subscribe registers fn to receive every snapshot produced by a transition.
// Listeners run synchronously in transition order and must not call
// transition methods themselves. Subscribing or unsubscribing from inside a
// listener is allowed and takes effect from the next transition.
func (s *SessionStore) Subscribe(fn func(SessionState)) func() {
	if fn == nil {
		return func() {}
	}
	s.listenersMu.Lock()
	s.nextID++
	id := s.nextID
	s.listeners[id] = fn
	s.listenersMu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			s.listenersMu.Lock()
			delete(s.listeners, id)
			s.listenersMu.Unlock()
		})
	}
}

func (s *SessionStore) transitionFor(gen uint64, mutate func(*SessionState)) bool {
	return s.transition(func(state *SessionState) bool {
		if gen != s.generation {
			return false
		}
		mutate(state)
		return true
	})
}

func (s *SessionStore) transition(mutate func(*SessionState) bool) bool {
	s.notifyMu.Lock()
	defer s.notifyMu.Unlock()

	s.mu.Lock()
	next := s.state
	applied := mutate(&next)
	if applied {
		s.state = next
	}
	snapshot := s.state.clone()
	s.mu.Unlock()

	if !applied {
		return false
	}
	for _, listener := range s.subscribers() {
		listener(snapshot)
	}
	return true
}

func (s *SessionStore) subscribers() []func(SessionState) {
	s.listenersMu.Lock()
	defer s.listenersMu.Unlock()
	out := make([]func(SessionState), 0, len(s.listeners))
	for _, listener := range s.listeners {
		out = append(out, listener)
	}
	return out
}

func (s *SessionStore) decode(token string) UserClaims {
	if token == "" {
		return nil
	}
	claims, err := ParseClaims(token)
	if err != nil {
		if s.logger != nil {
			s.logger.Warn("session token claims could not be decoded",
				"error", err.Error(),
				"text_code", SessionErrorDecodeFailed,
			)
		}
		return nil
	}
	return claims
}
