package core

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// RefreshSchedulerConfig wires a TokenRefreshScheduler.
type RefreshSchedulerConfig struct {
	Store           *SessionStore
	Client          IdentityClient
	MinValidity     time.Duration
	Context         context.Context
	Logger          Logger
	MetricsRecorder MetricsRecorder
}

// TokenRefreshScheduler keeps an authenticated session fresh by reacting to
// the identity provider's expiry signal. It holds at most one expiry
// subscription; arming replaces the previous one.
type TokenRefreshScheduler struct {
	store       *SessionStore
	client      IdentityClient
	minValidity time.Duration
	ctx         context.Context
	observer    observer

	mu       sync.Mutex
	seq      uint64
	cancel   func()
	armedGen uint64
	armed    bool
}

func NewTokenRefreshScheduler(cfg RefreshSchedulerConfig) (*TokenRefreshScheduler, error) {
	if cfg.Store == nil {
		return nil, fmt.Errorf("core: refresh scheduler session store is required")
	}
	if cfg.Client == nil {
		return nil, ErrIdentityClientMissing
	}
	minValidity := cfg.MinValidity
	if minValidity < 0 {
		minValidity = DefaultMinValidity
	}
	ctx := cfg.Context
	if ctx == nil {
		ctx = context.Background()
	}
	return &TokenRefreshScheduler{
		store:       cfg.Store,
		client:      cfg.Client,
		minValidity: minValidity,
		ctx:         ctx,
		observer:    observer{logger: cfg.Logger, metricsRecorder: cfg.MetricsRecorder},
	}, nil
}

// Arm subscribes to the expiry signal for generation gen. It returns false
// when gen is no longer the current session generation.
func (s *TokenRefreshScheduler) Arm(gen uint64) bool {
	if s == nil {
		return false
	}
	seq := s.detach()
	if s.store.Generation() != gen {
		return false
	}

	// subscribe outside the lock: a client may fire the handler synchronously
	cancel := s.client.OnTokenExpired(s.minValidity, func() {
		s.handleExpiry(gen, seq)
	})
	if cancel == nil {
		cancel = func() {}
	}

	s.mu.Lock()
	if s.seq != seq {
		s.mu.Unlock()
		cancel()
		return false
	}
	s.cancel = cancel
	s.armedGen = gen
	s.armed = true
	s.mu.Unlock()
	return true
}

// Disarm detaches the active expiry subscription, if any.
func (s *TokenRefreshScheduler) Disarm() {
	if s == nil {
		return
	}
	s.detach()
}

func (s *TokenRefreshScheduler) Armed() bool {
	if s == nil {
		return false
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.armed
}

// ArmedGeneration reports the generation the current subscription belongs to.
func (s *TokenRefreshScheduler) ArmedGeneration() (uint64, bool) {
	if s == nil {
		return 0, false
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.armedGen, s.armed
}

func (s *TokenRefreshScheduler) detach() uint64 {
	s.mu.Lock()
	s.seq++
	seq := s.seq
	prev := s.cancel
	s.cancel = nil
	s.armed = false
	s.mu.Unlock()
	if prev != nil {
		prev()
	}
	return seq
}

func (s *TokenRefreshScheduler) current(seq uint64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.seq == seq
}

func (s *TokenRefreshScheduler) handleExpiry(gen uint64, seq uint64) {
	if !s.current(seq) || s.store.Generation() != gen {
		return
	}
	startedAt := time.Now()
	fields := map[string]any{
		"generation":   gen,
		"min_validity": s.minValidity.String(),
	}

	refreshed, err := s.client.UpdateToken(s.ctx, s.minValidity)
	if err != nil {
		refreshErr := fmt.Errorf("%w: %v", ErrRefreshFailure, err)
		if !s.store.Failure(gen, "") {
			fields["outcome"] = "superseded"
			s.observer.observeOperation(s.ctx, startedAt, "refresh_token", nil, fields)
			return
		}
		s.Disarm()
		fields["outcome"] = "failed"
		if logoutErr := s.client.Logout(s.ctx); logoutErr != nil {
			fields["logout_error"] = logoutErr.Error()
		}
		s.observer.observeOperation(s.ctx, startedAt, "refresh_token", refreshErr, fields)
		return
	}

	if refreshed {
		if !s.store.TokenUpdated(gen, s.client.Token()) {
			fields["outcome"] = "superseded"
			s.observer.observeOperation(s.ctx, startedAt, "refresh_token", nil, fields)
			return
		}
		fields["outcome"] = "refreshed"
	} else {
		fields["outcome"] = "still_valid"
	}
	s.Arm(gen)
	s.observer.observeOperation(s.ctx, startedAt, "refresh_token", nil, fields)
}
