package core

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
)

// RefreshArmer is the part of the refresh scheduler the guard needs.
type RefreshArmer interface {
	Arm(gen uint64) bool
}

type InitializationGuardConfig struct {
	Store           *SessionStore
	Client          IdentityClient
	Scheduler       RefreshArmer
	Timeout         time.Duration
	Options         InitOptions
	Clock           Clock
	Logger          Logger
	MetricsRecorder MetricsRecorder
}

// InitializationGuard bounds the startup authentication probe so the session
// never stays loading. The probe and a timer race; the first to settle
// decides the outcome and anything settling later is discarded.
type InitializationGuard struct {
	store     *SessionStore
	client    IdentityClient
	scheduler RefreshArmer
	timeout   time.Duration
	options   InitOptions
	clock     Clock
	observer  observer
}

func NewInitializationGuard(cfg InitializationGuardConfig) (*InitializationGuard, error) {
	if cfg.Store == nil {
		return nil, fmt.Errorf("core: initialization guard session store is required")
	}
	if cfg.Client == nil {
		return nil, ErrIdentityClientMissing
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = DefaultInitTimeout
	}
	clock := cfg.Clock
	if clock == nil {
		clock = SystemClock()
	}
	options := cfg.Options
	if options.OnLoad == "" {
		options.OnLoad = OnLoadCheckSSO
	}
	return &InitializationGuard{
		store:     cfg.Store,
		client:    cfg.Client,
		scheduler: cfg.Scheduler,
		timeout:   timeout,
		options:   options,
		clock:     clock,
		observer:  observer{logger: cfg.Logger, metricsRecorder: cfg.MetricsRecorder},
	}, nil
}

type probeResult struct {
	authenticated bool
	err           error
}

// Run performs one initialization attempt and blocks until it settles. The
// returned state is always terminal (not loading) unless a newer attempt
// has already started.
func (g *InitializationGuard) Run(ctx context.Context) InitResult {
	if ctx == nil {
		ctx = context.Background()
	}
	startedAt := time.Now()
	gen := g.store.Start()
	attemptID := uuid.NewString()

	done := make(chan InitResult, 1)
	var once sync.Once
	settle := func(resolve func() InitResult) bool {
		won := false
		once.Do(func() {
			won = true
			done <- resolve()
		})
		return won
	}

	timer := g.clock.AfterFunc(g.timeout, func() {
		settle(func() InitResult {
			return g.applyTimeout(attemptID, gen)
		})
	})

	go func() {
		authenticated, err := g.client.Init(ctx, g.options)
		won := settle(func() InitResult {
			timer.Stop()
			return g.applyProbe(attemptID, gen, probeResult{authenticated: authenticated, err: err})
		})
		if !won {
			fields := map[string]any{
				"attempt_id":    attemptID,
				"generation":    gen,
				"authenticated": authenticated,
			}
			if err != nil {
				fields["probe_error"] = err.Error()
			}
			g.observer.logWarn(ctx, "late initialization probe result discarded", fields)
		}
	}()

	var result InitResult
	select {
	case result = <-done:
	case <-ctx.Done():
		settle(func() InitResult {
			timer.Stop()
			return g.applyProbe(attemptID, gen, probeResult{err: ctx.Err()})
		})
		result = <-done
	}

	fields := map[string]any{
		"attempt_id": attemptID,
		"generation": gen,
		"outcome":    string(result.Outcome),
	}
	g.observer.observeOperation(ctx, startedAt, "initialize", result.Err, fields)
	return result
}

func (g *InitializationGuard) applyTimeout(attemptID string, gen uint64) InitResult {
	result := InitResult{
		AttemptID:  attemptID,
		Generation: gen,
		Outcome:    InitOutcomeTimedOut,
		Err:        fmt.Errorf("%w after %s", ErrInitializationTimeout, g.timeout),
	}
	if !g.store.Failure(gen, "") {
		result.Outcome = InitOutcomeSuperseded
	}
	result.State = g.store.Snapshot()
	return result
}

func (g *InitializationGuard) applyProbe(attemptID string, gen uint64, probe probeResult) InitResult {
	result := InitResult{
		AttemptID:  attemptID,
		Generation: gen,
	}

	var applied bool
	switch {
	case probe.err != nil:
		result.Outcome = InitOutcomeProbeFailed
		result.Err = fmt.Errorf("%w: %v", ErrProbeFailure, probe.err)
		applied = g.store.Failure(gen, probe.err.Error())
	case probe.authenticated:
		token := g.client.Token()
		if token == "" {
			result.Outcome = InitOutcomeProbeFailed
			result.Err = fmt.Errorf("%w: authenticated without a token", ErrProbeFailure)
			applied = g.store.Failure(gen, "identity provider returned no token")
			break
		}
		result.Outcome = InitOutcomeAuthenticated
		applied = g.store.Success(gen, token)
		if applied && g.scheduler != nil {
			g.scheduler.Arm(gen)
		}
	default:
		result.Outcome = InitOutcomeUnauthenticated
		applied = g.store.Failure(gen, "")
	}

	if !applied {
		result.Outcome = InitOutcomeSuperseded
	}
	result.State = g.store.Snapshot()
	return result
}
