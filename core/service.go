package core

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	goerrors "github.com/goliatone/go-errors"
	glog "github.com/goliatone/go-logger/glog"
)

// Service composes the session store with the initialization guard, the
// refresh scheduler and the request authorizer around one identity client.
type Service struct {
	config          Config
	client          IdentityClient
	logger          Logger
	loggerProvider  LoggerProvider
	metricsRecorder MetricsRecorder
	errorMapper     ErrorMapper
	clock           Clock
	observer        observer

	store      *SessionStore
	guard      *InitializationGuard
	scheduler  *TokenRefreshScheduler
	authorizer *RequestAuthorizer

	ctx    context.Context
	cancel context.CancelFunc
}

func NewService(cfg Config, opts ...Option) (*Service, error) {
	builder := defaultServiceBuilder(cfg)
	for _, opt := range opts {
		if opt == nil {
			continue
		}
		opt(&builder)
	}

	provider, logger := glog.Resolve(defaultLoggerName, builder.loggerProvider, builder.logger)
	logger = glog.Ensure(logger)
	if provider != nil {
		if named := provider.GetLogger(defaultLoggerName); named != nil {
			logger = glog.Ensure(named)
		}
	}

	if builder.metricsRecorder == nil {
		builder.metricsRecorder = NopMetricsRecorder{}
	}
	if builder.errorMapper == nil {
		builder.errorMapper = defaultErrorMapper
	}
	if builder.configProvider == nil {
		builder.configProvider = NewCfgxConfigProvider(nil)
	}
	if builder.optionsResolver == nil {
		builder.optionsResolver = GoOptionsResolver{}
	}
	if builder.clock == nil {
		builder.clock = SystemClock()
	}
	if builder.identityClient == nil {
		return nil, mapBuildError(builder.errorMapper, ErrIdentityClientMissing)
	}

	defaults := DefaultConfig()
	loaded, err := builder.configProvider.Load(context.Background(), defaults)
	if err != nil {
		return nil, mapBuildError(builder.errorMapper, err)
	}
	finalConfig, err := builder.optionsResolver.Resolve(defaults, loaded, builder.runtimeConfig)
	if err != nil {
		return nil, mapBuildError(builder.errorMapper, err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	store := NewSessionStore(logger)
	scheduler, err := NewTokenRefreshScheduler(RefreshSchedulerConfig{
		Store:           store,
		Client:          builder.identityClient,
		MinValidity:     finalConfig.MinValidity,
		Context:         ctx,
		Logger:          logger,
		MetricsRecorder: builder.metricsRecorder,
	})
	if err != nil {
		cancel()
		return nil, mapBuildError(builder.errorMapper, err)
	}
	guard, err := NewInitializationGuard(InitializationGuardConfig{
		Store:           store,
		Client:          builder.identityClient,
		Scheduler:       scheduler,
		Timeout:         finalConfig.InitTimeout,
		Options:         finalConfig.InitOptions(),
		Clock:           builder.clock,
		Logger:          logger,
		MetricsRecorder: builder.metricsRecorder,
	})
	if err != nil {
		cancel()
		return nil, mapBuildError(builder.errorMapper, err)
	}

	return &Service{
		config:          finalConfig,
		client:          builder.identityClient,
		logger:          logger,
		loggerProvider:  provider,
		metricsRecorder: builder.metricsRecorder,
		errorMapper:     builder.errorMapper,
		clock:           builder.clock,
		observer:        observer{logger: logger, metricsRecorder: builder.metricsRecorder},
		store:           store,
		guard:           guard,
		scheduler:       scheduler,
		authorizer:      NewRequestAuthorizer(store, builder.identityClient),
		ctx:             ctx,
		cancel:          cancel,
	}, nil
}

func mapBuildError(mapper ErrorMapper, err error) error {
	if err == nil {
		return nil
	}
	if mapper == nil {
		return err
	}
	if mapped := mapper(err); mapped != nil {
		return mapped
	}
	return err
}

func (s *Service) Config() Config {
	if s == nil {
		return Config{}
	}
	return s.config
}

func (s *Service) Logger() Logger {
	if s == nil {
		return glog.Nop()
	}
	return s.logger
}

func (s *Service) Store() *SessionStore {
	if s == nil {
		return nil
	}
	return s.store
}

func (s *Service) Scheduler() *TokenRefreshScheduler {
	if s == nil {
		return nil
	}
	return s.scheduler
}

func (s *Service) Authorizer() *RequestAuthorizer {
	if s == nil {
		return nil
	}
	return s.authorizer
}

// State returns the current session snapshot.
func (s *Service) State() SessionState {
	if s == nil {
		return SessionState{}
	}
	return s.store.Snapshot()
}

func (s *Service) Subscribe(fn func(SessionState)) func() {
	if s == nil {
		return func() {}
	}
	return s.store.Subscribe(fn)
}

// HTTPClient returns a copy of base that authorizes every outbound request.
func (s *Service) HTTPClient(base *http.Client) *http.Client {
	if s == nil {
		return base
	}
	return s.authorizer.Client(base)
}

// Initialize runs the guarded startup probe.
func (s *Service) Initialize(ctx context.Context) InitResult {
	if s == nil {
		return InitResult{Outcome: InitOutcomeProbeFailed, Err: fmt.Errorf("core: service is nil")}
	}
	return s.guard.Run(ctx)
}

// Login starts an interactive login. A token present once the identity
// client returns yields an authenticated session; anything else settles
// unauthenticated so the session never stays loading.
func (s *Service) Login(ctx context.Context) (err error) {
	if s == nil {
		return fmt.Errorf("core: service is nil")
	}
	startedAt := time.Now()
	gen := s.store.Start()
	fields := map[string]any{"generation": gen}
	defer func() {
		s.observer.observeOperation(ctx, startedAt, "login", err, fields)
	}()

	if loginErr := s.client.Login(ctx); loginErr != nil {
		s.store.Failure(gen, loginErr.Error())
		fields["outcome"] = "failed"
		return s.mapError(loginErr)
	}
	token := s.client.Token()
	if token == "" {
		s.store.Failure(gen, "")
		fields["outcome"] = "pending_redirect"
		return nil
	}
	if !s.store.Success(gen, token) {
		fields["outcome"] = string(InitOutcomeSuperseded)
		return nil
	}
	s.scheduler.Arm(gen)
	fields["outcome"] = string(InitOutcomeAuthenticated)
	return nil
}

// Logout resets the session before calling the provider so that any
// in-flight probe or refresh settles against a stale generation.
func (s *Service) Logout(ctx context.Context) (err error) {
	if s == nil {
		return fmt.Errorf("core: service is nil")
	}
	startedAt := time.Now()
	gen := s.store.Invalidate()
	s.scheduler.Disarm()
	fields := map[string]any{"generation": gen}
	defer func() {
		s.observer.observeOperation(ctx, startedAt, "logout", err, fields)
	}()

	if logoutErr := s.client.Logout(ctx); logoutErr != nil {
		return s.mapError(logoutErr)
	}
	return nil
}

// Register starts provider-side self registration when the client supports it.
func (s *Service) Register(ctx context.Context) (err error) {
	if s == nil {
		return fmt.Errorf("core: service is nil")
	}
	startedAt := time.Now()
	defer func() {
		s.observer.observeOperation(ctx, startedAt, "register", err, nil)
	}()

	registrar, ok := s.client.(Registrar)
	if !ok {
		return s.mapError(ErrRegisterUnsupported)
	}
	if registerErr := registrar.Register(ctx); registerErr != nil {
		return s.mapError(registerErr)
	}
	return nil
}

// AccessToken returns a token valid for at least the configured minimum
// validity, refreshing first when needed. Unlike the expiry-driven refresh,
// failures are returned to the caller and do not reset the session.
func (s *Service) AccessToken(ctx context.Context) (string, error) {
	if s == nil {
		return "", fmt.Errorf("core: service is nil")
	}
	return s.RefreshToken(ctx, s.config.MinValidity)
}

// RefreshToken refreshes when the token expires within minValidity. A
// negative minValidity forces a refresh.
func (s *Service) RefreshToken(ctx context.Context, minValidity time.Duration) (token string, err error) {
	if s == nil {
		return "", fmt.Errorf("core: service is nil")
	}
	startedAt := time.Now()
	gen := s.store.Generation()
	fields := map[string]any{"generation": gen, "min_validity": minValidity.String()}
	defer func() {
		s.observer.observeOperation(ctx, startedAt, "access_token", err, fields)
	}()

	refreshed, updateErr := s.client.UpdateToken(ctx, minValidity)
	if updateErr != nil {
		return "", s.mapError(fmt.Errorf("%w: %w", ErrRefreshFailure, updateErr))
	}
	token = s.client.Token()
	if refreshed {
		s.store.TokenUpdated(gen, token)
	}
	fields["refreshed"] = refreshed
	return token, nil
}

// Close detaches the refresh subscription and cancels background work.
func (s *Service) Close() error {
	if s == nil {
		return nil
	}
	s.scheduler.Disarm()
	if s.cancel != nil {
		s.cancel()
	}
	return nil
}

func (s *Service) mapError(err error) error {
	if err == nil {
		return nil
	}
	if s == nil || s.errorMapper == nil {
		return err
	}
	if mapped := s.errorMapper(err); mapped != nil {
		return mapped
	}
	return err
}

// IsRefreshFailure reports whether err came from a failed token refresh.
func IsRefreshFailure(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, ErrRefreshFailure) {
		return true
	}
	var richErr *goerrors.Error
	if goerrors.As(err, &richErr) {
		return richErr.TextCode == SessionErrorRefreshFailed
	}
	return false
}
