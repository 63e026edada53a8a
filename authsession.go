package authsession

import (
	"fmt"

	"github.com/goliatone/go-authsession/core"
	"github.com/goliatone/go-authsession/identity"
)

type Config = core.Config

type InitConfig = core.InitConfig

type Option = core.Option

type Service = core.Service

type SessionState = core.SessionState
type UserClaims = core.UserClaims
type InitResult = core.InitResult
type InitOutcome = core.InitOutcome
type IdentityClient = core.IdentityClient
type RequestAuthorizer = core.RequestAuthorizer
type TokenSource = core.TokenSource

type IdentityConfig = identity.Config

var (
	WithIdentityClient  = core.WithIdentityClient
	WithLogger          = core.WithLogger
	WithLoggerProvider  = core.WithLoggerProvider
	WithMetricsRecorder = core.WithMetricsRecorder
	WithErrorMapper     = core.WithErrorMapper
	WithConfigProvider  = core.WithConfigProvider
	WithOptionsResolver = core.WithOptionsResolver
	WithClock           = core.WithClock
)

func DefaultConfig() Config {
	return core.DefaultConfig()
}

func NewService(cfg Config, opts ...Option) (*Service, error) {
	return core.NewService(cfg, opts...)
}

// Setup builds an oauth2 identity client from idCfg and composes a session
// service around it. An explicit WithIdentityClient option still wins.
func Setup(cfg Config, idCfg IdentityConfig, opts ...Option) (*Service, *identity.Client, error) {
	client, err := identity.NewClient(idCfg)
	if err != nil {
		return nil, nil, fmt.Errorf("authsession: identity client: %w", err)
	}
	all := append([]Option{core.WithIdentityClient(client)}, opts...)
	svc, err := core.NewService(cfg, all...)
	if err != nil {
		return nil, nil, err
	}
	return svc, client, nil
}
