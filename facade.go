package authsession

import (
	"fmt"

	sessioncommand "github.com/goliatone/go-authsession/command"
	"github.com/goliatone/go-authsession/core"
	sessionquery "github.com/goliatone/go-authsession/query"
)

type CommandQueryService interface {
	sessioncommand.SessionService
	sessionquery.SessionStateReader
	sessionquery.AccessTokenReader
}

type Commands struct {
	Initialize   *sessioncommand.InitializeCommand
	Login        *sessioncommand.LoginCommand
	Logout       *sessioncommand.LogoutCommand
	Register     *sessioncommand.RegisterCommand
	RefreshToken *sessioncommand.RefreshTokenCommand
}

type Queries struct {
	SessionState *sessionquery.SessionStateQuery
	AccessToken  *sessionquery.AccessTokenQuery
	ResolveToken *sessionquery.ResolveTokenQuery
}

type Facade struct {
	service  CommandQueryService
	commands Commands
	queries  Queries
}

type FacadeOption func(*facadeOptions)

type facadeOptions struct {
	tokenResolver sessionquery.TokenResolver
}

func WithTokenResolver(resolver sessionquery.TokenResolver) FacadeOption {
	return func(options *facadeOptions) {
		options.tokenResolver = resolver
	}
}

func NewFacade(service CommandQueryService, opts ...FacadeOption) (*Facade, error) {
	if service == nil {
		return nil, fmt.Errorf("authsession: command/query service is required")
	}
	cfg := facadeOptions{}
	for _, opt := range opts {
		if opt == nil {
			continue
		}
		opt(&cfg)
	}

	resolver := cfg.tokenResolver
	if resolver == nil {
		resolver = resolveTokenResolver(service)
	}

	facade := &Facade{service: service}
	facade.commands = Commands{
		Initialize:   sessioncommand.NewInitializeCommand(service),
		Login:        sessioncommand.NewLoginCommand(service),
		Logout:       sessioncommand.NewLogoutCommand(service),
		Register:     sessioncommand.NewRegisterCommand(service),
		RefreshToken: sessioncommand.NewRefreshTokenCommand(service),
	}
	facade.queries = Queries{
		SessionState: sessionquery.NewSessionStateQuery(service),
		AccessToken:  sessionquery.NewAccessTokenQuery(service),
		ResolveToken: sessionquery.NewResolveTokenQuery(resolver),
	}
	return facade, nil
}

func (f *Facade) Commands() Commands {
	if f == nil {
		return Commands{}
	}
	return f.commands
}

func (f *Facade) Queries() Queries {
	if f == nil {
		return Queries{}
	}
	return f.queries
}

func (f *Facade) Service() CommandQueryService {
	if f == nil {
		return nil
	}
	return f.service
}

func resolveTokenResolver(service CommandQueryService) sessionquery.TokenResolver {
	if resolver, ok := service.(sessionquery.TokenResolver); ok {
		return resolver
	}
	provider, ok := service.(interface {
		Authorizer() *core.RequestAuthorizer
	})
	if !ok {
		return nil
	}
	authorizer := provider.Authorizer()
	if authorizer == nil {
		return nil
	}
	return authorizer
}
