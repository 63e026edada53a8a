package gocommand

import (
	"context"
	"fmt"
	"strings"

	"github.com/goliatone/go-authsession/command"
	"github.com/goliatone/go-authsession/core"
	"github.com/goliatone/go-authsession/query"
	gocmd "github.com/goliatone/go-command"
	commanddispatcher "github.com/goliatone/go-command/dispatcher"
	"github.com/goliatone/go-command/runner"
)

// ValidateMessageContract enforces Type() plus optional Validate() contract.
func ValidateMessageContract(msg any) error {
	if err := gocmd.ValidateMessage(msg); err != nil {
		return err
	}
	m, ok := msg.(gocmd.Message)
	if !ok {
		return fmt.Errorf("gocommand: message must implement Type() string")
	}
	if strings.TrimSpace(m.Type()) == "" {
		return fmt.Errorf("gocommand: message type is required")
	}
	return nil
}

type RegistryAdapter struct {
	registry *gocmd.Registry
}

func NewRegistryAdapter(registry *gocmd.Registry) *RegistryAdapter {
	if registry == nil {
		registry = gocmd.NewRegistry()
	}
	return &RegistryAdapter{registry: registry}
}

func (a *RegistryAdapter) Registry() *gocmd.Registry {
	if a == nil {
		return nil
	}
	return a.registry
}

func (a *RegistryAdapter) RegisterCommand(cmd any) error {
	if a == nil || a.registry == nil {
		return fmt.Errorf("gocommand: registry is not configured")
	}
	return a.registry.RegisterCommand(cmd)
}

func (a *RegistryAdapter) RegisterQuery(qry any) error {
	if a == nil || a.registry == nil {
		return fmt.Errorf("gocommand: registry is not configured")
	}
	return a.registry.RegisterCommand(qry)
}

func (a *RegistryAdapter) AddResolver(key string, resolver gocmd.Resolver) error {
	if a == nil || a.registry == nil {
		return fmt.Errorf("gocommand: registry is not configured")
	}
	return a.registry.AddResolver(strings.TrimSpace(key), resolver)
}

func (a *RegistryAdapter) HasResolver(key string) bool {
	if a == nil || a.registry == nil {
		return false
	}
	return a.registry.HasResolver(strings.TrimSpace(key))
}

func (a *RegistryAdapter) Initialize() error {
	if a == nil || a.registry == nil {
		return fmt.Errorf("gocommand: registry is not configured")
	}
	return a.registry.Initialize()
}

func SubscribeCommand[T any](cmd gocmd.Commander[T], runnerOpts ...runner.Option) commanddispatcher.Subscription {
	return commanddispatcher.SubscribeCommand(cmd, runnerOpts...)
}

func SubscribeQuery[T any, R any](qry gocmd.Querier[T, R], runnerOpts ...runner.Option) commanddispatcher.Subscription {
	return commanddispatcher.SubscribeQuery(qry, runnerOpts...)
}

func Dispatch[T any](ctx context.Context, msg T) error {
	return commanddispatcher.Dispatch(ctx, msg)
}

func Query[T any, R any](ctx context.Context, msg T) (R, error) {
	return commanddispatcher.Query[T, R](ctx, msg)
}

func RegisterAndSubscribe[T any](
	adapter *RegistryAdapter,
	cmd gocmd.Commander[T],
	runnerOpts ...runner.Option,
) (commanddispatcher.Subscription, error) {
	if adapter == nil || adapter.registry == nil {
		return nil, fmt.Errorf("gocommand: registry is not configured")
	}
	if cmd == nil {
		return nil, fmt.Errorf("gocommand: command is required")
	}
	subscription := SubscribeCommand(cmd, runnerOpts...)
	if err := adapter.RegisterCommand(cmd); err != nil {
		if subscription != nil {
			subscription.Unsubscribe()
		}
		return nil, err
	}
	return subscription, nil
}

func RegisterAndSubscribeQuery[T any, R any](
	adapter *RegistryAdapter,
	qry gocmd.Querier[T, R],
	runnerOpts ...runner.Option,
) (commanddispatcher.Subscription, error) {
	if adapter == nil || adapter.registry == nil {
		return nil, fmt.Errorf("gocommand: registry is not configured")
	}
	if qry == nil {
		return nil, fmt.Errorf("gocommand: query is required")
	}
	subscription := SubscribeQuery(qry, runnerOpts...)
	if err := adapter.RegisterQuery(qry); err != nil {
		if subscription != nil {
			subscription.Unsubscribe()
		}
		return nil, err
	}
	return subscription, nil
}

// Subscriptions groups dispatcher subscriptions so they can be released together.
type Subscriptions []commanddispatcher.Subscription

func (s Subscriptions) Unsubscribe() {
	for _, subscription := range s {
		if subscription != nil {
			subscription.Unsubscribe()
		}
	}
}

// RegisterSession registers every session command and query for svc with
// the registry and subscribes them to the global dispatcher.
func RegisterSession(adapter *RegistryAdapter, svc *core.Service, runnerOpts ...runner.Option) (Subscriptions, error) {
	if svc == nil {
		return nil, fmt.Errorf("gocommand: session service is required")
	}
	var subs Subscriptions
	register := func(sub commanddispatcher.Subscription, err error) error {
		if err != nil {
			subs.Unsubscribe()
			return err
		}
		subs = append(subs, sub)
		return nil
	}

	steps := []func() error{
		func() error {
			return register(RegisterAndSubscribe[command.InitializeMessage](adapter, command.NewInitializeCommand(svc), runnerOpts...))
		},
		func() error {
			return register(RegisterAndSubscribe[command.LoginMessage](adapter, command.NewLoginCommand(svc), runnerOpts...))
		},
		func() error {
			return register(RegisterAndSubscribe[command.LogoutMessage](adapter, command.NewLogoutCommand(svc), runnerOpts...))
		},
		func() error {
			return register(RegisterAndSubscribe[command.RegisterMessage](adapter, command.NewRegisterCommand(svc), runnerOpts...))
		},
		func() error {
			return register(RegisterAndSubscribe[command.RefreshTokenMessage](adapter, command.NewRefreshTokenCommand(svc), runnerOpts...))
		},
		func() error {
			return register(RegisterAndSubscribeQuery[query.SessionStateMessage, core.SessionState](adapter, query.NewSessionStateQuery(svc), runnerOpts...))
		},
		func() error {
			return register(RegisterAndSubscribeQuery[query.AccessTokenMessage, string](adapter, query.NewAccessTokenQuery(svc), runnerOpts...))
		},
		func() error {
			return register(RegisterAndSubscribeQuery[query.ResolveTokenMessage, query.ResolvedToken](adapter, query.NewResolveTokenQuery(svc.Authorizer()), runnerOpts...))
		},
	}
	for _, step := range steps {
		if err := step(); err != nil {
			return nil, err
		}
	}
	return subs, nil
}
