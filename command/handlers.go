package command

import (
	"context"
	"time"

	"github.com/goliatone/go-authsession/core"
	gocmd "github.com/goliatone/go-command"
)

type SessionService interface {
	Initialize(ctx context.Context) core.InitResult
	Login(ctx context.Context) error
	Logout(ctx context.Context) error
	Register(ctx context.Context) error
	RefreshToken(ctx context.Context, minValidity time.Duration) (string, error)
}

type InitializeCommand struct {
	service SessionService
}

func NewInitializeCommand(service SessionService) *InitializeCommand {
	return &InitializeCommand{service: service}
}

// Execute stores the InitResult. Timeouts and probe failures settle the
// session and are reported through the result, not the returned error.
func (c *InitializeCommand) Execute(ctx context.Context, _ InitializeMessage) error {
	if c == nil || c.service == nil {
		return commandDependencyError("command: initialize service is required")
	}
	storeResult(ctx, c.service.Initialize(ctx))
	return nil
}

type LoginCommand struct {
	service SessionService
}

func NewLoginCommand(service SessionService) *LoginCommand {
	return &LoginCommand{service: service}
}

func (c *LoginCommand) Execute(ctx context.Context, _ LoginMessage) error {
	if c == nil || c.service == nil {
		return commandDependencyError("command: login service is required")
	}
	return c.service.Login(ctx)
}

type LogoutCommand struct {
	service SessionService
}

func NewLogoutCommand(service SessionService) *LogoutCommand {
	return &LogoutCommand{service: service}
}

func (c *LogoutCommand) Execute(ctx context.Context, _ LogoutMessage) error {
	if c == nil || c.service == nil {
		return commandDependencyError("command: logout service is required")
	}
	return c.service.Logout(ctx)
}

type RegisterCommand struct {
	service SessionService
}

func NewRegisterCommand(service SessionService) *RegisterCommand {
	return &RegisterCommand{service: service}
}

func (c *RegisterCommand) Execute(ctx context.Context, _ RegisterMessage) error {
	if c == nil || c.service == nil {
		return commandDependencyError("command: register service is required")
	}
	return c.service.Register(ctx)
}

type RefreshTokenCommand struct {
	service SessionService
}

func NewRefreshTokenCommand(service SessionService) *RefreshTokenCommand {
	return &RefreshTokenCommand{service: service}
}

func (c *RefreshTokenCommand) Execute(ctx context.Context, msg RefreshTokenMessage) error {
	if c == nil || c.service == nil {
		return commandDependencyError("command: refresh token service is required")
	}
	if err := msg.Validate(); err != nil {
		return err
	}
	token, err := c.service.RefreshToken(ctx, msg.minValidity())
	if err != nil {
		return err
	}
	storeResult(ctx, token)
	return nil
}

func storeResult[T any](ctx context.Context, value T) {
	collector := gocmd.ResultFromContext[T](ctx)
	if collector == nil {
		return
	}
	collector.Store(value)
}
