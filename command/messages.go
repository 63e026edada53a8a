package command

import "time"

const (
	TypeInitialize   = "authsession.command.initialize"
	TypeLogin        = "authsession.command.login"
	TypeLogout       = "authsession.command.logout"
	TypeRegister     = "authsession.command.register"
	TypeRefreshToken = "authsession.command.token.refresh"
)

type InitializeMessage struct{}

func (InitializeMessage) Type() string { return TypeInitialize }

type LoginMessage struct{}

func (LoginMessage) Type() string { return TypeLogin }

type LogoutMessage struct{}

func (LogoutMessage) Type() string { return TypeLogout }

type RegisterMessage struct{}

func (RegisterMessage) Type() string { return TypeRegister }

// RefreshTokenMessage asks for a token valid for at least MinValidity.
// Set Force to refresh regardless of the remaining lifetime.
type RefreshTokenMessage struct {
	MinValidity time.Duration
	Force       bool
}

func (RefreshTokenMessage) Type() string { return TypeRefreshToken }

func (m RefreshTokenMessage) Validate() error {
	if m.MinValidity < 0 {
		return commandValidationError("min_validity", "must not be negative, use force to refresh unconditionally")
	}
	return nil
}

func (m RefreshTokenMessage) minValidity() time.Duration {
	if m.Force {
		return -1
	}
	return m.MinValidity
}
