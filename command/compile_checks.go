package command

import (
	"github.com/goliatone/go-authsession/core"
	gocmd "github.com/goliatone/go-command"
)

var (
	_ gocmd.Commander[InitializeMessage]   = (*InitializeCommand)(nil)
	_ gocmd.Commander[LoginMessage]        = (*LoginCommand)(nil)
	_ gocmd.Commander[LogoutMessage]       = (*LogoutCommand)(nil)
	_ gocmd.Commander[RegisterMessage]     = (*RegisterCommand)(nil)
	_ gocmd.Commander[RefreshTokenMessage] = (*RefreshTokenCommand)(nil)

	_ SessionService = (*core.Service)(nil)
)
