package query

import (
	"github.com/goliatone/go-authsession/core"
	gocmd "github.com/goliatone/go-command"
)

var (
	_ gocmd.Querier[SessionStateMessage, core.SessionState] = (*SessionStateQuery)(nil)
	_ gocmd.Querier[AccessTokenMessage, string]             = (*AccessTokenQuery)(nil)
	_ gocmd.Querier[ResolveTokenMessage, ResolvedToken]     = (*ResolveTokenQuery)(nil)

	_ SessionStateReader = (*core.Service)(nil)
	_ AccessTokenReader  = (*core.Service)(nil)
	_ TokenResolver      = (*core.RequestAuthorizer)(nil)
)
