package query

import "github.com/goliatone/go-authsession/core"

const (
	TypeSessionState = "authsession.query.session_state"
	TypeAccessToken  = "authsession.query.access_token"
	TypeResolveToken = "authsession.query.resolve_token"
)

type SessionStateMessage struct{}

func (SessionStateMessage) Type() string { return TypeSessionState }

type AccessTokenMessage struct{}

func (AccessTokenMessage) Type() string { return TypeAccessToken }

type ResolveTokenMessage struct{}

func (ResolveTokenMessage) Type() string { return TypeResolveToken }

// ResolvedToken is the bearer token the next outbound request would carry.
type ResolvedToken struct {
	Token  string
	Source core.TokenSource
}
