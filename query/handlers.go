package query

import (
	"context"

	"github.com/goliatone/go-authsession/core"
)

type SessionStateReader interface {
	State() core.SessionState
}

type AccessTokenReader interface {
	AccessToken(ctx context.Context) (string, error)
}

type TokenResolver interface {
	ResolveToken() (string, core.TokenSource)
}

type SessionStateQuery struct {
	reader SessionStateReader
}

func NewSessionStateQuery(reader SessionStateReader) *SessionStateQuery {
	return &SessionStateQuery{reader: reader}
}

func (q *SessionStateQuery) Query(_ context.Context, _ SessionStateMessage) (core.SessionState, error) {
	if q == nil || q.reader == nil {
		return core.SessionState{}, queryDependencyError("query: session state reader is required")
	}
	return q.reader.State(), nil
}

// AccessTokenQuery returns a token that stays valid for the configured
// minimum validity, refreshing it first when needed.
type AccessTokenQuery struct {
	reader AccessTokenReader
}

func NewAccessTokenQuery(reader AccessTokenReader) *AccessTokenQuery {
	return &AccessTokenQuery{reader: reader}
}

func (q *AccessTokenQuery) Query(ctx context.Context, _ AccessTokenMessage) (string, error) {
	if q == nil || q.reader == nil {
		return "", queryDependencyError("query: access token reader is required")
	}
	return q.reader.AccessToken(ctx)
}

type ResolveTokenQuery struct {
	resolver TokenResolver
}

func NewResolveTokenQuery(resolver TokenResolver) *ResolveTokenQuery {
	return &ResolveTokenQuery{resolver: resolver}
}

func (q *ResolveTokenQuery) Query(_ context.Context, _ ResolveTokenMessage) (ResolvedToken, error) {
	if q == nil || q.resolver == nil {
		return ResolvedToken{Source: core.TokenSourceNone}, queryDependencyError("query: token resolver is required")
	}
	token, source := q.resolver.ResolveToken()
	return ResolvedToken{Token: token, Source: source}, nil
}
