package core

import "time"

const (
	OnLoadCheckSSO       = "check-sso"
	OnLoadLoginRequired  = "login-required"
	PKCEMethodS256       = "S256"
	PKCEMethodNone       = "none"
	DefaultInitTimeout   = 5 * time.Second
	DefaultMinValidity   = 30 * time.Second
	defaultServiceName   = "authsession"
	defaultLoggerName    = "authsession"
	unknownOperationName = "unknown"
)

// SessionState is an immutable snapshot of the process-wide session.
// Token and Error are empty when absent; User is nil when absent.
type SessionState struct {
	IsAuthenticated bool
	User            UserClaims
	Token           string
	Loading         bool
	Error           string
}

// Status collapses the snapshot into one of the store states.
func (s SessionState) Status() SessionStatus {
	switch {
	case s.Loading:
		return SessionStatusLoading
	case s.IsAuthenticated:
		return SessionStatusAuthenticated
	default:
		return SessionStatusUnauthenticated
	}
}

func (s SessionState) clone() SessionState {
	out := s
	out.User = s.User.Clone()
	return out
}

type SessionStatus string

const (
	SessionStatusLoading         SessionStatus = "loading"
	SessionStatusAuthenticated   SessionStatus = "authenticated"
	SessionStatusUnauthenticated SessionStatus = "unauthenticated"
)

// InitOptions are handed to the identity provider's init probe.
type InitOptions struct {
	OnLoad           string
	PKCEMethod       string
	CheckLoginIframe bool
}

type InitOutcome string

const (
	InitOutcomeAuthenticated   InitOutcome = "authenticated"
	InitOutcomeUnauthenticated InitOutcome = "unauthenticated"
	InitOutcomeProbeFailed     InitOutcome = "probe_failed"
	InitOutcomeTimedOut        InitOutcome = "timed_out"
	InitOutcomeSuperseded      InitOutcome = "superseded"
)

// InitResult reports how a single initialization attempt settled.
// Err carries the classified failure for diagnostics; it is never a reason
// for callers to treat the session as broken, State is always terminal.
type InitResult struct {
	AttemptID  string
	Generation uint64
	Outcome    InitOutcome
	State      SessionState
	Err        error
}

// TokenSource identifies where the RequestAuthorizer resolved a bearer token from.
type TokenSource string

const (
	TokenSourceStore    TokenSource = "store"
	TokenSourceProvider TokenSource = "provider"
	TokenSourceNone     TokenSource = "none"
)
