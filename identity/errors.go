package identity

import (
	"errors"
	"net/http"
	"strings"

	"github.com/goliatone/go-authsession/core"
	goerrors "github.com/goliatone/go-errors"
	"golang.org/x/oauth2"
)

var (
	ErrRefreshRejected       = errors.New("identity: refresh token rejected")
	ErrNoRefreshToken        = errors.New("identity: no refresh token available")
	ErrStateMismatch         = errors.New("identity: authorization state mismatch")
	ErrRedirectRequired      = errors.New("identity: redirect handler is required")
	ErrAuthorizationRejected = errors.New("identity: authorization rejected")
	ErrSessionEnded          = errors.New("identity: session ended before the token arrived")
)

// RefreshError reports a failed refresh-token grant. Code carries the
// provider's OAuth error code when the token endpoint returned one.
type RefreshError struct {
	Code  string
	Cause error
}

func (e *RefreshError) Error() string {
	if e == nil {
		return ErrRefreshRejected.Error()
	}
	message := ErrRefreshRejected.Error()
	if code := strings.TrimSpace(e.Code); code != "" {
		message += " (" + code + ")"
	}
	if e.Cause != nil {
		message += ": " + e.Cause.Error()
	}
	return message
}

func (e *RefreshError) Unwrap() error {
	if e == nil {
		return nil
	}
	if e.Cause == nil {
		return ErrRefreshRejected
	}
	return errors.Join(ErrRefreshRejected, e.Cause)
}

func (e *RefreshError) ToServiceError() *goerrors.Error {
	return goerrors.New(e.Error(), goerrors.CategoryAuth).
		WithCode(http.StatusUnauthorized).
		WithTextCode(core.SessionErrorRefreshFailed)
}

func refreshFailed(err error) error {
	refreshErr := &RefreshError{Cause: err}
	var retrieveErr *oauth2.RetrieveError
	if errors.As(err, &retrieveErr) {
		refreshErr.Code = retrieveErr.ErrorCode
	}
	return refreshErr
}
