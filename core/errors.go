package core

import (
	"errors"
	"net/http"
	"strings"

	goerrors "github.com/goliatone/go-errors"
)

const (
	SessionErrorBadInput              = "SESSION_BAD_INPUT"
	SessionErrorInitTimeout           = "SESSION_INIT_TIMEOUT"
	SessionErrorProbeFailed           = "SESSION_PROBE_FAILED"
	SessionErrorRefreshFailed         = "SESSION_REFRESH_FAILED"
	SessionErrorDecodeFailed          = "SESSION_DECODE_FAILED"
	SessionErrorUnauthorized          = "SESSION_UNAUTHORIZED"
	SessionErrorCapabilityUnsupported = "SESSION_CAPABILITY_UNSUPPORTED"
	SessionErrorExternalFailure       = "SESSION_EXTERNAL_FAILURE"
	SessionErrorInternal              = "SESSION_INTERNAL_ERROR"
)

var (
	ErrInitializationTimeout = errors.New("core: identity provider initialization timed out")
	ErrProbeFailure          = errors.New("core: identity provider initialization failed")
	ErrRefreshFailure        = errors.New("core: token refresh failed")
	ErrDecodeFailure         = errors.New("core: token claims could not be decoded")
	ErrRegisterUnsupported   = errors.New("core: identity client does not support registration")
	ErrIdentityClientMissing = errors.New("core: identity client is required")
)

func sessionErrorMapper(err error) *goerrors.Error {
	if err == nil {
		return nil
	}

	var richErr *goerrors.Error
	if goerrors.As(err, &richErr) {
		return ensureSessionErrorEnvelope(richErr)
	}

	switch {
	case errors.Is(err, ErrInitializationTimeout):
		return wrapSessionError(err, goerrors.CategoryExternal, SessionErrorInitTimeout)
	case errors.Is(err, ErrProbeFailure):
		return wrapSessionError(err, goerrors.CategoryExternal, SessionErrorProbeFailed)
	case errors.Is(err, ErrRefreshFailure):
		return wrapSessionError(err, goerrors.CategoryAuth, SessionErrorRefreshFailed)
	case errors.Is(err, ErrDecodeFailure):
		return wrapSessionError(err, goerrors.CategoryBadInput, SessionErrorDecodeFailed)
	case errors.Is(err, ErrRegisterUnsupported):
		return wrapSessionError(err, goerrors.CategoryOperation, SessionErrorCapabilityUnsupported)
	case errors.Is(err, ErrIdentityClientMissing):
		return wrapSessionError(err, goerrors.CategoryInternal, SessionErrorInternal)
	}

	msg := strings.ToLower(strings.TrimSpace(err.Error()))
	switch {
	case strings.Contains(msg, "invalid_grant"),
		strings.Contains(msg, "refresh token"),
		strings.Contains(msg, "unauthorized"):
		return wrapSessionError(err, goerrors.CategoryAuth, SessionErrorUnauthorized)
	case strings.Contains(msg, "required"), strings.Contains(msg, "invalid"):
		return wrapSessionError(err, goerrors.CategoryBadInput, SessionErrorBadInput)
	}

	mapped := goerrors.MapToError(err, goerrors.DefaultErrorMappers())
	return ensureSessionErrorEnvelope(mapped)
}

func wrapSessionError(source error, category goerrors.Category, textCode string) *goerrors.Error {
	return ensureSessionErrorEnvelope(
		goerrors.Wrap(source, category, source.Error()).
			WithCode(sessionHTTPStatus(category)).
			WithTextCode(textCode),
	)
}

func ensureSessionErrorEnvelope(err *goerrors.Error) *goerrors.Error {
	if err == nil {
		return nil
	}
	if err.Code == 0 {
		err.Code = sessionHTTPStatus(err.Category)
	}
	if strings.TrimSpace(err.TextCode) == "" {
		err.TextCode = defaultSessionTextCode(err.Category)
	}
	if err.Category == goerrors.CategoryInternal && strings.TrimSpace(err.Message) == "" {
		err.Message = "An unexpected error occurred"
	}
	return err
}

func defaultSessionTextCode(category goerrors.Category) string {
	switch category {
	case goerrors.CategoryBadInput, goerrors.CategoryValidation:
		return SessionErrorBadInput
	case goerrors.CategoryAuth, goerrors.CategoryAuthz:
		return SessionErrorUnauthorized
	case goerrors.CategoryOperation:
		return SessionErrorCapabilityUnsupported
	case goerrors.CategoryExternal:
		return SessionErrorExternalFailure
	default:
		return SessionErrorInternal
	}
}

func sessionHTTPStatus(category goerrors.Category) int {
	switch category {
	case goerrors.CategoryBadInput, goerrors.CategoryValidation:
		return http.StatusBadRequest
	case goerrors.CategoryAuth:
		return http.StatusUnauthorized
	case goerrors.CategoryAuthz:
		return http.StatusForbidden
	case goerrors.CategoryOperation:
		return http.StatusNotImplemented
	case goerrors.CategoryExternal:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}
