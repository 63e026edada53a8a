package core

import (
	"context"
	"time"

	glog "github.com/goliatone/go-logger/glog"
)

// IdentityClient is the identity provider boundary. Implementations own the
// protocol; core only sequences calls and reacts to their outcomes.
type IdentityClient interface {
	Init(ctx context.Context, opts InitOptions) (bool, error)
	Login(ctx context.Context) error
	Logout(ctx context.Context) error
	// UpdateToken refreshes when the current token expires within
	// minValidity and reports whether a new token was obtained.
	UpdateToken(ctx context.Context, minValidity time.Duration) (bool, error)
	// Token returns the current bearer credential. The value is owned by the
	// client and may change between calls.
	Token() string
	// OnTokenExpired registers handler to run lead before the current
	// token's expiry. The returned func detaches the handler.
	OnTokenExpired(lead time.Duration, handler func()) (cancel func())
}

// Registrar is implemented by identity clients that support self-registration.
type Registrar interface {
	Register(ctx context.Context) error
}

type Logger = glog.Logger

type LoggerProvider = glog.LoggerProvider

type FieldsLogger = glog.FieldsLogger

type MetricsRecorder interface {
	IncCounter(ctx context.Context, name string, value int64, tags map[string]string)
	ObserveHistogram(ctx context.Context, name string, value float64, tags map[string]string)
}

// Clock supplies time and cancellable timers.
type Clock interface {
	Now() time.Time
	AfterFunc(d time.Duration, fn func()) Timer
}

type Timer interface {
	Stop() bool
}

type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now().UTC() }

func (systemClock) AfterFunc(d time.Duration, fn func()) Timer {
	return time.AfterFunc(d, fn)
}

// SystemClock returns the wall clock backed by the time package.
func SystemClock() Clock { return systemClock{} }
