package core

import (
	"net/http"

	glog "github.com/goliatone/go-logger/glog"
)

var (
	_ RefreshArmer        = (*TokenRefreshScheduler)(nil)
	_ ProviderTokenReader = IdentityClient(nil)
	_ http.RoundTripper   = (*authorizingTransport)(nil)
	_ Clock               = systemClock{}

	_ Logger         = glog.Nop()
	_ LoggerProvider = glog.ProviderFromLogger(glog.Nop())
)
