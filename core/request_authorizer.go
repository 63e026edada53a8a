package core

import (
	"net/http"
	"strings"
)

// ProviderTokenReader exposes the identity client's live token.
type ProviderTokenReader interface {
	Token() string
}

// RequestAuthorizer attaches the current bearer token to outbound requests.
// It never blocks and never fails: a request with no resolvable token goes
// out without an Authorization header and the downstream API decides.
type RequestAuthorizer struct {
	store    *SessionStore
	provider ProviderTokenReader
}

func NewRequestAuthorizer(store *SessionStore, provider ProviderTokenReader) *RequestAuthorizer {
	return &RequestAuthorizer{store: store, provider: provider}
}

// ResolveToken prefers the session store and falls back to the provider's
// live token, which covers the window before initialization hydrates the store.
func (a *RequestAuthorizer) ResolveToken() (string, TokenSource) {
	if a == nil {
		return "", TokenSourceNone
	}
	if a.store != nil {
		if token := strings.TrimSpace(a.store.Token()); token != "" {
			return token, TokenSourceStore
		}
	}
	if a.provider != nil {
		if token := strings.TrimSpace(a.provider.Token()); token != "" {
			return token, TokenSourceProvider
		}
	}
	return "", TokenSourceNone
}

// Authorize sets the bearer header on req in place and reports the token source.
func (a *RequestAuthorizer) Authorize(req *http.Request) TokenSource {
	if req == nil {
		return TokenSourceNone
	}
	token, source := a.ResolveToken()
	if token == "" {
		return TokenSourceNone
	}
	if req.Header == nil {
		req.Header = http.Header{}
	}
	req.Header.Set("Authorization", "Bearer "+token)
	return source
}

// Transport wraps base so every request is authorized before it is sent.
func (a *RequestAuthorizer) Transport(base http.RoundTripper) http.RoundTripper {
	if base == nil {
		base = http.DefaultTransport
	}
	return &authorizingTransport{authorizer: a, base: base}
}

// Client returns a shallow copy of base whose transport authorizes requests.
func (a *RequestAuthorizer) Client(base *http.Client) *http.Client {
	client := &http.Client{}
	if base != nil {
		*client = *base
	}
	client.Transport = a.Transport(client.Transport)
	return client
}

type authorizingTransport struct {
	authorizer *RequestAuthorizer
	base       http.RoundTripper
}

func (t *authorizingTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	// RoundTrippers must not modify the caller's request.
	clone := req.Clone(req.Context())
	t.authorizer.Authorize(clone)
	return t.base.RoundTrip(clone)
}
