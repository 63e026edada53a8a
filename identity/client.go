package identity

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/goliatone/go-authsession/core"
	glog "github.com/goliatone/go-logger/glog"
	"github.com/google/uuid"
	"golang.org/x/oauth2"
)

const (
	defaultRequestTimeout  = 10 * time.Second
	maxLogoutResponseBytes = 64 << 10
)

// AuthorizationResponse is what the provider hands back on the redirect URI.
type AuthorizationResponse struct {
	Code             string
	State            string
	Error            string
	ErrorDescription string
}

// RedirectFunc sends the user agent to authURL and returns the callback
// parameters. Returning an empty code with a nil error means the redirect
// is still pending and no token is available yet.
type RedirectFunc func(ctx context.Context, authURL string) (AuthorizationResponse, error)

// SilentCheckFunc looks for an existing provider session without user
// interaction. It returns nil when there is none.
type SilentCheckFunc func(ctx context.Context) (*oauth2.Token, error)

type Config struct {
	ClientID        string
	ClientSecret    string
	AuthURL         string
	TokenURL        string
	LogoutURL       string
	RegistrationURL string
	RedirectURL     string
	Scopes          []string

	HTTPClient     *http.Client
	RequestTimeout time.Duration
	Redirect       RedirectFunc
	SilentCheck    SilentCheckFunc
	// RefreshToken seeds the client with a refresh credential obtained elsewhere.
	RefreshToken string
	Clock        core.Clock
	Logger       core.Logger
}

type expiryWatch struct {
	lead    time.Duration
	handler func()
	timer   core.Timer
}

// Client is an oauth2 backed core.IdentityClient for OpenID Connect providers.
type Client struct {
	oauth           *oauth2.Config
	logoutURL       string
	registrationURL string
	httpClient      *http.Client
	requestTimeout  time.Duration
	redirect        RedirectFunc
	silentCheck     SilentCheckFunc
	seed            string
	clock           core.Clock
	logger          core.Logger

	refreshMu sync.Mutex

	mu         sync.Mutex
	token      *oauth2.Token
	refreshed  bool
	epoch      uint64
	pkceMethod string
	watches    map[uint64]*expiryWatch
	nextWatch  uint64
}

func NewClient(cfg Config) (*Client, error) {
	if strings.TrimSpace(cfg.ClientID) == "" {
		return nil, fmt.Errorf("identity: client_id is required")
	}
	if strings.TrimSpace(cfg.TokenURL) == "" {
		return nil, fmt.Errorf("identity: token_url is required")
	}
	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: defaultRequestTimeout}
	}
	requestTimeout := cfg.RequestTimeout
	if requestTimeout <= 0 {
		requestTimeout = defaultRequestTimeout
	}
	clock := cfg.Clock
	if clock == nil {
		clock = core.SystemClock()
	}

	return &Client{
		oauth: &oauth2.Config{
			ClientID:     strings.TrimSpace(cfg.ClientID),
			ClientSecret: cfg.ClientSecret,
			Endpoint: oauth2.Endpoint{
				AuthURL:  strings.TrimSpace(cfg.AuthURL),
				TokenURL: strings.TrimSpace(cfg.TokenURL),
			},
			RedirectURL: strings.TrimSpace(cfg.RedirectURL),
			Scopes:      append([]string(nil), cfg.Scopes...),
		},
		logoutURL:       strings.TrimSpace(cfg.LogoutURL),
		registrationURL: strings.TrimSpace(cfg.RegistrationURL),
		httpClient:      httpClient,
		requestTimeout:  requestTimeout,
		redirect:        cfg.Redirect,
		silentCheck:     cfg.SilentCheck,
		seed:            strings.TrimSpace(cfg.RefreshToken),
		clock:           clock,
		logger:          glog.Ensure(cfg.Logger),
		pkceMethod:      core.PKCEMethodS256,
		watches:         map[uint64]*expiryWatch{},
	}, nil
}

// Init probes for an existing session. A silent check runs first, then a
// seeded refresh token is exchanged. With login-required and no session it
// falls through to an interactive login.
func (c *Client) Init(ctx context.Context, opts core.InitOptions) (bool, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	c.mu.Lock()
	if opts.PKCEMethod != "" {
		c.pkceMethod = opts.PKCEMethod
	}
	epoch := c.epoch
	c.mu.Unlock()

	if c.silentCheck != nil {
		token, err := c.silentCheck(ctx)
		if err != nil {
			return false, fmt.Errorf("identity: silent check: %w", err)
		}
		if token != nil && token.AccessToken != "" {
			return c.applyToken(epoch, token, false), nil
		}
	}

	if c.seed != "" {
		token, err := c.refresh(ctx, c.seed)
		if err != nil {
			return false, err
		}
		return c.applyToken(epoch, token, false), nil
	}

	if opts.OnLoad == core.OnLoadLoginRequired {
		if err := c.Login(ctx); err != nil {
			return false, err
		}
		return c.Token() != "", nil
	}
	return false, nil
}

func (c *Client) Login(ctx context.Context) error {
	return c.authorize(ctx, c.oauth.Endpoint.AuthURL)
}

// Register runs the authorization code flow against the registration endpoint.
func (c *Client) Register(ctx context.Context) error {
	if c.registrationURL == "" {
		return core.ErrRegisterUnsupported
	}
	return c.authorize(ctx, c.registrationURL)
}

// Logout clears local tokens and expiry timers, then ends the provider
// session when a logout endpoint is configured.
func (c *Client) Logout(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}
	c.mu.Lock()
	refreshToken := ""
	if c.token != nil {
		refreshToken = c.token.RefreshToken
	}
	c.epoch++
	c.setTokenLocked(nil, false)
	c.mu.Unlock()

	if c.logoutURL == "" || refreshToken == "" {
		return nil
	}
	return c.endSession(ctx, refreshToken)
}

// UpdateToken refreshes the access token when it expires within minValidity.
// It reports false without contacting the provider while the token is still
// valid for longer. A negative minValidity always refreshes. A refresh that
// completes after Logout is dropped and reported as ErrSessionEnded.
func (c *Client) UpdateToken(ctx context.Context, minValidity time.Duration) (bool, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	c.refreshMu.Lock()
	defer c.refreshMu.Unlock()

	c.mu.Lock()
	current := c.token
	epoch := c.epoch
	c.mu.Unlock()

	if minValidity >= 0 && current != nil && current.AccessToken != "" {
		expiry := tokenExpiry(current)
		if expiry.IsZero() || c.clock.Now().Add(minValidity).Before(expiry) {
			return false, nil
		}
	}
	if current == nil || current.RefreshToken == "" {
		return false, ErrNoRefreshToken
	}

	next, err := c.refresh(ctx, current.RefreshToken)
	if err != nil {
		return false, err
	}
	if !c.applyToken(epoch, next, true) {
		return false, ErrSessionEnded
	}
	return true, nil
}

func (c *Client) Token() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.token == nil {
		return ""
	}
	return c.token.AccessToken
}

// OAuthToken returns a copy of the full token, including the refresh token.
func (c *Client) OAuthToken() *oauth2.Token {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.token == nil {
		return nil
	}
	copied := *c.token
	return &copied
}

// OnTokenExpired calls handler lead before the access token expires. The
// deadline is recomputed whenever the token changes and the handler runs at
// most once per token.
func (c *Client) OnTokenExpired(lead time.Duration, handler func()) func() {
	if handler == nil {
		return func() {}
	}
	c.mu.Lock()
	c.nextWatch++
	id := c.nextWatch
	watch := &expiryWatch{lead: lead, handler: handler}
	c.watches[id] = watch
	c.scheduleLocked(id, watch)
	c.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			c.mu.Lock()
			defer c.mu.Unlock()
			if watch.timer != nil {
				watch.timer.Stop()
				watch.timer = nil
			}
			delete(c.watches, id)
		})
	}
}

func (c *Client) authorize(ctx context.Context, endpoint string) error {
	if ctx == nil {
		ctx = context.Background()
	}
	if c.redirect == nil {
		return ErrRedirectRequired
	}
	if strings.TrimSpace(endpoint) == "" {
		return fmt.Errorf("identity: authorization endpoint is required")
	}

	c.mu.Lock()
	pkceMethod := c.pkceMethod
	epoch := c.epoch
	c.mu.Unlock()

	flow := *c.oauth
	flow.Endpoint.AuthURL = endpoint
	state := uuid.NewString()

	var authOpts, exchangeOpts []oauth2.AuthCodeOption
	if pkceMethod == core.PKCEMethodS256 {
		verifier := oauth2.GenerateVerifier()
		authOpts = append(authOpts, oauth2.S256ChallengeOption(verifier))
		exchangeOpts = append(exchangeOpts, oauth2.VerifierOption(verifier))
	}

	response, err := c.redirect(ctx, flow.AuthCodeURL(state, authOpts...))
	if err != nil {
		return fmt.Errorf("identity: redirect: %w", err)
	}
	if response.Error != "" {
		return fmt.Errorf("%w: %s %s", ErrAuthorizationRejected, response.Error, response.ErrorDescription)
	}
	if response.Code == "" {
		c.logger.Debug("authorization redirect pending", "endpoint", endpoint)
		return nil
	}
	if response.State != state {
		return ErrStateMismatch
	}

	exchangeCtx, cancel := c.requestContext(ctx)
	defer cancel()
	token, err := flow.Exchange(exchangeCtx, response.Code, exchangeOpts...)
	if err != nil {
		return fmt.Errorf("identity: code exchange: %w", err)
	}
	if !c.applyToken(epoch, token, false) {
		return ErrSessionEnded
	}
	return nil
}

func (c *Client) refresh(ctx context.Context, refreshToken string) (*oauth2.Token, error) {
	refreshCtx, cancel := c.requestContext(ctx)
	defer cancel()
	token, err := c.oauth.TokenSource(refreshCtx, &oauth2.Token{RefreshToken: refreshToken}).Token()
	if err != nil {
		return nil, refreshFailed(err)
	}
	return token, nil
}

func (c *Client) endSession(ctx context.Context, refreshToken string) error {
	requestCtx, cancel := context.WithTimeout(ctx, c.requestTimeout)
	defer cancel()

	form := url.Values{}
	form.Set("client_id", c.oauth.ClientID)
	form.Set("refresh_token", refreshToken)
	if c.oauth.ClientSecret != "" {
		form.Set("client_secret", c.oauth.ClientSecret)
	}
	req, err := http.NewRequestWithContext(requestCtx, http.MethodPost, c.logoutURL, strings.NewReader(form.Encode()))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	res, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("identity: end session: %w", err)
	}
	defer res.Body.Close()
	_, _ = io.Copy(io.Discard, io.LimitReader(res.Body, maxLogoutResponseBytes))
	if res.StatusCode < http.StatusOK || res.StatusCode >= http.StatusMultipleChoices {
		return fmt.Errorf("identity: end session endpoint returned status %d", res.StatusCode)
	}
	return nil
}

func (c *Client) requestContext(ctx context.Context) (context.Context, context.CancelFunc) {
	ctx = context.WithValue(ctx, oauth2.HTTPClient, c.httpClient)
	return context.WithTimeout(ctx, c.requestTimeout)
}

// applyToken stores token unless Logout ran since epoch was read.
func (c *Client) applyToken(epoch uint64, token *oauth2.Token, refreshed bool) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if epoch != c.epoch {
		c.logger.Debug("token discarded after logout", "refreshed", refreshed)
		return false
	}
	c.setTokenLocked(token, refreshed)
	return true
}

func (c *Client) setTokenLocked(token *oauth2.Token, refreshed bool) {
	c.token = token
	c.refreshed = token != nil && refreshed
	for id, watch := range c.watches {
		c.scheduleLocked(id, watch)
	}
}

func (c *Client) scheduleLocked(id uint64, watch *expiryWatch) {
	if watch.timer != nil {
		watch.timer.Stop()
		watch.timer = nil
	}
	if c.token == nil || c.token.AccessToken == "" {
		return
	}
	expiry := tokenExpiry(c.token)
	if expiry.IsZero() {
		return
	}
	now := c.clock.Now()
	deadline := expiry.Add(-watch.lead)
	if !deadline.After(now) && c.refreshed {
		// a freshly refreshed token already inside the lead window signals at expiry
		if !expiry.After(now) {
			c.logger.Warn("refreshed token is already expired, expiry signal skipped",
				"lead", watch.lead.String(),
			)
			return
		}
		deadline = expiry
	}
	delay := deadline.Sub(now)
	if delay < 0 {
		delay = 0
	}

	var timer core.Timer
	timer = c.clock.AfterFunc(delay, func() {
		c.mu.Lock()
		active, ok := c.watches[id]
		if !ok || active != watch || watch.timer != timer {
			c.mu.Unlock()
			return
		}
		watch.timer = nil
		c.mu.Unlock()
		watch.handler()
	})
	watch.timer = timer
}

// tokenExpiry prefers the access token's exp claim and falls back to the
// expires_in reported by the token endpoint.
func tokenExpiry(token *oauth2.Token) time.Time {
	if token == nil {
		return time.Time{}
	}
	if claims := core.DecodeClaims(token.AccessToken); claims != nil {
		if exp := claims.ExpiresAt(); !exp.IsZero() {
			return exp
		}
	}
	return token.Expiry
}
