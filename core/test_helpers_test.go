package core

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"sync"
	"time"
)

func mustJWT(claims map[string]any) string {
	header, _ := json.Marshal(map[string]any{"alg": "none", "typ": "JWT"})
	payload, err := json.Marshal(claims)
	if err != nil {
		panic(err)
	}
	return base64.RawURLEncoding.EncodeToString(header) + "." +
		base64.RawURLEncoding.EncodeToString(payload) + ".sig"
}

type expirySubscription struct {
	lead    time.Duration
	handler func()
}

type fakeIdentityClient struct {
	mu       sync.Mutex
	token    string
	initFn   func(ctx context.Context, opts InitOptions) (bool, error)
	loginFn  func(ctx context.Context) error
	logoutFn func(ctx context.Context) error
	updateFn func(ctx context.Context, minValidity time.Duration) (bool, error)

	initOptions  []InitOptions
	logoutCalls  int
	updateCalls  int
	lastValidity time.Duration
	subs         map[int]expirySubscription
	nextSub      int
}

func newFakeIdentityClient() *fakeIdentityClient {
	return &fakeIdentityClient{subs: map[int]expirySubscription{}}
}

func (c *fakeIdentityClient) Init(ctx context.Context, opts InitOptions) (bool, error) {
	c.mu.Lock()
	c.initOptions = append(c.initOptions, opts)
	fn := c.initFn
	c.mu.Unlock()
	if fn == nil {
		return false, nil
	}
	return fn(ctx, opts)
}

func (c *fakeIdentityClient) Login(ctx context.Context) error {
	c.mu.Lock()
	fn := c.loginFn
	c.mu.Unlock()
	if fn == nil {
		return nil
	}
	return fn(ctx)
}

func (c *fakeIdentityClient) Logout(ctx context.Context) error {
	c.mu.Lock()
	c.logoutCalls++
	c.token = ""
	fn := c.logoutFn
	c.mu.Unlock()
	if fn == nil {
		return nil
	}
	return fn(ctx)
}

func (c *fakeIdentityClient) UpdateToken(ctx context.Context, minValidity time.Duration) (bool, error) {
	c.mu.Lock()
	c.updateCalls++
	c.lastValidity = minValidity
	fn := c.updateFn
	c.mu.Unlock()
	if fn == nil {
		return false, nil
	}
	return fn(ctx, minValidity)
}

func (c *fakeIdentityClient) Token() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.token
}

func (c *fakeIdentityClient) setToken(token string) {
	c.mu.Lock()
	c.token = token
	c.mu.Unlock()
}

func (c *fakeIdentityClient) OnTokenExpired(lead time.Duration, handler func()) func() {
	c.mu.Lock()
	c.nextSub++
	id := c.nextSub
	c.subs[id] = expirySubscription{lead: lead, handler: handler}
	c.mu.Unlock()
	return func() {
		c.mu.Lock()
		delete(c.subs, id)
		c.mu.Unlock()
	}
}

// fireExpiry runs every attached expiry handler synchronously.
func (c *fakeIdentityClient) fireExpiry() {
	c.mu.Lock()
	handlers := make([]func(), 0, len(c.subs))
	for _, sub := range c.subs {
		handlers = append(handlers, sub.handler)
	}
	c.mu.Unlock()
	for _, handler := range handlers {
		handler()
	}
}

func (c *fakeIdentityClient) subscriptions() []expirySubscription {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]expirySubscription, 0, len(c.subs))
	for _, sub := range c.subs {
		out = append(out, sub)
	}
	return out
}

func (c *fakeIdentityClient) logouts() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.logoutCalls
}

func (c *fakeIdentityClient) updates() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.updateCalls
}

type registeringIdentityClient struct {
	*fakeIdentityClient
	registered int
}

func (c *registeringIdentityClient) Register(context.Context) error {
	c.registered++
	return nil
}

type fakeClock struct {
	mu     sync.Mutex
	now    time.Time
	timers []*fakeTimer
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) AfterFunc(d time.Duration, fn func()) Timer {
	c.mu.Lock()
	defer c.mu.Unlock()
	timer := &fakeTimer{deadline: c.now.Add(d), fn: fn}
	c.timers = append(c.timers, timer)
	return timer
}

// Advance moves time forward and runs due timers on the calling goroutine.
func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	now := c.now
	due := make([]*fakeTimer, 0, len(c.timers))
	for _, timer := range c.timers {
		if !timer.deadline.After(now) && timer.claim() {
			due = append(due, timer)
		}
	}
	c.mu.Unlock()
	for _, timer := range due {
		timer.fn()
	}
}

func (c *fakeClock) pending() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	count := 0
	for _, timer := range c.timers {
		if timer.active() {
			count++
		}
	}
	return count
}

type fakeTimer struct {
	mu       sync.Mutex
	deadline time.Time
	fn       func()
	done     bool
}

func (t *fakeTimer) Stop() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.done {
		return false
	}
	t.done = true
	return true
}

func (t *fakeTimer) claim() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.done {
		return false
	}
	t.done = true
	return true
}

func (t *fakeTimer) active() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return !t.done
}

type logEntry struct {
	level string
	msg   string
	args  []any
}

type capturingLogger struct {
	mu      sync.Mutex
	entries []logEntry
}

func (l *capturingLogger) record(level string, msg string, args []any) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.entries = append(l.entries, logEntry{level: level, msg: msg, args: append([]any(nil), args...)})
}

func (l *capturingLogger) Trace(msg string, args ...any) { l.record("trace", msg, args) }
func (l *capturingLogger) Debug(msg string, args ...any) { l.record("debug", msg, args) }
func (l *capturingLogger) Info(msg string, args ...any)  { l.record("info", msg, args) }
func (l *capturingLogger) Warn(msg string, args ...any)  { l.record("warn", msg, args) }
func (l *capturingLogger) Error(msg string, args ...any) { l.record("error", msg, args) }
func (l *capturingLogger) Fatal(msg string, args ...any) { l.record("fatal", msg, args) }

func (l *capturingLogger) WithContext(context.Context) Logger {
	return l
}

func (l *capturingLogger) has(level string, msg string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	for _, entry := range l.entries {
		if entry.level == level && entry.msg == msg {
			return true
		}
	}
	return false
}

type metricCall struct {
	name string
	tags map[string]string
}

type recordingMetrics struct {
	mu       sync.Mutex
	counters []metricCall
}

func (m *recordingMetrics) IncCounter(_ context.Context, name string, _ int64, tags map[string]string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.counters = append(m.counters, metricCall{name: name, tags: tags})
}

func (m *recordingMetrics) ObserveHistogram(context.Context, string, float64, map[string]string) {}

func (m *recordingMetrics) counter(name string) (metricCall, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, call := range m.counters {
		if call.name == name {
			return call, true
		}
	}
	return metricCall{}, false
}
