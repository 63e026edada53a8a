package authsession

import (
	"context"
	"testing"
	"time"

	sessioncommand "github.com/goliatone/go-authsession/command"
	"github.com/goliatone/go-authsession/core"
	sessionquery "github.com/goliatone/go-authsession/query"
	gocmd "github.com/goliatone/go-command"
)

type stubFacadeService struct {
	state       core.SessionState
	logins      int
	logouts     int
	lastMinimum time.Duration
}

func (s *stubFacadeService) Initialize(context.Context) core.InitResult {
	s.state = core.SessionState{IsAuthenticated: true, Token: "init.token"}
	return core.InitResult{Outcome: core.InitOutcomeAuthenticated, State: s.state}
}
func (s *stubFacadeService) Login(context.Context) error    { s.logins++; return nil }
func (s *stubFacadeService) Logout(context.Context) error   { s.logouts++; s.state = core.SessionState{}; return nil }
func (s *stubFacadeService) Register(context.Context) error { return nil }
func (s *stubFacadeService) RefreshToken(_ context.Context, minValidity time.Duration) (string, error) {
	s.lastMinimum = minValidity
	return s.state.Token, nil
}
func (s *stubFacadeService) State() core.SessionState { return s.state }
func (s *stubFacadeService) AccessToken(ctx context.Context) (string, error) {
	return s.RefreshToken(ctx, core.DefaultMinValidity)
}

type stubResolver struct{}

func (stubResolver) ResolveToken() (string, core.TokenSource) { return "resolved", core.TokenSourceProvider }

func TestNewFacade_WiresCommandsAndQueries(t *testing.T) {
	facade, err := NewFacade(&stubFacadeService{}, WithTokenResolver(stubResolver{}))
	if err != nil {
		t.Fatalf("new facade: %v", err)
	}
	commands := facade.Commands()
	if commands.Initialize == nil || commands.Login == nil || commands.Logout == nil || commands.Register == nil || commands.RefreshToken == nil {
		t.Fatalf("expected command handlers to be wired")
	}
	queries := facade.Queries()
	if queries.SessionState == nil || queries.AccessToken == nil || queries.ResolveToken == nil {
		t.Fatalf("expected query handlers to be wired")
	}
}

func TestNewFacade_RequiresService(t *testing.T) {
	if _, err := NewFacade(nil); err == nil {
		t.Fatalf("expected missing service error")
	}
}

func TestFacade_CommandAndQueryDelegation(t *testing.T) {
	svc := &stubFacadeService{}
	facade, err := NewFacade(svc, WithTokenResolver(stubResolver{}))
	if err != nil {
		t.Fatalf("new facade: %v", err)
	}

	collector := gocmd.NewResult[core.InitResult]()
	ctx := gocmd.ContextWithResult(context.Background(), collector)
	if err := facade.Commands().Initialize.Execute(ctx, sessioncommand.InitializeMessage{}); err != nil {
		t.Fatalf("initialize: %v", err)
	}
	if result, ok := collector.Load(); !ok || result.Outcome != core.InitOutcomeAuthenticated {
		t.Fatalf("expected stored init result")
	}

	state, err := facade.Queries().SessionState.Query(context.Background(), sessionquery.SessionStateMessage{})
	if err != nil || !state.IsAuthenticated {
		t.Fatalf("unexpected state %#v %v", state, err)
	}
	token, err := facade.Queries().AccessToken.Query(context.Background(), sessionquery.AccessTokenMessage{})
	if err != nil || token != "init.token" || svc.lastMinimum != core.DefaultMinValidity {
		t.Fatalf("unexpected access token %q %v", token, err)
	}
	resolved, _ := facade.Queries().ResolveToken.Query(context.Background(), sessionquery.ResolveTokenMessage{})
	if resolved.Token != "resolved" {
		t.Fatalf("expected explicit resolver, got %#v", resolved)
	}

	if err := facade.Commands().Logout.Execute(context.Background(), sessioncommand.LogoutMessage{}); err != nil {
		t.Fatalf("logout: %v", err)
	}
	if svc.logouts != 1 || svc.State().IsAuthenticated {
		t.Fatalf("expected logout delegation")
	}
}

func TestFacade_ResolvesAuthorizerFromService(t *testing.T) {
	svc, _, err := Setup(Config{}, IdentityConfig{ClientID: "fitness-web", TokenURL: "http://127.0.0.1:1/token"})
	if err != nil {
		t.Fatalf("setup: %v", err)
	}
	defer svc.Close()

	facade, err := NewFacade(svc)
	if err != nil {
		t.Fatalf("new facade: %v", err)
	}
	resolved, err := facade.Queries().ResolveToken.Query(context.Background(), sessionquery.ResolveTokenMessage{})
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if resolved.Source != core.TokenSourceNone || resolved.Token != "" {
		t.Fatalf("expected no token before initialization, got %#v", resolved)
	}
}

func TestSetup_RejectsInvalidIdentityConfig(t *testing.T) {
	if _, _, err := Setup(Config{}, IdentityConfig{}); err == nil {
		t.Fatalf("expected identity config error")
	}
}
