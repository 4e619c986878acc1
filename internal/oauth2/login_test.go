package oauth2

import (
	"context"
	"net/url"
	"testing"
	"time"

	"github.com/dropDatabas3/janus/internal/store/core"
)

func TestGetLoginRequest(t *testing.T) {
	e := newTestEnv(t, nil)
	ctx := context.Background()

	redirect, oerr := e.provider.Authorize(ctx, basicAuthParams())
	if oerr != nil {
		t.Fatalf("authorize: %v", oerr)
	}
	requestID := queryParam(t, redirect, "request_id")

	info, oerr := e.provider.GetLoginRequest(ctx, requestID)
	if oerr != nil {
		t.Fatalf("preview: %v", oerr)
	}
	if info.ClientID != "web-app" || info.ClientName != "Web App" {
		t.Errorf("client info = %+v", info)
	}
	if info.RedirectURI != testRedirectURI {
		t.Errorf("redirect_uri = %q", info.RedirectURI)
	}
	if len(info.Scopes) == 0 {
		t.Error("missing scopes")
	}

	// El preview NO consume el request.
	if _, oerr := e.provider.GetLoginRequest(ctx, requestID); oerr != nil {
		t.Fatalf("second preview: %v", oerr)
	}
}

func TestCompleteLogin(t *testing.T) {
	e := newTestEnv(t, nil)
	ctx := context.Background()

	redirect, oerr := e.provider.Authorize(ctx, basicAuthParams())
	if oerr != nil {
		t.Fatalf("authorize: %v", oerr)
	}
	requestID := queryParam(t, redirect, "request_id")

	final, oerr := e.provider.CompleteLogin(ctx, requestID, "user-1")
	if oerr != nil {
		t.Fatalf("complete: %v", oerr)
	}
	u, err := url.Parse(final)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if u.Query().Get("code") == "" {
		t.Error("missing code")
	}
	if u.Query().Get("state") != "st-123" {
		t.Errorf("state = %q", u.Query().Get("state"))
	}
	if u.Query().Get("iss") != testIssuer {
		t.Errorf("iss = %q", u.Query().Get("iss"))
	}

	// Completar dos veces no puede emitir dos codes.
	if _, oerr := e.provider.CompleteLogin(ctx, requestID, "user-1"); oerr == nil {
		t.Fatal("second complete should fail")
	}
}

func TestCompleteLoginExpiredRequest(t *testing.T) {
	e := newTestEnv(t, nil)
	ctx := context.Background()

	now := time.Now().UTC()
	ar := &core.AuthRequest{
		ID:          "req-expired",
		ClientID:    "web-app",
		RedirectURI: testRedirectURI,
		Scopes:      []string{"openid"},
		CreatedAt:   now.Add(-time.Hour),
		ExpiresAt:   now.Add(-time.Minute),
	}
	if err := e.store.CreateAuthRequest(ctx, ar); err != nil {
		t.Fatalf("seed: %v", err)
	}

	_, oerr := e.provider.CompleteLogin(ctx, "req-expired", "user-1")
	if oerr == nil || oerr.Err != "invalid_request" {
		t.Fatalf("got %v, want invalid_request", oerr)
	}
}

func TestDenyLogin(t *testing.T) {
	e := newTestEnv(t, nil)
	ctx := context.Background()

	redirect, oerr := e.provider.Authorize(ctx, basicAuthParams())
	if oerr != nil {
		t.Fatalf("authorize: %v", oerr)
	}
	requestID := queryParam(t, redirect, "request_id")

	final, oerr := e.provider.DenyLogin(ctx, requestID)
	if oerr != nil {
		t.Fatalf("deny: %v", oerr)
	}
	if got := queryParam(t, final, "error"); got != "access_denied" {
		t.Errorf("error = %q", got)
	}
	if got := queryParam(t, final, "state"); got != "st-123" {
		t.Errorf("state = %q", got)
	}

	// El request quedó consumido.
	if _, oerr := e.provider.CompleteLogin(ctx, requestID, "user-1"); oerr == nil {
		t.Fatal("complete after deny should fail")
	}
}

func TestExpiredCodeRejected(t *testing.T) {
	e := newTestEnv(t, func(c *Config) { c.CodeTTL = time.Nanosecond })
	ctx := context.Background()
	code := e.runAuthFlow(t, basicAuthParams())

	time.Sleep(10 * time.Millisecond)

	_, oerr := e.provider.Token(ctx, TokenRequest{
		GrantType:   "authorization_code",
		Code:        code,
		RedirectURI: testRedirectURI,
		Credentials: confidentialCreds(),
	})
	if oerr == nil || oerr.Err != "invalid_grant" {
		t.Fatalf("got %v, want invalid_grant", oerr)
	}
}
