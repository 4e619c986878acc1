package oauth2

import (
	"context"
	"net/url"
	"strings"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/dropDatabas3/janus/internal/cache"
	jwtx "github.com/dropDatabas3/janus/internal/jwt"
	"github.com/dropDatabas3/janus/internal/security/password"
	"github.com/dropDatabas3/janus/internal/store/core"
	"github.com/dropDatabas3/janus/internal/store/memory"
)

const (
	testIssuer      = "https://auth.example.com"
	testSecret      = "s3cret-value"
	testRedirectURI = "https://app.example.com/callback"
)

type testEnv struct {
	provider *Provider
	store    *memory.Store
	issuer   *jwtx.Issuer
}

func newTestEnv(t *testing.T, mutate func(*Config)) *testEnv {
	t.Helper()
	ctx := context.Background()

	st := memory.New()
	ks := jwtx.NewKeystore(st)
	if err := ks.EnsureBootstrap(ctx); err != nil {
		t.Fatalf("keystore bootstrap: %v", err)
	}
	issuer := jwtx.NewIssuer(testIssuer, ks)

	cfg := Config{
		Issuer:        testIssuer,
		LoginURL:      testIssuer + "/login",
		RotateRefresh: true,
		CIMDEnabled:   true,
	}
	if mutate != nil {
		mutate(&cfg)
	}
	p := NewProvider(st, issuer, cache.NewMemory("test"), cfg, zap.NewNop())

	hash, err := password.Hash(password.Default, testSecret)
	if err != nil {
		t.Fatalf("hash secret: %v", err)
	}
	clients := []*core.Client{
		{
			ClientID:     "web-app",
			Name:         "Web App",
			Type:         core.ClientConfidential,
			Source:       core.ClientRegistered,
			SecretHash:   &hash,
			RedirectURIs: []string{testRedirectURI},
			Scopes:       []string{"openid", "profile", "email", "offline_access"},
		},
		{
			ClientID:     "native-app",
			Name:         "Native App",
			Type:         core.ClientPublic,
			Source:       core.ClientRegistered,
			RedirectURIs: []string{"https://native.example.com/cb"},
			Scopes:       []string{"openid", "profile"},
		},
		{
			ClientID:     "other-app",
			Name:         "Other App",
			Type:         core.ClientConfidential,
			Source:       core.ClientRegistered,
			SecretHash:   &hash,
			RedirectURIs: []string{"https://other.example.com/cb"},
			Scopes:       []string{"openid"},
		},
	}
	for _, c := range clients {
		if err := st.CreateClient(ctx, c); err != nil {
			t.Fatalf("seed client %s: %v", c.ClientID, err)
		}
	}
	if err := st.CreateUser(ctx, &core.User{
		ID:            "user-1",
		Email:         "ana@example.com",
		EmailVerified: true,
		Name:          "Ana",
		Locale:        "es-AR",
	}); err != nil {
		t.Fatalf("seed user: %v", err)
	}

	return &testEnv{provider: p, store: st, issuer: issuer}
}

// runAuthFlow corre authorize+login y devuelve el code listo para canjear.
func (e *testEnv) runAuthFlow(t *testing.T, params AuthorizeParams) string {
	t.Helper()
	ctx := context.Background()

	loginURL, oerr := e.provider.Authorize(ctx, params)
	if oerr != nil {
		t.Fatalf("authorize: %v", oerr)
	}
	requestID := queryParam(t, loginURL, "request_id")

	redirect, oerr := e.provider.CompleteLogin(ctx, requestID, "user-1")
	if oerr != nil {
		t.Fatalf("complete login: %v", oerr)
	}
	return queryParam(t, redirect, "code")
}

func queryParam(t *testing.T, rawURL, key string) string {
	t.Helper()
	u, err := url.Parse(rawURL)
	if err != nil {
		t.Fatalf("parse url %q: %v", rawURL, err)
	}
	return u.Query().Get(key)
}

func confidentialCreds() ClientCredentials {
	return ClientCredentials{Method: MethodBasic, ClientID: "web-app", Secret: testSecret}
}

func TestProviderScopeDefaults(t *testing.T) {
	e := newTestEnv(t, nil)
	if !e.provider.scopeSupported("openid") {
		t.Fatal("openid should be supported by default")
	}
	if e.provider.scopeSupported("admin") {
		t.Fatal("unknown scope reported as supported")
	}
}

func TestRefreshTokenActive(t *testing.T) {
	now := time.Now().UTC()
	rt := &core.RefreshToken{ExpiresAt: now.Add(time.Hour)}
	if !rt.Active(now) {
		t.Fatal("fresh token should be active")
	}
	rt.RevokedAt = &now
	if rt.Active(now) {
		t.Fatal("revoked token should be inactive")
	}
}

func TestErrorRedirectURL(t *testing.T) {
	e := &Error{Err: "access_denied", Description: "The user denied the request"}
	got := ErrorRedirectURL(testRedirectURI, "xyz", testIssuer, e)

	u, err := url.Parse(got)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	q := u.Query()
	if q.Get("error") != "access_denied" {
		t.Errorf("error = %q", q.Get("error"))
	}
	if q.Get("state") != "xyz" {
		t.Errorf("state = %q", q.Get("state"))
	}
	if q.Get("iss") != testIssuer {
		t.Errorf("iss = %q", q.Get("iss"))
	}
	if !strings.HasPrefix(got, testRedirectURI+"?") {
		t.Errorf("redirect base = %q", got)
	}
}
