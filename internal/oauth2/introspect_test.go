package oauth2

import (
	"context"
	"testing"
)

func issueTokensForTest(t *testing.T, e *testEnv) *TokenResponse {
	t.Helper()
	code := e.runAuthFlow(t, basicAuthParams())
	resp, oerr := e.provider.Token(context.Background(), TokenRequest{
		GrantType:   "authorization_code",
		Code:        code,
		RedirectURI: testRedirectURI,
		Credentials: confidentialCreds(),
	})
	if oerr != nil {
		t.Fatalf("issue tokens: %v", oerr)
	}
	return resp
}

func TestIntrospectRefreshToken(t *testing.T) {
	e := newTestEnv(t, nil)
	ctx := context.Background()
	tokens := issueTokensForTest(t, e)

	resp, oerr := e.provider.Introspect(ctx, IntrospectRequest{
		Token:       tokens.RefreshToken,
		Credentials: confidentialCreds(),
	})
	if oerr != nil {
		t.Fatalf("introspect: %v", oerr)
	}
	if !resp.Active {
		t.Fatal("fresh refresh token should be active")
	}
	if resp.ClientID != "web-app" || resp.Sub != "user-1" || resp.TokenType != "refresh_token" {
		t.Errorf("resp = %+v", resp)
	}
}

func TestIntrospectAccessToken(t *testing.T) {
	e := newTestEnv(t, nil)
	ctx := context.Background()
	tokens := issueTokensForTest(t, e)

	resp, oerr := e.provider.Introspect(ctx, IntrospectRequest{
		Token:       tokens.AccessToken,
		Credentials: confidentialCreds(),
	})
	if oerr != nil {
		t.Fatalf("introspect: %v", oerr)
	}
	if !resp.Active || resp.TokenType != "access_token" {
		t.Errorf("resp = %+v", resp)
	}
	if resp.Exp == 0 || resp.Iss != testIssuer {
		t.Errorf("exp=%d iss=%q", resp.Exp, resp.Iss)
	}
}

func TestIntrospectForeignTokenInactive(t *testing.T) {
	e := newTestEnv(t, nil)
	ctx := context.Background()
	tokens := issueTokensForTest(t, e)

	otherCreds := ClientCredentials{Method: MethodBasic, ClientID: "other-app", Secret: testSecret}
	for _, tok := range []string{tokens.RefreshToken, tokens.AccessToken} {
		resp, oerr := e.provider.Introspect(ctx, IntrospectRequest{Token: tok, Credentials: otherCreds})
		if oerr != nil {
			t.Fatalf("introspect: %v", oerr)
		}
		// Token ajeno: indistinguible de uno inexistente.
		if resp.Active || resp.Sub != "" || resp.ClientID != "" {
			t.Errorf("foreign token leaked: %+v", resp)
		}
	}
}

func TestIntrospectGarbageInactive(t *testing.T) {
	e := newTestEnv(t, nil)
	resp, oerr := e.provider.Introspect(context.Background(), IntrospectRequest{
		Token:       "not-a-token",
		Credentials: confidentialCreds(),
	})
	if oerr != nil {
		t.Fatalf("introspect: %v", oerr)
	}
	if resp.Active {
		t.Fatal("garbage token reported active")
	}
}

func TestIntrospectRequiresClientAuth(t *testing.T) {
	e := newTestEnv(t, nil)
	_, oerr := e.provider.Introspect(context.Background(), IntrospectRequest{
		Token:       "whatever",
		Credentials: ClientCredentials{Method: MethodBasic, ClientID: "web-app", Secret: "wrong"},
	})
	if oerr == nil || oerr.Err != "invalid_client" {
		t.Fatalf("got %v, want invalid_client", oerr)
	}
}

func TestRevokeRefreshToken(t *testing.T) {
	e := newTestEnv(t, nil)
	ctx := context.Background()
	tokens := issueTokensForTest(t, e)

	if oerr := e.provider.Revoke(ctx, tokens.RefreshToken, "refresh_token", confidentialCreds()); oerr != nil {
		t.Fatalf("revoke: %v", oerr)
	}

	// Monotonía: revocado ⇒ introspection active:false para siempre.
	resp, oerr := e.provider.Introspect(ctx, IntrospectRequest{
		Token:       tokens.RefreshToken,
		Credentials: confidentialCreds(),
	})
	if oerr != nil {
		t.Fatalf("introspect: %v", oerr)
	}
	if resp.Active {
		t.Fatal("revoked token still active")
	}

	// Y el refresh grant lo rechaza.
	if _, oerr := e.provider.Token(ctx, TokenRequest{
		GrantType:    "refresh_token",
		RefreshToken: tokens.RefreshToken,
		Credentials:  confidentialCreds(),
	}); oerr == nil {
		t.Fatal("refresh with revoked token should fail")
	}
}

func TestRevokeIsIdempotent(t *testing.T) {
	e := newTestEnv(t, nil)
	ctx := context.Background()
	tokens := issueTokensForTest(t, e)

	for i := 0; i < 2; i++ {
		if oerr := e.provider.Revoke(ctx, tokens.RefreshToken, "", confidentialCreds()); oerr != nil {
			t.Fatalf("revoke #%d: %v", i+1, oerr)
		}
	}
	// Token desconocido también responde éxito.
	if oerr := e.provider.Revoke(ctx, "unknown-token", "", confidentialCreds()); oerr != nil {
		t.Fatalf("revoke unknown: %v", oerr)
	}
}

func TestRevokeForeignTokenNoOp(t *testing.T) {
	e := newTestEnv(t, nil)
	ctx := context.Background()
	tokens := issueTokensForTest(t, e)

	otherCreds := ClientCredentials{Method: MethodBasic, ClientID: "other-app", Secret: testSecret}
	if oerr := e.provider.Revoke(ctx, tokens.RefreshToken, "", otherCreds); oerr != nil {
		t.Fatalf("revoke: %v", oerr)
	}

	// Sigue activo para el dueño: revocar tokens ajenos no hace nada.
	resp, oerr := e.provider.Introspect(ctx, IntrospectRequest{
		Token:       tokens.RefreshToken,
		Credentials: confidentialCreds(),
	})
	if oerr != nil {
		t.Fatalf("introspect: %v", oerr)
	}
	if !resp.Active {
		t.Fatal("owner's token was revoked by another client")
	}
}

func TestUserinfo(t *testing.T) {
	e := newTestEnv(t, nil)
	ctx := context.Background()
	tokens := issueTokensForTest(t, e)

	claims, oerr := e.provider.Userinfo(ctx, tokens.AccessToken)
	if oerr != nil {
		t.Fatalf("userinfo: %v", oerr)
	}
	if claims["sub"] != "user-1" {
		t.Errorf("sub = %v", claims["sub"])
	}
	if claims["email"] != "ana@example.com" {
		t.Errorf("email = %v", claims["email"])
	}
	if claims["email_verified"] != true {
		t.Errorf("email_verified = %v", claims["email_verified"])
	}
	// Sin scope phone no hay claims de teléfono.
	if _, ok := claims["phone_number"]; ok {
		t.Error("phone_number leaked without phone scope")
	}
}

func TestUserinfoRejectsBadToken(t *testing.T) {
	e := newTestEnv(t, nil)
	for _, tok := range []string{"", "garbage", "a.b.c"} {
		_, oerr := e.provider.Userinfo(context.Background(), tok)
		if oerr == nil || oerr.Err != "invalid_token" {
			t.Fatalf("token %q: got %v, want invalid_token", tok, oerr)
		}
	}
}
