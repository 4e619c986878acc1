package oauth2

import (
	"context"
	"net/url"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestAuthorizeLocalErrors(t *testing.T) {
	// Errores en los que el redirect_uri no es confiable: jamás redirigimos.
	cases := []struct {
		name    string
		params  AuthorizeParams
		wantErr string
	}{
		{
			name: "unknown client",
			params: AuthorizeParams{
				ResponseType: "code", ClientID: "ghost", RedirectURI: testRedirectURI,
			},
			wantErr: "invalid_client",
		},
		{
			name: "missing client_id",
			params: AuthorizeParams{
				ResponseType: "code", RedirectURI: testRedirectURI,
			},
			wantErr: "invalid_request",
		},
		{
			name: "unregistered redirect_uri",
			params: AuthorizeParams{
				ResponseType: "code", ClientID: "web-app",
				RedirectURI: "https://evil.example.com/cb",
			},
			wantErr: "invalid_request",
		},
		{
			name: "missing redirect_uri",
			params: AuthorizeParams{
				ResponseType: "code", ClientID: "web-app",
			},
			wantErr: "invalid_request",
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			e := newTestEnv(t, nil)
			redirect, oerr := e.provider.Authorize(context.Background(), tc.params)
			if redirect != "" {
				t.Fatalf("local error must not redirect, got %q", redirect)
			}
			if oerr == nil || oerr.Err != tc.wantErr {
				t.Fatalf("got %v, want %s", oerr, tc.wantErr)
			}
		})
	}
}

func TestAuthorizeRedirectErrors(t *testing.T) {
	// redirect_uri válido ⇒ el error viaja por redirect con state e iss.
	cases := []struct {
		name     string
		params   AuthorizeParams
		wantErr  string
		wantDesc string
	}{
		{
			name: "unsupported response_type",
			params: AuthorizeParams{
				ResponseType: "token", ClientID: "web-app",
				RedirectURI: testRedirectURI, State: "st",
			},
			wantErr: "unsupported_response_type",
		},
		{
			name: "scope not allowed for client",
			params: AuthorizeParams{
				ResponseType: "code", ClientID: "web-app",
				RedirectURI: testRedirectURI, State: "st",
				Scope: "openid admin",
			},
			wantErr:  "invalid_scope",
			wantDesc: `Scope "admin" not allowed for this client`,
		},
		{
			name: "plain pkce method",
			params: AuthorizeParams{
				ResponseType: "code", ClientID: "web-app",
				RedirectURI: testRedirectURI, State: "st",
				CodeChallenge: "abc", CodeChallengeMethod: "plain",
			},
			wantErr: "invalid_request",
		},
		{
			name: "public client without pkce",
			params: AuthorizeParams{
				ResponseType: "code", ClientID: "native-app",
				RedirectURI: "https://native.example.com/cb", State: "st",
			},
			wantErr:  "invalid_request",
			wantDesc: "PKCE code_challenge is required for public clients",
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			e := newTestEnv(t, nil)
			redirect, oerr := e.provider.Authorize(context.Background(), tc.params)
			if oerr == nil {
				t.Fatal("expected error")
			}
			if redirect == "" {
				t.Fatal("expected error redirect")
			}

			u, err := url.Parse(redirect)
			if err != nil {
				t.Fatalf("parse redirect: %v", err)
			}
			got := map[string]string{
				"error": u.Query().Get("error"),
				"state": u.Query().Get("state"),
				"iss":   u.Query().Get("iss"),
			}
			want := map[string]string{
				"error": tc.wantErr,
				"state": "st",
				"iss":   testIssuer,
			}
			if diff := cmp.Diff(want, got); diff != "" {
				t.Errorf("redirect params mismatch (-want +got):\n%s", diff)
			}
			if tc.wantDesc != "" && u.Query().Get("error_description") != tc.wantDesc {
				t.Errorf("error_description = %q, want %q", u.Query().Get("error_description"), tc.wantDesc)
			}
		})
	}
}

func TestAuthorizeSuccess(t *testing.T) {
	e := newTestEnv(t, nil)
	ctx := context.Background()

	redirect, oerr := e.provider.Authorize(ctx, AuthorizeParams{
		ResponseType: "code",
		ClientID:     "web-app",
		RedirectURI:  testRedirectURI,
		Scope:        "openid email",
		State:        "st-1",
		Nonce:        "n-1",
		Prompt:       "consent",
	})
	if oerr != nil {
		t.Fatalf("authorize: %v", oerr)
	}

	u, err := url.Parse(redirect)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if got := u.Scheme + "://" + u.Host + u.Path; got != testIssuer+"/login" {
		t.Errorf("login base = %q", got)
	}
	requestID := u.Query().Get("request_id")
	if requestID == "" {
		t.Fatal("missing request_id")
	}
	if u.Query().Get("prompt") != "consent" {
		t.Errorf("prompt = %q", u.Query().Get("prompt"))
	}

	ar, err := e.store.GetAuthRequest(ctx, requestID)
	if err != nil {
		t.Fatalf("stored request: %v", err)
	}
	if ar.ClientID != "web-app" || ar.Nonce != "n-1" || ar.State != "st-1" {
		t.Errorf("stored request = %+v", ar)
	}
	if diff := cmp.Diff([]string{"openid", "email"}, ar.Scopes); diff != "" {
		t.Errorf("scopes (-want +got):\n%s", diff)
	}
}

func TestAuthorizeDefaultScope(t *testing.T) {
	e := newTestEnv(t, nil)
	ctx := context.Background()

	redirect, oerr := e.provider.Authorize(ctx, AuthorizeParams{
		ResponseType: "code",
		ClientID:     "web-app",
		RedirectURI:  testRedirectURI,
	})
	if oerr != nil {
		t.Fatalf("authorize: %v", oerr)
	}
	ar, err := e.store.GetAuthRequest(ctx, queryParam(t, redirect, "request_id"))
	if err != nil {
		t.Fatalf("stored request: %v", err)
	}
	if diff := cmp.Diff([]string{"openid"}, ar.Scopes); diff != "" {
		t.Errorf("default scope (-want +got):\n%s", diff)
	}
}
