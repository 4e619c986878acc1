package oauth2

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
)

func newTokenRequest(t *testing.T, form url.Values) *http.Request {
	t.Helper()
	r := httptest.NewRequest("POST", "/oauth2/token", strings.NewReader(form.Encode()))
	r.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	if err := r.ParseForm(); err != nil {
		t.Fatalf("parse form: %v", err)
	}
	return r
}

func TestParseClientCredentialsBasic(t *testing.T) {
	req := newTokenRequest(t, url.Values{"grant_type": {"authorization_code"}})
	req.SetBasicAuth(url.QueryEscape("web-app"), url.QueryEscape("s3cret/value"))

	creds, oerr := ParseClientCredentials(req)
	if oerr != nil {
		t.Fatalf("parse: %v", oerr)
	}
	if creds.Method != MethodBasic || creds.ClientID != "web-app" || creds.Secret != "s3cret/value" {
		t.Errorf("creds = %+v", creds)
	}
}

func TestParseClientCredentialsPost(t *testing.T) {
	req := newTokenRequest(t, url.Values{
		"client_id":     {"web-app"},
		"client_secret": {"s3cret"},
	})
	creds, oerr := ParseClientCredentials(req)
	if oerr != nil {
		t.Fatalf("parse: %v", oerr)
	}
	if creds.Method != MethodPost || creds.ClientID != "web-app" || creds.Secret != "s3cret" {
		t.Errorf("creds = %+v", creds)
	}
}

func TestParseClientCredentialsNone(t *testing.T) {
	req := newTokenRequest(t, url.Values{"client_id": {"native-app"}})
	creds, oerr := ParseClientCredentials(req)
	if oerr != nil {
		t.Fatalf("parse: %v", oerr)
	}
	if creds.Method != MethodNone || creds.ClientID != "native-app" || creds.Secret != "" {
		t.Errorf("creds = %+v", creds)
	}
}

func TestParseClientCredentialsBasicPrecedence(t *testing.T) {
	// El mismo client_id en Basic y body no es conflicto.
	req := newTokenRequest(t, url.Values{"client_id": {"web-app"}})
	req.SetBasicAuth("web-app", "s3cret")

	creds, oerr := ParseClientCredentials(req)
	if oerr != nil {
		t.Fatalf("parse: %v", oerr)
	}
	if creds.Method != MethodBasic {
		t.Errorf("method = %q, want basic", creds.Method)
	}
}

func TestParseClientCredentialsConflict(t *testing.T) {
	cases := []struct {
		name string
		form url.Values
	}{
		{"secret in both", url.Values{"client_id": {"web-app"}, "client_secret": {"other"}}},
		{"different client_id", url.Values{"client_id": {"other-app"}}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := newTokenRequest(t, tc.form)
			req.SetBasicAuth("web-app", "s3cret")
			_, oerr := ParseClientCredentials(req)
			if oerr == nil || oerr.Err != "invalid_request" {
				t.Fatalf("got %v, want invalid_request", oerr)
			}
		})
	}
}

func TestParseClientCredentialsMissing(t *testing.T) {
	req := newTokenRequest(t, url.Values{"grant_type": {"authorization_code"}})
	_, oerr := ParseClientCredentials(req)
	if oerr == nil || oerr.Err != "invalid_client" {
		t.Fatalf("got %v, want invalid_client", oerr)
	}
}

func TestAuthenticateClientPublicIgnoresSecret(t *testing.T) {
	e := newTestEnv(t, nil)
	cl, err := e.store.GetClientByClientID(context.Background(), "native-app")
	if err != nil {
		t.Fatalf("client: %v", err)
	}
	oerr := e.provider.authenticateClient(cl, ClientCredentials{
		Method: MethodPost, ClientID: "native-app", Secret: "anything",
	})
	if oerr != nil {
		t.Fatalf("public client with secret: %v", oerr)
	}
}
