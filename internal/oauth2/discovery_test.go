package oauth2

import (
	"bytes"
	"encoding/json"
	"testing"
)

func TestDiscoveryDocument(t *testing.T) {
	e := newTestEnv(t, nil)

	raw := e.provider.DiscoveryJSON()
	var doc map[string]any
	if err := json.Unmarshal(raw, &doc); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}

	want := map[string]string{
		"issuer":                 testIssuer,
		"authorization_endpoint": testIssuer + "/oauth2/authorize",
		"token_endpoint":         testIssuer + "/oauth2/token",
		"userinfo_endpoint":      testIssuer + "/oauth2/userinfo",
		"jwks_uri":               testIssuer + "/oauth2/jwks",
		"introspection_endpoint": testIssuer + "/oauth2/introspect",
		"revocation_endpoint":    testIssuer + "/oauth2/revoke",
	}
	for k, v := range want {
		if doc[k] != v {
			t.Errorf("%s = %v, want %q", k, doc[k], v)
		}
	}

	if doc["client_id_metadata_document_supported"] != true {
		t.Error("client_id_metadata_document_supported should be true")
	}

	methods, _ := doc["code_challenge_methods_supported"].([]any)
	if len(methods) != 1 || methods[0] != "S256" {
		t.Errorf("code_challenge_methods_supported = %v", methods)
	}
	grants, _ := doc["grant_types_supported"].([]any)
	if len(grants) != 2 || grants[0] != "authorization_code" || grants[1] != "refresh_token" {
		t.Errorf("grant_types_supported = %v", grants)
	}
}

func TestDiscoveryByteStable(t *testing.T) {
	e := newTestEnv(t, nil)
	// Ambos well-known sirven estos mismos bytes; llamadas repetidas
	// tienen que devolver exactamente lo mismo.
	first := e.provider.DiscoveryJSON()
	for i := 0; i < 3; i++ {
		if !bytes.Equal(first, e.provider.DiscoveryJSON()) {
			t.Fatal("discovery document is not byte-stable")
		}
	}
}
