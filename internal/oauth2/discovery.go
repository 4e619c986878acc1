package oauth2

import "encoding/json"

// metadata es el discovery document (OIDC Discovery / RFC 8414).
type metadata struct {
	Issuer                            string   `json:"issuer"`
	AuthorizationEndpoint             string   `json:"authorization_endpoint"`
	TokenEndpoint                     string   `json:"token_endpoint"`
	UserinfoEndpoint                  string   `json:"userinfo_endpoint"`
	JWKSURI                           string   `json:"jwks_uri"`
	IntrospectionEndpoint             string   `json:"introspection_endpoint"`
	RevocationEndpoint                string   `json:"revocation_endpoint"`
	ResponseTypesSupported            []string `json:"response_types_supported"`
	GrantTypesSupported               []string `json:"grant_types_supported"`
	SubjectTypesSupported             []string `json:"subject_types_supported"`
	IDTokenSigningAlgValuesSupported  []string `json:"id_token_signing_alg_values_supported"`
	ScopesSupported                   []string `json:"scopes_supported"`
	TokenEndpointAuthMethodsSupported []string `json:"token_endpoint_auth_methods_supported"`
	CodeChallengeMethodsSupported     []string `json:"code_challenge_methods_supported"`
	ClaimsSupported                   []string `json:"claims_supported"`
	ClientIDMetadataDocumentSupported bool     `json:"client_id_metadata_document_supported"`
}

// buildDiscovery serializa el document una sola vez en el arranque.
// Ambos well-known (openid-configuration y oauth-authorization-server)
// sirven exactamente estos bytes.
func (p *Provider) buildDiscovery() []byte {
	iss := p.cfg.Issuer
	doc := metadata{
		Issuer:                            iss,
		AuthorizationEndpoint:             iss + "/oauth2/authorize",
		TokenEndpoint:                     iss + "/oauth2/token",
		UserinfoEndpoint:                  iss + "/oauth2/userinfo",
		JWKSURI:                           iss + "/oauth2/jwks",
		IntrospectionEndpoint:             iss + "/oauth2/introspect",
		RevocationEndpoint:                iss + "/oauth2/revoke",
		ResponseTypesSupported:            []string{"code"},
		GrantTypesSupported:               []string{"authorization_code", "refresh_token"},
		SubjectTypesSupported:             []string{"public"},
		IDTokenSigningAlgValuesSupported:  []string{"RS256"},
		ScopesSupported:                   p.cfg.ScopesSupported,
		TokenEndpointAuthMethodsSupported: []string{"client_secret_basic", "client_secret_post", "none"},
		CodeChallengeMethodsSupported:     []string{"S256"},
		ClaimsSupported: []string{
			"iss", "sub", "aud", "exp", "iat", "auth_time", "nonce", "at_hash",
			"name", "picture", "locale", "email", "email_verified",
			"phone_number", "phone_number_verified",
		},
		ClientIDMetadataDocumentSupported: true,
	}
	b, err := json.Marshal(doc)
	if err != nil {
		// Marshal de un struct estático no falla.
		panic(err)
	}
	return b
}

// DiscoveryJSON devuelve el discovery document, byte-estable entre llamadas.
func (p *Provider) DiscoveryJSON() []byte { return p.discovery }
