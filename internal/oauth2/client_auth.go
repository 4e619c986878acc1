package oauth2

import (
	"net/http"
	"net/url"

	"github.com/dropDatabas3/janus/internal/security/password"
	"github.com/dropDatabas3/janus/internal/store/core"
)

// AuthMethod es el método de autenticación del client en el token endpoint.
type AuthMethod string

const (
	MethodBasic AuthMethod = "client_secret_basic"
	MethodPost  AuthMethod = "client_secret_post"
	MethodNone  AuthMethod = "none"
)

// ClientCredentials credenciales ya parseadas de la request.
type ClientCredentials struct {
	Method   AuthMethod
	ClientID string
	Secret   string
}

// ParseClientCredentials extrae las credenciales de Authorization: Basic
// o del form body. Basic tiene precedencia; mezclar métodos con valores
// contradictorios se rechaza (RFC 6749 §2.3: un solo mecanismo por request).
// Requiere r.ParseForm() previo.
func ParseClientCredentials(r *http.Request) (ClientCredentials, *Error) {
	bodyID := r.PostFormValue("client_id")
	bodySecret := r.PostFormValue("client_secret")

	if user, pass, ok := r.BasicAuth(); ok {
		// RFC 6749 appendix B: los componentes van form-urlencoded dentro del Basic.
		id, err := url.QueryUnescape(user)
		if err != nil {
			return ClientCredentials{}, &Error{Err: "invalid_request", Description: "Malformed Basic credentials"}
		}
		secret, err := url.QueryUnescape(pass)
		if err != nil {
			return ClientCredentials{}, &Error{Err: "invalid_request", Description: "Malformed Basic credentials"}
		}
		if bodySecret != "" || (bodyID != "" && bodyID != id) {
			return ClientCredentials{}, &Error{Err: "invalid_request", Description: "Multiple client authentication methods"}
		}
		return ClientCredentials{Method: MethodBasic, ClientID: id, Secret: secret}, nil
	}

	if bodyID == "" {
		return ClientCredentials{}, &Error{Err: "invalid_client", Description: "Client authentication required"}
	}
	if bodySecret != "" {
		return ClientCredentials{Method: MethodPost, ClientID: bodyID, Secret: bodySecret}, nil
	}
	return ClientCredentials{Method: MethodNone, ClientID: bodyID}, nil
}

// authenticateClient valida las credenciales contra el client resuelto.
// Confidential exige secret (argon2id); public/CIMD se identifica sin secret.
func (p *Provider) authenticateClient(cl *core.Client, creds ClientCredentials) *Error {
	if creds.ClientID != cl.ClientID {
		return &Error{Err: "invalid_client", Description: "Client ID mismatch"}
	}
	if cl.Type == core.ClientConfidential {
		if cl.SecretHash == nil {
			return &Error{Err: "invalid_client", Description: "Client has no secret configured"}
		}
		if creds.Secret == "" {
			return &Error{Err: "invalid_client", Description: "Client secret required"}
		}
		if !password.Verify(creds.Secret, *cl.SecretHash) {
			return &Error{Err: "invalid_client", Description: "Invalid client credentials"}
		}
		return nil
	}
	// Public: no hay secret que verificar; uno presentado se ignora.
	return nil
}
