package oauth2

import (
	"net/http"
	"net/url"
)

// Error es el error de protocolo OAuth2/OIDC (taxonomía cerrada RFC 6749).
// Se materializa como query param de redirect (etapa /authorize) o como
// body JSON con status >= 400 (token/introspect/revoke).
type Error struct {
	Err         string `json:"error"`
	Description string `json:"error_description,omitempty"`
}

func (e *Error) Error() string {
	if e.Description == "" {
		return e.Err
	}
	return e.Err + ": " + e.Description
}

// HTTPStatus mapea el código de error al status HTTP del endpoint no-redirect.
func (e *Error) HTTPStatus() int {
	switch e.Err {
	case "invalid_client", "invalid_token":
		return http.StatusUnauthorized
	case "server_error":
		return http.StatusInternalServerError
	default:
		return http.StatusBadRequest
	}
}

func serverError() *Error {
	return &Error{Err: "server_error", Description: "Internal server error"}
}

// ErrorRedirectURL arma el redirect de error al client: error, description,
// state e iss (RFC 9207) como query params sobre redirectURI.
func ErrorRedirectURL(redirectURI, state, issuer string, e *Error) string {
	q := url.Values{}
	q.Set("error", e.Err)
	if e.Description != "" {
		q.Set("error_description", e.Description)
	}
	if state != "" {
		q.Set("state", state)
	}
	if issuer != "" {
		q.Set("iss", issuer)
	}
	return appendQuery(redirectURI, q)
}
