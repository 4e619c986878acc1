package http

import (
	"encoding/json"
	"net/http"

	"github.com/dropDatabas3/janus/internal/oauth2"
)

// WriteJSON: respuesta JSON estándar
func WriteJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// WriteOAuthError escribe el error de protocolo como body RFC 6749:
// {"error":"...","error_description":"..."} con el status que mapea.
// invalid_client lleva el challenge WWW-Authenticate (RFC 6749 §5.2).
func WriteOAuthError(w http.ResponseWriter, e *oauth2.Error) {
	if e.Err == "invalid_client" {
		w.Header().Set("WWW-Authenticate", `Basic realm="oauth2"`)
	}
	WriteJSON(w, e.HTTPStatus(), e)
}

// WriteBearerError: errores de endpoints protegidos por bearer (userinfo).
// RFC 6750: el challenge va en WWW-Authenticate.
func WriteBearerError(w http.ResponseWriter, e *oauth2.Error) {
	w.Header().Set("WWW-Authenticate", `Bearer error="`+e.Err+`"`)
	WriteJSON(w, e.HTTPStatus(), e)
}
