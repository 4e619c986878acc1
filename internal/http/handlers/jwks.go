package handlers

import (
	"net/http"

	httpx "github.com/dropDatabas3/janus/internal/http"
	jwtx "github.com/dropDatabas3/janus/internal/jwt"
	"github.com/dropDatabas3/janus/internal/oauth2"
)

// NewJWKS: GET /oauth2/jwks. El keystore cachea el JSON unos segundos,
// así que tras una rotación la clave nueva aparece enseguida.
func NewJWKS(ks *jwtx.Keystore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		body, err := ks.JWKSJSON(r.Context())
		if err != nil {
			httpx.WriteOAuthError(w, &oauth2.Error{Err: "server_error", Description: "Internal server error"})
			return
		}
		w.Header().Set("Content-Type", "application/json; charset=utf-8")
		w.Header().Set("Cache-Control", "public, max-age=60")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write(body)
	}
}
