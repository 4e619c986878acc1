package handlers

import (
	"net/http"

	httpx "github.com/dropDatabas3/janus/internal/http"
	"github.com/dropDatabas3/janus/internal/oauth2"
)

// NewRevoke: POST /oauth2/revoke (RFC 7009). Idempotente: 200 con body
// vacío aunque el token no exista o ya esté revocado.
func NewRevoke(p *oauth2.Provider) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseForm(); err != nil {
			httpx.WriteOAuthError(w, &oauth2.Error{Err: "invalid_request", Description: "Malformed form body"})
			return
		}
		creds, oerr := oauth2.ParseClientCredentials(r)
		if oerr != nil {
			httpx.WriteOAuthError(w, oerr)
			return
		}
		if oerr := p.Revoke(r.Context(), r.PostFormValue("token"), r.PostFormValue("token_type_hint"), creds); oerr != nil {
			httpx.WriteOAuthError(w, oerr)
			return
		}
		w.WriteHeader(http.StatusOK)
	}
}
