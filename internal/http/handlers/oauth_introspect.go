package handlers

import (
	"net/http"

	httpx "github.com/dropDatabas3/janus/internal/http"
	"github.com/dropDatabas3/janus/internal/oauth2"
)

// NewIntrospect: POST /oauth2/introspect (RFC 7662). Requiere client auth;
// token ajeno o inválido responde {"active":false} sin más detalle.
func NewIntrospect(p *oauth2.Provider) http.HandlerFunc {
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
		resp, oerr := p.Introspect(r.Context(), oauth2.IntrospectRequest{
			Token:         r.PostFormValue("token"),
			TokenTypeHint: r.PostFormValue("token_type_hint"),
			Credentials:   creds,
		})
		if oerr != nil {
			httpx.WriteOAuthError(w, oerr)
			return
		}
		httpx.WriteJSON(w, http.StatusOK, resp)
	}
}
