package handlers

import (
	"net/http"

	httpx "github.com/dropDatabas3/janus/internal/http"
	"github.com/dropDatabas3/janus/internal/oauth2"
)

// NewToken: POST /oauth2/token (RFC 6749). Body x-www-form-urlencoded;
// credenciales por Basic o por body (un solo método por request).
func NewToken(p *oauth2.Provider) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseForm(); err != nil {
			httpx.WriteOAuthError(w, &oauth2.Error{Err: "invalid_request", Description: "Malformed form body"})
			return
		}
		grantType := r.PostFormValue("grant_type")

		creds, oerr := oauth2.ParseClientCredentials(r)
		if oerr != nil {
			httpx.RecordTokenIssued(grantType, "error")
			httpx.WriteOAuthError(w, oerr)
			return
		}

		resp, oerr := p.Token(r.Context(), oauth2.TokenRequest{
			GrantType:    grantType,
			Code:         r.PostFormValue("code"),
			RedirectURI:  r.PostFormValue("redirect_uri"),
			CodeVerifier: r.PostFormValue("code_verifier"),
			RefreshToken: r.PostFormValue("refresh_token"),
			Credentials:  creds,
		})
		if oerr != nil {
			httpx.RecordTokenIssued(grantType, "error")
			httpx.WriteOAuthError(w, oerr)
			return
		}
		httpx.RecordTokenIssued(grantType, "ok")
		httpx.WriteJSON(w, http.StatusOK, resp)
	}
}
