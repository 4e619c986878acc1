package handlers

import (
	"net/http"

	httpx "github.com/dropDatabas3/janus/internal/http"
	"github.com/dropDatabas3/janus/internal/oauth2"
)

// NewAuthorize: GET /oauth2/authorize. Valida y redirige a la UI de login,
// o al client con error cuando el redirect_uri ya está verificado.
// Errores no redirigibles se responden localmente: nunca redirigimos a una
// URI no registrada.
func NewAuthorize(p *oauth2.Provider) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		params := oauth2.AuthorizeParams{
			ResponseType:        q.Get("response_type"),
			ClientID:            q.Get("client_id"),
			RedirectURI:         q.Get("redirect_uri"),
			Scope:               q.Get("scope"),
			State:               q.Get("state"),
			Nonce:               q.Get("nonce"),
			Prompt:              q.Get("prompt"),
			CodeChallenge:       q.Get("code_challenge"),
			CodeChallengeMethod: q.Get("code_challenge_method"),
		}

		redirect, oerr := p.Authorize(r.Context(), params)
		if redirect != "" {
			http.Redirect(w, r, redirect, http.StatusFound)
			return
		}
		httpx.WriteOAuthError(w, oerr)
	}
}
