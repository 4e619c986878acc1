package handlers

import (
	"net/http"

	httpx "github.com/dropDatabas3/janus/internal/http"
	"github.com/dropDatabas3/janus/internal/oauth2"
)

// NewUserinfo: GET|POST /oauth2/userinfo (OIDC Core §5.3). Bearer access
// token con scope openid.
func NewUserinfo(p *oauth2.Provider) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		claims, oerr := p.Userinfo(r.Context(), bearerToken(r))
		if oerr != nil {
			httpx.WriteBearerError(w, oerr)
			return
		}
		httpx.WriteJSON(w, http.StatusOK, claims)
	}
}
