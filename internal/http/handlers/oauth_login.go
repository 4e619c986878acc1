package handlers

import (
	"net/http"
	"strings"

	jwtv5 "github.com/golang-jwt/jwt/v5"

	httpx "github.com/dropDatabas3/janus/internal/http"
	"github.com/dropDatabas3/janus/internal/oauth2"
)

// NewLogin maneja el puente con la UI de login del sistema embebedor.
//
//	GET  /oauth2/login?request_id=...  → preview (client, scopes) para el consent
//	POST /oauth2/login                 → completa (o deniega) el auth request
//
// El POST exige un bearer JWT firmado por nuestro keystore que identifica
// al usuario ya autenticado (sub). identityIssuer es el iss esperado de ese
// token; por defecto el propio issuer del server.
func NewLogin(p *oauth2.Provider, identityIssuer string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodGet:
			info, oerr := p.GetLoginRequest(r.Context(), r.URL.Query().Get("request_id"))
			if oerr != nil {
				httpx.WriteOAuthError(w, oerr)
				return
			}
			httpx.WriteJSON(w, http.StatusOK, info)

		case http.MethodPost:
			if err := r.ParseForm(); err != nil {
				httpx.WriteOAuthError(w, &oauth2.Error{Err: "invalid_request", Description: "Malformed form body"})
				return
			}
			requestID := r.PostFormValue("request_id")

			if r.PostFormValue("action") == "deny" {
				redirect, oerr := p.DenyLogin(r.Context(), requestID)
				if oerr != nil {
					httpx.WriteOAuthError(w, oerr)
					return
				}
				httpx.WriteJSON(w, http.StatusOK, map[string]string{"redirect_to": redirect})
				return
			}

			subject, oerr := subjectFromBearer(r, p, identityIssuer)
			if oerr != nil {
				httpx.WriteBearerError(w, oerr)
				return
			}
			redirect, oerr := p.CompleteLogin(r.Context(), requestID, subject)
			if oerr != nil {
				httpx.WriteOAuthError(w, oerr)
				return
			}
			httpx.WriteJSON(w, http.StatusOK, map[string]string{"redirect_to": redirect})

		default:
			w.WriteHeader(http.StatusMethodNotAllowed)
		}
	}
}

func subjectFromBearer(r *http.Request, p *oauth2.Provider, identityIssuer string) (string, *oauth2.Error) {
	raw := bearerToken(r)
	if raw == "" {
		return "", &oauth2.Error{Err: "invalid_token", Description: "Missing bearer token"}
	}
	tk, err := jwtv5.Parse(raw, p.Issuer().Keyfunc(r.Context()),
		jwtv5.WithValidMethods([]string{"RS256"}),
		jwtv5.WithIssuer(identityIssuer),
		jwtv5.WithExpirationRequired(),
	)
	if err != nil || !tk.Valid {
		return "", &oauth2.Error{Err: "invalid_token", Description: "Invalid identity token"}
	}
	claims, _ := tk.Claims.(jwtv5.MapClaims)
	sub, _ := claims["sub"].(string)
	if sub == "" {
		return "", &oauth2.Error{Err: "invalid_token", Description: "Identity token has no subject"}
	}
	return sub, nil
}

func bearerToken(r *http.Request) string {
	h := r.Header.Get("Authorization")
	if len(h) > 7 && strings.EqualFold(h[:7], "Bearer ") {
		return strings.TrimSpace(h[7:])
	}
	return ""
}
