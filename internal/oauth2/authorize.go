package oauth2

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"

	tokens "github.com/dropDatabas3/janus/internal/security/token"
	"github.com/dropDatabas3/janus/internal/store/core"
)

// AuthorizeParams parámetros crudos de GET /oauth2/authorize.
type AuthorizeParams struct {
	ResponseType        string
	ClientID            string
	RedirectURI         string
	Scope               string
	State               string
	Nonce               string
	Prompt              string
	CodeChallenge       string
	CodeChallengeMethod string
}

// Authorize valida la request y crea el AuthRequest pendiente de login.
//
// Retorna la URL a la que redirigir: la UI de login en éxito, o un
// error-redirect al client cuando el redirect_uri ya está validado.
// Si redirectURL == "", el error NO es redirigible (client o redirect_uri
// inválidos) y debe renderearse localmente: jamás redirigimos a una URI
// no registrada.
func (p *Provider) Authorize(ctx context.Context, params AuthorizeParams) (redirectURL string, oerr *Error) {
	cl, oerr := p.resolveClient(ctx, params.ClientID)
	if oerr != nil {
		return "", oerr
	}

	if !clientHasRedirectURI(cl, params.RedirectURI) {
		return "", &Error{Err: "invalid_request", Description: "Invalid redirect_uri"}
	}

	// Desde acá el redirect_uri es confiable: los errores viajan por redirect.
	fail := func(e *Error) (string, *Error) {
		return ErrorRedirectURL(params.RedirectURI, params.State, p.cfg.Issuer, e), e
	}

	if params.ResponseType != "code" {
		return fail(&Error{Err: "unsupported_response_type", Description: "Only response_type=code is supported"})
	}

	scopes, serr := p.resolveScopes(cl, params.Scope)
	if serr != nil {
		return fail(serr)
	}

	if params.CodeChallengeMethod != "" && params.CodeChallengeMethod != "S256" {
		return fail(&Error{Err: "invalid_request", Description: "Only code_challenge_method=S256 is supported"})
	}
	if params.CodeChallenge != "" && params.CodeChallengeMethod == "" {
		return fail(&Error{Err: "invalid_request", Description: "Missing code_challenge_method"})
	}
	if cl.Type == core.ClientPublic && params.CodeChallenge == "" {
		return fail(&Error{Err: "invalid_request", Description: "PKCE code_challenge is required for public clients"})
	}

	id, err := tokens.GenerateOpaque(32)
	if err != nil {
		p.log.Error("auth request id generation failed", zap.Error(err))
		return fail(serverError())
	}
	now := time.Now().UTC()
	ar := &core.AuthRequest{
		ID:                  id,
		ClientID:            cl.ClientID,
		RedirectURI:         params.RedirectURI,
		Scopes:              scopes,
		State:               params.State,
		Nonce:               params.Nonce,
		Prompt:              params.Prompt,
		CodeChallenge:       params.CodeChallenge,
		CodeChallengeMethod: params.CodeChallengeMethod,
		CreatedAt:           now,
		ExpiresAt:           now.Add(p.cfg.AuthRequestTTL),
	}
	if err := p.store.CreateAuthRequest(ctx, ar); err != nil {
		p.log.Error("auth request persist failed", zap.Error(err))
		return fail(serverError())
	}

	q := url.Values{}
	q.Set("request_id", id)
	if params.Prompt != "" {
		q.Set("prompt", params.Prompt)
	}
	sep := "?"
	if strings.Contains(p.cfg.LoginURL, "?") {
		sep = "&"
	}
	return p.cfg.LoginURL + sep + q.Encode(), nil
}

// resolveScopes aplica el default "openid" y valida contra client + server.
func (p *Provider) resolveScopes(cl *core.Client, raw string) ([]string, *Error) {
	scopes := strings.Fields(raw)
	if len(scopes) == 0 {
		scopes = []string{"openid"}
	}
	for _, s := range scopes {
		if !p.scopeSupported(s) || !clientHasScope(cl, s) {
			return nil, &Error{
				Err:         "invalid_scope",
				Description: fmt.Sprintf("Scope %q not allowed for this client", s),
			}
		}
	}
	return scopes, nil
}

func clientHasRedirectURI(cl *core.Client, uri string) bool {
	if uri == "" {
		return false
	}
	for _, r := range cl.RedirectURIs {
		if r == uri {
			return true
		}
	}
	return false
}

func clientHasScope(cl *core.Client, scope string) bool {
	for _, s := range cl.Scopes {
		if s == scope {
			return true
		}
	}
	return false
}

func hasScope(scopes []string, want string) bool {
	for _, s := range scopes {
		if s == want {
			return true
		}
	}
	return false
}
