package oauth2

import (
	"context"
	"strings"
	"time"

	"go.uber.org/zap"

	tokens "github.com/dropDatabas3/janus/internal/security/token"
	"github.com/dropDatabas3/janus/internal/store/core"
)

// IntrospectRequest request parseada de POST /oauth2/introspect (RFC 7662).
type IntrospectRequest struct {
	Token         string
	TokenTypeHint string
	Credentials   ClientCredentials
}

// IntrospectResponse. Con Active=false no se emite ningún otro campo:
// la respuesta para token ajeno, inválido, vencido o inexistente es
// indistinguible.
type IntrospectResponse struct {
	Active    bool   `json:"active"`
	Scope     string `json:"scope,omitempty"`
	ClientID  string `json:"client_id,omitempty"`
	Sub       string `json:"sub,omitempty"`
	TokenType string `json:"token_type,omitempty"`
	Exp       int64  `json:"exp,omitempty"`
	Iat       int64  `json:"iat,omitempty"`
	Iss       string `json:"iss,omitempty"`
}

var inactive = &IntrospectResponse{Active: false}

// Introspect autentica al caller y reporta el estado del token.
// Sólo el client dueño del token ve active:true.
func (p *Provider) Introspect(ctx context.Context, req IntrospectRequest) (*IntrospectResponse, *Error) {
	cl, oerr := p.resolveClient(ctx, req.Credentials.ClientID)
	if oerr != nil {
		return nil, oerr
	}
	if oerr := p.authenticateClient(cl, req.Credentials); oerr != nil {
		return nil, oerr
	}
	if req.Token == "" {
		return nil, &Error{Err: "invalid_request", Description: "Missing token"}
	}

	// Refresh tokens son opacos (sin puntos); access tokens son JWTs.
	if !strings.Contains(req.Token, ".") {
		return p.introspectRefresh(ctx, cl, req.Token)
	}
	return p.introspectAccess(ctx, cl, req.Token), nil
}

func (p *Provider) introspectRefresh(ctx context.Context, cl *core.Client, raw string) (*IntrospectResponse, *Error) {
	rt, err := p.store.GetRefreshTokenByHash(ctx, tokens.SHA256Base64URL(raw))
	if err == core.ErrNotFound {
		return inactive, nil
	}
	if err != nil {
		p.log.Error("refresh token lookup failed", zap.Error(err))
		return nil, serverError()
	}
	if rt.ClientID != cl.ClientID || !rt.Active(time.Now().UTC()) {
		return inactive, nil
	}
	return &IntrospectResponse{
		Active:    true,
		Scope:     strings.Join(rt.Scopes, " "),
		ClientID:  rt.ClientID,
		Sub:       rt.UserID,
		TokenType: "refresh_token",
		Exp:       rt.ExpiresAt.Unix(),
		Iat:       rt.IssuedAt.Unix(),
		Iss:       p.cfg.Issuer,
	}, nil
}

func (p *Provider) introspectAccess(ctx context.Context, cl *core.Client, raw string) *IntrospectResponse {
	claims, err := p.issuer.Parse(ctx, raw)
	if err != nil {
		return inactive
	}
	aud, _ := claims["aud"].(string)
	if aud != cl.ClientID {
		return inactive
	}
	out := &IntrospectResponse{
		Active:    true,
		ClientID:  aud,
		TokenType: "access_token",
		Iss:       p.cfg.Issuer,
	}
	out.Sub, _ = claims["sub"].(string)
	out.Scope, _ = claims["scope"].(string)
	if v, ok := claims["exp"].(float64); ok {
		out.Exp = int64(v)
	}
	if v, ok := claims["iat"].(float64); ok {
		out.Iat = int64(v)
	}
	return out
}
