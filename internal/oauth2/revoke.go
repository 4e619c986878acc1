package oauth2

import (
	"context"
	"strings"

	"go.uber.org/zap"

	tokens "github.com/dropDatabas3/janus/internal/security/token"
	"github.com/dropDatabas3/janus/internal/store/core"
)

// Revoke revoca un refresh token del caller (RFC 7009). Idempotente:
// token desconocido, ya revocado o ajeno responde éxito igual, para no
// filtrar existencia. Access tokens (JWTs self-contained) no se revocan;
// expiran solos.
func (p *Provider) Revoke(ctx context.Context, token, tokenTypeHint string, creds ClientCredentials) *Error {
	cl, oerr := p.resolveClient(ctx, creds.ClientID)
	if oerr != nil {
		return oerr
	}
	if oerr := p.authenticateClient(cl, creds); oerr != nil {
		return oerr
	}
	if token == "" {
		return &Error{Err: "invalid_request", Description: "Missing token"}
	}
	if strings.Contains(token, ".") {
		// JWT: nada que marcar.
		return nil
	}

	rt, err := p.store.GetRefreshTokenByHash(ctx, tokens.SHA256Base64URL(token))
	if err == core.ErrNotFound {
		return nil
	}
	if err != nil {
		p.log.Error("refresh token lookup failed", zap.Error(err))
		return serverError()
	}
	if rt.ClientID != cl.ClientID {
		return nil
	}
	if err := p.store.RevokeRefreshToken(ctx, rt.ID); err != nil && err != core.ErrNotFound {
		p.log.Error("refresh token revoke failed", zap.Error(err))
		return serverError()
	}
	return nil
}
