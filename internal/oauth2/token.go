package oauth2

import (
	"context"
	"crypto/sha256"
	"encoding/base64"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	tokens "github.com/dropDatabas3/janus/internal/security/token"
	"github.com/dropDatabas3/janus/internal/store/core"
)

// TokenRequest request parseada de POST /oauth2/token.
type TokenRequest struct {
	GrantType    string
	Code         string
	RedirectURI  string
	CodeVerifier string
	RefreshToken string
	Credentials  ClientCredentials
}

// TokenResponse respuesta exitosa del token endpoint.
type TokenResponse struct {
	AccessToken  string `json:"access_token"`
	TokenType    string `json:"token_type"`
	ExpiresIn    int    `json:"expires_in"`
	RefreshToken string `json:"refresh_token,omitempty"`
	IDToken      string `json:"id_token,omitempty"`
	Scope        string `json:"scope,omitempty"`
}

// Token despacha por grant_type.
func (p *Provider) Token(ctx context.Context, req TokenRequest) (*TokenResponse, *Error) {
	switch req.GrantType {
	case "authorization_code":
		return p.exchangeCode(ctx, req)
	case "refresh_token":
		return p.refreshGrant(ctx, req)
	case "":
		return nil, &Error{Err: "invalid_request", Description: "Missing grant_type"}
	default:
		return nil, &Error{Err: "unsupported_grant_type", Description: "Unsupported grant_type"}
	}
}

func (p *Provider) exchangeCode(ctx context.Context, req TokenRequest) (*TokenResponse, *Error) {
	if req.Code == "" {
		return nil, &Error{Err: "invalid_request", Description: "Missing code"}
	}

	cl, oerr := p.resolveClient(ctx, req.Credentials.ClientID)
	if oerr != nil {
		return nil, oerr
	}
	if oerr := p.authenticateClient(cl, req.Credentials); oerr != nil {
		return nil, oerr
	}

	// Consumo atómico: si dos requests traen el mismo code, una sola gana.
	ac, err := p.store.ConsumeAuthCode(ctx, tokens.SHA256Base64URL(req.Code))
	if err == core.ErrNotFound {
		return nil, &Error{Err: "invalid_grant", Description: "Invalid authorization code"}
	}
	if err != nil {
		p.log.Error("code consume failed", zap.Error(err))
		return nil, serverError()
	}
	if time.Now().UTC().After(ac.ExpiresAt) {
		return nil, &Error{Err: "invalid_grant", Description: "Authorization code expired"}
	}
	if ac.ClientID != cl.ClientID {
		// Code de otro client: no se filtra cuál.
		return nil, &Error{Err: "invalid_grant", Description: "Invalid authorization code"}
	}
	if req.RedirectURI != ac.RedirectURI {
		return nil, &Error{Err: "invalid_grant", Description: "redirect_uri mismatch"}
	}

	if ac.CodeChallenge != "" {
		if req.CodeVerifier == "" {
			return nil, &Error{Err: "invalid_request", Description: "Missing code_verifier"}
		}
		if !verifyPKCE(ac.CodeChallenge, req.CodeVerifier) {
			return nil, &Error{Err: "invalid_grant", Description: "PKCE verification failed"}
		}
	} else if req.CodeVerifier != "" {
		return nil, &Error{Err: "invalid_request", Description: "code_verifier not expected"}
	}

	return p.issueTokens(ctx, cl, ac.UserID, ac.Scopes, ac.Nonce, ac.AuthTime, true, "")
}

func (p *Provider) refreshGrant(ctx context.Context, req TokenRequest) (*TokenResponse, *Error) {
	if req.RefreshToken == "" {
		return nil, &Error{Err: "invalid_request", Description: "Missing refresh_token"}
	}

	cl, oerr := p.resolveClient(ctx, req.Credentials.ClientID)
	if oerr != nil {
		return nil, oerr
	}
	if oerr := p.authenticateClient(cl, req.Credentials); oerr != nil {
		return nil, oerr
	}

	rt, err := p.store.GetRefreshTokenByHash(ctx, tokens.SHA256Base64URL(req.RefreshToken))
	if err == core.ErrNotFound {
		return nil, &Error{Err: "invalid_grant", Description: "Invalid refresh token"}
	}
	if err != nil {
		p.log.Error("refresh token lookup failed", zap.Error(err))
		return nil, serverError()
	}
	if rt.ClientID != cl.ClientID {
		return nil, &Error{Err: "invalid_grant", Description: "Invalid refresh token"}
	}
	if !rt.Active(time.Now().UTC()) {
		return nil, &Error{Err: "invalid_grant", Description: "Refresh token expired or revoked"}
	}

	if !p.cfg.RotateRefresh {
		resp, oerr := p.issueTokens(ctx, cl, rt.UserID, rt.Scopes, "", rt.AuthTime, false, "")
		if oerr != nil {
			return nil, oerr
		}
		resp.RefreshToken = req.RefreshToken
		return resp, nil
	}

	return p.issueTokens(ctx, cl, rt.UserID, rt.Scopes, "", rt.AuthTime, true, rt.ID)
}

// issueTokens emite access (+refresh, +ID si hay openid). rotateFromID != ""
// hace la rotación transaccional contra ese refresh token.
func (p *Provider) issueTokens(ctx context.Context, cl *core.Client, userID string, scopes []string, nonce string, authTime time.Time, withRefresh bool, rotateFromID string) (*TokenResponse, *Error) {
	now := time.Now().UTC()

	access, _, err := p.issuer.SignWithClaims(ctx, map[string]any{
		"sub":   userID,
		"aud":   cl.ClientID,
		"scope": strings.Join(scopes, " "),
		"jti":   uuid.NewString(),
	})
	if err != nil {
		p.log.Error("access token sign failed", zap.Error(err))
		return nil, serverError()
	}

	resp := &TokenResponse{
		AccessToken: access,
		TokenType:   "Bearer",
		ExpiresIn:   int(p.cfg.AccessTTL.Seconds()),
		Scope:       strings.Join(scopes, " "),
	}

	if withRefresh {
		raw, err := tokens.GenerateOpaque(32)
		if err != nil {
			p.log.Error("refresh token generation failed", zap.Error(err))
			return nil, serverError()
		}
		next := &core.RefreshToken{
			ID:        uuid.NewString(),
			TokenHash: tokens.SHA256Base64URL(raw),
			ClientID:  cl.ClientID,
			UserID:    userID,
			Scopes:    scopes,
			AuthTime:  authTime,
			IssuedAt:  now,
			ExpiresAt: now.Add(p.cfg.RefreshTTL),
		}
		if rotateFromID != "" {
			err = p.store.RotateRefreshToken(ctx, rotateFromID, next)
			if err == core.ErrNotFound {
				// Carrera de rotación: otro request ya consumió este token.
				return nil, &Error{Err: "invalid_grant", Description: "Invalid refresh token"}
			}
		} else {
			err = p.store.CreateRefreshToken(ctx, next)
		}
		if err != nil {
			p.log.Error("refresh token persist failed", zap.Error(err))
			return nil, serverError()
		}
		resp.RefreshToken = raw
	}

	if hasScope(scopes, "openid") {
		idToken, oerr := p.signIDToken(ctx, cl, userID, scopes, nonce, authTime, access)
		if oerr != nil {
			return nil, oerr
		}
		resp.IDToken = idToken
	}
	return resp, nil
}

func (p *Provider) signIDToken(ctx context.Context, cl *core.Client, userID string, scopes []string, nonce string, authTime time.Time, access string) (string, *Error) {
	u, err := p.store.GetUserByID(ctx, userID)
	if err != nil && err != core.ErrNotFound {
		p.log.Error("user lookup failed", zap.Error(err))
		return "", serverError()
	}

	claims := map[string]any{
		"sub":       userID,
		"aud":       cl.ClientID,
		"auth_time": authTime.Unix(),
		"at_hash":   atHash(access),
	}
	if nonce != "" {
		claims["nonce"] = nonce
	}
	if u != nil {
		for k, v := range scopedClaims(u, scopes) {
			claims[k] = v
		}
	}

	idToken, _, err := p.issuer.SignWithClaims(ctx, claims)
	if err != nil {
		p.log.Error("id token sign failed", zap.Error(err))
		return "", serverError()
	}
	return idToken, nil
}

// atHash: mitad izquierda del SHA-256 del access token, base64url sin padding
// (OIDC Core 3.1.3.6 para RS256).
func atHash(accessToken string) string {
	sum := sha256.Sum256([]byte(accessToken))
	return base64.RawURLEncoding.EncodeToString(sum[:16])
}
