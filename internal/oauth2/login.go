package oauth2

import (
	"context"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"

	tokens "github.com/dropDatabas3/janus/internal/security/token"
	"github.com/dropDatabas3/janus/internal/store/core"
)

// LoginRequestInfo es el preview que la UI de login muestra antes del consent.
type LoginRequestInfo struct {
	RequestID   string   `json:"request_id"`
	ClientID    string   `json:"client_id"`
	ClientName  string   `json:"client_name,omitempty"`
	Scopes      []string `json:"scopes"`
	RedirectURI string   `json:"redirect_uri"`
	Prompt      string   `json:"prompt,omitempty"`
}

// GetLoginRequest devuelve el preview de un auth request pendiente.
func (p *Provider) GetLoginRequest(ctx context.Context, requestID string) (*LoginRequestInfo, *Error) {
	ar, oerr := p.loadAuthRequest(ctx, requestID)
	if oerr != nil {
		return nil, oerr
	}
	info := &LoginRequestInfo{
		RequestID:   ar.ID,
		ClientID:    ar.ClientID,
		Scopes:      ar.Scopes,
		RedirectURI: ar.RedirectURI,
		Prompt:      ar.Prompt,
	}
	if cl, err := p.store.GetClientByClientID(ctx, ar.ClientID); err == nil {
		info.ClientName = cl.Name
	}
	return info, nil
}

// CompleteLogin consume el auth request y emite el authorization code
// ligado al subject autenticado. Retorna el redirect final al client
// (redirect_uri?code=...&state=...&iss=...).
func (p *Provider) CompleteLogin(ctx context.Context, requestID, subject string) (string, *Error) {
	if subject == "" {
		return "", &Error{Err: "invalid_request", Description: "Missing subject"}
	}
	ar, oerr := p.loadAuthRequest(ctx, requestID)
	if oerr != nil {
		return "", oerr
	}
	// Borrado primero: un request completado no puede volver a usarse.
	if err := p.store.DeleteAuthRequest(ctx, ar.ID); err != nil {
		if err == core.ErrNotFound {
			return "", &Error{Err: "invalid_request", Description: "Unknown or expired request_id"}
		}
		p.log.Error("auth request delete failed", zap.Error(err))
		return "", serverError()
	}

	code, err := tokens.GenerateOpaque(32)
	if err != nil {
		p.log.Error("code generation failed", zap.Error(err))
		return "", serverError()
	}
	now := time.Now().UTC()
	ac := &core.AuthCode{
		CodeHash:            tokens.SHA256Base64URL(code),
		ClientID:            ar.ClientID,
		UserID:              subject,
		RedirectURI:         ar.RedirectURI,
		Scopes:              ar.Scopes,
		Nonce:               ar.Nonce,
		CodeChallenge:       ar.CodeChallenge,
		CodeChallengeMethod: ar.CodeChallengeMethod,
		AuthTime:            now,
		IssuedAt:            now,
		ExpiresAt:           now.Add(p.cfg.CodeTTL),
	}
	if err := p.store.CreateAuthCode(ctx, ac); err != nil {
		p.log.Error("code persist failed", zap.Error(err))
		return "", serverError()
	}

	q := url.Values{}
	q.Set("code", code)
	if ar.State != "" {
		q.Set("state", ar.State)
	}
	q.Set("iss", p.cfg.Issuer)
	return appendQuery(ar.RedirectURI, q), nil
}

// DenyLogin descarta el auth request y redirige al client con access_denied.
func (p *Provider) DenyLogin(ctx context.Context, requestID string) (string, *Error) {
	ar, oerr := p.loadAuthRequest(ctx, requestID)
	if oerr != nil {
		return "", oerr
	}
	if err := p.store.DeleteAuthRequest(ctx, ar.ID); err != nil && err != core.ErrNotFound {
		p.log.Error("auth request delete failed", zap.Error(err))
		return "", serverError()
	}
	e := &Error{Err: "access_denied", Description: "The user denied the request"}
	return ErrorRedirectURL(ar.RedirectURI, ar.State, p.cfg.Issuer, e), nil
}

func (p *Provider) loadAuthRequest(ctx context.Context, requestID string) (*core.AuthRequest, *Error) {
	if requestID == "" {
		return nil, &Error{Err: "invalid_request", Description: "Missing request_id"}
	}
	ar, err := p.store.GetAuthRequest(ctx, requestID)
	if err == core.ErrNotFound {
		return nil, &Error{Err: "invalid_request", Description: "Unknown or expired request_id"}
	}
	if err != nil {
		p.log.Error("auth request lookup failed", zap.Error(err))
		return nil, serverError()
	}
	if time.Now().UTC().After(ar.ExpiresAt) {
		_ = p.store.DeleteAuthRequest(ctx, ar.ID)
		return nil, &Error{Err: "invalid_request", Description: "Authorization request expired"}
	}
	return ar, nil
}

func appendQuery(uri string, q url.Values) string {
	sep := "?"
	if strings.Contains(uri, "?") {
		sep = "&"
	}
	return uri + sep + q.Encode()
}
