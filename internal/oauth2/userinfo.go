package oauth2

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"github.com/dropDatabas3/janus/internal/store/core"
)

// Userinfo valida el access token y devuelve los claims del subject
// filtrados por los scopes concedidos (OIDC Core §5.3).
func (p *Provider) Userinfo(ctx context.Context, rawAccessToken string) (map[string]any, *Error) {
	if rawAccessToken == "" {
		return nil, &Error{Err: "invalid_token", Description: "Missing access token"}
	}
	claims, err := p.issuer.Parse(ctx, rawAccessToken)
	if err != nil {
		return nil, &Error{Err: "invalid_token", Description: "Invalid or expired access token"}
	}
	sub, _ := claims["sub"].(string)
	scope, _ := claims["scope"].(string)
	scopes := strings.Fields(scope)
	if sub == "" || !hasScope(scopes, "openid") {
		return nil, &Error{Err: "invalid_token", Description: "Token not valid for userinfo"}
	}

	out := map[string]any{"sub": sub}
	u, err := p.store.GetUserByID(ctx, sub)
	if err == core.ErrNotFound {
		return out, nil
	}
	if err != nil {
		p.log.Error("user lookup failed", zap.Error(err))
		return nil, serverError()
	}
	for k, v := range scopedClaims(u, scopes) {
		out[k] = v
	}
	return out, nil
}

// scopedClaims mapea perfil → claims OIDC según scopes (profile/email/phone).
func scopedClaims(u *core.User, scopes []string) map[string]any {
	out := map[string]any{}
	if hasScope(scopes, "profile") {
		if u.Name != "" {
			out["name"] = u.Name
		}
		if u.Picture != "" {
			out["picture"] = u.Picture
		}
		if u.Locale != "" {
			out["locale"] = u.Locale
		}
	}
	if hasScope(scopes, "email") && u.Email != "" {
		out["email"] = u.Email
		out["email_verified"] = u.EmailVerified
	}
	if hasScope(scopes, "phone") && u.PhoneNumber != "" {
		out["phone_number"] = u.PhoneNumber
		out["phone_number_verified"] = u.PhoneVerified
	}
	return out
}
