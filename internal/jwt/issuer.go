package jwt

import (
	"context"
	"errors"
	"time"

	jwtv5 "github.com/golang-jwt/jwt/v5"
)

// Issuer firma tokens RS256 usando la clave activa del keystore.
type Issuer struct {
	Iss       string        // "iss"
	Keys      *Keystore     // keystore persistente
	AccessTTL time.Duration // TTL de Access/ID (fijo server-side; expires_in sale de acá)
}

func NewIssuer(iss string, ks *Keystore) *Issuer {
	return &Issuer{
		Iss:       iss,
		Keys:      ks,
		AccessTTL: 15 * time.Minute,
	}
}

// SignWithClaims firma un MapClaims arbitrario con iss/iat/nbf/exp estándar
// y header kid/typ. Retorna (token, exp).
func (i *Issuer) SignWithClaims(ctx context.Context, claims map[string]any) (string, time.Time, error) {
	now := time.Now().UTC()
	exp := now.Add(i.AccessTTL)

	kid, priv, err := i.Keys.Active(ctx)
	if err != nil {
		return "", time.Time{}, err
	}

	mc := jwtv5.MapClaims{
		"iss": i.Iss,
		"iat": now.Unix(),
		"nbf": now.Unix(),
		"exp": exp.Unix(),
	}
	for k, v := range claims {
		mc[k] = v
	}
	tk := jwtv5.NewWithClaims(jwtv5.SigningMethodRS256, mc)
	tk.Header["kid"] = kid
	tk.Header["typ"] = "JWT"

	signed, err := tk.SignedString(priv)
	if err != nil {
		return "", time.Time{}, err
	}
	return signed, exp, nil
}

// Keyfunc devuelve un jwt.Keyfunc que elige la pubkey por 'kid' del header
// (active o retiring). Sin kid el token falla: siempre firmamos con kid.
func (i *Issuer) Keyfunc(ctx context.Context) jwtv5.Keyfunc {
	return func(t *jwtv5.Token) (any, error) {
		kid, _ := t.Header["kid"].(string)
		if kid == "" {
			return nil, errors.New("kid_missing")
		}
		return i.Keys.PublicKeyByKID(ctx, kid)
	}
}

// Parse valida firma (RS256, kid del JWKS), issuer y exp, y retorna los claims.
func (i *Issuer) Parse(ctx context.Context, raw string) (jwtv5.MapClaims, error) {
	tk, err := jwtv5.Parse(raw, i.Keyfunc(ctx),
		jwtv5.WithValidMethods([]string{"RS256"}),
		jwtv5.WithIssuer(i.Iss),
		jwtv5.WithExpirationRequired(),
	)
	if err != nil {
		return nil, err
	}
	claims, ok := tk.Claims.(jwtv5.MapClaims)
	if !ok || !tk.Valid {
		return nil, errors.New("invalid_token")
	}
	return claims, nil
}
