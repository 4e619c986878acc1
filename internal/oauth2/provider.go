// Package oauth2 implementa el núcleo del Authorization Server:
// authorization code flow (+PKCE), client authentication, CIMD,
// emisión/rotación de tokens, introspection y revocation.
//
// Los handlers HTTP son adaptadores finos sobre este paquete; acá vive
// toda la semántica de protocolo.
package oauth2

import (
	"context"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/dropDatabas3/janus/internal/cache"
	jwtx "github.com/dropDatabas3/janus/internal/jwt"
	"github.com/dropDatabas3/janus/internal/store/core"
)

// Config parámetros de protocolo del provider.
type Config struct {
	Issuer   string // URL canónica del issuer, sin slash final
	LoginURL string // UI de login del sistema de identidad embebedor

	AccessTTL      time.Duration // access + ID tokens
	RefreshTTL     time.Duration
	AuthRequestTTL time.Duration // /authorize → login
	CodeTTL        time.Duration // authorization codes

	// RotateRefresh: cada refresh revoca el token usado y emite uno nuevo.
	RotateRefresh bool

	ScopesSupported []string

	CIMDEnabled bool
	// CIMDAllowInsecure permite client_ids http:// (sólo dev/tests).
	CIMDAllowInsecure bool
}

func (c *Config) withDefaults() Config {
	out := *c
	if out.AccessTTL <= 0 {
		out.AccessTTL = 15 * time.Minute
	}
	if out.RefreshTTL <= 0 {
		out.RefreshTTL = 30 * 24 * time.Hour
	}
	if out.AuthRequestTTL <= 0 {
		out.AuthRequestTTL = 10 * time.Minute
	}
	if out.CodeTTL <= 0 {
		out.CodeTTL = 2 * time.Minute
	}
	if len(out.ScopesSupported) == 0 {
		out.ScopesSupported = []string{"openid", "profile", "email", "phone", "offline_access"}
	}
	return out
}

// Provider orquesta store, issuer y cache. Stateless: seguro para uso
// concurrente desde todos los handlers.
type Provider struct {
	store  core.Repository
	issuer *jwtx.Issuer
	cache  cache.Client
	cfg    Config
	log    *zap.Logger

	cimdHTTP  *http.Client
	discovery []byte // metadata document pre-serializado (byte-estable)
}

func NewProvider(store core.Repository, issuer *jwtx.Issuer, cc cache.Client, cfg Config, log *zap.Logger) *Provider {
	if log == nil {
		log = zap.NewNop()
	}
	p := &Provider{
		store:  store,
		issuer: issuer,
		cache:  cc,
		cfg:    cfg.withDefaults(),
		log:    log.Named("oauth2"),
	}
	p.issuer.AccessTTL = p.cfg.AccessTTL
	p.cimdHTTP = newCIMDHTTPClient(p.cfg.CIMDAllowInsecure)
	p.discovery = p.buildDiscovery()
	return p
}

// Issuer expone el signer para los handlers que validan JWTs propios (login).
func (p *Provider) Issuer() *jwtx.Issuer { return p.issuer }

func (p *Provider) scopeSupported(s string) bool {
	for _, v := range p.cfg.ScopesSupported {
		if v == s {
			return true
		}
	}
	return false
}

// resolveClient: lookup en el registry, con fetch CIMD cuando el client_id
// es una URL y CIMD está habilitado.
func (p *Provider) resolveClient(ctx context.Context, clientID string) (*core.Client, *Error) {
	if clientID == "" {
		return nil, &Error{Err: "invalid_request", Description: "Missing client_id"}
	}
	if p.cfg.CIMDEnabled && IsCIMDClientID(clientID) {
		return p.resolveCIMDClient(ctx, clientID)
	}
	cl, err := p.store.GetClientByClientID(ctx, clientID)
	if err == core.ErrNotFound {
		return nil, &Error{Err: "invalid_client", Description: "Unknown client"}
	}
	if err != nil {
		p.log.Error("client lookup failed", zap.Error(err))
		return nil, serverError()
	}
	return cl, nil
}
