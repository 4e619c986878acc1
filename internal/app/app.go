// Package app arma el grafo de dependencias a partir de la config.
package app

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/dropDatabas3/janus/internal/cache"
	"github.com/dropDatabas3/janus/internal/config"
	httpx "github.com/dropDatabas3/janus/internal/http"
	"github.com/dropDatabas3/janus/internal/http/handlers"
	jwtx "github.com/dropDatabas3/janus/internal/jwt"
	"github.com/dropDatabas3/janus/internal/oauth2"
	"github.com/dropDatabas3/janus/internal/observability/logger"
	"github.com/dropDatabas3/janus/internal/store/core"
	"github.com/dropDatabas3/janus/internal/store/memory"
	"github.com/dropDatabas3/janus/internal/store/pg"
)

// Container agrupa las dependencias vivas del proceso.
type Container struct {
	Cfg      *config.Config
	Log      *zap.Logger
	Store    core.Repository
	Cache    cache.Client
	Keystore *jwtx.Keystore
	Issuer   *jwtx.Issuer
	Provider *oauth2.Provider
	Router   http.Handler
}

func New(ctx context.Context, cfg *config.Config) (*Container, error) {
	log := logger.L()

	store, err := newStore(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("app: store: %w", err)
	}

	cc, err := cache.New(cache.Config{
		Driver:   cfg.Cache.Driver,
		Addr:     cfg.Cache.Redis.Addr,
		Password: cfg.Cache.Redis.Password,
		DB:       cfg.Cache.Redis.DB,
		Prefix:   cfg.Cache.Redis.Prefix,
	})
	if err != nil {
		store.Close()
		return nil, fmt.Errorf("app: cache: %w", err)
	}

	ks := jwtx.NewKeystore(store)
	if err := ks.EnsureBootstrap(ctx); err != nil {
		store.Close()
		_ = cc.Close()
		return nil, fmt.Errorf("app: keystore bootstrap: %w", err)
	}

	iss := strings.TrimRight(cfg.OAuth2.Issuer, "/")
	issuer := jwtx.NewIssuer(iss, ks)

	provider := oauth2.NewProvider(store, issuer, cc, oauth2.Config{
		Issuer:            iss,
		LoginURL:          cfg.OAuth2.LoginURL,
		AccessTTL:         cfg.AccessTTL(),
		RefreshTTL:        cfg.RefreshTTL(),
		AuthRequestTTL:    cfg.AuthRequestTTL(),
		CodeTTL:           cfg.CodeTTL(),
		RotateRefresh:     cfg.RotateRefresh(),
		ScopesSupported:   cfg.OAuth2.ScopesSupported,
		CIMDEnabled:       cfg.OAuth2.CIMD.Enabled,
		CIMDAllowInsecure: cfg.OAuth2.CIMD.AllowInsecure,
	}, log)

	metricsHandler, err := httpx.RegisterMetrics(nil)
	if err != nil {
		log.Warn("metrics registration failed", zap.Error(err))
	}

	router := httpx.NewRouter(httpx.Routes{
		Discovery:  handlers.NewDiscovery(provider),
		JWKS:       handlers.NewJWKS(ks),
		Authorize:  handlers.NewAuthorize(provider),
		Login:      handlers.NewLogin(provider, cfg.OAuth2.IdentityIssuer),
		Token:      handlers.NewToken(provider),
		Userinfo:   handlers.NewUserinfo(provider),
		Introspect: handlers.NewIntrospect(provider),
		Revoke:     handlers.NewRevoke(provider),
		Readyz:     handlers.NewReadyz(store, cc),
		Metrics:    metricsHandler,
		Log:        log,
	})

	return &Container{
		Cfg:      cfg,
		Log:      log,
		Store:    store,
		Cache:    cc,
		Keystore: ks,
		Issuer:   issuer,
		Provider: provider,
		Router:   router,
	}, nil
}

func newStore(ctx context.Context, cfg *config.Config) (core.Repository, error) {
	switch cfg.Storage.Driver {
	case "postgres":
		var lifetime time.Duration
		if cfg.Storage.Postgres.ConnMaxLifetime != "" {
			lifetime, _ = time.ParseDuration(cfg.Storage.Postgres.ConnMaxLifetime)
		}
		return pg.New(ctx, cfg.Storage.DSN, pg.Config{
			MaxConns:        cfg.Storage.Postgres.MaxConns,
			ConnMaxLifetime: lifetime,
		})
	case "memory", "":
		return memory.New(), nil
	default:
		return nil, fmt.Errorf("unknown storage driver %q", cfg.Storage.Driver)
	}
}

// RunSweeper borra auth requests y codes vencidos cada interval hasta que
// el contexto muera. La correctitud no depende de esto; es higiene.
func (c *Container) RunSweeper(ctx context.Context, interval time.Duration) {
	log := c.Log.Named("sweeper")
	t := time.NewTicker(interval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			n, err := c.Store.DeleteExpiredAuthData(ctx, time.Now().UTC())
			if err != nil {
				log.Warn("sweep failed", zap.Error(err))
				continue
			}
			if n > 0 {
				log.Debug("swept expired auth data", zap.Int64("count", n))
			}
		}
	}
}

// Close libera recursos en orden inverso al armado.
func (c *Container) Close() {
	if c.Cache != nil {
		_ = c.Cache.Close()
	}
	if c.Store != nil {
		c.Store.Close()
	}
}
