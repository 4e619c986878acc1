package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

// Routes agrupa los handlers ya construidos. El wiring vive en internal/app;
// acá sólo se montan rutas y middlewares.
type Routes struct {
	Discovery  http.Handler
	JWKS       http.Handler
	Authorize  http.Handler
	Login      http.Handler
	Token      http.Handler
	Userinfo   http.Handler
	Introspect http.Handler
	Revoke     http.Handler
	Readyz     http.Handler
	Metrics    http.Handler

	Log *zap.Logger
}

func NewRouter(rt Routes) http.Handler {
	log := rt.Log
	if log == nil {
		log = zap.NewNop()
	}

	r := chi.NewRouter()
	r.Use(func(next http.Handler) http.Handler { return WithRequestID(next) })
	r.Use(func(next http.Handler) http.Handler { return WithRecover(log, next) })
	r.Use(func(next http.Handler) http.Handler { return WithLogging(log, next) })
	r.Use(func(next http.Handler) http.Handler { return WithMetrics(next) })
	r.Use(func(next http.Handler) http.Handler { return WithSecurityHeaders(next) })

	// Health
	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	r.Method(http.MethodGet, "/readyz", rt.Readyz)

	if rt.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", rt.Metrics)
	}

	// Discovery: mismo document byte a byte en ambos well-known.
	r.Method(http.MethodGet, "/.well-known/openid-configuration", rt.Discovery)
	r.Method(http.MethodGet, "/.well-known/oauth-authorization-server", rt.Discovery)

	// OAuth2/OIDC
	r.Method(http.MethodGet, "/oauth2/jwks", rt.JWKS)
	r.Method(http.MethodGet, "/oauth2/authorize", rt.Authorize)
	r.Method(http.MethodGet, "/oauth2/login", noStore(rt.Login))
	r.Method(http.MethodPost, "/oauth2/login", noStore(rt.Login))
	r.Method(http.MethodPost, "/oauth2/token", noStore(rt.Token))
	r.Method(http.MethodGet, "/oauth2/userinfo", noStore(rt.Userinfo))
	r.Method(http.MethodPost, "/oauth2/userinfo", noStore(rt.Userinfo))
	r.Method(http.MethodPost, "/oauth2/introspect", noStore(rt.Introspect))
	r.Method(http.MethodPost, "/oauth2/revoke", noStore(rt.Revoke))

	return r
}

func noStore(h http.Handler) http.Handler { return WithNoStore(h) }
