package handlers

import (
	"net/http"

	"github.com/dropDatabas3/janus/internal/cache"
	httpx "github.com/dropDatabas3/janus/internal/http"
	"github.com/dropDatabas3/janus/internal/store/core"
)

// NewReadyz verifica store y cache. 503 si alguna dependencia no responde.
func NewReadyz(store core.Repository, cc cache.Client) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		status := map[string]string{"store": "ok", "cache": "ok"}
		healthy := true

		if err := store.Ping(r.Context()); err != nil {
			status["store"] = err.Error()
			healthy = false
		}
		if cc != nil {
			if err := cc.Ping(r.Context()); err != nil {
				status["cache"] = err.Error()
				healthy = false
			}
		}

		code := http.StatusOK
		if !healthy {
			code = http.StatusServiceUnavailable
		}
		httpx.WriteJSON(w, code, status)
	}
}
