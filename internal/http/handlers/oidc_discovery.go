package handlers

import (
	"net/http"

	"github.com/dropDatabas3/janus/internal/oauth2"
)

// NewDiscovery sirve el discovery document pre-serializado. El mismo
// handler atiende ambos well-known: la respuesta es byte-idéntica.
func NewDiscovery(p *oauth2.Provider) http.HandlerFunc {
	doc := p.DiscoveryJSON()
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json; charset=utf-8")
		w.Header().Set("Cache-Control", "public, max-age=300")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write(doc)
	}
}
