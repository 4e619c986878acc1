package jwt

import (
	"context"
	"crypto/rsa"
	"errors"
	"sync"
	"time"

	"github.com/dropDatabas3/janus/internal/store/core"
)

var (
	ErrNoActiveKey = errors.New("no_active_signing_key")
	ErrKIDNotFound = errors.New("kid_not_found")
)

type signingKeyStore interface {
	GetActiveSigningKey(ctx context.Context) (*core.SigningKey, error)
	ListPublicSigningKeys(ctx context.Context) ([]core.SigningKey, error)
	InsertSigningKey(ctx context.Context, k *core.SigningKey) error
	MarkActiveKeyRetiring(ctx context.Context) error
}

// Keystore mantiene cache local de la clave activa y lee de DB.
// Es el único estado global mutable del server (read-mostly, rotación rara),
// por eso vive como servicio inyectado y no como singleton.
type Keystore struct {
	store signingKeyStore

	mu         sync.RWMutex
	activeKID  string
	activePriv *rsa.PrivateKey
	cacheUntil time.Time
	cacheTTL   time.Duration

	lastJWKS  []byte
	jwksUntil time.Time
	jwksTTL   time.Duration
}

func NewKeystore(s signingKeyStore) *Keystore {
	return &Keystore{
		store:    s,
		cacheTTL: 30 * time.Second,
		jwksTTL:  15 * time.Second,
	}
}

// EnsureBootstrap: si no hay clave activa, genera una.
func (k *Keystore) EnsureBootstrap(ctx context.Context) error {
	_, err := k.store.GetActiveSigningKey(ctx)
	if err == nil {
		return nil
	}
	if !errors.Is(err, core.ErrNotFound) {
		return err
	}
	key, err := NewSigningKey()
	if err != nil {
		return err
	}
	return k.store.InsertSigningKey(ctx, key)
}

// Rotate degrada la activa a retiring e inserta una nueva activa.
// Las retiring siguen publicadas en el JWKS para tokens en vuelo.
func (k *Keystore) Rotate(ctx context.Context) (string, error) {
	if err := k.store.MarkActiveKeyRetiring(ctx); err != nil && !errors.Is(err, core.ErrNotFound) {
		return "", err
	}
	key, err := NewSigningKey()
	if err != nil {
		return "", err
	}
	if err := k.store.InsertSigningKey(ctx, key); err != nil {
		return "", err
	}
	k.mu.Lock()
	k.cacheUntil = time.Time{}
	k.jwksUntil = time.Time{}
	k.mu.Unlock()
	return key.KID, nil
}

// Active devuelve la clave de firma activa (cacheada).
func (k *Keystore) Active(ctx context.Context) (string, *rsa.PrivateKey, error) {
	k.mu.RLock()
	if time.Now().Before(k.cacheUntil) && k.activeKID != "" && k.activePriv != nil {
		defer k.mu.RUnlock()
		return k.activeKID, k.activePriv, nil
	}
	k.mu.RUnlock()

	k.mu.Lock()
	defer k.mu.Unlock()
	if time.Now().Before(k.cacheUntil) && k.activeKID != "" && k.activePriv != nil {
		return k.activeKID, k.activePriv, nil
	}

	rec, err := k.store.GetActiveSigningKey(ctx)
	if err != nil {
		if errors.Is(err, core.ErrNotFound) {
			return "", nil, ErrNoActiveKey
		}
		return "", nil, err
	}
	priv, err := ParsePrivateKey(rec.PrivateKey)
	if err != nil {
		return "", nil, err
	}
	k.activeKID = rec.KID
	k.activePriv = priv
	k.cacheUntil = time.Now().Add(k.cacheTTL)
	return k.activeKID, k.activePriv, nil
}

// PublicKeyByKID devuelve la pubkey para un KID (active o retiring).
func (k *Keystore) PublicKeyByKID(ctx context.Context, kid string) (*rsa.PublicKey, error) {
	k.mu.RLock()
	if kid != "" && kid == k.activeKID && k.activePriv != nil {
		pub := k.activePriv.Public().(*rsa.PublicKey)
		k.mu.RUnlock()
		return pub, nil
	}
	k.mu.RUnlock()

	recs, err := k.store.ListPublicSigningKeys(ctx)
	if err != nil {
		return nil, err
	}
	for _, r := range recs {
		if r.KID == kid {
			return ParsePublicKey(r.PublicKey)
		}
	}
	return nil, ErrKIDNotFound
}

// JWKSJSON construye el JWKS publicable a partir de DB (cache corto).
func (k *Keystore) JWKSJSON(ctx context.Context) ([]byte, error) {
	k.mu.RLock()
	if time.Now().Before(k.jwksUntil) && len(k.lastJWKS) > 0 {
		defer k.mu.RUnlock()
		return k.lastJWKS, nil
	}
	k.mu.RUnlock()

	k.mu.Lock()
	defer k.mu.Unlock()
	if time.Now().Before(k.jwksUntil) && len(k.lastJWKS) > 0 {
		return k.lastJWKS, nil
	}

	pubKeys, err := k.store.ListPublicSigningKeys(ctx)
	if err != nil {
		return nil, err
	}
	j, err := buildJWKS(pubKeys)
	if err != nil {
		return nil, err
	}
	k.lastJWKS = j
	k.jwksUntil = time.Now().Add(k.jwksTTL)
	return j, nil
}
