// Package memory implementa core.Repository en memoria.
// Pensado para desarrollo y tests; un deployment real usa pg.
package memory

import (
	"context"
	"sync"
	"time"

	"github.com/dropDatabas3/janus/internal/store/core"
	"github.com/google/uuid"
)

type Store struct {
	mu sync.Mutex

	clients      map[string]*core.Client // por client_id
	users        map[string]*core.User
	authRequests map[string]*core.AuthRequest
	authCodes    map[string]*core.AuthCode    // por code_hash
	refresh      map[string]*core.RefreshToken // por id
	refreshHash  map[string]string             // token_hash -> id
	keys         []*core.SigningKey
}

func New() *Store {
	return &Store{
		clients:      make(map[string]*core.Client),
		users:        make(map[string]*core.User),
		authRequests: make(map[string]*core.AuthRequest),
		authCodes:    make(map[string]*core.AuthCode),
		refresh:      make(map[string]*core.RefreshToken),
		refreshHash:  make(map[string]string),
	}
}

func (s *Store) Ping(context.Context) error { return nil }
func (s *Store) Close()                     {}

// ====================== Clients ======================

func (s *Store) CreateClient(_ context.Context, c *core.Client) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.clients[c.ClientID]; ok {
		if c.Source != core.ClientCIMD {
			return core.ErrConflict
		}
	}
	if c.ID == "" {
		c.ID = uuid.NewString()
	}
	if c.CreatedAt.IsZero() {
		c.CreatedAt = time.Now().UTC()
	}
	cp := *c
	s.clients[c.ClientID] = &cp
	return nil
}

func (s *Store) GetClientByClientID(_ context.Context, clientID string) (*core.Client, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.clients[clientID]
	if !ok {
		return nil, core.ErrNotFound
	}
	cp := *c
	return &cp, nil
}

// ====================== Users ======================

func (s *Store) CreateUser(_ context.Context, u *core.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if u.ID == "" {
		u.ID = uuid.NewString()
	}
	if _, ok := s.users[u.ID]; ok {
		return core.ErrConflict
	}
	cp := *u
	s.users[u.ID] = &cp
	return nil
}

func (s *Store) GetUserByID(_ context.Context, id string) (*core.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[id]
	if !ok {
		return nil, core.ErrNotFound
	}
	cp := *u
	return &cp, nil
}

// ====================== Auth requests ======================

func (s *Store) CreateAuthRequest(_ context.Context, ar *core.AuthRequest) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.authRequests[ar.ID]; ok {
		return core.ErrConflict
	}
	cp := *ar
	s.authRequests[ar.ID] = &cp
	return nil
}

func (s *Store) GetAuthRequest(_ context.Context, id string) (*core.AuthRequest, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	ar, ok := s.authRequests[id]
	if !ok {
		return nil, core.ErrNotFound
	}
	cp := *ar
	return &cp, nil
}

func (s *Store) DeleteAuthRequest(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.authRequests[id]; !ok {
		return core.ErrNotFound
	}
	delete(s.authRequests, id)
	return nil
}

// ====================== Auth codes ======================

func (s *Store) CreateAuthCode(_ context.Context, ac *core.AuthCode) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.authCodes[ac.CodeHash]; ok {
		return core.ErrConflict
	}
	cp := *ac
	s.authCodes[ac.CodeHash] = &cp
	return nil
}

// ConsumeAuthCode: fetch-and-delete bajo el mismo lock ⇒ linealizable por code.
// Dos redenciones concurrentes del mismo code: una gana, la otra ErrNotFound.
func (s *Store) ConsumeAuthCode(_ context.Context, codeHash string) (*core.AuthCode, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	ac, ok := s.authCodes[codeHash]
	if !ok {
		return nil, core.ErrNotFound
	}
	delete(s.authCodes, codeHash)
	cp := *ac
	return &cp, nil
}

// ====================== Refresh tokens ======================

func (s *Store) CreateRefreshToken(_ context.Context, rt *core.RefreshToken) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.insertRefreshLocked(rt)
}

func (s *Store) insertRefreshLocked(rt *core.RefreshToken) error {
	if rt.ID == "" {
		rt.ID = uuid.NewString()
	}
	if _, ok := s.refreshHash[rt.TokenHash]; ok {
		return core.ErrConflict
	}
	cp := *rt
	s.refresh[rt.ID] = &cp
	s.refreshHash[rt.TokenHash] = rt.ID
	return nil
}

func (s *Store) GetRefreshTokenByHash(_ context.Context, tokenHash string) (*core.RefreshToken, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	id, ok := s.refreshHash[tokenHash]
	if !ok {
		return nil, core.ErrNotFound
	}
	cp := *s.refresh[id]
	return &cp, nil
}

func (s *Store) RotateRefreshToken(_ context.Context, oldID string, next *core.RefreshToken) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	old, ok := s.refresh[oldID]
	if !ok || old.RevokedAt != nil {
		return core.ErrNotFound
	}
	now := time.Now().UTC()
	old.RevokedAt = &now
	next.RotatedFrom = &oldID
	return s.insertRefreshLocked(next)
}

func (s *Store) RevokeRefreshToken(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	rt, ok := s.refresh[id]
	if !ok {
		return core.ErrNotFound
	}
	if rt.RevokedAt == nil {
		now := time.Now().UTC()
		rt.RevokedAt = &now
	}
	return nil
}

// ====================== Signing keys ======================

func (s *Store) InsertSigningKey(_ context.Context, k *core.SigningKey) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *k
	s.keys = append(s.keys, &cp)
	return nil
}

func (s *Store) GetActiveSigningKey(context.Context) (*core.SigningKey, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := len(s.keys) - 1; i >= 0; i-- {
		if s.keys[i].Status == core.KeyActive {
			cp := *s.keys[i]
			return &cp, nil
		}
	}
	return nil, core.ErrNotFound
}

func (s *Store) ListPublicSigningKeys(context.Context) ([]core.SigningKey, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]core.SigningKey, 0, len(s.keys))
	for _, k := range s.keys {
		if k.Status == core.KeyRetired {
			continue
		}
		cp := *k
		cp.PrivateKey = nil
		out = append(out, cp)
	}
	return out, nil
}

func (s *Store) MarkActiveKeyRetiring(context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	found := false
	now := time.Now().UTC()
	for _, k := range s.keys {
		if k.Status == core.KeyActive {
			k.Status = core.KeyRetiring
			k.RotatedAt = &now
			found = true
		}
	}
	if !found {
		return core.ErrNotFound
	}
	return nil
}

// ====================== Sweeper ======================

// DeleteExpiredAuthData reclama requests y codes vencidos.
func (s *Store) DeleteExpiredAuthData(_ context.Context, now time.Time) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var n int64
	for id, ar := range s.authRequests {
		if now.After(ar.ExpiresAt) {
			delete(s.authRequests, id)
			n++
		}
	}
	for h, ac := range s.authCodes {
		if now.After(ac.ExpiresAt) {
			delete(s.authCodes, h)
			n++
		}
	}
	return n, nil
}
