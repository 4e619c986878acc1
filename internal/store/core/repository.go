package core

import (
	"context"
	"time"
)

// Repository es el contrato del data-plane. Implementaciones: pg (producción)
// y memory (dev/tests). Todas las operaciones son seguras para uso concurrente.
type Repository interface {
	Ping(ctx context.Context) error
	Close()

	// Clients
	CreateClient(ctx context.Context, c *Client) error
	GetClientByClientID(ctx context.Context, clientID string) (*Client, error)

	// Users (provisionados por el sistema de identidad externo)
	CreateUser(ctx context.Context, u *User) error
	GetUserByID(ctx context.Context, id string) (*User, error)

	// Authorization requests (puente /authorize → login)
	CreateAuthRequest(ctx context.Context, ar *AuthRequest) error
	GetAuthRequest(ctx context.Context, id string) (*AuthRequest, error)
	DeleteAuthRequest(ctx context.Context, id string) error

	// Authorization codes.
	// ConsumeAuthCode hace fetch-and-delete ATÓMICO por hash: bajo redención
	// concurrente del mismo code exactamente una llamada retorna el registro,
	// el resto ErrNotFound. Esta es la propiedad de correctitud central.
	CreateAuthCode(ctx context.Context, ac *AuthCode) error
	ConsumeAuthCode(ctx context.Context, codeHash string) (*AuthCode, error)

	// Refresh tokens
	CreateRefreshToken(ctx context.Context, rt *RefreshToken) error
	GetRefreshTokenByHash(ctx context.Context, tokenHash string) (*RefreshToken, error)
	// RotateRefreshToken revoca oldID e inserta next en una sola transacción.
	// Retorna ErrNotFound si oldID ya no existe o ya estaba revocado.
	RotateRefreshToken(ctx context.Context, oldID string, next *RefreshToken) error
	RevokeRefreshToken(ctx context.Context, id string) error

	// Signing keys
	InsertSigningKey(ctx context.Context, k *SigningKey) error
	GetActiveSigningKey(ctx context.Context) (*SigningKey, error)
	ListPublicSigningKeys(ctx context.Context) ([]SigningKey, error)
	// MarkActiveKeyRetiring degrada la clave activa a retiring (rotación).
	MarkActiveKeyRetiring(ctx context.Context) error

	// Limpieza TTL. La correctitud NO depende del sweeper: los checks de
	// expires_at en redeem/complete rechazan registros vencidos igual.
	DeleteExpiredAuthData(ctx context.Context, now time.Time) (int64, error)
}
