// Package pg implementa core.Repository sobre PostgreSQL (pgx).
package pg

import (
	"context"
	"errors"
	"time"

	"github.com/dropDatabas3/janus/internal/store/core"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type Store struct{ pool *pgxpool.Pool }

type Config struct {
	MaxConns        int
	MinConns        int
	ConnMaxLifetime time.Duration
}

func New(ctx context.Context, dsn string, cfg Config) (*Store, error) {
	pcfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, err
	}
	if cfg.MaxConns > 0 {
		pcfg.MaxConns = int32(cfg.MaxConns)
	}
	if cfg.MinConns > 0 {
		pcfg.MinConns = int32(cfg.MinConns)
	}
	if cfg.ConnMaxLifetime > 0 {
		pcfg.MaxConnLifetime = cfg.ConnMaxLifetime
	}
	pool, err := pgxpool.NewWithConfig(ctx, pcfg)
	if err != nil {
		return nil, err
	}
	return &Store{pool: pool}, nil
}

// Pool expone el pool interno (metrics/migraciones).
func (s *Store) Pool() *pgxpool.Pool { return s.pool }

func (s *Store) Ping(ctx context.Context) error { return s.pool.Ping(ctx) }

func (s *Store) Close() {
	if s != nil && s.pool != nil {
		s.pool.Close()
	}
}

func mapErr(err error) error {
	if errors.Is(err, pgx.ErrNoRows) {
		return core.ErrNotFound
	}
	return err
}

// ====================== Clients ======================

func (s *Store) CreateClient(ctx context.Context, c *core.Client) error {
	const q = `
		INSERT INTO oauth_client (id, client_id, name, client_type, source, secret_hash, redirect_uris, scopes, created_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)
		ON CONFLICT (client_id) DO UPDATE
		SET redirect_uris = EXCLUDED.redirect_uris,
		    scopes        = EXCLUDED.scopes
		WHERE oauth_client.source = 'cimd'`
	if c.ID == "" {
		c.ID = uuid.NewString()
	}
	if c.CreatedAt.IsZero() {
		c.CreatedAt = time.Now().UTC()
	}
	_, err := s.pool.Exec(ctx, q,
		c.ID, c.ClientID, c.Name, string(c.Type), string(c.Source),
		c.SecretHash, c.RedirectURIs, c.Scopes, c.CreatedAt,
	)
	return err
}

func (s *Store) GetClientByClientID(ctx context.Context, clientID string) (*core.Client, error) {
	const q = `
		SELECT id, client_id, name, client_type, source, secret_hash, redirect_uris, scopes, created_at
		FROM oauth_client WHERE client_id = $1`
	var c core.Client
	var typ, src string
	err := s.pool.QueryRow(ctx, q, clientID).Scan(
		&c.ID, &c.ClientID, &c.Name, &typ, &src,
		&c.SecretHash, &c.RedirectURIs, &c.Scopes, &c.CreatedAt,
	)
	if err != nil {
		return nil, mapErr(err)
	}
	c.Type = core.ClientType(typ)
	c.Source = core.ClientSource(src)
	return &c, nil
}

// ====================== Users ======================

func (s *Store) CreateUser(ctx context.Context, u *core.User) error {
	const q = `
		INSERT INTO app_user (id, email, email_verified, name, picture, locale, phone_number, phone_verified, created_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)`
	if u.CreatedAt.IsZero() {
		u.CreatedAt = time.Now().UTC()
	}
	_, err := s.pool.Exec(ctx, q,
		u.ID, u.Email, u.EmailVerified, u.Name, u.Picture, u.Locale,
		u.PhoneNumber, u.PhoneVerified, u.CreatedAt,
	)
	return err
}

func (s *Store) GetUserByID(ctx context.Context, id string) (*core.User, error) {
	const q = `
		SELECT id, email, email_verified, name, picture, locale, phone_number, phone_verified, created_at
		FROM app_user WHERE id = $1`
	var u core.User
	err := s.pool.QueryRow(ctx, q, id).Scan(
		&u.ID, &u.Email, &u.EmailVerified, &u.Name, &u.Picture, &u.Locale,
		&u.PhoneNumber, &u.PhoneVerified, &u.CreatedAt,
	)
	if err != nil {
		return nil, mapErr(err)
	}
	return &u, nil
}

// ====================== Auth requests ======================

func (s *Store) CreateAuthRequest(ctx context.Context, ar *core.AuthRequest) error {
	const q = `
		INSERT INTO oauth_auth_request
			(id, client_id, redirect_uri, scopes, state, nonce, prompt, code_challenge, code_challenge_method, created_at, expires_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11)`
	_, err := s.pool.Exec(ctx, q,
		ar.ID, ar.ClientID, ar.RedirectURI, ar.Scopes, ar.State, ar.Nonce, ar.Prompt,
		ar.CodeChallenge, ar.CodeChallengeMethod, ar.CreatedAt, ar.ExpiresAt,
	)
	return err
}

func (s *Store) GetAuthRequest(ctx context.Context, id string) (*core.AuthRequest, error) {
	const q = `
		SELECT id, client_id, redirect_uri, scopes, state, nonce, prompt, code_challenge, code_challenge_method, created_at, expires_at
		FROM oauth_auth_request WHERE id = $1`
	var ar core.AuthRequest
	err := s.pool.QueryRow(ctx, q, id).Scan(
		&ar.ID, &ar.ClientID, &ar.RedirectURI, &ar.Scopes, &ar.State, &ar.Nonce, &ar.Prompt,
		&ar.CodeChallenge, &ar.CodeChallengeMethod, &ar.CreatedAt, &ar.ExpiresAt,
	)
	if err != nil {
		return nil, mapErr(err)
	}
	return &ar, nil
}

func (s *Store) DeleteAuthRequest(ctx context.Context, id string) error {
	tag, err := s.pool.Exec(ctx, `DELETE FROM oauth_auth_request WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return core.ErrNotFound
	}
	return nil
}

// ====================== Auth codes ======================

func (s *Store) CreateAuthCode(ctx context.Context, ac *core.AuthCode) error {
	const q = `
		INSERT INTO oauth_auth_code
			(code_hash, client_id, user_id, redirect_uri, scopes, nonce, code_challenge, code_challenge_method, auth_time, issued_at, expires_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11)`
	_, err := s.pool.Exec(ctx, q,
		ac.CodeHash, ac.ClientID, ac.UserID, ac.RedirectURI, ac.Scopes, ac.Nonce,
		ac.CodeChallenge, ac.CodeChallengeMethod, ac.AuthTime, ac.IssuedAt, ac.ExpiresAt,
	)
	return err
}

// ConsumeAuthCode usa DELETE ... RETURNING: un único statement atómico, por lo
// que dos redenciones concurrentes del mismo code resuelven exactamente una.
func (s *Store) ConsumeAuthCode(ctx context.Context, codeHash string) (*core.AuthCode, error) {
	const q = `
		DELETE FROM oauth_auth_code WHERE code_hash = $1
		RETURNING code_hash, client_id, user_id, redirect_uri, scopes, nonce, code_challenge, code_challenge_method, auth_time, issued_at, expires_at`
	var ac core.AuthCode
	err := s.pool.QueryRow(ctx, q, codeHash).Scan(
		&ac.CodeHash, &ac.ClientID, &ac.UserID, &ac.RedirectURI, &ac.Scopes, &ac.Nonce,
		&ac.CodeChallenge, &ac.CodeChallengeMethod, &ac.AuthTime, &ac.IssuedAt, &ac.ExpiresAt,
	)
	if err != nil {
		return nil, mapErr(err)
	}
	return &ac, nil
}

// ====================== Refresh tokens ======================

const insertRefreshSQL = `
	INSERT INTO oauth_refresh_token
		(id, token_hash, client_id, user_id, scopes, auth_time, issued_at, expires_at, rotated_from)
	VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)`

func (s *Store) CreateRefreshToken(ctx context.Context, rt *core.RefreshToken) error {
	_, err := s.pool.Exec(ctx, insertRefreshSQL,
		rt.ID, rt.TokenHash, rt.ClientID, rt.UserID, rt.Scopes,
		rt.AuthTime, rt.IssuedAt, rt.ExpiresAt, rt.RotatedFrom,
	)
	return err
}

func (s *Store) GetRefreshTokenByHash(ctx context.Context, tokenHash string) (*core.RefreshToken, error) {
	const q = `
		SELECT id, token_hash, client_id, user_id, scopes, auth_time, issued_at, expires_at, revoked_at, rotated_from
		FROM oauth_refresh_token WHERE token_hash = $1`
	var rt core.RefreshToken
	err := s.pool.QueryRow(ctx, q, tokenHash).Scan(
		&rt.ID, &rt.TokenHash, &rt.ClientID, &rt.UserID, &rt.Scopes,
		&rt.AuthTime, &rt.IssuedAt, &rt.ExpiresAt, &rt.RevokedAt, &rt.RotatedFrom,
	)
	if err != nil {
		return nil, mapErr(err)
	}
	return &rt, nil
}

// RotateRefreshToken revoca el viejo e inserta el nuevo en una transacción.
// El UPDATE condicional (revoked_at IS NULL) hace que una rotación concurrente
// del mismo token pierda con ErrNotFound.
func (s *Store) RotateRefreshToken(ctx context.Context, oldID string, next *core.RefreshToken) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	tag, err := tx.Exec(ctx,
		`UPDATE oauth_refresh_token SET revoked_at = now() WHERE id = $1 AND revoked_at IS NULL`, oldID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return core.ErrNotFound
	}
	next.RotatedFrom = &oldID
	if _, err := tx.Exec(ctx, insertRefreshSQL,
		next.ID, next.TokenHash, next.ClientID, next.UserID, next.Scopes,
		next.AuthTime, next.IssuedAt, next.ExpiresAt, next.RotatedFrom,
	); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

func (s *Store) RevokeRefreshToken(ctx context.Context, id string) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE oauth_refresh_token SET revoked_at = now() WHERE id = $1 AND revoked_at IS NULL`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		// ya revocado o inexistente: revocación idempotente
		return core.ErrNotFound
	}
	return nil
}

// ====================== Signing keys ======================

func (s *Store) InsertSigningKey(ctx context.Context, k *core.SigningKey) error {
	const q = `
		INSERT INTO signing_key (kid, alg, public_key, private_key, status, not_before, created_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7)`
	if k.CreatedAt.IsZero() {
		k.CreatedAt = time.Now().UTC()
	}
	_, err := s.pool.Exec(ctx, q,
		k.KID, k.Alg, k.PublicKey, k.PrivateKey, string(k.Status), k.NotBefore, k.CreatedAt,
	)
	return err
}

func (s *Store) GetActiveSigningKey(ctx context.Context) (*core.SigningKey, error) {
	const q = `
		SELECT kid, alg, public_key, private_key, status, not_before, created_at, rotated_at
		FROM signing_key WHERE status = 'active'
		ORDER BY created_at DESC LIMIT 1`
	return s.scanKeyRow(s.pool.QueryRow(ctx, q))
}

func (s *Store) ListPublicSigningKeys(ctx context.Context) ([]core.SigningKey, error) {
	const q = `
		SELECT kid, alg, public_key, NULL::bytea, status, not_before, created_at, rotated_at
		FROM signing_key WHERE status IN ('active','retiring')
		ORDER BY created_at DESC`
	rows, err := s.pool.Query(ctx, q)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []core.SigningKey
	for rows.Next() {
		k, err := s.scanKeyRow(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *k)
	}
	return out, rows.Err()
}

func (s *Store) MarkActiveKeyRetiring(ctx context.Context) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE signing_key SET status = 'retiring', rotated_at = now() WHERE status = 'active'`)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return core.ErrNotFound
	}
	return nil
}

type rowScanner interface{ Scan(dest ...any) error }

func (s *Store) scanKeyRow(row rowScanner) (*core.SigningKey, error) {
	var k core.SigningKey
	var status string
	err := row.Scan(&k.KID, &k.Alg, &k.PublicKey, &k.PrivateKey, &status, &k.NotBefore, &k.CreatedAt, &k.RotatedAt)
	if err != nil {
		return nil, mapErr(err)
	}
	k.Status = core.KeyStatus(status)
	return &k, nil
}

// ====================== Sweeper ======================

func (s *Store) DeleteExpiredAuthData(ctx context.Context, now time.Time) (int64, error) {
	var n int64
	tag, err := s.pool.Exec(ctx, `DELETE FROM oauth_auth_request WHERE expires_at < $1`, now)
	if err != nil {
		return n, err
	}
	n += tag.RowsAffected()
	tag, err = s.pool.Exec(ctx, `DELETE FROM oauth_auth_code WHERE expires_at < $1`, now)
	if err != nil {
		return n, err
	}
	n += tag.RowsAffected()
	return n, nil
}
