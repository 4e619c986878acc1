package core

import "time"

type ClientType string

const (
	ClientConfidential ClientType = "confidential"
	ClientPublic       ClientType = "public"
)

type ClientSource string

const (
	ClientRegistered ClientSource = "registered"
	ClientCIMD       ClientSource = "cimd"
)

// Client es la vista interna de un OAuth2 client.
// Invariante: confidential ⇒ SecretHash != nil; public/cimd ⇒ SecretHash == nil.
type Client struct {
	ID           string       `json:"id"`
	ClientID     string       `json:"client_id"` // para CIMD es una URL https
	Name         string       `json:"name"`
	Type         ClientType   `json:"client_type"`
	Source       ClientSource `json:"source"`
	SecretHash   *string      `json:"-"`
	RedirectURIs []string     `json:"redirect_uris"`
	Scopes       []string     `json:"scopes"`
	CreatedAt    time.Time    `json:"created_at"`
}

// AuthRequest es la request de /oauth2/authorize pendiente de login.
// Vive hasta que el usuario completa login/consent o expira (TTL corto).
type AuthRequest struct {
	ID                  string // request_id opaco
	ClientID            string
	RedirectURI         string
	Scopes              []string
	State               string
	Nonce               string
	Prompt              string
	CodeChallenge       string
	CodeChallengeMethod string // "S256" o vacío
	CreatedAt           time.Time
	ExpiresAt           time.Time
}

// AuthCode: authorization code de un solo uso. Guardamos el hash, nunca el
// code en claro. El consumo es atómico (ConsumeAuthCode).
type AuthCode struct {
	CodeHash            string
	ClientID            string
	UserID              string
	RedirectURI         string
	Scopes              []string
	Nonce               string
	CodeChallenge       string
	CodeChallengeMethod string
	AuthTime            time.Time
	IssuedAt            time.Time
	ExpiresAt           time.Time
}

// RefreshToken nunca se borra: se marca revocado para que introspection
// post-revoke siga respondiendo active:false.
type RefreshToken struct {
	ID          string
	TokenHash   string
	ClientID    string
	UserID      string
	Scopes      []string
	AuthTime    time.Time
	IssuedAt    time.Time
	ExpiresAt   time.Time
	RevokedAt   *time.Time
	RotatedFrom *string
}

func (rt *RefreshToken) Active(now time.Time) bool {
	return rt.RevokedAt == nil && now.Before(rt.ExpiresAt)
}

// User es la identidad provista por el sistema externo de identidad.
// Sólo necesitamos el perfil para los claims de ID token / userinfo.
type User struct {
	ID            string
	Email         string
	EmailVerified bool
	Name          string
	Picture       string
	Locale        string
	PhoneNumber   string
	PhoneVerified bool
	CreatedAt     time.Time
}

type KeyStatus string

const (
	KeyActive   KeyStatus = "active"
	KeyRetiring KeyStatus = "retiring"
	KeyRetired  KeyStatus = "retired"
)

// SigningKey: keypair RSA para firmar tokens. Exactamente una activa;
// las retiring quedan en el JWKS para verificar tokens en vuelo.
type SigningKey struct {
	KID        string
	Alg        string // "RS256"
	PublicKey  []byte // PKIX DER
	PrivateKey []byte // PKCS#8 DER; puede ser nil en prod/KMS
	Status     KeyStatus
	NotBefore  time.Time
	CreatedAt  time.Time
	RotatedAt  *time.Time
}
