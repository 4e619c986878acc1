package jwt

import (
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"fmt"
	"time"

	"github.com/dropDatabas3/janus/internal/store/core"
	"github.com/google/uuid"
)

const rsaKeyBits = 2048

// GenerateRSA genera un keypair RSA para firmar RS256.
func GenerateRSA() (*rsa.PrivateKey, error) {
	return rsa.GenerateKey(rand.Reader, rsaKeyBits)
}

// NewSigningKey arma un core.SigningKey activo con KID fresco.
func NewSigningKey() (*core.SigningKey, error) {
	priv, err := GenerateRSA()
	if err != nil {
		return nil, err
	}
	privDER, err := x509.MarshalPKCS8PrivateKey(priv)
	if err != nil {
		return nil, err
	}
	pubDER, err := x509.MarshalPKIXPublicKey(&priv.PublicKey)
	if err != nil {
		return nil, err
	}
	now := time.Now().UTC()
	return &core.SigningKey{
		KID:        uuid.NewString(),
		Alg:        "RS256",
		PublicKey:  pubDER,
		PrivateKey: privDER,
		Status:     core.KeyActive,
		NotBefore:  now,
		CreatedAt:  now,
	}, nil
}

// ParsePrivateKey decodifica el PKCS#8 DER persistido.
func ParsePrivateKey(der []byte) (*rsa.PrivateKey, error) {
	k, err := x509.ParsePKCS8PrivateKey(der)
	if err != nil {
		return nil, fmt.Errorf("parse pkcs8: %w", err)
	}
	priv, ok := k.(*rsa.PrivateKey)
	if !ok {
		return nil, fmt.Errorf("signing key is not RSA")
	}
	return priv, nil
}

// ParsePublicKey decodifica el PKIX DER persistido.
func ParsePublicKey(der []byte) (*rsa.PublicKey, error) {
	k, err := x509.ParsePKIXPublicKey(der)
	if err != nil {
		return nil, fmt.Errorf("parse pkix: %w", err)
	}
	pub, ok := k.(*rsa.PublicKey)
	if !ok {
		return nil, fmt.Errorf("signing key is not RSA")
	}
	return pub, nil
}
