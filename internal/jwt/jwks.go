package jwt

import (
	"encoding/base64"
	"encoding/json"
	"math/big"

	"github.com/dropDatabas3/janus/internal/store/core"
)

type jwk struct {
	Kty string `json:"kty"`
	Use string `json:"use"`
	Alg string `json:"alg"`
	Kid string `json:"kid"`
	N   string `json:"n"`
	E   string `json:"e"`
}

type jwks struct {
	Keys []jwk `json:"keys"`
}

// buildJWKS publica todas las claves no retiradas como JWKs RSA.
func buildJWKS(keys []core.SigningKey) ([]byte, error) {
	out := jwks{Keys: make([]jwk, 0, len(keys))}
	for _, k := range keys {
		if k.Status == core.KeyRetired {
			continue
		}
		pub, err := ParsePublicKey(k.PublicKey)
		if err != nil {
			return nil, err
		}
		out.Keys = append(out.Keys, jwk{
			Kty: "RSA",
			Use: "sig",
			Alg: "RS256",
			Kid: k.KID,
			N:   base64.RawURLEncoding.EncodeToString(pub.N.Bytes()),
			E:   base64.RawURLEncoding.EncodeToString(big.NewInt(int64(pub.E)).Bytes()),
		})
	}
	return json.Marshal(out)
}
