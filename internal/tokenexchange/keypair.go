package tokenexchange

import (
	"crypto"
	"crypto/ecdsa"
	"crypto/ed25519"
	"crypto/elliptic"
	"crypto/rsa"
	"encoding/base64"
	"encoding/json"
	"strings"

	"github.com/golang-jwt/jwt/v5"
)

// KeyPair is the decoded signing key bound to a key id registered with the
// identity provider.
type KeyPair struct {
	KeyID  string
	Method jwt.SigningMethod
	Key    crypto.PrivateKey
}

// keyMaterial is the JSON document carried base64-encoded in configuration.
type keyMaterial struct {
	KeyID      string `json:"kid"`
	Algorithm  string `json:"alg"`
	PrivateKey string `json:"privateKey"`
}

// DecodeKeyPair decodes base64 JSON key material of the form
// {"kid": "...", "alg": "RS256", "privateKey": "<PEM>"}. alg is optional and
// defaults from the key type.
func DecodeKeyPair(encoded string) (*KeyPair, error) {
	raw, err := decodeBase64(strings.TrimSpace(encoded))
	if err != nil {
		return nil, &KeyMaterialError{Reason: "not base64", Err: err}
	}

	var m keyMaterial
	if err := json.Unmarshal(raw, &m); err != nil {
		return nil, &KeyMaterialError{Reason: "not a JSON key document", Err: err}
	}
	if m.KeyID == "" {
		return nil, &KeyMaterialError{Reason: "missing kid"}
	}
	if m.PrivateKey == "" {
		return nil, &KeyMaterialError{Reason: "missing privateKey"}
	}

	key, err := parsePrivateKey([]byte(m.PrivateKey))
	if err != nil {
		return nil, &KeyMaterialError{Reason: "unsupported private key", Err: err}
	}

	method, err := signingMethodFor(m.Algorithm, key)
	if err != nil {
		return nil, err
	}

	return &KeyPair{KeyID: m.KeyID, Method: method, Key: key}, nil
}

func decodeBase64(s string) ([]byte, error) {
	if b, err := base64.StdEncoding.DecodeString(s); err == nil {
		return b, nil
	}
	return base64.RawStdEncoding.DecodeString(s)
}

func parsePrivateKey(pemBytes []byte) (crypto.PrivateKey, error) {
	if k, err := jwt.ParseRSAPrivateKeyFromPEM(pemBytes); err == nil {
		return k, nil
	}
	if k, err := jwt.ParseECPrivateKeyFromPEM(pemBytes); err == nil {
		return k, nil
	}
	return jwt.ParseEdPrivateKeyFromPEM(pemBytes)
}

func signingMethodFor(alg string, key crypto.PrivateKey) (jwt.SigningMethod, error) {
	if alg == "" {
		return defaultMethod(key)
	}

	method := jwt.GetSigningMethod(alg)
	if method == nil {
		return nil, &KeyMaterialError{Reason: "unknown alg " + alg}
	}

	compatible := false
	switch method.(type) {
	case *jwt.SigningMethodRSA, *jwt.SigningMethodRSAPSS:
		_, compatible = key.(*rsa.PrivateKey)
	case *jwt.SigningMethodECDSA:
		_, compatible = key.(*ecdsa.PrivateKey)
	case *jwt.SigningMethodEd25519:
		_, compatible = key.(ed25519.PrivateKey)
	}
	if !compatible {
		return nil, &KeyMaterialError{Reason: "alg " + alg + " does not match key type"}
	}
	return method, nil
}

func defaultMethod(key crypto.PrivateKey) (jwt.SigningMethod, error) {
	switch k := key.(type) {
	case *rsa.PrivateKey:
		return jwt.SigningMethodRS256, nil
	case *ecdsa.PrivateKey:
		switch k.Curve {
		case elliptic.P256():
			return jwt.SigningMethodES256, nil
		case elliptic.P384():
			return jwt.SigningMethodES384, nil
		case elliptic.P521():
			return jwt.SigningMethodES512, nil
		}
		return nil, &KeyMaterialError{Reason: "unsupported EC curve"}
	case ed25519.PrivateKey:
		return jwt.SigningMethodEdDSA, nil
	}
	return nil, &KeyMaterialError{Reason: "unsupported key type"}
}
