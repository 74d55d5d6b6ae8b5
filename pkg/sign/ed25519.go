package sign

import (
	"crypto/ed25519"
	"crypto/x509"
	"encoding/base64"
	"encoding/pem"
	"errors"
	"strings"
)

var errNotEd25519Key = errors.New("secret is not an Ed25519 private key")

// Ed25519Sign signs payload with Ed25519 and returns standard base64.
// The secret may be a PEM-encoded PKCS#8 key or a base64url seed.
func Ed25519Sign(secret string, payload []byte) (string, error) {
	key, err := Ed25519Key(secret)
	if err != nil {
		return "", err
	}
	return base64.StdEncoding.EncodeToString(ed25519.Sign(key, payload)), nil
}

// Ed25519Key derives the private key from the secret. PEM blocks are
// parsed as PKCS#8; anything else is treated as a base64url encoded seed
// whose first 32 bytes feed the key schedule.
func Ed25519Key(secret string) (ed25519.PrivateKey, error) {
	if secret == "" {
		return nil, ErrEmptySecret
	}
	if strings.Contains(secret, "PRIVATE KEY") {
		block, _ := pem.Decode([]byte(secret))
		if block == nil {
			return nil, errNotEd25519Key
		}
		parsed, err := x509.ParsePKCS8PrivateKey(block.Bytes)
		if err != nil {
			return nil, errNotEd25519Key
		}
		key, ok := parsed.(ed25519.PrivateKey)
		if !ok {
			return nil, errNotEd25519Key
		}
		return key, nil
	}
	seed, err := decodeSeed(secret)
	if err != nil {
		return nil, err
	}
	return ed25519.NewKeyFromSeed(seed), nil
}

// decodeSeed converts a base64url string back to standard base64, restores
// padding and decodes. Keys longer than one seed keep only the first
// 32 bytes.
func decodeSeed(secret string) ([]byte, error) {
	s := strings.ReplaceAll(secret, "-", "+")
	s = strings.ReplaceAll(s, "_", "/")
	if m := len(s) % 4; m != 0 {
		s += strings.Repeat("=", 4-m)
	}
	raw, err := base64.StdEncoding.DecodeString(s)
	if err != nil {
		return nil, errNotEd25519Key
	}
	if len(raw) < ed25519.SeedSize {
		return nil, errNotEd25519Key
	}
	return raw[:ed25519.SeedSize], nil
}
