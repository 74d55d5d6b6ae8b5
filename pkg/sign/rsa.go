package sign

import (
	"crypto"
	"crypto/rand"
	"crypto/rsa"
	"crypto/sha256"
	"crypto/x509"
	"encoding/base64"
	"encoding/pem"
	"errors"
)

var errNotRSAKey = errors.New("secret is not an RSA private key")

// RSASHA256 signs payload with RSA PKCS#1 v1.5 over SHA-256 and returns
// standard base64. The secret must be a PEM-encoded PKCS#8 or PKCS#1
// private key.
func RSASHA256(secret, payload string) (string, error) {
	key, err := parseRSAKey(secret)
	if err != nil {
		return "", err
	}
	digest := sha256.Sum256([]byte(payload))
	sig, err := rsa.SignPKCS1v15(rand.Reader, key, crypto.SHA256, digest[:])
	if err != nil {
		return "", err
	}
	return base64.StdEncoding.EncodeToString(sig), nil
}

func parseRSAKey(secret string) (*rsa.PrivateKey, error) {
	if secret == "" {
		return nil, ErrEmptySecret
	}
	block, _ := pem.Decode([]byte(secret))
	if block == nil {
		return nil, errNotRSAKey
	}
	if key, err := x509.ParsePKCS1PrivateKey(block.Bytes); err == nil {
		return key, nil
	}
	parsed, err := x509.ParsePKCS8PrivateKey(block.Bytes)
	if err != nil {
		return nil, errNotRSAKey
	}
	key, ok := parsed.(*rsa.PrivateKey)
	if !ok {
		return nil, errNotRSAKey
	}
	return key, nil
}
