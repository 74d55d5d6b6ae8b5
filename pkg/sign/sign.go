// Package sign implements the request signing schemes exchanges accept:
// HMAC-SHA256 over a canonical query string, RSA-SHA256 over the same, and
// Ed25519 over a null-byte delimited payload. Signers are pure functions of
// (secret, payload); they never log and never embed key material in errors.
package sign

import (
	"errors"
	"strings"
)

// Scheme identifies a signing algorithm.
type Scheme int

const (
	// SchemeHMACHex is HMAC-SHA256 with lowercase hex output.
	SchemeHMACHex Scheme = iota
	// SchemeHMACBase64 is HMAC-SHA256 with standard base64 output.
	SchemeHMACBase64
	// SchemeRSA is RSA PKCS#1 v1.5 over SHA-256 with base64 output.
	SchemeRSA
	// SchemeEd25519 is Ed25519 with base64 output.
	SchemeEd25519
)

// String returns the scheme name.
func (s Scheme) String() string {
	return [...]string{"hmac-hex", "hmac-base64", "rsa-sha256", "ed25519"}[s]
}

// ErrEmptySecret is returned when signing is attempted without key material.
var ErrEmptySecret = errors.New("empty signing secret")

// pemKeyLenCutoff separates RSA PEM blocks from the much shorter Ed25519
// ones. An Ed25519 PKCS#8 PEM is around 120 bytes; RSA keys are far larger.
const pemKeyLenCutoff = 120

// DetectScheme picks the signing scheme from the shape of the secret:
// a PEM private key block selects RSA or Ed25519 by length, anything else
// is treated as a shared HMAC key.
func DetectScheme(secret string) Scheme {
	if strings.Contains(secret, "PRIVATE KEY") {
		if len(secret) > pemKeyLenCutoff {
			return SchemeRSA
		}
		return SchemeEd25519
	}
	return SchemeHMACHex
}
