package sign

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
)

// CanonicalPayload builds the null-byte delimited signing payload some
// exchanges require: method, path, encoded query and the hex SHA-256 of
// the body, joined by single NUL bytes. An empty body hashes to the
// SHA-256 of the empty string, not an empty field.
func CanonicalPayload(method, path, query string, body []byte) []byte {
	digest := sha256.Sum256(body)
	parts := []string{method, path, query, hex.EncodeToString(digest[:])}
	return []byte(strings.Join(parts, "\x00"))
}
