package crypto

import (
	"crypto/sha256"
	"encoding/base64"
)

const opaqueTokenLen = 32

// NewOpaqueToken returns a random URL-safe token and the SHA-256 digest that
// is stored in its place.
func NewOpaqueToken() (token string, hash []byte, err error) {
	b, err := RandBytes(opaqueTokenLen)
	if err != nil {
		return "", nil, err
	}
	token = base64.RawURLEncoding.EncodeToString(b)
	return token, HashToken(token), nil
}

// HashToken is the storage key of an opaque token.
func HashToken(token string) []byte {
	h := sha256.Sum256([]byte(token))
	return h[:]
}
