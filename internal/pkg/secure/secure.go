// Package secure holds the hashing, MAC, cipher and randomness primitives
// shared by the OTP, session, token and payload layers.
package secure

import (
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"fmt"
	"math/big"

	"github.com/golang-jwt/jwt/v5"
)

// KeySize is the AES-256 key length in bytes.
const KeySize = 32

// Hash returns the hex SHA-256 digest of s. OTP codes and refresh tokens are
// only ever persisted in this form.
func Hash(s string) string {
	sum := sha256.Sum256([]byte(s))
	return hex.EncodeToString(sum[:])
}

// Equal compares a and b in constant time.
func Equal(a, b string) bool {
	return subtle.ConstantTimeCompare([]byte(a), []byte(b)) == 1
}

// MAC returns the HMAC-SHA256 tag of data under secret.
func MAC(data string, secret []byte) ([]byte, error) {
	return jwt.SigningMethodHS256.Sign(data, secret)
}

// VerifyMAC recomputes the tag of data and compares it with tag in constant time.
func VerifyMAC(data string, tag, secret []byte) bool {
	return jwt.SigningMethodHS256.Verify(data, tag, secret) == nil
}

// DeriveKey turns a configured secret into an AES-256 key. A 32-byte secret is
// used as-is; anything else becomes the first 32 hex characters of its SHA-256,
// which is what existing encrypting clients compute.
func DeriveKey(secret string) []byte {
	if len(secret) == KeySize {
		return []byte(secret)
	}
	return []byte(Hash(secret)[:KeySize])
}

// RandomDigits returns n uniformly random decimal digits, zero-padded.
func RandomDigits(n int) (string, error) {
	if n <= 0 || n > 18 {
		return "", fmt.Errorf("random digits: invalid length %d", n)
	}
	limit := new(big.Int).Exp(big.NewInt(10), big.NewInt(int64(n)), nil)
	v, err := rand.Int(rand.Reader, limit)
	if err != nil {
		return "", fmt.Errorf("random digits: %w", err)
	}
	return fmt.Sprintf("%0*d", n, v.Int64()), nil
}
