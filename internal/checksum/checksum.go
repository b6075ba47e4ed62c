// Package checksum is the unit of integrity truth: it computes and compares
// SHA-256 content digests for evidence bytes.
package checksum

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
)

// DigestLen is the length of a hex-encoded SHA-256 digest.
const DigestLen = sha256.Size * 2

// Sum streams r through SHA-256 and returns the lowercase hex digest and
// the number of bytes read.
func Sum(r io.Reader) (string, int64, error) {
	h := sha256.New()
	n, err := io.Copy(h, r)
	if err != nil {
		return "", 0, fmt.Errorf("hashing content: %w", err)
	}
	return hex.EncodeToString(h.Sum(nil)), n, nil
}

// SumBytes returns the lowercase hex SHA-256 digest of b.
func SumBytes(b []byte) string {
	sum := sha256.Sum256(b)
	return hex.EncodeToString(sum[:])
}

// Verify re-hashes r and reports whether the digest matches.
func Verify(digest string, r io.Reader) (bool, error) {
	actual, _, err := Sum(r)
	if err != nil {
		return false, err
	}
	return actual == digest, nil
}

// Valid reports whether s has the shape of a hex-encoded SHA-256 digest.
func Valid(s string) bool {
	if len(s) != DigestLen {
		return false
	}
	for i := 0; i < len(s); i++ {
		c := s[i]
		if (c < '0' || c > '9') && (c < 'a' || c > 'f') {
			return false
		}
	}
	return true
}
