package testutil

import (
	"crypto/sha256"
	"encoding/hex"
)

// SHA256Hex returns the SHA-256 checksum of data as a lowercase hex string.
// Matches the digest format used by the checksum engine and the manifest.
func SHA256Hex(data []byte) string {
	h := sha256.Sum256(data)
	return hex.EncodeToString(h[:])
}

// PDFBytes wraps data in a minimal header that passes the intake gate's
// magic-byte sniff as a PDF.
func PDFBytes(data []byte) []byte {
	return append([]byte("%PDF-1.4\n"), data...)
}
