// Package checksum provides content hashing for cache dependency tracking.
package checksum

import (
	"crypto/sha256"
	"encoding/hex"
)

// ShortLen is the length of a truncated digest stored in cache dependency
// records. 64 bits of SHA-256 is enough for change detection and keeps the
// records compact.
const ShortLen = 16

// Sum returns the hex-encoded SHA-256 digest of data.
func Sum(data []byte) string {
	h := sha256.Sum256(data)
	return hex.EncodeToString(h[:])
}

// Short returns the first ShortLen hex characters of the SHA-256 digest.
func Short(data []byte) string {
	return Sum(data)[:ShortLen]
}
