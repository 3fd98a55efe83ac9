package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"regexp"
)

// keyVersion prefixes every hash. Changing the hashing below must bump it.
const keyVersion = "v1"

var keyPattern = regexp.MustCompile(`^v1:[0-9a-f]{64}$`)

// Key returns the cache key for schema source text
//
// Format: v1:{sha256(source)}
func Key(source string) string {
	sum := sha256.Sum256([]byte(source))
	return keyVersion + ":" + hex.EncodeToString(sum[:])
}

// ValidKey reports whether key has the format produced by Key
func ValidKey(key string) bool {
	return keyPattern.MatchString(key)
}
