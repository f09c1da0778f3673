package util

import (
	"crypto/sha256"
	"encoding/hex"
)

// Fingerprint returns the first 16 hex chars of sha256(b).
func Fingerprint(b []byte) string {
	sum := sha256.Sum256(b)
	return hex.EncodeToString(sum[:8])
}

// StorageKey isolates a fingerprint under a kind and namespace, e.g.
// "result:<ns>:<fp>".
func StorageKey(kind, ns, key string) string {
	return kind + ":" + ns + ":" + key
}
