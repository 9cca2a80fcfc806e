package knowledge

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
)

const keyPrefix = "kb_search:"

// Fingerprint canonicalizes a query and returns its cache key. Queries
// differing only in case or whitespace share an entry; the scope keeps
// unrelated corpora from colliding and gives invalidation a handle.
func Fingerprint(scope, query string) string {
	normalized := strings.ToLower(strings.TrimSpace(query))
	normalized = strings.Join(strings.Fields(normalized), " ")
	sum := sha256.Sum256([]byte(normalized))
	return keyPrefix + scope + ":" + hex.EncodeToString(sum[:])
}

// ScopePrefix returns the key prefix covering every entry in scope.
func ScopePrefix(scope string) string {
	return keyPrefix + scope + ":"
}
