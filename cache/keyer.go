package cache

import (
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"strings"
)

// Keyer derives deterministic cache keys.
//
// Contract:
//   - Determinism: same inputs must produce same key.
//   - Distinctness: part boundaries are encoded, so ("ab","c") and ("a","bc")
//     yield different keys.
type Keyer struct {
	prefix string
}

// NewKeyer creates a Keyer whose keys start with prefix.
func NewKeyer(prefix string) Keyer {
	return Keyer{prefix: strings.TrimSuffix(prefix, ":")}
}

// Key returns <prefix>:<namespace>:<hash> where hash is the first 32 hex
// characters of SHA-256 over the length-prefixed parts.
func (k Keyer) Key(namespace string, parts ...string) string {
	h := sha256.New()
	var n [8]byte
	for _, p := range parts {
		binary.BigEndian.PutUint64(n[:], uint64(len(p)))
		h.Write(n[:])
		h.Write([]byte(p))
	}
	sum := hex.EncodeToString(h.Sum(nil)[:16])

	var b strings.Builder
	if k.prefix != "" {
		b.WriteString(k.prefix)
		b.WriteByte(':')
	}
	b.WriteString(namespace)
	b.WriteByte(':')
	b.WriteString(sum)
	return b.String()
}
