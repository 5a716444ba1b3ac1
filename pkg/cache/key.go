package cache

import (
	"encoding/hex"
	"strings"

	"lukechampine.com/blake3"
)

// Key is the canonical cache key of a proxied request: the method, the path
// with the reserved prefix already stripped, and the raw query string.
//
// Headers never take part in the key, and neither does the upstream
// credential, so two inbound requests that differ only in header values
// address the same entry.
type Key struct {
	Method   string
	Path     string
	RawQuery string
}

// NewKey builds a canonical key. The method is upper-cased; path and query
// are kept byte-for-byte.
func NewKey(method, path, rawQuery string) Key {
	return Key{
		Method:   strings.ToUpper(method),
		Path:     path,
		RawQuery: rawQuery,
	}
}

// String returns the canonical text form, e.g. "GET /discover/tv?page=1".
func (k Key) String() string {
	var sb strings.Builder
	sb.Grow(len(k.Method) + len(k.Path) + len(k.RawQuery) + 2)
	sb.WriteString(k.Method)
	sb.WriteByte(' ')
	sb.WriteString(k.Path)
	if k.RawQuery != "" {
		sb.WriteByte('?')
		sb.WriteString(k.RawQuery)
	}
	return sb.String()
}

// Digest returns the hex BLAKE3-256 digest of the canonical form. Persistent
// stores index on it so arbitrarily long query strings fit a fixed-size key.
func (k Key) Digest() string {
	sum := blake3.Sum256([]byte(k.String()))
	return hex.EncodeToString(sum[:])
}
