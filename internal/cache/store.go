// Package cache is the best-effort result cache. It is never a source of
// truth: every failure is logged and bypassed by callers.
package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	stderrors "errors"
	"time"

	json "github.com/goccy/go-json"
)

// ErrMiss is returned by Get when the key is absent or expired.
var ErrMiss = stderrors.New("cache miss")

// Store is a key to bytes map with per-entry TTL.
type Store interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Del(ctx context.Context, keys ...string) error
}

// Key derives a stable key for namespace from the JSON encoding of parts.
// Callers normalise requests before hashing so equal requests share a key.
func Key(namespace string, parts ...interface{}) string {
	h := sha256.New()
	for _, p := range parts {
		b, err := json.Marshal(p)
		if err != nil {
			b = []byte(err.Error())
		}
		h.Write(b)
		h.Write([]byte{0})
	}
	return namespace + ":" + hex.EncodeToString(h.Sum(nil)[:16])
}
