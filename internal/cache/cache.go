// Package cache stores optimization reports for reproducible requests so an
// identical request is answered without searching again.
package cache

import (
	"context"
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"math"
	"time"

	"tourplan/internal/opt"
)

// Cache is a byte store with per-entry expiry.
type Cache interface {
	// Get returns the value for key and whether it was found.
	Get(ctx context.Context, key string) ([]byte, bool, error)
	// Set stores data under key for ttl; ttl <= 0 means no expiry.
	Set(ctx context.Context, key string, data []byte, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
}

const keyPrefix = "tourplan:result"

// ResultKey identifies the result of optimizing m under c and opts. ok is
// false when the result is not reproducible and must not be cached.
func ResultKey(m *opt.CostMatrix, c opt.RouteConstraint, opts opt.Options) (key string, ok bool) {
	if !opts.Budget.Deterministic() {
		return "", false
	}
	h := sha256.New()
	var buf [8]byte
	put := func(v uint64) {
		binary.LittleEndian.PutUint64(buf[:], v)
		h.Write(buf[:])
	}
	n := m.N()
	put(uint64(n))
	for i := 0; i < n; i++ {
		for j := 0; j < n; j++ {
			put(math.Float64bits(m.At(i, j)))
		}
	}
	put(uint64(c.Start))
	put(uint64(c.End))
	put(uint64(opts.Budget.Passes))
	put(uint64(opts.Restarts))
	put(uint64(opts.Seed))
	put(uint64(opts.ExactThreshold))
	h.Write([]byte(opts.Algorithm))
	return keyPrefix + ":" + hex.EncodeToString(h.Sum(nil)), true
}
