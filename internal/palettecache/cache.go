// Package palettecache remembers sorted centroid lists keyed by the exact
// sample they were computed from, so resampling an unchanged image skips
// clustering.
package palettecache

import (
	"crypto/sha256"
	"encoding/json"
	"fmt"
	"image"
	"time"

	"github.com/corona10/goimagehash"
	"github.com/die-net/lrucache"

	"github.com/jmylchreest/domcolour/internal/colour"
)

// Cache is a byte-bounded LRU of luminance-sorted colour lists.
// It is safe for concurrent use.
type Cache struct {
	lru *lrucache.LruCache
}

// New creates a cache holding at most maxBytes of encoded entries.
// A maxAge of zero keeps entries until they are evicted by size.
// Returns nil when maxBytes is not positive; a nil *Cache is a valid, always-missing cache.
func New(maxBytes int64, maxAge time.Duration) *Cache {
	if maxBytes <= 0 {
		return nil
	}
	return &Cache{lru: lrucache.New(maxBytes, int64(maxAge/time.Second))}
}

// Key identifies a clustering run over img. The perceptual hash groups
// visually similar samples; the digest of the decoded pixels makes sure a hit
// is the exact same content, colour included. Runs with a different cluster
// count, algorithm or seed never share a key.
func Key(img image.Image, pixels []colour.RGB, k int, alg colour.Algorithm, seed int64) (string, error) {
	hash, err := goimagehash.AverageHash(img)
	if err != nil {
		return "", fmt.Errorf("failed to hash sample: %w", err)
	}
	return fmt.Sprintf("%016x/%x/%d/%s/%d", hash.GetHash(), pixelDigest(pixels), k, alg, seed), nil
}

// pixelDigest returns the sha256 of the pixel triples, in order.
func pixelDigest(pixels []colour.RGB) []byte {
	h := sha256.New()
	buf := make([]byte, 0, 3*len(pixels))
	for _, p := range pixels {
		buf = append(buf, p.R, p.G, p.B)
	}
	h.Write(buf)
	return h.Sum(nil)
}

// Get returns the colours stored under key.
func (c *Cache) Get(key string) ([]colour.LuminanceColour, bool) {
	if c == nil {
		return nil, false
	}
	data, ok := c.lru.Get(key)
	if !ok {
		return nil, false
	}
	var colours []colour.LuminanceColour
	if err := json.Unmarshal(data, &colours); err != nil {
		c.lru.Delete(key)
		return nil, false
	}
	return colours, true
}

// Put stores colours under key.
func (c *Cache) Put(key string, colours []colour.LuminanceColour) error {
	if c == nil {
		return nil
	}
	data, err := json.Marshal(colours)
	if err != nil {
		return fmt.Errorf("failed to encode cache entry: %w", err)
	}
	c.lru.Set(key, data)
	return nil
}
