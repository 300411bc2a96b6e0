package gitref

import (
	"bytes"
	"io"
	"strings"
	"sync"

	"github.com/andybalholm/brotli"

	"unified/diff"
)

// maxCacheEntries bounds the number of snapshots held per daemon. Entries
// are dropped wholesale on overflow; refreshes just re-exec git.
const maxCacheEntries = 64

// Cache holds brotli-compressed reference snapshots keyed by
// "<commit>:<path>". Reference content for a resolved commit never changes,
// so entries only leave the cache on invalidation or overflow.
type Cache struct {
	mu      sync.Mutex
	entries map[string][]byte
}

func NewCache() *Cache {
	return &Cache{entries: make(map[string][]byte)}
}

// Get returns the decompressed line sequence for key, if cached.
func (c *Cache) Get(key string) ([]string, bool) {
	c.mu.Lock()
	compressed, ok := c.entries[key]
	c.mu.Unlock()
	if !ok {
		return nil, false
	}

	text, err := decompress(compressed)
	if err != nil {
		// Corrupt entry; drop it and fall back to git.
		c.mu.Lock()
		delete(c.entries, key)
		c.mu.Unlock()
		return nil, false
	}
	return diff.SplitLines(text), true
}

// Put stores the line sequence for key.
func (c *Cache) Put(key string, lines []string) {
	compressed, err := compress(diff.JoinLines(lines))
	if err != nil {
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if len(c.entries) >= maxCacheEntries {
		c.entries = make(map[string][]byte)
	}
	c.entries[key] = compressed
}

// Clear drops every entry.
func (c *Cache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = make(map[string][]byte)
}

// Len returns the number of cached snapshots.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

func compress(text string) ([]byte, error) {
	var buf bytes.Buffer
	w := brotli.NewWriterLevel(&buf, brotli.DefaultCompression)
	if _, err := w.Write([]byte(text)); err != nil {
		return nil, err
	}
	if err := w.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func decompress(data []byte) (string, error) {
	r := brotli.NewReader(bytes.NewReader(data))
	var sb strings.Builder
	if _, err := io.Copy(&sb, r); err != nil {
		return "", err
	}
	return sb.String(), nil
}
