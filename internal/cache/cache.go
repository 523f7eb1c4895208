// Package cache implements a content-addressed on-disk cache of optimized
// program graphs and interpreter run summaries, so a repeat `irl run` over
// unchanged source and configuration skips the pass pipeline
// entirely: a sha256-keyed directory of msgpack-encoded payloads, atomic
// write-to-temp-then-rename, a schema-version guard against format drift.
package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/vmihailenco/msgpack/v5"
)

// schemaVersion guards against decoding a Payload written by an earlier,
// incompatible version of this package; bump it whenever Payload's shape
// changes.
const schemaVersion uint16 = 1

// Digest identifies one cache entry: the source text plus the resolved
// pipeline configuration that produced it.
type Digest [sha256.Size]byte

// Key hashes source (the textual IR) and resolvedConfig (e.g. the pass
// list and budgets a manifest selected) into one Digest. Two runs over the
// same source under different pipeline options must not collide.
func Key(source, resolvedConfig string) Digest {
	h := sha256.New()
	h.Write([]byte(source))
	h.Write([]byte{0}) // separator, so "ab"+"c" and "a"+"bc" never collide
	h.Write([]byte(resolvedConfig))
	var d Digest
	copy(d[:], h.Sum(nil))
	return d
}

// Payload is what one cache entry stores: the optimized program's printed
// textual IR (round-trippable through internal/ir.Print/internal/parser)
// and the interpreter's execution summary, flattened into plain slices
// since a symbols.Symbol-keyed map is not itself a stable msgpack shape.
type Payload struct {
	Schema uint16

	PrintedIR string

	GlobalNames  []string
	GlobalValues []int64

	Executed int64
	Cycles   int64
}

// Cache is a directory of msgpack-encoded Payloads keyed by Digest.
type Cache struct {
	mu  sync.RWMutex
	dir string
}

// Open initializes a cache rooted at $XDG_CACHE_HOME/<app>, creating it if
// absent.
func Open(app string) (*Cache, error) {
	base := os.Getenv("XDG_CACHE_HOME")
	if base == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, err
		}
		base = filepath.Join(home, ".cache")
	}
	dir := filepath.Join(base, app)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}
	return &Cache{dir: dir}, nil
}

func (c *Cache) pathFor(key Digest) string {
	return filepath.Join(c.dir, "runs", hex.EncodeToString(key[:])+".mp")
}

// Put serializes and atomically writes payload under key.
func (c *Cache) Put(key Digest, payload *Payload) error {
	if c == nil {
		return nil
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	payload.Schema = schemaVersion
	p := c.pathFor(key)
	if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
		return err
	}
	f, err := os.CreateTemp(filepath.Dir(p), "tmp-*")
	if err != nil {
		return err
	}
	tmpName := f.Name()
	defer func() {
		_ = os.Remove(tmpName)
	}()

	if err := msgpack.NewEncoder(f).Encode(payload); err != nil {
		f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return err
	}
	return os.Rename(tmpName, p)
}

// Get deserializes the payload stored under key, if present and of a
// compatible schema version.
func (c *Cache) Get(key Digest, out *Payload) (bool, error) {
	if c == nil {
		return false, nil
	}
	c.mu.RLock()
	defer c.mu.RUnlock()

	f, err := os.Open(c.pathFor(key))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return false, nil
		}
		return false, err
	}
	defer f.Close()

	if err := msgpack.NewDecoder(f).Decode(out); err != nil {
		return false, err
	}
	if out.Schema != schemaVersion {
		return false, nil
	}
	return true, nil
}

// DropAll invalidates every cached entry, for use after a format change or
// an explicit `irl cache clean`-style request.
func (c *Cache) DropAll() error {
	if c == nil {
		return nil
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	runs := filepath.Join(c.dir, "runs")
	if _, err := os.Stat(runs); errors.Is(err, os.ErrNotExist) {
		return nil
	}
	old := runs + ".stale"
	if err := os.Rename(runs, old); err != nil {
		return fmt.Errorf("cache: drop failed: %w", err)
	}
	return os.RemoveAll(old)
}
