// Package cache is a content-addressed store of previously-compiled
// machine code, keyed by a hash of the source text that produced it.
// Grounded on the teacher's pkg/staterepository/pebblerepository.go
// (PebbleDB-backed key/value storage, fixed-width keys) and on its use
// of golang.org/x/crypto/blake2b for content hashing; blobs are
// compressed with klauspost/compress/zstd before being stored, the way
// a production cache would avoid paying storage cost for machine code
// that compresses well (long runs of repeated opcodes/REX prefixes).
package cache

import (
	"github.com/cockroachdb/pebble"
	"github.com/klauspost/compress/zstd"
	"golang.org/x/crypto/blake2b"
)

// Key is a content-addressed cache key: the blake2b-256 hash of a
// program's source text.
type Key [32]byte

// KeyFor hashes source text into a cache key.
func KeyFor(source string) Key {
	return blake2b.Sum256([]byte(source))
}

// Cache wraps a Pebble database storing zstd-compressed machine code
// blobs keyed by Key.
type Cache struct {
	db  *pebble.DB
	enc *zstd.Encoder
	dec *zstd.Decoder
}

// Open opens (creating if necessary) a cache database at path.
func Open(path string) (*Cache, error) {
	db, err := pebble.Open(path, &pebble.Options{})
	if err != nil {
		return nil, err
	}
	enc, err := zstd.NewWriter(nil)
	if err != nil {
		db.Close()
		return nil, err
	}
	dec, err := zstd.NewReader(nil)
	if err != nil {
		db.Close()
		return nil, err
	}
	return &Cache{db: db, enc: enc, dec: dec}, nil
}

// Close releases the underlying database.
func (c *Cache) Close() error {
	c.enc.Close()
	c.dec.Close()
	return c.db.Close()
}

// Get returns the cached machine code for key, if present.
func (c *Cache) Get(key Key) (code []byte, ok bool, err error) {
	compressed, closer, err := c.db.Get(key[:])
	if err == pebble.ErrNotFound {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	defer closer.Close()

	code, err = c.dec.DecodeAll(compressed, nil)
	if err != nil {
		return nil, false, err
	}
	return code, true, nil
}

// Put stores code under key, overwriting any previous entry.
func (c *Cache) Put(key Key, code []byte) error {
	compressed := c.enc.EncodeAll(code, nil)
	return c.db.Set(key[:], compressed, pebble.Sync)
}
