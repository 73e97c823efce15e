// Package indexcache persists the project symbol index between runs as an
// LZ4-compressed gob blob keyed by a fingerprint of the scanned tree. A
// missing, stale or corrupt cache is never an error; callers rebuild.
package indexcache

import (
	"bytes"
	"encoding/gob"
	"errors"
	"fmt"
	"hash/fnv"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/pierrec/lz4/v4"
)

// cacheFilename is the index blob name inside the cache directory.
const cacheFilename = "index.lz4"

// cacheFileMode is the permission for written cache files.
const cacheFileMode = 0o644

var errStale = errors.New("indexcache: fingerprint mismatch")

// payload is the serialized cache content.
type payload struct {
	Fingerprint uint64
	Index       map[string]string
}

// Cache reads and writes the symbol index blob under one directory.
type Cache struct {
	dir string
}

// New creates a cache rooted at dir.
func New(dir string) *Cache {
	return &Cache{dir: dir}
}

// Fingerprint hashes the names, sizes and modification times of every
// Python file under root. Any change to the tree changes the fingerprint.
func Fingerprint(root string) uint64 {
	hasher := fnv.New64a()

	_ = filepath.WalkDir(root, func(path string, entry fs.DirEntry, err error) error {
		if err != nil || entry.IsDir() {
			return nil //nolint:nilerr // unreadable entries just weaken the hash
		}

		if filepath.Ext(path) != ".py" {
			return nil
		}

		info, infoErr := entry.Info()
		if infoErr != nil {
			return nil
		}

		fmt.Fprintf(hasher, "%s|%d|%d\n", path, info.Size(), info.ModTime().UnixNano())

		return nil
	})

	return hasher.Sum64()
}

// Load returns the cached index if it matches the fingerprint.
func (c *Cache) Load(fingerprint uint64) (map[string]string, error) {
	compressed, err := os.ReadFile(filepath.Join(c.dir, cacheFilename))
	if err != nil {
		return nil, fmt.Errorf("read cache: %w", err)
	}

	var decoded payload

	reader := lz4.NewReader(bytes.NewReader(compressed))

	decodeErr := gob.NewDecoder(reader).Decode(&decoded)
	if decodeErr != nil {
		return nil, fmt.Errorf("decode cache: %w", decodeErr)
	}

	if decoded.Fingerprint != fingerprint {
		return nil, errStale
	}

	return decoded.Index, nil
}

// Save writes the index blob. Failures are returned but safe to ignore;
// the cache is an optimization only.
func (c *Cache) Save(fingerprint uint64, index map[string]string) error {
	mkdirErr := os.MkdirAll(c.dir, 0o755)
	if mkdirErr != nil {
		return fmt.Errorf("create cache dir: %w", mkdirErr)
	}

	var buf bytes.Buffer

	writer := lz4.NewWriter(&buf)

	encodeErr := gob.NewEncoder(writer).Encode(payload{
		Fingerprint: fingerprint,
		Index:       index,
	})
	if encodeErr != nil {
		return fmt.Errorf("encode cache: %w", encodeErr)
	}

	closeErr := writer.Close()
	if closeErr != nil {
		return fmt.Errorf("flush cache: %w", closeErr)
	}

	writeErr := os.WriteFile(filepath.Join(c.dir, cacheFilename), buf.Bytes(), cacheFileMode)
	if writeErr != nil {
		return fmt.Errorf("write cache: %w", writeErr)
	}

	return nil
}
