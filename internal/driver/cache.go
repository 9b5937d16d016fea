package driver

import (
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"os"
	"path/filepath"
	"sync"

	"github.com/nikandfor/errors"
	"github.com/vmihailenco/msgpack/v5"

	"nakgo/internal/sched"
)

// Bump when the artifact layout or the generated code changes.
const cacheSchemaVersion uint16 = 1

// Key identifies a compilation by its inputs.
type Key [sha256.Size]byte

func (k Key) String() string { return hex.EncodeToString(k[:]) }

// CacheKey hashes the source text together with everything else that
// changes the output.
func CacheKey(src []byte, sm uint8, mode sched.Mode) Key {
	h := sha256.New()
	var hdr [4]byte
	binary.LittleEndian.PutUint16(hdr[:2], cacheSchemaVersion)
	hdr[2] = sm
	hdr[3] = uint8(mode)
	h.Write(hdr[:])
	h.Write(src)
	var k Key
	h.Sum(k[:0])
	return k
}

// cachePayload is what lands on disk.
type cachePayload struct {
	Schema   uint16    `msgpack:"schema"`
	Artifact *Artifact `msgpack:"artifact"`
}

// Cache stores artifacts on disk, one msgpack file per key. A nil *Cache is
// a valid cache that never hits. Safe for concurrent use.
type Cache struct {
	mu  sync.RWMutex
	dir string
}

// OpenCache creates dir if needed.
func OpenCache(dir string) (*Cache, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, errors.Wrap(err, "open cache")
	}
	return &Cache{dir: dir}, nil
}

// DefaultCacheDir is the per-user cache location.
func DefaultCacheDir() (string, error) {
	base, err := os.UserCacheDir()
	if err != nil {
		return "", errors.Wrap(err, "user cache dir")
	}
	return filepath.Join(base, "nakgo"), nil
}

func (c *Cache) pathFor(k Key) string {
	s := k.String()
	return filepath.Join(c.dir, s[:2], s+".mp")
}

// Put writes art under k, replacing any previous entry atomically.
func (c *Cache) Put(k Key, art *Artifact) (err error) {
	if c == nil {
		return nil
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	p := c.pathFor(k)
	if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
		return errors.Wrap(err, "cache put")
	}
	f, err := os.CreateTemp(filepath.Dir(p), "tmp-*")
	if err != nil {
		return errors.Wrap(err, "cache put")
	}
	defer func() {
		if err != nil {
			_ = f.Close()
			_ = os.Remove(f.Name())
		}
	}()

	if err = msgpack.NewEncoder(f).Encode(&cachePayload{Schema: cacheSchemaVersion, Artifact: art}); err != nil {
		return errors.Wrap(err, "encode %v", k)
	}
	if err = f.Close(); err != nil {
		return errors.Wrap(err, "cache put")
	}
	if err = os.Rename(f.Name(), p); err != nil {
		return errors.Wrap(err, "cache put")
	}
	return nil
}

// Get returns the artifact stored under k. Entries written by another schema
// count as misses.
func (c *Cache) Get(k Key) (*Artifact, bool, error) {
	if c == nil {
		return nil, false, nil
	}
	c.mu.RLock()
	defer c.mu.RUnlock()

	data, err := os.ReadFile(c.pathFor(k))
	if errors.Is(err, os.ErrNotExist) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, errors.Wrap(err, "cache get")
	}
	var payload cachePayload
	if err := msgpack.Unmarshal(data, &payload); err != nil {
		return nil, false, errors.Wrap(err, "decode %v", k)
	}
	if payload.Schema != cacheSchemaVersion || payload.Artifact == nil {
		return nil, false, nil
	}
	return payload.Artifact, true, nil
}
