package repomap

import (
	"bytes"
	"encoding/gob"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"sync"

	"github.com/cespare/xxhash/v2"
	"github.com/rs/zerolog/log"
)

// DefaultCacheVersion is the on-disk cache schema version. Bumping it
// invalidates every previously-written entry by changing the directory
// name the cache writes under.
const DefaultCacheVersion = 1

// TagCache is a durable key/value store mapping (absolute path, mtime) to
// the tag list extracted from that file. It never raises to callers: any
// I/O or decode failure degrades to a local cache miss.
type TagCache struct {
	dir     string
	version int

	mu     sync.Mutex
	locks  map[string]*sync.Mutex
	warnMu sync.Once
}

// NewTagCache creates a cache rooted at <root>/.repomap.tags.cache.v<version>/.
// The directory is created lazily on first write.
func NewTagCache(root string, version int) *TagCache {
	if version <= 0 {
		version = DefaultCacheVersion
	}
	return &TagCache{
		dir:     filepath.Join(root, fmt.Sprintf(".repomap.tags.cache.v%d", version)),
		version: version,
		locks:   make(map[string]*sync.Mutex),
	}
}

func (c *TagCache) keyFor(absPath string, mtimeNanos int64) string {
	h := xxhash.New()
	h.Write([]byte(absPath))
	h.Write([]byte{0})
	h.Write([]byte(strconv.FormatInt(mtimeNanos, 10)))
	return fmt.Sprintf("%016x", h.Sum64())
}

func (c *TagCache) pathFor(key string) string {
	if len(key) < 2 {
		return filepath.Join(c.dir, key)
	}
	return filepath.Join(c.dir, key[:2], key)
}

func (c *TagCache) lockFor(key string) *sync.Mutex {
	c.mu.Lock()
	defer c.mu.Unlock()
	l, ok := c.locks[key]
	if !ok {
		l = &sync.Mutex{}
		c.locks[key] = l
	}
	return l
}

// GetOrCompute returns the cached tag list for (absPath, mtimeNanos) if
// present, otherwise invokes compute, stores the result, and returns it.
// forceRefresh bypasses the read path but still writes through.
func (c *TagCache) GetOrCompute(absPath string, mtimeNanos int64, forceRefresh bool, compute func() ([]Tag, error)) ([]Tag, error) {
	key := c.keyFor(absPath, mtimeNanos)
	lock := c.lockFor(key)
	lock.Lock()
	defer lock.Unlock()

	if !forceRefresh {
		if tags, ok := c.read(key); ok {
			return tags, nil
		}
	}

	tags, err := compute()
	if err != nil {
		return nil, err
	}

	c.write(key, tags)
	return tags, nil
}

func (c *TagCache) read(key string) ([]Tag, bool) {
	data, err := os.ReadFile(c.pathFor(key))
	if err != nil {
		return nil, false
	}

	var tags []Tag
	dec := gob.NewDecoder(bytes.NewReader(data))
	if err := dec.Decode(&tags); err != nil {
		log.Debug().Err(err).Str("key", key).Msg("tag cache decode failed; treating as miss")
		return nil, false
	}
	return tags, true
}

func (c *TagCache) write(key string, tags []Tag) {
	path := c.pathFor(key)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		c.warnOnce(err)
		return
	}

	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(tags); err != nil {
		c.warnOnce(err)
		return
	}

	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, buf.Bytes(), 0o644); err != nil {
		c.warnOnce(err)
		return
	}
	if err := os.Rename(tmp, path); err != nil {
		c.warnOnce(err)
		_ = os.Remove(tmp)
	}
}

// warnOnce logs a persistent write failure exactly once per cache instance,
// then suppresses further write-failure noise for the remainder of the run
// (spec.md §4.2 "Failure").
func (c *TagCache) warnOnce(err error) {
	c.warnMu.Do(func() {
		log.Warn().Err(err).Str("dir", c.dir).Msg("tag cache write failed; further write failures this run are suppressed")
	})
}
