package engine

import (
	"database/sql"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/zeebo/blake3"
	_ "modernc.org/sqlite"
)

// HashCache is a SQLite-backed digest store keyed by absolute path. A
// cached digest is reused only when size and mtime still match, so a
// modified file is always re-hashed.
type HashCache struct {
	db   *sql.DB
	path string

	// Batch buffer for Put calls.
	mu      sync.Mutex
	batch   []cacheEntry
	done    chan struct{}
	stopped bool
}

type cacheEntry struct {
	path      string
	size      int64
	mtimeNano int64
	digest    Digest
}

// OpenCache opens (or creates) the digest cache for the given scan root.
// The DB is stored at $XDG_CACHE_HOME/dupehound/<root-id>.db (falling
// back to ~/.cache, then the system temp dir).
func OpenCache(root string) (*HashCache, error) {
	return openCacheAt(cachePath(cacheID(root)), root)
}

func openCacheAt(dbPath, root string) (*HashCache, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0o700); err != nil {
		return nil, fmt.Errorf("create cache dir: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("open cache db: %w", err)
	}

	c := &HashCache{
		db:   db,
		path: dbPath,
		done: make(chan struct{}),
	}

	if err := c.init(root); err != nil {
		db.Close()
		return nil, err
	}

	// Start background batch flusher.
	go c.flushLoop()

	return c, nil
}

func (c *HashCache) init(root string) error {
	_, err := c.db.Exec(`
		CREATE TABLE IF NOT EXISTS digests (
			path   TEXT PRIMARY KEY,
			size   INTEGER NOT NULL,
			mtime  INTEGER NOT NULL,
			digest TEXT NOT NULL
		);
		CREATE TABLE IF NOT EXISTS meta (
			key   TEXT PRIMARY KEY,
			value TEXT NOT NULL
		);
	`)
	if err != nil {
		return fmt.Errorf("create tables: %w", err)
	}

	var storedRoot string
	row := c.db.QueryRow("SELECT value FROM meta WHERE key = 'root'")
	if err := row.Scan(&storedRoot); err == nil {
		if storedRoot != root {
			return fmt.Errorf("cache root mismatch: stored %s, got %s", storedRoot, root)
		}
		return nil
	}

	_, err = c.db.Exec("INSERT OR REPLACE INTO meta (key, value) VALUES ('root', ?)", root)
	if err != nil {
		return fmt.Errorf("store meta: %w", err)
	}
	return nil
}

// Lookup returns the cached digest for path if size and mtime both still
// match the recorded values.
func (c *HashCache) Lookup(path string, size int64, mtimeNano int64) (Digest, bool) {
	var storedSize, storedMtime int64
	var storedDigest string
	err := c.db.QueryRow(
		"SELECT size, mtime, digest FROM digests WHERE path = ?", path,
	).Scan(&storedSize, &storedMtime, &storedDigest)
	if err != nil {
		return Digest{}, false
	}
	if storedSize != size || storedMtime != mtimeNano {
		return Digest{}, false
	}
	return ParseDigest(storedDigest)
}

// Put records a freshly computed digest. Writes are batched and flushed
// periodically.
func (c *HashCache) Put(path string, size int64, mtimeNano int64, d Digest) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.batch = append(c.batch, cacheEntry{
		path:      path,
		size:      size,
		mtimeNano: mtimeNano,
		digest:    d,
	})

	if len(c.batch) >= 100 {
		return c.flushLocked()
	}
	return nil
}

// Flush writes any pending batch entries to the database.
func (c *HashCache) Flush() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.flushLocked()
}

func (c *HashCache) flushLocked() error {
	if len(c.batch) == 0 {
		return nil
	}

	tx, err := c.db.Begin()
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}

	stmt, err := tx.Prepare(
		"INSERT OR REPLACE INTO digests (path, size, mtime, digest) VALUES (?, ?, ?, ?)",
	)
	if err != nil {
		tx.Rollback()
		return fmt.Errorf("prepare: %w", err)
	}
	defer stmt.Close()

	for _, e := range c.batch {
		if _, err := stmt.Exec(e.path, e.size, e.mtimeNano, e.digest.String()); err != nil {
			tx.Rollback()
			return fmt.Errorf("insert %s: %w", e.path, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}

	c.batch = c.batch[:0]
	return nil
}

func (c *HashCache) flushLoop() {
	ticker := time.NewTicker(500 * time.Millisecond)
	defer ticker.Stop()

	for {
		select {
		case <-c.done:
			return
		case <-ticker.C:
			c.mu.Lock()
			_ = c.flushLocked()
			c.mu.Unlock()
		}
	}
}

// Close flushes any pending writes and closes the database.
func (c *HashCache) Close() error {
	c.mu.Lock()
	if !c.stopped {
		c.stopped = true
		close(c.done)
	}
	_ = c.flushLocked()
	c.mu.Unlock()
	return c.db.Close()
}

// Path returns the path to the cache database file.
func (c *HashCache) Path() string {
	return c.path
}

// cacheID computes a deterministic cache name from the scan root.
func cacheID(root string) string {
	h := blake3.New()
	h.Write([]byte(root))
	digest := h.Sum(nil)
	return hex.EncodeToString(digest[:8])
}

// cachePath returns the filesystem path for a cache DB.
func cachePath(id string) string {
	if dir := os.Getenv("XDG_CACHE_HOME"); dir != "" {
		return filepath.Join(dir, "dupehound", id+".db")
	}
	if home, err := os.UserHomeDir(); err == nil {
		return filepath.Join(home, ".cache", "dupehound", id+".db")
	}
	return filepath.Join(os.TempDir(), "dupehound-"+id+".db")
}
