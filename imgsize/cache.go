package imgsize

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"zombiezen.com/go/sqlite"
	"zombiezen.com/go/sqlite/sqlitex"
)

const cacheSchema = `
CREATE TABLE IF NOT EXISTS natural_widths (
	path     TEXT NOT NULL,
	oriented INTEGER NOT NULL,
	size     INTEGER NOT NULL,
	mtime    INTEGER NOT NULL,
	width    REAL NOT NULL,
	PRIMARY KEY (path, oriented)
);`

// Cache remembers natural widths of image files between runs. Entry is valid
// as long as file size and modification time did not change. Widths measured
// with and without EXIF auto orientation are kept apart. Methods of nil Cache
// do nothing.
type Cache struct {
	mu   sync.Mutex
	conn *sqlite.Conn
}

// OpenCache opens (creating if necessary) cache database.
func OpenCache(name string) (*Cache, error) {
	if err := os.MkdirAll(filepath.Dir(name), 0755); err != nil {
		return nil, fmt.Errorf("unable to create cache directory: %w", err)
	}
	conn, err := sqlite.OpenConn(name, sqlite.OpenReadWrite, sqlite.OpenCreate, sqlite.OpenWAL)
	if err != nil {
		return nil, fmt.Errorf("unable to open width cache %q: %w", name, err)
	}
	if err := sqlitex.ExecuteScript(conn, cacheSchema, nil); err != nil {
		conn.Close()
		return nil, fmt.Errorf("unable to prepare width cache %q: %w", name, err)
	}
	return &Cache{conn: conn}, nil
}

// Close releases database.
func (c *Cache) Close() error {
	if c == nil {
		return nil
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.conn.Close()
}

// Lookup returns cached width of the file if file did not change since it
// was stored with the same orientation mode.
func (c *Cache) Lookup(name string, fi os.FileInfo, oriented bool) (float64, bool) {
	if c == nil {
		return 0, false
	}
	key, err := filepath.Abs(name)
	if err != nil {
		return 0, false
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	var (
		width float64
		found bool
	)
	err = sqlitex.Execute(c.conn, `SELECT width FROM natural_widths WHERE path = ? AND oriented = ? AND size = ? AND mtime = ?;`,
		&sqlitex.ExecOptions{
			Args: []any{key, boolToInt(oriented), fi.Size(), fi.ModTime().UnixNano()},
			ResultFunc: func(stmt *sqlite.Stmt) error {
				width, found = stmt.ColumnFloat(0), true
				return nil
			},
		})
	if err != nil {
		return 0, false
	}
	return width, found
}

// Store remembers width of the file measured in given orientation mode.
func (c *Cache) Store(name string, fi os.FileInfo, oriented bool, width float64) error {
	if c == nil {
		return nil
	}
	key, err := filepath.Abs(name)
	if err != nil {
		return err
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	return sqlitex.Execute(c.conn, `INSERT INTO natural_widths (path, oriented, size, mtime, width) VALUES (?, ?, ?, ?, ?)
ON CONFLICT(path, oriented) DO UPDATE SET size = excluded.size, mtime = excluded.mtime, width = excluded.width;`,
		&sqlitex.ExecOptions{
			Args: []any{key, boolToInt(oriented), fi.Size(), fi.ModTime().UnixNano(), width},
		})
}

func boolToInt(b bool) int64 {
	if b {
		return 1
	}
	return 0
}
