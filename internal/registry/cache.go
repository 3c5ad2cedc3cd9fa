package registry

import (
	"database/sql"
	"fmt"

	_ "modernc.org/sqlite"
)

// Cache is a SQLite-backed store of resolved providers. Both found and
// confirmed-absent lookups are stored; failed lookups never are, so
// transient errors stay retryable.
type Cache struct {
	db *sql.DB
}

// OpenCache opens (and creates, if needed) the cache database at dbPath.
func OpenCache(dbPath string) (*Cache, error) {
	// Open database with WAL mode and busy timeout
	db, err := sql.Open("sqlite", dbPath+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA synchronous = NORMAL",
		"PRAGMA temp_store = MEMORY",
		"PRAGMA busy_timeout = 5000",
	}
	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to set pragma %s: %w", pragma, err)
		}
	}

	cache := &Cache{db: db}
	if err := cache.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}
	return cache, nil
}

// Close closes the database connection
func (c *Cache) Close() error {
	if c.db != nil {
		return c.db.Close()
	}
	return nil
}

// migrate creates or updates the database schema
func (c *Cache) migrate() error {
	migrations := []string{
		`CREATE TABLE IF NOT EXISTS providers (
			npi TEXT PRIMARY KEY,
			name TEXT NOT NULL DEFAULT '',
			provider_type TEXT NOT NULL DEFAULT '',
			specialty TEXT NOT NULL DEFAULT '',
			address TEXT NOT NULL DEFAULT '',
			city TEXT NOT NULL DEFAULT '',
			state TEXT NOT NULL DEFAULT '',
			zip TEXT NOT NULL DEFAULT '',
			found BOOLEAN NOT NULL DEFAULT FALSE,
			looked_up_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
		)`,
	}

	for _, migration := range migrations {
		if _, err := c.db.Exec(migration); err != nil {
			return fmt.Errorf("migration failed: %w", err)
		}
	}
	return nil
}

// Get returns the cached provider for an NPI, with false when the NPI has
// never been stored.
func (c *Cache) Get(npi string) (Provider, bool, error) {
	row := c.db.QueryRow(
		`SELECT npi, name, provider_type, specialty, address, city, state, zip, found
		 FROM providers WHERE npi = ?`, npi)

	var p Provider
	err := row.Scan(&p.NPI, &p.Name, &p.Type, &p.Specialty, &p.Address, &p.City, &p.State, &p.Zip, &p.Found)
	if err == sql.ErrNoRows {
		return Provider{}, false, nil
	}
	if err != nil {
		return Provider{}, false, fmt.Errorf("failed to read provider: %w", err)
	}
	return p, true, nil
}

// Put stores or replaces the provider for its NPI.
func (c *Cache) Put(p Provider) error {
	_, err := c.db.Exec(
		`INSERT INTO providers (npi, name, provider_type, specialty, address, city, state, zip, found)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT(npi) DO UPDATE SET
			name = excluded.name,
			provider_type = excluded.provider_type,
			specialty = excluded.specialty,
			address = excluded.address,
			city = excluded.city,
			state = excluded.state,
			zip = excluded.zip,
			found = excluded.found,
			looked_up_at = CURRENT_TIMESTAMP`,
		p.NPI, p.Name, p.Type, p.Specialty, p.Address, p.City, p.State, p.Zip, p.Found)
	if err != nil {
		return fmt.Errorf("failed to store provider: %w", err)
	}
	return nil
}

// Count returns the number of cached providers.
func (c *Cache) Count() (int64, error) {
	var count int64
	if err := c.db.QueryRow("SELECT COUNT(*) FROM providers").Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count providers: %w", err)
	}
	return count, nil
}
