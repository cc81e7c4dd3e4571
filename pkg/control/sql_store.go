package control

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	_ "github.com/lib/pq"           // PostgreSQL driver
	_ "github.com/mattn/go-sqlite3" // SQLite driver
)

// Dialect selects the SQL flavour of a SQLStore
type Dialect string

const (
	DialectSQLite   Dialect = "sqlite3"
	DialectPostgres Dialect = "postgres"
)

// SQLStore keeps the manifest in a plugin_manifest table
type SQLStore struct {
	db      *sql.DB
	dialect Dialect
}

// OpenSQLStore opens and pings a database for the given dialect
func OpenSQLStore(ctx context.Context, dialect Dialect, dsn string) (*SQLStore, error) {
	switch dialect {
	case DialectSQLite, DialectPostgres:
	default:
		return nil, fmt.Errorf("unsupported manifest database %q", dialect)
	}

	db, err := sql.Open(string(dialect), dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open manifest database: %w", err)
	}
	if dialect == DialectSQLite {
		// sqlite allows a single writer
		db.SetMaxOpenConns(1)
	}

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping manifest database: %w", err)
	}

	return NewSQLStore(db, dialect), nil
}

// NewSQLStore wraps an open database
func NewSQLStore(db *sql.DB, dialect Dialect) *SQLStore {
	return &SQLStore{db: db, dialect: dialect}
}

// DB returns the underlying database handle
func (s *SQLStore) DB() *sql.DB {
	return s.db
}

// Close closes the database
func (s *SQLStore) Close() error {
	return s.db.Close()
}

// Migrate creates the manifest table if it does not exist
func (s *SQLStore) Migrate(ctx context.Context) error {
	timestamp := "TIMESTAMP"
	if s.dialect == DialectPostgres {
		timestamp = "TIMESTAMPTZ"
	}

	query := fmt.Sprintf(`CREATE TABLE IF NOT EXISTS plugin_manifest (
		name TEXT PRIMARY KEY,
		enabled BOOLEAN NOT NULL DEFAULT FALSE,
		version TEXT NOT NULL DEFAULT '',
		installed_at %[1]s NULL,
		source TEXT NOT NULL DEFAULT '',
		config TEXT NOT NULL DEFAULT '{}',
		updated_at %[1]s NOT NULL
	)`, timestamp)

	if _, err := s.db.ExecContext(ctx, query); err != nil {
		return fmt.Errorf("failed to migrate manifest table: %w", err)
	}
	return nil
}

// rebind rewrites ? placeholders to $n for PostgreSQL
func (s *SQLStore) rebind(query string) string {
	if s.dialect != DialectPostgres {
		return query
	}
	var b strings.Builder
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

// Load implements ManifestStore.Load
func (s *SQLStore) Load(ctx context.Context) (map[string]*ManifestEntry, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT name, enabled, version, installed_at, source, config, updated_at FROM plugin_manifest`)
	if err != nil {
		return nil, fmt.Errorf("failed to query manifest: %w", err)
	}
	defer rows.Close()

	entries := make(map[string]*ManifestEntry)
	for rows.Next() {
		var (
			e           ManifestEntry
			installedAt sql.NullTime
			config      string
		)
		if err := rows.Scan(&e.Name, &e.Enabled, &e.Version, &installedAt, &e.Source, &config, &e.UpdatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan manifest entry: %w", err)
		}
		if installedAt.Valid {
			t := installedAt.Time.UTC()
			e.InstalledAt = &t
		}
		e.UpdatedAt = e.UpdatedAt.UTC()
		if config != "" && config != "{}" {
			if err := json.Unmarshal([]byte(config), &e.Config); err != nil {
				return nil, fmt.Errorf("failed to unmarshal config for %q: %w", e.Name, err)
			}
		}
		entries[e.Name] = &e
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate manifest: %w", err)
	}

	return entries, nil
}

// Save implements ManifestStore.Save
func (s *SQLStore) Save(ctx context.Context, entry *ManifestEntry) error {
	config := []byte("{}")
	if len(entry.Config) > 0 {
		var err error
		config, err = json.Marshal(entry.Config)
		if err != nil {
			return fmt.Errorf("failed to marshal config: %w", err)
		}
	}

	var installedAt sql.NullTime
	if entry.InstalledAt != nil {
		installedAt = sql.NullTime{Time: entry.InstalledAt.UTC(), Valid: true}
	}
	updatedAt := entry.UpdatedAt
	if updatedAt.IsZero() {
		updatedAt = time.Now()
	}

	query := s.rebind(`INSERT INTO plugin_manifest (name, enabled, version, installed_at, source, config, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (name) DO UPDATE SET
			enabled = excluded.enabled,
			version = excluded.version,
			installed_at = excluded.installed_at,
			source = excluded.source,
			config = excluded.config,
			updated_at = excluded.updated_at`)

	_, err := s.db.ExecContext(ctx, query,
		entry.Name, entry.Enabled, entry.Version, installedAt, entry.Source, string(config), updatedAt.UTC())
	if err != nil {
		return fmt.Errorf("failed to save manifest entry %q: %w", entry.Name, err)
	}
	return nil
}

// Delete implements ManifestStore.Delete
func (s *SQLStore) Delete(ctx context.Context, name string) error {
	if _, err := s.db.ExecContext(ctx, s.rebind(`DELETE FROM plugin_manifest WHERE name = ?`), name); err != nil {
		return fmt.Errorf("failed to delete manifest entry %q: %w", name, err)
	}
	return nil
}
