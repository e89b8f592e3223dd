// Package storage persists entities (posts), their repeatable attributes,
// and taxonomy terms in a single SQLite database.
package storage

import (
	"database/sql"
	"fmt"
	"strings"
	"time"
	"unicode"

	_ "modernc.org/sqlite"
)

// DB wraps a SQLite database connection.
type DB struct {
	db  *sql.DB
	now func() time.Time
}

// OpenDB opens or creates a SQLite database at the given path.
func OpenDB(path string) (*DB, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	db.SetMaxOpenConns(1) // SQLite doesn't support concurrent writes

	if err := createSchema(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating schema: %w", err)
	}

	return &DB{db: db, now: time.Now}, nil
}

// Close closes the database connection.
func (d *DB) Close() error {
	return d.db.Close()
}

// createSchema creates the database schema if it doesn't exist.
func createSchema(db *sql.DB) error {
	schema := `
		-- Entities: publications, team members
		CREATE TABLE IF NOT EXISTS posts (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			kind TEXT NOT NULL,
			title TEXT NOT NULL,
			slug TEXT NOT NULL DEFAULT '',
			status TEXT NOT NULL,
			created_at INTEGER NOT NULL,
			updated_at INTEGER NOT NULL
		);

		CREATE INDEX IF NOT EXISTS idx_posts_kind_status ON posts(kind, status);

		-- Repeatable key/value attributes per entity
		CREATE TABLE IF NOT EXISTS post_meta (
			meta_id INTEGER PRIMARY KEY AUTOINCREMENT,
			post_id INTEGER NOT NULL,
			meta_key TEXT NOT NULL,
			meta_value TEXT NOT NULL
		);

		CREATE INDEX IF NOT EXISTS idx_post_meta_post_key ON post_meta(post_id, meta_key);
		CREATE INDEX IF NOT EXISTS idx_post_meta_key_value ON post_meta(meta_key, meta_value);

		-- Taxonomy terms, unique by name within a taxonomy
		CREATE TABLE IF NOT EXISTS terms (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			taxonomy TEXT NOT NULL,
			name TEXT NOT NULL,
			slug TEXT NOT NULL DEFAULT '',
			UNIQUE(taxonomy, name)
		);

		CREATE TABLE IF NOT EXISTS term_meta (
			term_id INTEGER NOT NULL,
			meta_key TEXT NOT NULL,
			meta_value TEXT NOT NULL,
			PRIMARY KEY (term_id, meta_key)
		);

		-- Ordered assignment of terms to entities
		CREATE TABLE IF NOT EXISTS term_relationships (
			post_id INTEGER NOT NULL,
			term_id INTEGER NOT NULL,
			position INTEGER NOT NULL,
			PRIMARY KEY (post_id, term_id)
		);

		CREATE INDEX IF NOT EXISTS idx_term_relationships_term ON term_relationships(term_id);
	`

	_, err := db.Exec(schema)
	return err
}

// scanner interface for sql.Row and sql.Rows
type scanner interface {
	Scan(dest ...interface{}) error
}

// Slugify lowercases s and replaces runs of non-alphanumeric characters
// with single hyphens.
func Slugify(s string) string {
	var b strings.Builder
	lastHyphen := true
	for _, r := range strings.ToLower(s) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			b.WriteRune(r)
			lastHyphen = false
			continue
		}
		if !lastHyphen {
			b.WriteByte('-')
			lastHyphen = true
		}
	}
	return strings.TrimSuffix(b.String(), "-")
}

// placeholders returns "?, ?, ..." with n markers.
func placeholders(n int) string {
	if n <= 0 {
		return ""
	}
	return strings.TrimSuffix(strings.Repeat("?, ", n), ", ")
}
