package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"lanscope/internal/domain"

	_ "modernc.org/sqlite"
)

// Repository implements repository.Store using SQLite
type Repository struct {
	db *sql.DB
}

// New opens (creating if needed) the SQLite database at dbPath.
// ":memory:" gives a private in-memory database, used by tests.
func New(dbPath string) (*Repository, error) {
	if dbPath != ":memory:" && !strings.HasPrefix(dbPath, "file:") {
		if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// One connection keeps :memory: databases alive and serialises writers
	db.SetMaxOpenConns(1)

	repo := &Repository{db: db}
	if err := repo.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	return repo, nil
}

func (r *Repository) migrate() error {
	schema := `
	PRAGMA journal_mode = WAL;
	PRAGMA busy_timeout = 5000;

	CREATE TABLE IF NOT EXISTS classifications (
		mac TEXT PRIMARY KEY,
		ip TEXT NOT NULL,
		classification TEXT NOT NULL,
		confidence INTEGER NOT NULL CHECK (confidence BETWEEN 0 AND 100),
		last_seen TEXT NOT NULL
	);
	`

	_, err := r.db.Exec(schema)
	return err
}

// Load reads every persisted classification record
func (r *Repository) Load(ctx context.Context) (map[string]domain.CacheRecord, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT `+recordColumns+` FROM classifications`)
	if err != nil {
		return nil, fmt.Errorf("failed to query classifications: %w", err)
	}
	defer rows.Close()

	records := make(map[string]domain.CacheRecord)
	for rows.Next() {
		var row recordRow
		if err := rows.Scan(row.scanArgs()...); err != nil {
			return nil, fmt.Errorf("failed to scan classification: %w", err)
		}

		record, err := row.toDomain()
		if err != nil {
			return nil, fmt.Errorf("classification %s: %w", row.MAC, err)
		}
		records[row.MAC] = record
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating classifications: %w", err)
	}

	return records, nil
}

// Save replaces the stored record set inside one transaction.
// Rows are built and validated before the transaction begins.
func (r *Repository) Save(ctx context.Context, records map[string]domain.CacheRecord) error {
	rows, err := prepareRows(records)
	if err != nil {
		return err
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM classifications`); err != nil {
		return fmt.Errorf("failed to clear classifications: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO classifications (`+recordColumns+`)
		VALUES (?, ?, ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("failed to prepare insert: %w", err)
	}
	defer stmt.Close()

	for _, row := range rows {
		if _, err := stmt.ExecContext(ctx, row.insertArgs()...); err != nil {
			return fmt.Errorf("failed to insert classification %s: %w", row.MAC, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit classifications: %w", err)
	}

	return nil
}

// Count returns the number of stored records
func (r *Repository) Count(ctx context.Context) (int, error) {
	var n int
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM classifications`).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count classifications: %w", err)
	}
	return n, nil
}

// Close closes the database connection
func (r *Repository) Close() error {
	return r.db.Close()
}
