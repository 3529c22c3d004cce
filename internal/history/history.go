// Package history records what every sweep saw in PostgreSQL.
//
// The classification cache only keeps the latest verdict per MAC. The
// sightings table keeps one row per host per sweep, so address changes and
// reclassifications can be traced over time.
package history

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/jackc/pgx/v4"
	uuid "github.com/nu7hatch/gouuid"
	"lanscope/internal/domain"
)

// Sighting is one host seen by one sweep
type Sighting struct {
	ID             string
	SweepID        string
	SeenAt         time.Time
	IP             string
	MAC            string
	Classification string
	Confidence     int
}

// PostgresRecorder appends sweep results to a sightings table
type PostgresRecorder struct {
	mu   sync.Mutex // pgx.Conn is not safe for concurrent use
	conn *pgx.Conn
}

// NewPostgresRecorder connects to dsn and creates the schema if needed
func NewPostgresRecorder(ctx context.Context, dsn string) (*PostgresRecorder, error) {
	conn, err := pgx.Connect(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to history database: %w", err)
	}

	r := &PostgresRecorder{conn: conn}
	if err := r.migrate(ctx); err != nil {
		conn.Close(ctx)
		return nil, fmt.Errorf("failed to migrate history database: %w", err)
	}
	return r, nil
}

// Close closes the database connection
func (r *PostgresRecorder) Close(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.conn.Close(ctx)
}

func (r *PostgresRecorder) migrate(ctx context.Context) error {
	schema := `
	CREATE TABLE IF NOT EXISTS sightings (
		id UUID PRIMARY KEY,
		sweep_id TEXT NOT NULL,
		seen_at TIMESTAMPTZ NOT NULL,
		ip TEXT NOT NULL,
		mac TEXT NOT NULL,
		classification TEXT NOT NULL,
		confidence INTEGER NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_sightings_mac ON sightings(mac, seen_at DESC);
	CREATE INDEX IF NOT EXISTS idx_sightings_sweep ON sightings(sweep_id);
	`

	r.mu.Lock()
	defer r.mu.Unlock()
	_, err := r.conn.Exec(ctx, schema)
	return err
}

// Record writes one sighting per host of sweep in a single transaction
func (r *PostgresRecorder) Record(ctx context.Context, sweep *domain.Sweep) error {
	rows, err := sightingsFor(sweep)
	if err != nil {
		return err
	}
	if len(rows) == 0 {
		return nil
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	tx, err := r.conn.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	for _, s := range rows {
		_, err := tx.Exec(ctx, `
			INSERT INTO sightings (id, sweep_id, seen_at, ip, mac, classification, confidence)
			VALUES ($1, $2, $3, $4, $5, $6, $7)
		`, s.ID, s.SweepID, s.SeenAt, s.IP, s.MAC, s.Classification, s.Confidence)
		if err != nil {
			return fmt.Errorf("failed to insert sighting of %s: %w", s.MAC, err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit sightings: %w", err)
	}

	log.Printf("History: recorded %d sightings for sweep %s", len(rows), sweep.ID)
	return nil
}

// Sightings returns the most recent sightings of mac, newest first
func (r *PostgresRecorder) Sightings(ctx context.Context, mac string, limit int) ([]Sighting, error) {
	if err := domain.ValidateMAC(mac); err != nil {
		return nil, err
	}
	if limit <= 0 {
		limit = 50
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	rows, err := r.conn.Query(ctx, `
		SELECT id::text, sweep_id, seen_at, ip, mac, classification, confidence
		FROM sightings
		WHERE mac = $1
		ORDER BY seen_at DESC
		LIMIT $2
	`, domain.NormalizeMAC(mac), limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query sightings: %w", err)
	}
	defer rows.Close()

	var out []Sighting
	for rows.Next() {
		var s Sighting
		if err := rows.Scan(&s.ID, &s.SweepID, &s.SeenAt, &s.IP, &s.MAC, &s.Classification, &s.Confidence); err != nil {
			return nil, fmt.Errorf("failed to scan sighting: %w", err)
		}
		s.SeenAt = s.SeenAt.UTC()
		out = append(out, s)
	}
	return out, rows.Err()
}

// sightingsFor builds the rows for a sweep, stamped with its finish time
func sightingsFor(sweep *domain.Sweep) ([]Sighting, error) {
	if sweep == nil {
		return nil, nil
	}
	seenAt := sweep.FinishedAt
	if seenAt.IsZero() {
		seenAt = sweep.StartedAt
	}

	rows := make([]Sighting, 0, len(sweep.Hosts))
	for _, h := range sweep.Hosts {
		id, err := uuid.NewV4()
		if err != nil {
			return nil, fmt.Errorf("failed to generate sighting id: %w", err)
		}
		rows = append(rows, Sighting{
			ID:             id.String(),
			SweepID:        sweep.ID,
			SeenAt:         seenAt.UTC(),
			IP:             h.IP,
			MAC:            domain.NormalizeMAC(h.MAC),
			Classification: h.Classification,
			Confidence:     h.Confidence,
		})
	}
	return rows, nil
}
