package sqlite

import (
	"fmt"
	"sort"
	"time"

	"lanscope/internal/domain"
)

// ============================================================================
// Time Conversion Helpers
// ============================================================================

// timestamps are stored as UTC RFC 3339 text so they round-trip exactly

func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

func parseTime(s string) (time.Time, error) {
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse last_seen %q: %w", s, err)
	}
	return t.UTC(), nil
}

// ============================================================================
// Record Row Scanner
// ============================================================================
//
// CRITICAL: column order must match between recordColumns, scanArgs()
// and insertArgs().

const recordColumns = `mac, ip, classification, confidence, last_seen`

// recordRow holds all columns of a classifications row
type recordRow struct {
	MAC            string
	IP             string
	Classification string
	Confidence     int
	LastSeen       string
}

// scanArgs returns pointers to all fields for sql.Scan()
func (r *recordRow) scanArgs() []interface{} {
	return []interface{}{
		&r.MAC,            // 1
		&r.IP,             // 2
		&r.Classification, // 3
		&r.Confidence,     // 4
		&r.LastSeen,       // 5
	}
}

// insertArgs returns values in recordColumns order
func (r *recordRow) insertArgs() []interface{} {
	return []interface{}{r.MAC, r.IP, r.Classification, r.Confidence, r.LastSeen}
}

// toDomain converts the scanned row to a domain.CacheRecord
func (r *recordRow) toDomain() (domain.CacheRecord, error) {
	seen, err := parseTime(r.LastSeen)
	if err != nil {
		return domain.CacheRecord{}, err
	}
	return domain.CacheRecord{
		IP:             r.IP,
		Classification: r.Classification,
		Confidence:     domain.ClampConfidence(r.Confidence),
		LastSeen:       seen,
	}, nil
}

// prepareRows validates and converts records, sorted by MAC for stable writes
func prepareRows(records map[string]domain.CacheRecord) ([]recordRow, error) {
	rows := make([]recordRow, 0, len(records))
	for mac, rec := range records {
		if err := domain.ValidateMAC(mac); err != nil {
			return nil, fmt.Errorf("refusing to save: %w", err)
		}
		if mac != domain.NormalizeMAC(mac) {
			return nil, fmt.Errorf("refusing to save: key %s is not uppercase", mac)
		}
		rec = rec.Normalized()
		rows = append(rows, recordRow{
			MAC:            mac,
			IP:             rec.IP,
			Classification: rec.Classification,
			Confidence:     rec.Confidence,
			LastSeen:       formatTime(rec.LastSeen),
		})
	}

	sort.Slice(rows, func(i, j int) bool { return rows[i].MAC < rows[j].MAC })
	return rows, nil
}
