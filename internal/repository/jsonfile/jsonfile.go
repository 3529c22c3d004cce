// Package jsonfile stores classification records in a single JSON document.
//
// The document is an object keyed by uppercase MAC:
//
//	{
//	  "B8:27:EB:11:22:33": {
//	    "ip": "192.168.1.20",
//	    "classification": "Dev Board: Raspberry Pi",
//	    "confidence": 90,
//	    "last_seen": "2026-10-18T09:30:15.123456789Z"
//	  }
//	}
//
// Timestamps without a zone offset ("2024-05-01T12:34:56.123456", as older
// cache files hold) are read as local time. Save always writes RFC 3339.
package jsonfile

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"
	"time"

	"lanscope/internal/domain"
)

// Store implements repository.Store over a JSON file
type Store struct {
	path string
	mu   sync.Mutex
	zone *time.Location // for timestamps that carry no offset
}

// naiveLayout is an ISO 8601 timestamp with optional fraction and no offset
const naiveLayout = "2006-01-02T15:04:05.999999999"

// fileRecord mirrors domain.CacheRecord with a leniently parsed last_seen
type fileRecord struct {
	IP             string `json:"ip"`
	Classification string `json:"classification"`
	Confidence     int    `json:"confidence"`
	LastSeen       string `json:"last_seen"`
}

// New returns a store for path. The file need not exist yet.
func New(path string) *Store {
	return &Store{path: path, zone: time.Local}
}

func (s *Store) parseLastSeen(v string) (time.Time, error) {
	if v == "" {
		return time.Time{}, nil
	}
	if t, err := time.Parse(time.RFC3339Nano, v); err == nil {
		return t.UTC(), nil
	}
	t, err := time.ParseInLocation(naiveLayout, v, s.zone)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid last_seen %q", v)
	}
	return t.UTC(), nil
}

// Path returns the backing file path
func (s *Store) Path() string {
	return s.path
}

// Load reads the document; a missing file is an empty store
func (s *Store) Load(ctx context.Context) (map[string]domain.CacheRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := os.ReadFile(s.path)
	if errors.Is(err, fs.ErrNotExist) {
		return make(map[string]domain.CacheRecord), nil
	}
	if err != nil {
		return nil, fmt.Errorf("read cache file: %w", err)
	}

	records := make(map[string]domain.CacheRecord)
	if len(data) == 0 {
		return records, nil
	}
	var raw map[string]fileRecord
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("parse cache file %s: %w", s.path, err)
	}

	for mac, fr := range raw {
		seen, err := s.parseLastSeen(fr.LastSeen)
		if err != nil {
			return nil, fmt.Errorf("parse cache file %s: %s: %w", s.path, mac, err)
		}
		records[mac] = domain.CacheRecord{
			IP:             fr.IP,
			Classification: fr.Classification,
			Confidence:     fr.Confidence,
			LastSeen:       seen,
		}.Normalized()
	}
	return records, nil
}

// Save writes the full record set to a temp file and renames it over the old one
func (s *Store) Save(ctx context.Context, records map[string]domain.CacheRecord) error {
	normalized := make(map[string]domain.CacheRecord, len(records))
	for mac, rec := range records {
		if err := domain.ValidateMAC(mac); err != nil {
			return fmt.Errorf("refusing to save: %w", err)
		}
		normalized[mac] = rec.Normalized()
	}

	// Encoded in full before anything on disk is touched
	data, err := json.MarshalIndent(normalized, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal cache: %w", err)
	}
	data = append(data, '\n')

	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("create cache dir: %w", err)
	}

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(s.path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("create temp cache file: %w", err)
	}
	tmpName := tmp.Name()
	committed := false
	defer func() {
		if !committed {
			os.Remove(tmpName)
		}
	}()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("write temp cache file: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("sync temp cache file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close temp cache file: %w", err)
	}
	if err := os.Rename(tmpName, s.path); err != nil {
		return fmt.Errorf("replace cache file: %w", err)
	}
	committed = true

	return nil
}

// Close is a no-op; the file is not held open between calls
func (s *Store) Close() error {
	return nil
}
