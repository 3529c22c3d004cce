package codec

import (
	"encoding/json"
	"fmt"
	"io"

	"lanscope/internal/domain"
)

// JSONCodec handles JSON import/export
type JSONCodec struct{}

// NewJSONCodec creates a new JSON codec
func NewJSONCodec() *JSONCodec {
	return &JSONCodec{}
}

// Format returns the codec format identifier
func (c *JSONCodec) Format() string {
	return "json"
}

// ParseRecords imports records in the cache file layout
func (c *JSONCodec) ParseRecords(r io.Reader) (map[string]domain.CacheRecord, error) {
	var records map[string]domain.CacheRecord
	decoder := json.NewDecoder(r)
	if err := decoder.Decode(&records); err != nil {
		return nil, fmt.Errorf("failed to parse JSON: %w", err)
	}

	return normalizeRecords(records)
}

// ExportSweep writes a sweep and its hosts
func (c *JSONCodec) ExportSweep(sweep *domain.Sweep, w io.Writer) error {
	return c.encode(sweep, w)
}

// ExportRecords writes records keyed by MAC, in the cache file layout
func (c *JSONCodec) ExportRecords(records map[string]domain.CacheRecord, w io.Writer) error {
	if records == nil {
		records = map[string]domain.CacheRecord{}
	}
	return c.encode(records, w)
}

func (c *JSONCodec) encode(v any, w io.Writer) error {
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")

	if err := encoder.Encode(v); err != nil {
		return fmt.Errorf("failed to encode JSON: %w", err)
	}

	return nil
}
