package codec

import (
	"fmt"
	"io"
	"sort"
	"strings"

	"lanscope/internal/domain"
)

// Importer reads classification records written by an Exporter
type Importer interface {
	ParseRecords(r io.Reader) (map[string]domain.CacheRecord, error)
	Format() string
}

// Exporter writes sweep results and classification records
type Exporter interface {
	ExportSweep(sweep *domain.Sweep, w io.Writer) error
	ExportRecords(records map[string]domain.CacheRecord, w io.Writer) error
	Format() string
}

// Codec both imports and exports one format
type Codec interface {
	Importer
	Exporter
}

// ForFormat returns the codec registered under name
func ForFormat(name string) (Codec, error) {
	switch strings.ToLower(name) {
	case "json":
		return NewJSONCodec(), nil
	case "yaml", "yml":
		return NewYAMLCodec(), nil
	default:
		return nil, fmt.Errorf("unknown format %q (supported: %s)", name, strings.Join(Formats(), ", "))
	}
}

// Formats lists the supported format names
func Formats() []string {
	return []string{"json", "yaml"}
}

// normalizeRecords validates and canonicalises parsed records: keys become
// uppercase MACs, confidence is clamped and timestamps move to UTC
func normalizeRecords(in map[string]domain.CacheRecord) (map[string]domain.CacheRecord, error) {
	keys := make([]string, 0, len(in))
	for k := range in {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	out := make(map[string]domain.CacheRecord, len(in))
	for _, k := range keys {
		if err := domain.ValidateMAC(k); err != nil {
			return nil, err
		}
		out[domain.NormalizeMAC(k)] = in[k].Normalized()
	}
	return out, nil
}
