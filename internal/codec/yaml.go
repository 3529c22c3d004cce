package codec

import (
	"errors"
	"fmt"
	"io"
	"time"

	"lanscope/internal/domain"

	"gopkg.in/yaml.v3"
)

// YAMLCodec handles YAML import/export
type YAMLCodec struct{}

// NewYAMLCodec creates a new YAML codec
func NewYAMLCodec() *YAMLCodec {
	return &YAMLCodec{}
}

// Format returns the codec format identifier
func (c *YAMLCodec) Format() string {
	return "yaml"
}

// yamlSweep flattens a sweep for readability: durations and times as strings
type yamlSweep struct {
	ID       string                  `yaml:"id"`
	Target   string                  `yaml:"target"`
	Started  string                  `yaml:"started"`
	Duration string                  `yaml:"duration"`
	Hosts    []domain.ClassifiedHost `yaml:"hosts"`
}

// ParseRecords imports records keyed by MAC
func (c *YAMLCodec) ParseRecords(r io.Reader) (map[string]domain.CacheRecord, error) {
	var records map[string]domain.CacheRecord
	decoder := yaml.NewDecoder(r)
	if err := decoder.Decode(&records); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	return normalizeRecords(records)
}

// ExportSweep writes a sweep and its hosts
func (c *YAMLCodec) ExportSweep(sweep *domain.Sweep, w io.Writer) error {
	ys := yamlSweep{
		ID:       sweep.ID,
		Target:   sweep.Target,
		Started:  sweep.StartedAt.UTC().Format(time.RFC3339),
		Duration: sweep.Duration().Round(time.Millisecond).String(),
		Hosts:    sweep.Hosts,
	}
	if ys.Hosts == nil {
		ys.Hosts = []domain.ClassifiedHost{}
	}
	return c.encode(ys, w)
}

// ExportRecords writes records keyed by MAC
func (c *YAMLCodec) ExportRecords(records map[string]domain.CacheRecord, w io.Writer) error {
	if records == nil {
		records = map[string]domain.CacheRecord{}
	}
	return c.encode(records, w)
}

func (c *YAMLCodec) encode(v any, w io.Writer) error {
	encoder := yaml.NewEncoder(w)
	encoder.SetIndent(2)
	defer encoder.Close()

	if err := encoder.Encode(v); err != nil {
		return fmt.Errorf("failed to encode YAML: %w", err)
	}

	return nil
}
