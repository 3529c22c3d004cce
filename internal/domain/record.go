package domain

import "time"

const (
	MinConfidence = 0
	MaxConfidence = 100
)

// CacheRecord is the persisted classification for one MAC address
type CacheRecord struct {
	IP             string    `json:"ip" yaml:"ip"`
	Classification string    `json:"classification" yaml:"classification"`
	Confidence     int       `json:"confidence" yaml:"confidence"`
	LastSeen       time.Time `json:"last_seen" yaml:"last_seen"`
}

// ClampConfidence bounds a score to [MinConfidence, MaxConfidence]
func ClampConfidence(c int) int {
	if c < MinConfidence {
		return MinConfidence
	}
	if c > MaxConfidence {
		return MaxConfidence
	}
	return c
}

// Normalized returns a copy with confidence clamped and LastSeen in UTC
func (r CacheRecord) Normalized() CacheRecord {
	r.Confidence = ClampConfidence(r.Confidence)
	if !r.LastSeen.IsZero() {
		r.LastSeen = r.LastSeen.UTC()
	}
	return r
}

// Equal reports whether two records hold the same data.
// Timestamps are compared as instants, ignoring location and monotonic reading.
func (r CacheRecord) Equal(other CacheRecord) bool {
	return r.IP == other.IP &&
		r.Classification == other.Classification &&
		r.Confidence == other.Confidence &&
		r.LastSeen.Equal(other.LastSeen)
}

// RecordsEqual compares two record sets keyed by MAC
func RecordsEqual(a, b map[string]CacheRecord) bool {
	if len(a) != len(b) {
		return false
	}
	for mac, ra := range a {
		rb, ok := b[mac]
		if !ok || !ra.Equal(rb) {
			return false
		}
	}
	return true
}
