package history

import (
	"context"
	"os"
	"testing"
	"time"

	uuid "github.com/nu7hatch/gouuid"
	"lanscope/internal/domain"
)

func testSweep(id string, at time.Time) *domain.Sweep {
	return &domain.Sweep{
		ID:         id,
		Target:     "192.168.1.0/24",
		StartedAt:  at.Add(-2 * time.Second),
		FinishedAt: at,
		Hosts: []domain.ClassifiedHost{
			{IP: "192.168.1.10", MAC: "b8:27:eb:11:22:33", Classification: "Dev Board: Raspberry Pi", Confidence: 90},
			{IP: "192.168.1.11", MAC: "AA:BB:CC:DD:EE:FF", Classification: "IoT Device: Unknown", Confidence: 30, Cached: true},
		},
	}
}

func TestSightingsFor(t *testing.T) {
	at := time.Date(2025, 1, 15, 10, 30, 0, 0, time.FixedZone("CET", 3600))
	rows, err := sightingsFor(testSweep("sweep-1", at))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(rows) != 2 {
		t.Fatalf("expected 2 rows, got %d", len(rows))
	}

	if rows[0].ID == rows[1].ID {
		t.Error("expected distinct sighting IDs")
	}
	for _, r := range rows {
		if _, err := uuid.ParseHex(r.ID); err != nil {
			t.Errorf("sighting ID %q is not a UUID: %v", r.ID, err)
		}
		if r.SweepID != "sweep-1" {
			t.Errorf("expected sweep-1, got %q", r.SweepID)
		}
		if !r.SeenAt.Equal(at) || r.SeenAt.Location() != time.UTC {
			t.Errorf("expected seen_at %v in UTC, got %v", at, r.SeenAt)
		}
	}
	if rows[0].MAC != "B8:27:EB:11:22:33" {
		t.Errorf("expected uppercase MAC, got %q", rows[0].MAC)
	}
}

func TestSightingsFor_Empty(t *testing.T) {
	rows, err := sightingsFor(nil)
	if err != nil || len(rows) != 0 {
		t.Errorf("expected no rows, got %v, %v", rows, err)
	}

	unfinished := &domain.Sweep{ID: "s", StartedAt: time.Now(), Hosts: []domain.ClassifiedHost{{IP: "10.0.0.1", MAC: "AA:BB:CC:DD:EE:FF"}}}
	rows, err = sightingsFor(unfinished)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !rows[0].SeenAt.Equal(unfinished.StartedAt) {
		t.Errorf("expected start time fallback, got %v", rows[0].SeenAt)
	}
}

// TestPostgresRecorder runs against a real database when
// LANSCOPE_TEST_POSTGRES_DSN is set
func TestPostgresRecorder(t *testing.T) {
	dsn := os.Getenv("LANSCOPE_TEST_POSTGRES_DSN")
	if dsn == "" {
		t.Skip("LANSCOPE_TEST_POSTGRES_DSN not set")
	}

	ctx := context.Background()
	r, err := NewPostgresRecorder(ctx, dsn)
	if err != nil {
		t.Fatalf("connect: %v", err)
	}
	defer r.Close(ctx)

	id, err := uuid.NewV4()
	if err != nil {
		t.Fatalf("uuid: %v", err)
	}
	sweepID := id.String()
	at := time.Now().UTC().Truncate(time.Millisecond)

	if err := r.Record(ctx, testSweep(sweepID, at)); err != nil {
		t.Fatalf("record: %v", err)
	}

	got, err := r.Sightings(ctx, "b8:27:eb:11:22:33", 10)
	if err != nil {
		t.Fatalf("sightings: %v", err)
	}

	found := false
	for _, s := range got {
		if s.SweepID == sweepID {
			found = true
			if s.Classification != "Dev Board: Raspberry Pi" || s.Confidence != 90 {
				t.Errorf("unexpected sighting: %+v", s)
			}
			if !s.SeenAt.Equal(at) {
				t.Errorf("expected seen_at %v, got %v", at, s.SeenAt)
			}
		}
	}
	if !found {
		t.Errorf("sighting for sweep %s not found in %+v", sweepID, got)
	}

	if _, err := r.Sightings(ctx, "bogus", 10); err == nil {
		t.Error("expected error for invalid MAC")
	}
}
