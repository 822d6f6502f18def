package app

import (
	"testing"
	"time"

	"fx-arb-watch/internal/storage"
)

func makeRecords(n int) []storage.OpportunityRecord {
	base := time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC)
	records := make([]storage.OpportunityRecord, n)
	for i := range records {
		records[i] = storage.OpportunityRecord{
			ID:         int64(i + 1),
			DetectedAt: base.Add(time.Duration(i) * time.Minute),
		}
	}
	return records
}

func TestDownsampleKeepsSmallSets(t *testing.T) {
	records := makeRecords(10)
	out := downsampleRecords(records, 100)
	if len(out) != 10 {
		t.Fatalf("sets under the limit should pass through, got %d", len(out))
	}
}

func TestDownsampleBoundsLargeSets(t *testing.T) {
	records := makeRecords(1000)
	out := downsampleRecords(records, 50)
	if len(out) != 50 {
		t.Fatalf("expected 50 points, got %d", len(out))
	}

	// Endpoints survive and order is preserved.
	if out[0].ID != records[0].ID {
		t.Fatalf("first record should survive, got ID %d", out[0].ID)
	}
	if out[len(out)-1].ID != records[len(records)-1].ID {
		t.Fatalf("last record should survive, got ID %d", out[len(out)-1].ID)
	}
	for i := 1; i < len(out); i++ {
		if out[i].ID <= out[i-1].ID {
			t.Fatalf("downsampling should preserve order: %d after %d", out[i].ID, out[i-1].ID)
		}
	}
}
