package api

import (
	"encoding/json"
	"testing"
	"time"
)

func TestSessionPatchTriState(t *testing.T) {
	payload := `{"status":"PAUSED","pausedAt":"2026-03-01T12:10:00Z","endedAt":null,"timeRemaining":900}`

	var p sessionPatch
	if err := json.Unmarshal([]byte(payload), &p); err != nil {
		t.Fatal(err)
	}

	updates := p.updates()

	if got := updates["status"]; got != "PAUSED" {
		t.Fatalf("status = %v, want PAUSED", got)
	}
	if got := updates["remaining_seconds"]; got != 900 {
		t.Fatalf("remaining_seconds = %v, want 900", got)
	}

	// Explicit null clears the column.
	v, ok := updates["ended_at"]
	if !ok {
		t.Fatal("ended_at should be present in updates")
	}
	if v != nil {
		t.Fatalf("ended_at = %v, want nil", v)
	}

	wantPaused := time.Date(2026, 3, 1, 12, 10, 0, 0, time.UTC)
	if got := updates["paused_at"].(time.Time); !got.Equal(wantPaused) {
		t.Fatalf("paused_at = %v, want %v", got, wantPaused)
	}

	// Absent fields stay untouched.
	for _, col := range []string{"task", "duration_minutes", "type", "started_at", "completed_at"} {
		if _, ok := updates[col]; ok {
			t.Fatalf("%s should not be present in updates", col)
		}
	}
}

func TestFieldUnmarshalValue(t *testing.T) {
	var f Field[int]
	if err := json.Unmarshal([]byte("1500"), &f); err != nil {
		t.Fatal(err)
	}
	if !f.Set || f.Null || f.Value != 1500 {
		t.Fatalf("Field = %+v, want Set value 1500", f)
	}
}

func TestFieldUnmarshalNull(t *testing.T) {
	var f Field[string]
	if err := json.Unmarshal([]byte(" null "), &f); err != nil {
		t.Fatal(err)
	}
	if !f.Set || !f.Null {
		t.Fatalf("Field = %+v, want Set and Null", f)
	}
}
