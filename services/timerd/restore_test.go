package timerd

import (
	"context"
	"encoding/json"
	"testing"
	"time"
)

func TestRestoreAllResumesRunningSessions(t *testing.T) {
	store := newFakeStore()
	pub := &fakePublisher{}
	d := newTestDaemon(t, store, pub)

	record := activeRecord(600)
	record.DurationMinutes = 25
	record.StartedAt = time.Now().UTC().Add(-5 * time.Minute)
	store.add(record)

	if err := d.RestoreAll(context.Background()); err != nil {
		t.Fatal(err)
	}

	if got := d.runnerCount(); got != 1 {
		t.Fatalf("runners = %d, want 1", got)
	}

	announced := pub.bySubject(sessionStartedSubject)
	if len(announced) != 1 {
		t.Fatalf("restore announcements = %d, want 1", len(announced))
	}
	var evt sessionEvent
	if err := json.Unmarshal(announced[0].data, &evt); err != nil {
		t.Fatal(err)
	}
	if evt.SessionID != record.ID {
		t.Fatalf("announced session = %s, want %s", evt.SessionID, record.ID)
	}
	if evt.Remaining == nil || *evt.Remaining <= 0 || *evt.Remaining > 600 {
		t.Fatalf("announced remaining = %v, want within (0, 600]", evt.Remaining)
	}
}

func TestRestoreTrustsSmallerCheckpoint(t *testing.T) {
	store := newFakeStore()
	pub := &fakePublisher{}
	d := newTestDaemon(t, store, pub)

	// Wall clock says ~20 minutes left, but the checkpoint (which accounts
	// for paused stretches) says 90 seconds.
	record := activeRecord(90)
	record.DurationMinutes = 25
	record.StartedAt = time.Now().UTC().Add(-5 * time.Minute)
	store.add(record)

	if err := d.RestoreAll(context.Background()); err != nil {
		t.Fatal(err)
	}

	r, ok := d.getRunner(record.UserID)
	if !ok {
		t.Fatal("session should have been restored")
	}
	if r.base > 90 {
		t.Fatalf("restored remaining = %d, want at most the checkpointed 90", r.base)
	}
}

func TestRestoreCompletesExpiredSessions(t *testing.T) {
	store := newFakeStore()
	pub := &fakePublisher{}
	d := newTestDaemon(t, store, pub)

	record := activeRecord(600)
	record.DurationMinutes = 25
	record.StartedAt = time.Now().UTC().Add(-30 * time.Minute)
	zero := 0
	record.RemainingSeconds = &zero
	store.add(record)

	if err := d.RestoreAll(context.Background()); err != nil {
		t.Fatal(err)
	}

	if got := d.runnerCount(); got != 0 {
		t.Fatalf("runners = %d, want 0 for an expired session", got)
	}
	if store.status(record.ID) != statusCompleted {
		t.Fatal("expired session should be completed on restore")
	}
	if got := store.completions(record.ID); got != 1 {
		t.Fatalf("completions = %d, want 1", got)
	}
}

func TestRestoreSkipsSessionsAlreadyRunning(t *testing.T) {
	store := newFakeStore()
	pub := &fakePublisher{}
	d := newTestDaemon(t, store, pub)

	record := activeRecord(600)
	store.add(record)

	if err := d.handleSessionStarted(context.Background(), startEvent(record)); err != nil {
		t.Fatal(err)
	}
	r1, _ := d.getRunner(record.UserID)

	if err := d.RestoreAll(context.Background()); err != nil {
		t.Fatal(err)
	}

	r2, _ := d.getRunner(record.UserID)
	if r1 != r2 {
		t.Fatal("restore must not replace a countdown that is already running")
	}
	if got := len(pub.bySubject(sessionStartedSubject)); got != 0 {
		t.Fatalf("announcements = %d, want 0 for an already-running session", got)
	}
}
