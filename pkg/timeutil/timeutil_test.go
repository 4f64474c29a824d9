package timeutil

import (
	"testing"
	"time"
)

func intPtr(v int) *int { return &v }

func timePtr(t time.Time) *time.Time { return &t }

func TestElapsedSeconds(t *testing.T) {
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		name      string
		startedAt time.Time
		now       time.Time
		want      int
	}{
		{
			name:      "ten minutes",
			startedAt: base,
			now:       base.Add(10 * time.Minute),
			want:      600,
		},
		{
			name:      "sub-second floors to zero",
			startedAt: base,
			now:       base.Add(900 * time.Millisecond),
			want:      0,
		},
		{
			name:      "clock skew clamps to zero",
			startedAt: base,
			now:       base.Add(-30 * time.Second),
			want:      0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ElapsedSeconds(tt.startedAt, tt.now); got != tt.want {
				t.Fatalf("ElapsedSeconds() = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestRemaining(t *testing.T) {
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		name     string
		duration int
		now      time.Time
		want     int
	}{
		{name: "fresh start", duration: 25, now: base, want: 1500},
		{name: "ten minutes in", duration: 25, now: base.Add(10 * time.Minute), want: 900},
		{name: "past the end", duration: 25, now: base.Add(26 * time.Minute), want: 0},
		{name: "skewed clock caps at total", duration: 25, now: base.Add(-5 * time.Minute), want: 1500},
		{name: "zero duration", duration: 0, now: base, want: 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Remaining(base, tt.duration, tt.now); got != tt.want {
				t.Fatalf("Remaining() = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestRemainingNonIncreasing(t *testing.T) {
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	prev := Remaining(base, 25, base)
	for i := 1; i <= 1600; i += 7 {
		now := base.Add(time.Duration(i) * time.Second)
		got := Remaining(base, 25, now)
		if got > prev {
			t.Fatalf("remaining increased from %d to %d at +%ds", prev, got, i)
		}
		if got < 0 || got > 1500 {
			t.Fatalf("remaining %d out of bounds at +%ds", got, i)
		}
		prev = got
	}
}

func TestEffectiveMinutes(t *testing.T) {
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		name string
		snap Snapshot
		want int
	}{
		{
			name: "snapshot preferred",
			snap: Snapshot{StartedAt: base, DurationMinutes: 25, RemainingSeconds: intPtr(600)},
			want: 15,
		},
		{
			name: "one second of work floors to one minute",
			snap: Snapshot{StartedAt: base, DurationMinutes: 25, RemainingSeconds: intPtr(1499)},
			want: 1,
		},
		{
			name: "untouched snapshot counts as zero",
			snap: Snapshot{StartedAt: base, DurationMinutes: 25, RemainingSeconds: intPtr(1500)},
			want: 0,
		},
		{
			name: "implausible snapshot falls back to timestamps",
			snap: Snapshot{
				StartedAt:        base,
				DurationMinutes:  25,
				RemainingSeconds: intPtr(4000),
				CompletedAt:      timePtr(base.Add(12 * time.Minute)),
			},
			want: 12,
		},
		{
			name: "completion timestamp fallback capped at duration",
			snap: Snapshot{
				StartedAt:       base,
				DurationMinutes: 25,
				CompletedAt:     timePtr(base.Add(90 * time.Minute)),
			},
			want: 25,
		},
		{
			name: "pause before completion wins",
			snap: Snapshot{
				StartedAt:       base,
				DurationMinutes: 25,
				PausedAt:        timePtr(base.Add(8 * time.Minute)),
				CompletedAt:     timePtr(base.Add(20 * time.Minute)),
			},
			want: 8,
		},
		{
			name: "pause after completion is ignored",
			snap: Snapshot{
				StartedAt:       base,
				DurationMinutes: 25,
				PausedAt:        timePtr(base.Add(20 * time.Minute)),
				CompletedAt:     timePtr(base.Add(10 * time.Minute)),
			},
			want: 10,
		},
		{
			name: "no snapshot or timestamps uses planned duration",
			snap: Snapshot{StartedAt: base, DurationMinutes: 25},
			want: 25,
		},
		{
			name: "zero duration yields zero",
			snap: Snapshot{StartedAt: base, DurationMinutes: 0, RemainingSeconds: intPtr(0)},
			want: 0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := EffectiveMinutes(tt.snap); got != tt.want {
				t.Fatalf("EffectiveMinutes() = %d, want %d", got, tt.want)
			}
		})
	}
}
