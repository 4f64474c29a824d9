package admin

import (
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
)

func TestRenderActive(t *testing.T) {
	if got := RenderActive(nil); got != "no active sessions\n" {
		t.Fatalf("empty render = %q", got)
	}

	remaining := 605
	rows := []ActiveRow{{
		ID:               uuid.New(),
		Username:         "a-very-long-username-indeed",
		Task:             "refactor billing",
		Type:             "WORK",
		Status:           "ACTIVE",
		DurationMinutes:  25,
		RemainingSeconds: &remaining,
		StartedAt:        time.Now(),
	}}

	out := RenderActive(rows)
	if !strings.Contains(out, "10:05") {
		t.Fatalf("output missing formatted remaining time: %q", out)
	}
	if !strings.Contains(out, "refactor billing") {
		t.Fatalf("output missing task: %q", out)
	}
	if strings.Contains(out, "a-very-long-username-indeed") {
		t.Fatalf("username should be truncated: %q", out)
	}
}

func TestFormatSeconds(t *testing.T) {
	cases := map[int]string{
		0:    "0:00",
		59:   "0:59",
		60:   "1:00",
		605:  "10:05",
		1500: "25:00",
		-5:   "0:00",
	}
	for in, want := range cases {
		if got := formatSeconds(in); got != want {
			t.Errorf("formatSeconds(%d) = %q, want %q", in, got, want)
		}
	}
}
