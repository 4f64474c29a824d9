// Package timerd runs the authoritative countdown for every active session.
// It consumes session lifecycle events from NATS, keeps one countdown engine
// per user, broadcasts per-second ticks, periodically checkpoints remaining
// time to the database, and completes sessions whose timers reach zero.
package timerd

import (
	"context"
	"time"

	"github.com/google/uuid"
)

const (
	sessionStartedSubject = "focus.sessions.started"
	sessionPausedSubject  = "focus.sessions.paused"
	sessionResumedSubject = "focus.sessions.resumed"
	sessionEndedSubject   = "focus.sessions.ended"
	timerTickSubject      = "focus.timer.tick"
)

// Session status values, mirrored from the API service.
const (
	statusActive    = "ACTIVE"
	statusPaused    = "PAUSED"
	statusCompleted = "COMPLETED"
	statusCancelled = "CANCELLED"
)

// sessionEvent is the payload the API publishes on session lifecycle
// subjects.
type sessionEvent struct {
	SessionID uuid.UUID `json:"session_id"`
	UserID    uuid.UUID `json:"user_id"`
	Username  string    `json:"username"`
	Task      string    `json:"task"`
	Type      string    `json:"type"`
	Status    string    `json:"status"`
	Duration  int       `json:"duration"`
	Remaining *int      `json:"remaining_seconds"`
	StartedAt time.Time `json:"started_at"`
}

// startingRemaining picks the countdown seed for a start or resume event: a
// persisted snapshot when present, the full duration otherwise.
func (e sessionEvent) startingRemaining() int {
	if e.Remaining != nil && *e.Remaining > 0 && *e.Remaining <= e.Duration*60 {
		return *e.Remaining
	}
	return e.Duration * 60
}

// tickEvent is the transient payload broadcast once per second for each
// running session.
type tickEvent struct {
	SessionID uuid.UUID `json:"session_id"`
	UserID    uuid.UUID `json:"user_id"`
	Remaining int       `json:"remaining_seconds"`
	Status    string    `json:"status"`
}

// Publisher is the slice of the event bus the daemon needs. *bus.Bus
// satisfies it.
type Publisher interface {
	Publish(ctx context.Context, subj string, v any) error
	PublishTransient(subj string, v any) error
}
