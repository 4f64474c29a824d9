// Package api implements the focusd HTTP service: session lifecycle CRUD,
// identity, the active-session listing, the presence event stream, stats,
// and history export.
package api

import (
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"gorm.io/gorm"

	"focusd/pkg/bus"
	gos3 "focusd/pkg/s3"
)

// Session type values.
const (
	TypeWork         = "WORK"
	TypeShortBreak   = "SHORT_BREAK"
	TypeLongBreak    = "LONG_BREAK"
	TypeTimeTracking = "TIME_TRACKING"
)

// Session status values. A session moves ACTIVE -> PAUSED -> ACTIVE freely;
// COMPLETED and CANCELLED are terminal.
const (
	StatusActive    = "ACTIVE"
	StatusPaused    = "PAUSED"
	StatusCompleted = "COMPLETED"
	StatusCancelled = "CANCELLED"
)

// Session is one timer interval owned by a user.
type Session struct {
	ID          uuid.UUID      `json:"id"`
	UserID      uuid.UUID      `json:"userId"`
	RoomID      uuid.UUID      `json:"roomId,omitempty"`
	Task        string         `json:"task"`
	Type        string         `json:"type"`
	Status      string         `json:"status"`
	Duration    int            `json:"duration"`
	Remaining   *int           `json:"timeRemaining,omitempty"`
	StartedAt   time.Time      `json:"startedAt"`
	PausedAt    *time.Time     `json:"pausedAt,omitempty"`
	EndedAt     *time.Time     `json:"endedAt,omitempty"`
	CompletedAt *time.Time     `json:"completedAt,omitempty"`
	Client      map[string]any `json:"client,omitempty"`
}

// ActiveSession is the shape served to newly connecting presence clients.
type ActiveSession struct {
	ID        uuid.UUID `json:"id"`
	UserID    uuid.UUID `json:"userId"`
	Username  string    `json:"username"`
	Task      string    `json:"task"`
	Type      string    `json:"type"`
	Duration  int       `json:"duration"`
	Remaining int       `json:"timeRemaining"`
	StartedAt time.Time `json:"startedAt"`
	Status    string    `json:"status"`
}

// User is the owning identity of a session. Anonymous users are synthetic
// accounts keyed by a client-generated device id.
type User struct {
	ID        uuid.UUID `json:"id"`
	Username  string    `json:"username"`
	Anonymous bool      `json:"anonymous"`
	CreatedAt time.Time `json:"createdAt"`
}

// Store holds external dependencies required by the API layer.
type Store struct {
	DB  *pgxpool.Pool
	ORM *gorm.DB
	Bus *bus.Bus
	S3  *gos3.Client
}
