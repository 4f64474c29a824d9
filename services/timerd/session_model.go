package timerd

import (
	"time"

	"github.com/google/uuid"
)

// sessionModel is the daemon's view of the sessions table. Only the columns
// the countdown needs are mapped, and column types are left to the goose
// migration so tests can run the model on sqlite.
type sessionModel struct {
	ID               uuid.UUID `gorm:"primaryKey"`
	UserID           uuid.UUID `gorm:"not null;index"`
	Task             string
	Type             string `gorm:"not null"`
	Status           string `gorm:"not null;index"`
	DurationMinutes  int    `gorm:"not null"`
	RemainingSeconds *int
	StartedAt        time.Time `gorm:"not null;index"`
	PausedAt         *time.Time
	CompletedAt      *time.Time
	UpdatedAt        time.Time `gorm:"not null;autoUpdateTime"`
}

func (sessionModel) TableName() string { return "sessions" }
