package timerd

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// ErrNotFound reports that a session row no longer exists or is no longer
// running. The daemon treats it as a signal to drop the countdown.
var ErrNotFound = errors.New("session not found")

// resumableWindow bounds how old a running session may be before startup
// restoration gives up on it; anything older is finished wall-clock anyway.
const resumableWindow = 24 * time.Hour

// SessionRecord is a read model of one session row plus its owner's name.
type SessionRecord struct {
	ID               uuid.UUID
	UserID           uuid.UUID
	Username         string
	Task             string
	Type             string
	Status           string
	DurationMinutes  int
	RemainingSeconds *int
	StartedAt        time.Time
}

// Store is the persistence surface the daemon needs. The gorm implementation
// is used in production; tests substitute fakes.
type Store interface {
	// ListResumable returns ACTIVE sessions started within the resumable
	// window, for startup restoration.
	ListResumable(ctx context.Context) ([]SessionRecord, error)

	// SaveRemaining checkpoints the countdown for a still-running session.
	// Returns ErrNotFound when the row is gone or no longer ACTIVE.
	SaveRemaining(ctx context.Context, sessionID uuid.UUID, remaining int) error

	// Complete marks a session COMPLETED with zero time left. Completing an
	// already-completed session is a no-op returning the stored record.
	Complete(ctx context.Context, sessionID uuid.UUID) (SessionRecord, error)
}

type gormStore struct {
	orm *gorm.DB
	now func() time.Time
}

// NewStore builds the database-backed Store.
func NewStore(orm *gorm.DB) (Store, error) {
	if orm == nil {
		return nil, errors.New("orm is required")
	}
	return &gormStore{orm: orm, now: time.Now}, nil
}

func (s *gormStore) ListResumable(ctx context.Context) ([]SessionRecord, error) {
	cutoff := s.now().UTC().Add(-resumableWindow)

	// Scan cannot populate fields promoted from an unexported embedded
	// struct, so the join lands in SessionRecord directly: its exported
	// fields match the selected columns.
	var records []SessionRecord
	err := s.orm.WithContext(ctx).
		Model(&sessionModel{}).
		Select("sessions.id, sessions.user_id, users.username, sessions.task, sessions.type, sessions.status, sessions.duration_minutes, sessions.remaining_seconds, sessions.started_at").
		Joins("JOIN users ON users.id = sessions.user_id").
		Where("sessions.status = ? AND sessions.started_at > ?", statusActive, cutoff).
		Order("sessions.started_at ASC").
		Scan(&records).Error
	if err != nil {
		return nil, err
	}
	return records, nil
}

func (s *gormStore) SaveRemaining(ctx context.Context, sessionID uuid.UUID, remaining int) error {
	if remaining < 0 {
		remaining = 0
	}

	res := s.orm.WithContext(ctx).
		Model(&sessionModel{}).
		Where("id = ? AND status = ?", sessionID, statusActive).
		Updates(map[string]any{
			"remaining_seconds": remaining,
			"updated_at":        s.now().UTC(),
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *gormStore) Complete(ctx context.Context, sessionID uuid.UUID) (SessionRecord, error) {
	var model sessionModel
	err := s.orm.WithContext(ctx).First(&model, "id = ?", sessionID).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return SessionRecord{}, ErrNotFound
		}
		return SessionRecord{}, err
	}

	if model.Status == statusCompleted || model.Status == statusCancelled {
		return recordFromModel(model, ""), nil
	}

	completedAt := s.now().UTC()
	zero := 0
	updates := map[string]any{
		"status":            statusCompleted,
		"completed_at":      completedAt,
		"remaining_seconds": zero,
		"updated_at":        completedAt,
	}
	if err := s.orm.WithContext(ctx).
		Model(&sessionModel{}).
		Where("id = ?", sessionID).
		Updates(updates).Error; err != nil {
		return SessionRecord{}, err
	}

	model.Status = statusCompleted
	model.CompletedAt = &completedAt
	model.RemainingSeconds = &zero
	return recordFromModel(model, ""), nil
}

func recordFromModel(m sessionModel, username string) SessionRecord {
	return SessionRecord{
		ID:               m.ID,
		UserID:           m.UserID,
		Username:         username,
		Task:             m.Task,
		Type:             m.Type,
		Status:           m.Status,
		DurationMinutes:  m.DurationMinutes,
		RemainingSeconds: m.RemainingSeconds,
		StartedAt:        m.StartedAt,
	}
}
