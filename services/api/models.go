package api

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

// Column types live in the goose migration; the models here stay free of
// dialect-specific tags so tests can run them on sqlite.
type userModel struct {
	ID        uuid.UUID `gorm:"primaryKey"`
	Username  string    `gorm:"uniqueIndex;not null"`
	DeviceID  *string   `gorm:"uniqueIndex"`
	APIToken  *string   `gorm:"uniqueIndex"`
	Anonymous bool      `gorm:"not null"`
	CreatedAt time.Time `gorm:"not null;autoCreateTime"`
	UpdatedAt time.Time `gorm:"not null;autoUpdateTime"`
}

func (userModel) TableName() string { return "users" }

func (u userModel) toAPI() User {
	return User{
		ID:        u.ID,
		Username:  u.Username,
		Anonymous: u.Anonymous,
		CreatedAt: u.CreatedAt,
	}
}

type sessionModel struct {
	ID               uuid.UUID  `gorm:"primaryKey"`
	UserID           uuid.UUID  `gorm:"not null;index"`
	RoomID           *uuid.UUID `gorm:"index"`
	Task             string
	Type             string `gorm:"not null"`
	Status           string `gorm:"not null;index"`
	DurationMinutes  int    `gorm:"not null"`
	RemainingSeconds *int
	StartedAt        time.Time `gorm:"not null;index"`
	PausedAt         *time.Time
	EndedAt          *time.Time
	CompletedAt      *time.Time
	Client           datatypes.JSONMap
	CreatedAt        time.Time `gorm:"not null;autoCreateTime"`
	UpdatedAt        time.Time `gorm:"not null;autoUpdateTime"`
}

func (sessionModel) TableName() string { return "sessions" }

func (s sessionModel) toAPI() Session {
	return Session{
		ID:          s.ID,
		UserID:      s.UserID,
		RoomID:      valueOrZero(s.RoomID),
		Task:        s.Task,
		Type:        s.Type,
		Status:      s.Status,
		Duration:    s.DurationMinutes,
		Remaining:   s.RemainingSeconds,
		StartedAt:   s.StartedAt,
		PausedAt:    s.PausedAt,
		EndedAt:     s.EndedAt,
		CompletedAt: s.CompletedAt,
		Client:      mapFromJSONMap(s.Client),
	}
}

func (s sessionModel) terminal() bool {
	return s.Status == StatusCompleted || s.Status == StatusCancelled
}

type chatLogModel struct {
	ID        uuid.UUID `gorm:"primaryKey"`
	UserID    uuid.UUID `gorm:"not null;index"`
	RemoteID  string
	Message   string    `gorm:"not null"`
	CreatedAt time.Time `gorm:"not null;autoCreateTime;index"`
}

func (chatLogModel) TableName() string { return "chat_logs" }

func mapFromJSONMap(src datatypes.JSONMap) map[string]any {
	if src == nil {
		return nil
	}
	out := make(map[string]any, len(src))
	for k, v := range src {
		out[k] = v
	}
	return out
}

func toJSONMap(src map[string]any) datatypes.JSONMap {
	out := datatypes.JSONMap{}
	if src == nil {
		return out
	}
	for k, v := range src {
		out[k] = v
	}
	return out
}

func valueOrZero(id *uuid.UUID) uuid.UUID {
	if id == nil {
		return uuid.Nil
	}
	return *id
}
