package api

import (
	"bytes"
	"encoding/json"
	"time"
)

// Field carries one patchable value with tri-state semantics: absent from
// the payload (Set false, leave the column alone), explicitly null (Null
// true, clear the column), or a concrete value.
type Field[T any] struct {
	Set   bool
	Null  bool
	Value T
}

var nullLiteral = []byte("null")

func (f *Field[T]) UnmarshalJSON(data []byte) error {
	f.Set = true
	if bytes.Equal(bytes.TrimSpace(data), nullLiteral) {
		f.Null = true
		return nil
	}
	return json.Unmarshal(data, &f.Value)
}

// sessionPatch is the accepted field set for a partial session update.
// RemainingSeconds is called timeRemaining on the wire.
type sessionPatch struct {
	Status           Field[string]    `json:"status"`
	EndedAt          Field[time.Time] `json:"endedAt"`
	CompletedAt      Field[time.Time] `json:"completedAt"`
	PausedAt         Field[time.Time] `json:"pausedAt"`
	RemainingSeconds Field[int]       `json:"timeRemaining"`
	StartedAt        Field[time.Time] `json:"startedAt"`
	Task             Field[string]    `json:"task"`
	Duration         Field[int]       `json:"duration"`
	Type             Field[string]    `json:"type"`
}

// updates converts the patch into a gorm updates map. Only supplied fields
// appear; nulled fields map to nil.
func (p sessionPatch) updates() map[string]any {
	out := map[string]any{}
	apply(out, "status", p.Status)
	apply(out, "ended_at", p.EndedAt)
	apply(out, "completed_at", p.CompletedAt)
	apply(out, "paused_at", p.PausedAt)
	apply(out, "remaining_seconds", p.RemainingSeconds)
	apply(out, "started_at", p.StartedAt)
	apply(out, "task", p.Task)
	apply(out, "duration_minutes", p.Duration)
	apply(out, "type", p.Type)
	return out
}

func apply[T any](dest map[string]any, column string, f Field[T]) {
	if !f.Set {
		return
	}
	if f.Null {
		dest[column] = nil
		return
	}
	dest[column] = f.Value
}
