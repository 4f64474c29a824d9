package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"gorm.io/gorm"

	"focusd/pkg/timeutil"
)

const (
	activeWindow    = 24 * time.Hour
	pausedStaleness = 30 * time.Minute
)

func validSessionType(t string) bool {
	switch t {
	case TypeWork, TypeShortBreak, TypeLongBreak, TypeTimeTracking:
		return true
	}
	return false
}

func (a *API) handleStartSession(w http.ResponseWriter, r *http.Request) {
	user, ok := identityFromContext(r.Context())
	if !ok {
		respondError(w, http.StatusUnauthorized, errNoIdentity)
		return
	}

	var req struct {
		Task      string         `json:"task"`
		Duration  int            `json:"duration"`
		Type      string         `json:"type"`
		StartedAt *time.Time     `json:"startedAt"`
		RoomID    *uuid.UUID     `json:"roomId"`
		Client    map[string]any `json:"client"`
	}
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, err)
		return
	}

	req.Type = strings.TrimSpace(req.Type)
	if req.Type == "" {
		req.Type = TypeWork
	}
	if !validSessionType(req.Type) {
		respondError(w, http.StatusBadRequest, fmt.Errorf("unknown session type %q", req.Type))
		return
	}
	if req.Duration < 0 {
		respondError(w, http.StatusBadRequest, errors.New("duration must not be negative"))
		return
	}
	if req.Duration == 0 {
		req.Duration = a.presets.DurationFor(req.Type)
	}

	now := time.Now().UTC()
	startedAt := now
	if req.StartedAt != nil {
		startedAt = req.StartedAt.UTC()
	}

	// A backdated start has already consumed part of its window; seed the
	// countdown from the wall clock so the daemon and the active listing
	// agree on remaining time.
	remaining := timeutil.Remaining(startedAt, req.Duration, now)
	if remaining == 0 {
		respondError(w, http.StatusBadRequest, errors.New("startedAt leaves no time remaining"))
		return
	}
	model := sessionModel{
		ID:               uuid.New(),
		UserID:           user.ID,
		RoomID:           req.RoomID,
		Task:             strings.TrimSpace(req.Task),
		Type:             req.Type,
		Status:           StatusActive,
		DurationMinutes:  req.Duration,
		RemainingSeconds: &remaining,
		StartedAt:        startedAt,
		Client:           toJSONMap(req.Client),
		CreatedAt:        now,
		UpdatedAt:        now,
	}

	ctx, cancel := withTimeout(r.Context())
	defer cancel()

	// Cancelling prior sessions and inserting the new one happen in one
	// transaction so two racing starts cannot leave two ACTIVE rows.
	var cancelled int64
	err := a.store.ORM.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&sessionModel{}).
			Where("user_id = ? AND status IN ?", user.ID, []string{StatusActive, StatusPaused}).
			Updates(map[string]any{
				"status":     StatusCancelled,
				"ended_at":   now,
				"updated_at": now,
			})
		if res.Error != nil {
			return res.Error
		}
		cancelled = res.RowsAffected

		return tx.Create(&model).Error
	})
	if err != nil {
		respondError(w, http.StatusInternalServerError, err)
		return
	}

	a.metrics.recordStart(req.Type)
	a.metrics.recordCancelled(cancelled)

	session := model.toAPI()
	a.publishJSON(r.Context(), sessionStartedSubject, sessionEventPayload(session, user.Username))

	respondJSON(w, http.StatusCreated, map[string]any{"session": session})
}

func (a *API) handleUpdateSession(w http.ResponseWriter, r *http.Request) {
	user, ok := identityFromContext(r.Context())
	if !ok {
		respondError(w, http.StatusUnauthorized, errNoIdentity)
		return
	}

	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		respondError(w, http.StatusBadRequest, errors.New("valid session id is required"))
		return
	}

	var patch sessionPatch
	if err := decodeJSON(r, &patch); err != nil {
		respondError(w, http.StatusBadRequest, err)
		return
	}
	if patch.Status.Set && !patch.Status.Null && !validSessionStatus(patch.Status.Value) {
		respondError(w, http.StatusBadRequest, fmt.Errorf("unknown status %q", patch.Status.Value))
		return
	}
	if patch.Type.Set && !patch.Type.Null && !validSessionType(patch.Type.Value) {
		respondError(w, http.StatusBadRequest, fmt.Errorf("unknown session type %q", patch.Type.Value))
		return
	}

	ctx, cancel := withTimeout(r.Context())
	defer cancel()

	orm := a.store.ORM.WithContext(ctx)

	// Ownership mismatch responds identically to not-found.
	var model sessionModel
	if err := orm.Where("id = ? AND user_id = ?", id, user.ID).First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			respondError(w, http.StatusNotFound, fmt.Errorf("session %s not found", id))
			return
		}
		respondError(w, http.StatusInternalServerError, err)
		return
	}

	if model.terminal() {
		respondError(w, http.StatusConflict, errors.New("session is already finished"))
		return
	}

	updates := patch.updates()
	if len(updates) == 0 {
		respondJSON(w, http.StatusOK, map[string]any{"session": model.toAPI()})
		return
	}
	updates["updated_at"] = time.Now().UTC()

	if err := orm.Model(&model).Updates(updates).Error; err != nil {
		respondError(w, http.StatusInternalServerError, err)
		return
	}
	if err := orm.First(&model, "id = ?", model.ID).Error; err != nil {
		respondError(w, http.StatusInternalServerError, err)
		return
	}

	session := model.toAPI()

	if patch.Status.Set && !patch.Status.Null {
		switch patch.Status.Value {
		case StatusPaused:
			a.publishJSON(r.Context(), sessionPausedSubject, sessionEventPayload(session, user.Username))
		case StatusActive:
			a.publishJSON(r.Context(), sessionResumedSubject, sessionEventPayload(session, user.Username))
		case StatusCompleted, StatusCancelled:
			if patch.Status.Value == StatusCompleted {
				a.metrics.recordCompleted()
			}
			a.publishJSON(r.Context(), sessionEndedSubject, sessionEventPayload(session, user.Username))
		}
	}

	respondJSON(w, http.StatusOK, map[string]any{"session": session})
}

func (a *API) handleDeleteSession(w http.ResponseWriter, r *http.Request) {
	user, ok := identityFromContext(r.Context())
	if !ok {
		respondError(w, http.StatusUnauthorized, errNoIdentity)
		return
	}

	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		respondError(w, http.StatusBadRequest, errors.New("valid session id is required"))
		return
	}

	ctx, cancel := withTimeout(r.Context())
	defer cancel()

	orm := a.store.ORM.WithContext(ctx)

	var model sessionModel
	if err := orm.Where("id = ? AND user_id = ?", id, user.ID).First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			respondError(w, http.StatusNotFound, fmt.Errorf("session %s not found", id))
			return
		}
		respondError(w, http.StatusInternalServerError, err)
		return
	}

	removedChats, err := a.purgeChatLogs(ctx, model)
	if err != nil {
		respondError(w, http.StatusInternalServerError, err)
		return
	}

	if err := orm.Delete(&sessionModel{}, "id = ?", model.ID).Error; err != nil {
		respondError(w, http.StatusInternalServerError, err)
		return
	}

	a.notifyChatRemoval(r.Context(), removedChats)
	a.publishJSON(r.Context(), sessionEndedSubject, sessionEventPayload(model.toAPI(), user.Username))

	respondJSON(w, http.StatusNoContent, nil)
}

func (a *API) handleListActiveSessions(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := withTimeout(r.Context())
	defer cancel()

	if err := a.sweepStalePaused(ctx); err != nil {
		// Sweep failure degrades the listing, it does not break it.
		a.log.Warn().Err(err).Msg("stale session sweep failed")
	}

	sessions, err := a.activeSessions(ctx)
	if err != nil {
		respondError(w, http.StatusInternalServerError, err)
		return
	}

	respondJSON(w, http.StatusOK, map[string]any{"sessions": sessions})
}

// activeSessionRow is the flat join shape for the active listing. Scan
// cannot populate fields promoted from an unexported embedded struct, so
// every column maps to an exported field here.
type activeSessionRow struct {
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

// activeSessions returns ACTIVE and PAUSED sessions started within the
// last 24 hours, annotated with a live-computed remaining time and filtered
// to those still having time left.
func (a *API) activeSessions(ctx context.Context) ([]ActiveSession, error) {
	now := time.Now().UTC()

	var rows []activeSessionRow
	err := a.store.ORM.WithContext(ctx).
		Model(&sessionModel{}).
		Select("sessions.id, sessions.user_id, users.username, sessions.task, sessions.type, sessions.status, sessions.duration_minutes, sessions.remaining_seconds, sessions.started_at").
		Joins("JOIN users ON users.id = sessions.user_id").
		Where("sessions.status IN ?", []string{StatusActive, StatusPaused}).
		Where("sessions.started_at > ?", now.Add(-activeWindow)).
		Order("sessions.started_at DESC").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}

	sessions := make([]ActiveSession, 0, len(rows))
	for _, row := range rows {
		remaining := row.liveRemaining(now)
		if remaining <= 0 {
			continue
		}
		sessions = append(sessions, ActiveSession{
			ID:        row.ID,
			UserID:    row.UserID,
			Username:  row.Username,
			Task:      row.Task,
			Type:      row.Type,
			Duration:  row.DurationMinutes,
			Remaining: remaining,
			StartedAt: row.StartedAt,
			Status:    row.Status,
		})
	}

	return sessions, nil
}

// liveRemaining recomputes remaining seconds for a running session from its
// wall-clock anchor; a paused session keeps its frozen snapshot.
func (row activeSessionRow) liveRemaining(now time.Time) int {
	if row.Status == StatusPaused {
		if row.RemainingSeconds == nil {
			return 0
		}
		return *row.RemainingSeconds
	}
	return timeutil.Remaining(row.StartedAt, row.DurationMinutes, now)
}

// sweepStalePaused garbage-collects paused sessions nobody came back for.
func (a *API) sweepStalePaused(ctx context.Context) error {
	cutoff := time.Now().UTC().Add(-pausedStaleness)
	res := a.store.ORM.WithContext(ctx).
		Where("status = ? AND paused_at IS NOT NULL AND paused_at < ?", StatusPaused, cutoff).
		Delete(&sessionModel{})
	if res.Error != nil {
		return res.Error
	}
	a.metrics.recordSwept(res.RowsAffected)
	return nil
}

func validSessionStatus(s string) bool {
	switch s {
	case StatusActive, StatusPaused, StatusCompleted, StatusCancelled:
		return true
	}
	return false
}
