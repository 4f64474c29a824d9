package api

import "context"

// Presence publishes are fire-and-forget: a broadcast failure must never
// fail the session transition that triggered it.
func (a *API) publishJSON(ctx context.Context, subject string, payload map[string]any) {
	if a.store.Bus == nil || subject == "" {
		return
	}
	if err := a.store.Bus.Publish(ctx, subject, payload); err != nil {
		a.log.Warn().Err(err).Str("subject", subject).Msg("publish failed")
	}
}

func sessionEventPayload(s Session, username string) map[string]any {
	return map[string]any{
		"session_id":        s.ID,
		"user_id":           s.UserID,
		"username":          username,
		"task":              s.Task,
		"type":              s.Type,
		"status":            s.Status,
		"duration":          s.Duration,
		"remaining_seconds": s.Remaining,
		"started_at":        s.StartedAt,
	}
}
