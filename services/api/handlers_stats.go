package api

import (
	"errors"
	"net/http"
	"time"

	"focusd/pkg/db"
	"focusd/pkg/timeutil"
)

type statsRow struct {
	Day              time.Time  `db:"day"`
	StartedAt        time.Time  `db:"started_at"`
	DurationMinutes  int        `db:"duration_minutes"`
	RemainingSeconds *int       `db:"remaining_seconds"`
	PausedAt         *time.Time `db:"paused_at"`
	EndedAt          *time.Time `db:"ended_at"`
	CompletedAt      *time.Time `db:"completed_at"`
}

// DailySummary aggregates effective worked minutes for one calendar day.
type DailySummary struct {
	Day      string `json:"day"`
	Sessions int    `json:"sessions"`
	Minutes  int    `json:"minutes"`
}

const statsQuery = `
SELECT date_trunc('day', started_at) AS day,
       started_at, duration_minutes, remaining_seconds,
       paused_at, ended_at, completed_at
FROM sessions
WHERE user_id = $1 AND status = $2 AND started_at >= $3
ORDER BY started_at`

// handleStatsSummary reports per-day effective minutes over the caller's
// completed sessions in the last 30 days. Effective minutes come from the
// stored remaining snapshot, not raw wall-clock, so abandoned timers do not
// inflate the totals.
func (a *API) handleStatsSummary(w http.ResponseWriter, r *http.Request) {
	user, ok := identityFromContext(r.Context())
	if !ok {
		respondError(w, http.StatusUnauthorized, errNoIdentity)
		return
	}
	if a.store.DB == nil {
		respondError(w, http.StatusServiceUnavailable, errors.New("stats unavailable"))
		return
	}

	since := time.Now().UTC().AddDate(0, 0, -30)

	var rows []statsRow
	if err := db.Select(r.Context(), a.store.DB, &rows, statsQuery, user.ID, StatusCompleted, since); err != nil {
		respondError(w, http.StatusInternalServerError, err)
		return
	}

	summaries := summarize(rows)
	respondJSON(w, http.StatusOK, map[string]any{"days": summaries})
}

func summarize(rows []statsRow) []DailySummary {
	var out []DailySummary
	index := map[string]int{}

	for _, row := range rows {
		minutes := timeutil.EffectiveMinutes(timeutil.Snapshot{
			StartedAt:        row.StartedAt,
			DurationMinutes:  row.DurationMinutes,
			RemainingSeconds: row.RemainingSeconds,
			PausedAt:         row.PausedAt,
			CompletedAt:      row.CompletedAt,
			EndedAt:          row.EndedAt,
		})

		day := row.Day.UTC().Format("2006-01-02")
		i, ok := index[day]
		if !ok {
			out = append(out, DailySummary{Day: day})
			i = len(out) - 1
			index[day] = i
		}
		out[i].Sessions++
		out[i].Minutes += minutes
	}

	return out
}
