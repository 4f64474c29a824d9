// Package admin holds the maintenance operations behind focusctl: database
// migration, stale-session sweeping, and active-session inspection.
package admin

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"focusd/pkg/db"
)

// DefaultStaleness matches the API's paused-session garbage collection
// threshold.
const DefaultStaleness = 30 * time.Minute

// SweepStalePaused deletes paused sessions whose pause is older than the
// given threshold and returns how many rows went away.
func SweepStalePaused(ctx context.Context, pool *pgxpool.Pool, olderThan time.Duration) (int64, error) {
	if olderThan <= 0 {
		olderThan = DefaultStaleness
	}
	cutoff := time.Now().UTC().Add(-olderThan)

	tag, err := db.Exec(ctx, pool,
		`DELETE FROM sessions WHERE status = $1 AND paused_at IS NOT NULL AND paused_at < $2`,
		"PAUSED", cutoff)
	if err != nil {
		return 0, fmt.Errorf("sweep paused sessions: %w", err)
	}
	return tag.RowsAffected(), nil
}

// ActiveRow is one running or paused session as reported by focusctl.
type ActiveRow struct {
	ID               uuid.UUID  `db:"id"`
	Username         string     `db:"username"`
	Task             string     `db:"task"`
	Type             string     `db:"type"`
	Status           string     `db:"status"`
	DurationMinutes  int        `db:"duration_minutes"`
	RemainingSeconds *int       `db:"remaining_seconds"`
	StartedAt        time.Time  `db:"started_at"`
	PausedAt         *time.Time `db:"paused_at"`
}

// ListActive returns ACTIVE and PAUSED sessions, newest first.
func ListActive(ctx context.Context, pool *pgxpool.Pool) ([]ActiveRow, error) {
	var rows []ActiveRow
	err := db.Select(ctx, pool, &rows, `
		SELECT s.id, u.username, s.task, s.type, s.status,
		       s.duration_minutes, s.remaining_seconds, s.started_at, s.paused_at
		FROM sessions s
		JOIN users u ON u.id = s.user_id
		WHERE s.status IN ('ACTIVE', 'PAUSED')
		ORDER BY s.started_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("list active sessions: %w", err)
	}
	return rows, nil
}

// RenderActive formats rows as an aligned text table for terminal output.
func RenderActive(rows []ActiveRow) string {
	if len(rows) == 0 {
		return "no active sessions\n"
	}

	var b strings.Builder
	fmt.Fprintf(&b, "%-36s  %-16s  %-12s  %-9s  %-8s  %s\n",
		"ID", "USER", "TYPE", "STATUS", "LEFT", "TASK")
	for _, row := range rows {
		left := "-"
		if row.RemainingSeconds != nil {
			left = formatSeconds(*row.RemainingSeconds)
		}
		fmt.Fprintf(&b, "%-36s  %-16s  %-12s  %-9s  %-8s  %s\n",
			row.ID, truncate(row.Username, 16), row.Type, row.Status, left, row.Task)
	}
	return b.String()
}

func formatSeconds(s int) string {
	if s < 0 {
		s = 0
	}
	return fmt.Sprintf("%d:%02d", s/60, s%60)
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max-1] + "…"
}
