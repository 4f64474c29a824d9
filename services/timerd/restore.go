package timerd

import (
	"context"

	"focusd/pkg/timeutil"
)

// RestoreAll rebuilds countdowns for sessions that were running when the
// daemon last stopped. Sessions whose time ran out while the daemon was down
// are completed immediately; the rest resume from their wall-clock position.
func (d *Daemon) RestoreAll(ctx context.Context) error {
	records, err := d.store.ListResumable(ctx)
	if err != nil {
		return err
	}

	restored, finished := 0, 0
	for _, record := range records {
		if d.restoreOne(ctx, record) {
			restored++
		} else {
			finished++
		}
	}

	if restored > 0 || finished > 0 {
		d.log.Info().
			Int("restored", restored).
			Int("finished", finished).
			Msg("session restoration complete")
	}
	return nil
}

// restoreOne resumes a single session, reporting whether a countdown was
// started. Already-expired sessions go straight to completion.
func (d *Daemon) restoreOne(ctx context.Context, record SessionRecord) bool {
	// Skip sessions this daemon already picked up, e.g. a start event
	// replayed by the durable consumer before restoration ran.
	if r, ok := d.getRunner(record.UserID); ok && r.session.ID == record.ID {
		return true
	}

	remaining := timeutil.Remaining(record.StartedAt, record.DurationMinutes, d.now().UTC())
	if record.RemainingSeconds != nil && *record.RemainingSeconds < remaining {
		// The checkpoint accounts for time spent paused; trust the smaller
		// value so restoration never extends a session.
		remaining = *record.RemainingSeconds
	}

	if remaining <= 0 {
		if _, err := d.store.Complete(ctx, record.ID); err != nil {
			d.log.Warn().Err(err).Stringer("session_id", record.ID).Msg("restore-time completion failed")
		}
		return false
	}

	d.startCountdown(record, remaining)
	d.announceRestored(ctx, record, remaining)
	return true
}

// announceRestored re-broadcasts the session so presence clients that
// reconnected while the daemon was down see it again.
func (d *Daemon) announceRestored(ctx context.Context, record SessionRecord, remaining int) {
	if d.pub == nil {
		return
	}
	evt := sessionEvent{
		SessionID: record.ID,
		UserID:    record.UserID,
		Username:  record.Username,
		Task:      record.Task,
		Type:      record.Type,
		Status:    statusActive,
		Duration:  record.DurationMinutes,
		Remaining: &remaining,
		StartedAt: record.StartedAt,
	}
	if err := d.pub.Publish(ctx, sessionStartedSubject, evt); err != nil {
		d.log.Warn().Err(err).Stringer("session_id", record.ID).Msg("restore announcement failed")
	}
}
