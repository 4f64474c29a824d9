package timerd

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// Daemon coordinates countdowns in response to session lifecycle events.
// Each user has at most one live runner, matching the one-session-per-user
// rule the API enforces.
type Daemon struct {
	store Store
	pub   Publisher
	log   zerolog.Logger

	interval     time.Duration
	syncEvery    int
	persistEvery int
	now          func() time.Time

	runnersMu sync.Mutex
	runners   map[uuid.UUID]*runner

	subsMu sync.Mutex
	subs   []io.Closer
}

// NewDaemon creates a daemon bound to the provided dependencies.
func NewDaemon(store Store, pub Publisher, log zerolog.Logger) (*Daemon, error) {
	if store == nil {
		return nil, errors.New("store is required")
	}

	return &Daemon{
		store:        store,
		pub:          pub,
		log:          log,
		interval:     time.Second,
		syncEvery:    defaultSyncEvery,
		persistEvery: defaultPersistEvery,
		now:          time.Now,
		runners:      make(map[uuid.UUID]*runner),
	}, nil
}

// Subscriber is the durable side of the event bus. *bus.Bus satisfies it.
type Subscriber interface {
	Subscribe(ctx context.Context, subj, durable string, fn func(ctx context.Context, data []byte) error) (io.Closer, error)
}

// Start restores countdowns for sessions already running, then registers
// NATS subscriptions and begins processing lifecycle events.
func (d *Daemon) Start(ctx context.Context, subscriber Subscriber) error {
	if d == nil {
		return errors.New("nil daemon")
	}
	if ctx == nil {
		return errors.New("context is required")
	}
	if subscriber == nil {
		return errors.New("subscriber is required")
	}

	if err := d.RestoreAll(ctx); err != nil {
		return err
	}

	specs := []struct {
		subject string
		durable string
		handler func(context.Context, []byte) error
	}{
		{sessionStartedSubject, "timerd-started", d.handleSessionStarted},
		{sessionPausedSubject, "timerd-paused", d.handleSessionPaused},
		{sessionResumedSubject, "timerd-resumed", d.handleSessionResumed},
		{sessionEndedSubject, "timerd-ended", d.handleSessionEnded},
	}

	for _, spec := range specs {
		closer, err := subscriber.Subscribe(ctx, spec.subject, spec.durable, spec.handler)
		if err != nil {
			d.Close()
			return err
		}
		d.subsMu.Lock()
		d.subs = append(d.subs, closer)
		d.subsMu.Unlock()
	}

	return nil
}

// Close tears down subscriptions and stops every live countdown. Remaining
// time was last persisted at the most recent checkpoint; restoration picks
// it up from there on the next start.
func (d *Daemon) Close() error {
	if d == nil {
		return nil
	}

	d.subsMu.Lock()
	var firstErr error
	for _, sub := range d.subs {
		if sub == nil {
			continue
		}
		if err := sub.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	d.subs = nil
	d.subsMu.Unlock()

	d.runnersMu.Lock()
	running := make([]*runner, 0, len(d.runners))
	for _, r := range d.runners {
		running = append(running, r)
	}
	d.runners = make(map[uuid.UUID]*runner)
	d.runnersMu.Unlock()

	for _, r := range running {
		r.stop()
	}

	return firstErr
}

func (d *Daemon) handleSessionStarted(_ context.Context, data []byte) error {
	var evt sessionEvent
	if err := json.Unmarshal(data, &evt); err != nil {
		return err
	}
	if evt.SessionID == uuid.Nil || evt.UserID == uuid.Nil {
		return errors.New("session event missing identifiers")
	}

	// Redelivered and self-published start events for a countdown already
	// running are no-ops.
	if r, ok := d.getRunner(evt.UserID); ok && r.session.ID == evt.SessionID {
		return nil
	}

	session := SessionRecord{
		ID:              evt.SessionID,
		UserID:          evt.UserID,
		Username:        evt.Username,
		Task:            evt.Task,
		Type:            evt.Type,
		Status:          statusActive,
		DurationMinutes: evt.Duration,
		StartedAt:       evt.StartedAt,
	}
	d.startCountdown(session, evt.startingRemaining())
	return nil
}

func (d *Daemon) handleSessionPaused(_ context.Context, data []byte) error {
	var evt sessionEvent
	if err := json.Unmarshal(data, &evt); err != nil {
		return err
	}

	if r, ok := d.getRunner(evt.UserID); ok && r.session.ID == evt.SessionID {
		r.pause()
	}
	return nil
}

func (d *Daemon) handleSessionResumed(_ context.Context, data []byte) error {
	var evt sessionEvent
	if err := json.Unmarshal(data, &evt); err != nil {
		return err
	}
	if evt.SessionID == uuid.Nil || evt.UserID == uuid.Nil {
		return errors.New("session event missing identifiers")
	}

	// A paused runner may still be live; resume it in place. Otherwise the
	// pause outlived the daemon and a fresh countdown starts from the
	// frozen snapshot.
	if r, ok := d.getRunner(evt.UserID); ok && r.session.ID == evt.SessionID {
		r.resume()
		return nil
	}

	session := SessionRecord{
		ID:              evt.SessionID,
		UserID:          evt.UserID,
		Username:        evt.Username,
		Task:            evt.Task,
		Type:            evt.Type,
		Status:          statusActive,
		DurationMinutes: evt.Duration,
		StartedAt:       evt.StartedAt,
	}
	d.startCountdown(session, evt.startingRemaining())
	return nil
}

func (d *Daemon) handleSessionEnded(_ context.Context, data []byte) error {
	var evt sessionEvent
	if err := json.Unmarshal(data, &evt); err != nil {
		return err
	}

	// The daemon's own completion publish comes back through here; by then
	// the runner is already gone and this is a no-op.
	d.dropRunner(evt.UserID, evt.SessionID)
	return nil
}

// startCountdown replaces any existing countdown for the user. Handler
// contexts only scope one bus delivery, so runners attach to the background
// context and live until the session finishes or Close.
func (d *Daemon) startCountdown(session SessionRecord, remaining int) {
	if remaining <= 0 {
		return
	}

	r := d.newRunner(session, remaining)

	d.runnersMu.Lock()
	previous := d.runners[session.UserID]
	d.runners[session.UserID] = r
	d.runnersMu.Unlock()

	if previous != nil {
		previous.stop()
	}

	r.start(context.Background())

	go func() {
		<-r.done
		d.dropRunner(session.UserID, session.ID)
	}()

	d.log.Info().
		Stringer("session_id", session.ID).
		Stringer("user_id", session.UserID).
		Int("remaining", remaining).
		Msg("countdown started")
}

func (d *Daemon) getRunner(userID uuid.UUID) (*runner, bool) {
	d.runnersMu.Lock()
	defer d.runnersMu.Unlock()
	r, ok := d.runners[userID]
	return r, ok
}

// dropRunner stops and forgets the user's countdown, but only when it still
// belongs to the given session. Stale events for superseded sessions are
// ignored.
func (d *Daemon) dropRunner(userID, sessionID uuid.UUID) {
	d.runnersMu.Lock()
	r, ok := d.runners[userID]
	if ok && r.session.ID == sessionID {
		delete(d.runners, userID)
	} else {
		r = nil
	}
	d.runnersMu.Unlock()

	if r != nil {
		r.stop()
	}
}

// runnerCount reports live countdowns, for tests and logging.
func (d *Daemon) runnerCount() int {
	d.runnersMu.Lock()
	defer d.runnersMu.Unlock()
	return len(d.runners)
}
