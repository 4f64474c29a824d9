package timerd

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"focusd/pkg/timeutil"
)

const (
	// defaultSyncEvery is how many ticks pass between wall-clock
	// recalibrations of the local counter.
	defaultSyncEvery = 5
	// defaultPersistEvery is how many ticks pass between database
	// checkpoints of the remaining time.
	defaultPersistEvery = 30
)

// runner owns one engine: it broadcasts its ticks, recalibrates it from the
// wall clock, checkpoints its progress, and completes the session when the
// countdown reaches zero.
type runner struct {
	engine  *Engine
	session SessionRecord
	store   Store
	pub     Publisher
	log     zerolog.Logger

	syncEvery    int
	persistEvery int

	// base and anchor record the remaining value at the last anchoring
	// point: engine start or the most recent resume. Paused wall time must
	// never count against the countdown, so resume re-anchors both.
	mu     sync.Mutex
	base   int
	anchor time.Time
	last   int
	now    func() time.Time

	cancel context.CancelFunc
	done   chan struct{}
}

func (d *Daemon) newRunner(session SessionRecord, remaining int) *runner {
	return &runner{
		engine: NewEngine(EngineConfig{
			SessionID: session.ID,
			UserID:    session.UserID,
			Remaining: remaining,
			Interval:  d.interval,
		}),
		session:      session,
		store:        d.store,
		pub:          d.pub,
		log:          d.log.With().Stringer("session_id", session.ID).Logger(),
		syncEvery:    d.syncEvery,
		persistEvery: d.persistEvery,
		base:         remaining,
		anchor:       d.now().UTC(),
		last:         remaining,
		now:          d.now,
	}
}

// start launches the engine and its supervision loop.
func (r *runner) start(parent context.Context) {
	ctx, cancel := context.WithCancel(parent)
	r.cancel = cancel
	r.done = make(chan struct{})

	go r.engine.Run(ctx)
	go r.loop(ctx)
}

// stop tears the countdown down without completing the session and waits
// for the loop to exit.
func (r *runner) stop() {
	if r.cancel != nil {
		r.cancel()
	}
	if r.done != nil {
		<-r.done
	}
}

// pause forwards to the engine; the supervision loop keeps running so a
// resumed countdown picks up where it froze.
func (r *runner) pause() { r.engine.Pause() }

// resume re-anchors the wall-clock baseline at the frozen counter before
// the engine continues, so time spent paused is not deducted by the next
// sync correction.
func (r *runner) resume() {
	r.mu.Lock()
	r.base = r.last
	r.anchor = r.now().UTC()
	r.mu.Unlock()

	r.engine.Resume()
}

func (r *runner) loop(ctx context.Context) {
	defer close(r.done)
	defer func() {
		if r.cancel != nil {
			r.cancel()
		}
	}()

	count := 0
	for tick := range r.engine.Ticks() {
		count++

		r.mu.Lock()
		r.last = tick.Remaining
		r.mu.Unlock()

		r.broadcast(tick)

		if tick.Done {
			r.complete(ctx)
			return
		}

		if r.syncEvery > 0 && count%r.syncEvery == 0 {
			r.engine.Sync(r.wallRemaining())
		}

		if r.persistEvery > 0 && count%r.persistEvery == 0 {
			if err := r.store.SaveRemaining(ctx, r.session.ID, tick.Remaining); err != nil {
				if errors.Is(err, ErrNotFound) {
					// Session was deleted or finished elsewhere; drop the
					// countdown quietly.
					return
				}
				r.log.Warn().Err(err).Msg("checkpoint failed")
			}
		}
	}
}

// wallRemaining recomputes remaining seconds from the current anchor,
// immune to tick loss or scheduler drift.
func (r *runner) wallRemaining() int {
	r.mu.Lock()
	base, anchor := r.base, r.anchor
	r.mu.Unlock()

	elapsed := timeutil.ElapsedSeconds(anchor, r.now().UTC())
	remaining := base - elapsed
	if remaining < 0 {
		return 0
	}
	return remaining
}

func (r *runner) broadcast(tick Tick) {
	if r.pub == nil {
		return
	}
	evt := tickEvent{
		SessionID: tick.SessionID,
		UserID:    tick.UserID,
		Remaining: tick.Remaining,
		Status:    statusActive,
	}
	if err := r.pub.PublishTransient(timerTickSubject, evt); err != nil {
		r.log.Warn().Err(err).Msg("tick publish failed")
	}
}

// complete marks the session finished and announces it. Store.Complete is
// idempotent, so racing with an API-side completion is harmless.
func (r *runner) complete(ctx context.Context) {
	record, err := r.store.Complete(ctx, r.session.ID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return
		}
		r.log.Error().Err(err).Msg("completion failed")
		return
	}

	r.log.Info().Str("task", r.session.Task).Msg("session completed")

	if r.pub == nil {
		return
	}
	zero := 0
	evt := sessionEvent{
		SessionID: record.ID,
		UserID:    record.UserID,
		Username:  r.session.Username,
		Task:      record.Task,
		Type:      record.Type,
		Status:    statusCompleted,
		Duration:  record.DurationMinutes,
		Remaining: &zero,
		StartedAt: record.StartedAt,
	}
	if err := r.pub.Publish(ctx, sessionEndedSubject, evt); err != nil {
		r.log.Warn().Err(err).Msg("completion publish failed")
	}
}
