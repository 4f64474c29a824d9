package timerd

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Tick is one step of a running countdown. Done is set exactly once, on the
// tick that reaches zero.
type Tick struct {
	SessionID uuid.UUID
	UserID    uuid.UUID
	Remaining int
	Done      bool
}

type commandKind int

const (
	cmdPause commandKind = iota
	cmdResume
	cmdSync
	cmdStop
)

type command struct {
	kind      commandKind
	remaining int
}

// EngineConfig seeds a countdown engine. Interval exists so tests can run
// the loop at millisecond speed.
type EngineConfig struct {
	SessionID uuid.UUID
	UserID    uuid.UUID
	Remaining int
	Interval  time.Duration
}

// Engine counts a single session down to zero. It decrements a local counter
// once per interval, the way a detached display would, and accepts Sync
// commands that recalibrate the counter from the wall clock. The reported
// remaining value never increases.
type Engine struct {
	sessionID uuid.UUID
	userID    uuid.UUID
	remaining int
	interval  time.Duration

	commands chan command
	ticks    chan Tick
	done     chan struct{}
}

// NewEngine builds a stopped engine; Run starts the loop.
func NewEngine(cfg EngineConfig) *Engine {
	interval := cfg.Interval
	if interval <= 0 {
		interval = time.Second
	}
	remaining := cfg.Remaining
	if remaining < 0 {
		remaining = 0
	}

	return &Engine{
		sessionID: cfg.SessionID,
		userID:    cfg.UserID,
		remaining: remaining,
		interval:  interval,
		commands:  make(chan command, 8),
		ticks:     make(chan Tick, 16),
		done:      make(chan struct{}),
	}
}

// Ticks returns the countdown stream. The channel closes when the engine
// stops, whether by completion, Stop, or context cancellation.
func (e *Engine) Ticks() <-chan Tick { return e.ticks }

// Pause suspends ticking; the remaining counter freezes.
func (e *Engine) Pause() { e.send(command{kind: cmdPause}) }

// Resume continues a paused countdown.
func (e *Engine) Resume() { e.send(command{kind: cmdResume}) }

// Sync recalibrates the counter to a wall-clock derived value. Values above
// the current counter are ignored so the display never jumps back up.
func (e *Engine) Sync(remaining int) {
	e.send(command{kind: cmdSync, remaining: remaining})
}

// Stop ends the countdown without completing it.
func (e *Engine) Stop() { e.send(command{kind: cmdStop}) }

func (e *Engine) send(cmd command) {
	select {
	case e.commands <- cmd:
	case <-e.done:
	}
}

// Run drives the countdown until completion, Stop, or ctx cancellation. It
// owns the ticks channel and closes it on exit.
func (e *Engine) Run(ctx context.Context) {
	defer close(e.done)
	defer close(e.ticks)

	ticker := time.NewTicker(e.interval)
	defer ticker.Stop()

	paused := false

	for {
		select {
		case <-ctx.Done():
			return

		case cmd := <-e.commands:
			switch cmd.kind {
			case cmdPause:
				paused = true
			case cmdResume:
				paused = false
			case cmdSync:
				if cmd.remaining >= 0 && cmd.remaining < e.remaining {
					e.remaining = cmd.remaining
				}
			case cmdStop:
				return
			}

		case <-ticker.C:
			if paused {
				continue
			}
			if e.remaining > 0 {
				e.remaining--
			}

			tick := Tick{
				SessionID: e.sessionID,
				UserID:    e.userID,
				Remaining: e.remaining,
				Done:      e.remaining == 0,
			}
			select {
			case e.ticks <- tick:
			case <-ctx.Done():
				return
			}
			if tick.Done {
				return
			}
		}
	}
}
