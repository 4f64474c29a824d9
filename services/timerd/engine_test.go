package timerd

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
)

const testInterval = time.Millisecond

func collectTicks(t *testing.T, e *Engine, max int) []Tick {
	t.Helper()

	var ticks []Tick
	timeout := time.After(5 * time.Second)
	for {
		select {
		case tick, ok := <-e.Ticks():
			if !ok {
				return ticks
			}
			ticks = append(ticks, tick)
			if len(ticks) > max {
				t.Fatalf("received more than %d ticks", max)
			}
		case <-timeout:
			t.Fatal("timed out waiting for ticks")
		}
	}
}

func TestEngineCountsDownToCompletion(t *testing.T) {
	e := NewEngine(EngineConfig{
		SessionID: uuid.New(),
		UserID:    uuid.New(),
		Remaining: 5,
		Interval:  testInterval,
	})
	go e.Run(context.Background())

	ticks := collectTicks(t, e, 5)
	if len(ticks) != 5 {
		t.Fatalf("ticks = %d, want 5", len(ticks))
	}

	for i, tick := range ticks {
		want := 5 - (i + 1)
		if tick.Remaining != want {
			t.Fatalf("tick %d remaining = %d, want %d", i, tick.Remaining, want)
		}
		if tick.Done != (want == 0) {
			t.Fatalf("tick %d done = %v at remaining %d", i, tick.Done, want)
		}
	}
}

func TestEngineRemainingNeverIncreases(t *testing.T) {
	e := NewEngine(EngineConfig{
		SessionID: uuid.New(),
		UserID:    uuid.New(),
		Remaining: 20,
		Interval:  testInterval,
	})
	go e.Run(context.Background())

	// Interleave sync commands, including ones that would push the counter
	// back up; those must be ignored.
	go func() {
		for i := 0; i < 10; i++ {
			e.Sync(1000)
			time.Sleep(2 * testInterval)
		}
	}()

	ticks := collectTicks(t, e, 20)
	last := 21
	for _, tick := range ticks {
		if tick.Remaining >= last {
			t.Fatalf("remaining went from %d to %d", last, tick.Remaining)
		}
		last = tick.Remaining
	}
	if last != 0 {
		t.Fatalf("final remaining = %d, want 0", last)
	}
}

func TestEngineSyncCorrectsDownward(t *testing.T) {
	e := NewEngine(EngineConfig{
		SessionID: uuid.New(),
		UserID:    uuid.New(),
		Remaining: 100,
		Interval:  testInterval,
	})
	go e.Run(context.Background())

	// Let a tick land, then simulate a wall-clock correction after drift.
	<-e.Ticks()
	e.Sync(3)

	sawCorrected := false
	for tick := range e.Ticks() {
		if tick.Remaining <= 3 {
			sawCorrected = true
		}
		if tick.Done {
			break
		}
	}
	if !sawCorrected {
		t.Fatal("sync correction never took effect")
	}
}

func TestEnginePauseFreezesCountdown(t *testing.T) {
	e := NewEngine(EngineConfig{
		SessionID: uuid.New(),
		UserID:    uuid.New(),
		Remaining: 100,
		Interval:  testInterval,
	})
	go e.Run(context.Background())

	first := <-e.Ticks()
	e.Pause()

	// Drain anything emitted before the pause command landed, then verify
	// silence.
	deadline := time.After(50 * testInterval)
	frozen := first.Remaining
drain:
	for {
		select {
		case tick := <-e.Ticks():
			frozen = tick.Remaining
		case <-deadline:
			break drain
		}
	}

	select {
	case tick := <-e.Ticks():
		t.Fatalf("tick %v while paused", tick)
	case <-time.After(20 * testInterval):
	}

	e.Resume()
	next := <-e.Ticks()
	if next.Remaining != frozen-1 {
		t.Fatalf("after resume remaining = %d, want %d", next.Remaining, frozen-1)
	}

	e.Stop()
}

func TestEngineStopClosesTickStream(t *testing.T) {
	e := NewEngine(EngineConfig{
		SessionID: uuid.New(),
		UserID:    uuid.New(),
		Remaining: 1000,
		Interval:  testInterval,
	})
	ctx, cancel := context.WithCancel(context.Background())
	go e.Run(ctx)

	<-e.Ticks()
	cancel()

	deadline := time.After(time.Second)
	for {
		select {
		case _, ok := <-e.Ticks():
			if !ok {
				return
			}
		case <-deadline:
			t.Fatal("tick stream did not close after cancellation")
		}
	}
}
