package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"
)

// handlePresenceStream bridges the NATS presence subjects onto a
// server-sent-events stream. New clients receive a session-update snapshot
// of everything currently active before live events start flowing.
func (a *API) handlePresenceStream(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		respondError(w, http.StatusInternalServerError, errors.New("streaming unsupported"))
		return
	}
	if a.store.Bus == nil {
		respondError(w, http.StatusServiceUnavailable, errors.New("presence is not configured"))
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)

	events := make(chan sseEvent, 64)
	push := func(name string) func(data []byte) {
		return func(data []byte) {
			select {
			case events <- sseEvent{name: name, data: data}:
			default:
				// A slow consumer drops ticks; the next tick supersedes them.
			}
		}
	}

	subjects := map[string]string{
		sessionStartedSubject: "session-start",
		sessionPausedSubject:  "session-pause",
		sessionResumedSubject: "session-resume",
		sessionEndedSubject:   "session-end",
		timerTickSubject:      "timer-tick",
	}
	for subject, event := range subjects {
		closer, err := a.store.Bus.SubscribeTransient(r.Context(), subject, push(event))
		if err != nil {
			respondError(w, http.StatusInternalServerError, err)
			return
		}
		defer closer.Close()
	}

	if err := a.writeActiveSnapshot(w, r); err != nil {
		a.log.Warn().Err(err).Msg("presence snapshot failed")
		return
	}
	flusher.Flush()

	keepalive := time.NewTicker(25 * time.Second)
	defer keepalive.Stop()

	for {
		select {
		case <-r.Context().Done():
			return
		case <-keepalive.C:
			fmt.Fprint(w, ": keepalive\n\n")
			flusher.Flush()
		case evt := <-events:
			fmt.Fprintf(w, "event: %s\ndata: %s\n\n", evt.name, evt.data)
			flusher.Flush()
		}
	}
}

type sseEvent struct {
	name string
	data []byte
}

// writeActiveSnapshot answers the implicit get-active-sessions request every
// new presence client makes on connect.
func (a *API) writeActiveSnapshot(w http.ResponseWriter, r *http.Request) error {
	ctx, cancel := withTimeout(r.Context())
	defer cancel()

	sessions, err := a.activeSessions(ctx)
	if err != nil {
		return err
	}

	data, err := json.Marshal(map[string]any{"sessions": sessions})
	if err != nil {
		return err
	}

	_, err = fmt.Fprintf(w, "event: session-update\ndata: %s\n\n", data)
	return err
}
