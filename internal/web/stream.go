package web

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"ngoexplorer/internal/explorer"
	appLog "ngoexplorer/internal/log"
)

// streamEvent is the payload of one server-sent state notification.
type streamEvent struct {
	Loading         bool   `json:"loading"`
	RegisteredCount int    `json:"registered_count"`
	Registered      []int  `json:"registered"`
	Version         uint64 `json:"version"`
}

// handleStream pushes a streamEvent for the current state and then for
// every session change until the client goes away. Slow clients only
// ever see the latest state.
func (s *Server) handleStream(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		writeError(w, http.StatusInternalServerError, "streaming unsupported")
		return
	}

	updates := make(chan explorer.State, 1)
	cancel := s.session.Subscribe(func(st explorer.State) {
		for {
			select {
			case updates <- st:
				return
			default:
			}
			// Drop the stale pending state and retry.
			select {
			case <-updates:
			default:
			}
		}
	})
	defer cancel()

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)

	if err := writeStreamEvent(w, s.session.Snapshot()); err != nil {
		return
	}
	flusher.Flush()

	ticker := time.NewTicker(s.opts.StreamKeepAlive)
	defer ticker.Stop()

	for {
		select {
		case <-r.Context().Done():
			return
		case st := <-updates:
			if err := writeStreamEvent(w, st); err != nil {
				appLog.Debug("stream write failed", "err", err, "request_id", requestID(r))
				return
			}
			flusher.Flush()
		case <-ticker.C:
			if _, err := fmt.Fprint(w, ": keepalive\n\n"); err != nil {
				return
			}
			flusher.Flush()
		}
	}
}

func writeStreamEvent(w http.ResponseWriter, st explorer.State) error {
	data, err := json.Marshal(streamEvent{
		Loading:         st.Loading,
		RegisteredCount: st.RegisteredCount,
		Registered:      st.Registrations.IDs(),
		Version:         st.Version,
	})
	if err != nil {
		return err
	}
	_, err = fmt.Fprintf(w, "data: %s\n\n", data)
	return err
}
