package kernel

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/marketmind/marketmind/internal/core/domain"
)

// streamEvents writes one SSE frame per StreamEvent and flushes after each,
// then a trailing done frame once the channel closes. The orchestrator
// already converts loop faults into a terminal error event, so the only
// failure handled here is a payload that refuses to marshal.
func (s *Server) streamEvents(w http.ResponseWriter, r *http.Request, events <-chan domain.StreamEvent) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		writeError(w, http.StatusInternalServerError, "Internal Server Error", "streaming not supported")
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	ctx := r.Context()
	for {
		select {
		case <-ctx.Done():
			return
		case event, open := <-events:
			if !open {
				fmt.Fprint(w, `data: {"event_type":"done"}`+"\n\n")
				flusher.Flush()
				return
			}
			payload, err := json.Marshal(event)
			if err != nil {
				s.logger.Error("failed to marshal stream event", "event_type", event.EventType, "error", err)
				payload, _ = json.Marshal(domain.NewStreamEvent(domain.StreamEventError,
					map[string]interface{}{"error": err.Error()}))
			}
			fmt.Fprintf(w, "data: %s\n\n", payload)
			flusher.Flush()
		}
	}
}
