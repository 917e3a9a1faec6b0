package service

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/charmbracelet/log"

	"github.com/theapemachine/a2a-srv/pkg/a2a"
	"github.com/theapemachine/a2a-srv/pkg/jsonrpc"
	"github.com/theapemachine/a2a-srv/pkg/metrics"
)

/*
StreamEvents writes engine events to the client as Server-Sent Events.  Each
event is a single-line SSE message of the form

	data: {json}\n\n

where the payload is a JSON-RPC success envelope echoing the request id and
wrapping a status or artifact event.  The stream carries exactly one frame
with final=true and it is the last frame; handler failures arrive as a
failed status event, never as a JSON-RPC error envelope.  Once headers are
flushed, errors end the stream best-effort without touching headers again.
*/
func StreamEvents(
	w http.ResponseWriter,
	r *http.Request,
	requestID json.RawMessage,
	events <-chan any,
	m *metrics.Metrics,
) {
	flusher, ok := w.(http.Flusher)

	if !ok {
		http.Error(w, "streaming unsupported", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	for {
		select {
		case <-r.Context().Done():
			return

		case evt, open := <-events:
			if !open {
				return
			}

			final := false

			switch e := evt.(type) {
			case a2a.TaskStatusUpdateEvent:
				final = e.Final
			case a2a.TaskArtifactUpdateEvent:
				// artifact events are never final on their own
			default:
				log.Warn("skipping unknown stream event", "type", fmt.Sprintf("%T", evt))
				continue
			}

			payload, err := json.Marshal(jsonrpc.NewSuccessResponse(requestID, evt))
			if err != nil {
				log.Error("failed to marshal stream event", "error", err)
				continue
			}

			if _, err := fmt.Fprintf(w, "data: %s\n\n", payload); err != nil {
				log.Warn("sse client disconnected", "error", err)
				return
			}

			flusher.Flush()
			m.ObserveSSEEvent()

			if final {
				return
			}
		}
	}
}
