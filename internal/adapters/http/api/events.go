package api

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"net/http"
	"strings"

	"github.com/okian/mlgrade/internal/domain/model"
)

const maxEventsBodyBytes = 8 << 20

// EventsHandler handles event ingestion requests.
type EventsHandler struct {
	deps Dependencies
}

// NewEventsHandler creates a new events handler.
func NewEventsHandler(deps Dependencies) *EventsHandler {
	return &EventsHandler{deps: deps}
}

// HandlePostEvents handles POST /events. The body is either one event
// object or an array of them; the batch is stored only if every event is valid.
func (h *EventsHandler) HandlePostEvents(w http.ResponseWriter, r *http.Request) {
	const op = "api.post_events"
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method_not_allowed", NewKind(op, ErrMethodNotAllowed))
		return
	}
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxEventsBodyBytes))
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeError(w, http.StatusRequestEntityTooLarge, "too_large", NewKind(op, ErrTooLarge))
			return
		}
		writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, err))
		return
	}
	events, err := decodeEvents(body)
	if err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, err))
		return
	}
	n := h.deps.Ingest(r.Context(), events)
	writeJSON(w, http.StatusAccepted, ackResponse{Status: "accepted", Accepted: n})
}

func decodeEvents(body []byte) ([]model.Event, error) {
	trimmed := bytes.TrimSpace(body)
	if len(trimmed) == 0 {
		return nil, errors.New("empty body")
	}
	var events []model.Event
	if trimmed[0] == '[' {
		if err := json.Unmarshal(trimmed, &events); err != nil {
			return nil, err
		}
	} else {
		var ev model.Event
		if err := json.Unmarshal(trimmed, &ev); err != nil {
			return nil, err
		}
		events = []model.Event{ev}
	}
	for i, ev := range events {
		if err := validateEvent(ev); err != nil {
			return nil, fmt.Errorf("event %d: %w", i, err)
		}
	}
	return events, nil
}

func validateEvent(e model.Event) error {
	switch {
	case strings.TrimSpace(e.Timestamp) == "":
		return errors.New("missing timestamp")
	case math.IsNaN(e.Prediction) || e.Prediction < 0 || e.Prediction > 1:
		return errors.New("prediction must be within [0, 1]")
	case e.Label != nil && *e.Label != 0 && *e.Label != 1:
		return errors.New("label must be 0 or 1")
	}
	return nil
}
