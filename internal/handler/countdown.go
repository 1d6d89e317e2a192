package handler

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/oapi-codegen/runtime"

	"github.com/pkordes/trip-countdown/internal/countdown"
	"github.com/pkordes/trip-countdown/internal/domain"
)

// GetCountdown handles GET /trip/countdown.
// An optional ?at= RFC 3339 instant evaluates the countdown at that moment
// instead of now.
func (s *Server) GetCountdown(w http.ResponseWriter, r *http.Request) {
	var at *time.Time
	if err := runtime.BindQueryParameter("form", true, false, "at", r.URL.Query(), &at); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_parameter", "at must be an RFC 3339 date-time")
		return
	}

	now := s.now()
	if at != nil {
		now = *at
	}
	writeJSON(w, http.StatusOK, countdown.Remaining(countdown.TargetOf(s.trips.Current()), now))
}

// StreamCountdown handles GET /trip/countdown/stream.
//
// It sends a "countdown" server-sent event immediately and then once per
// tick. When the trip target changes the ticker is restarted for the new
// target; when the client disconnects the ticker is released.
func (s *Server) StreamCountdown(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		writeError(w, http.StatusInternalServerError, "streaming_unsupported", "streaming is not supported")
		return
	}

	// The stream outlives the server's WriteTimeout.
	_ = http.NewResponseController(w).SetWriteDeadline(time.Time{})

	ctx := r.Context()

	ticks := make(chan domain.CountdownTime, 1)
	tk := countdown.NewTicker(s.tick, s.now, func(c domain.CountdownTime) {
		offerLatest(ticks, c)
	})
	defer tk.Stop()

	changes := s.trips.Watch(ctx)

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	// retarget restarts the ticker. Without a target no ticker runs, so the
	// all-zero countdown is sent once instead.
	retarget := func(st domain.TripState) error {
		target := countdown.TargetOf(st)
		tk.SetTarget(target)
		if target != nil {
			return nil
		}
		if err := writeEvent(w, "countdown", countdown.Remaining(nil, s.now())); err != nil {
			return err
		}
		flusher.Flush()
		return nil
	}

	if err := retarget(s.trips.Current()); err != nil {
		return
	}

	for {
		select {
		case <-ctx.Done():
			return

		case st, ok := <-changes:
			if !ok {
				return
			}
			// Discard a value computed for the old target.
			select {
			case <-ticks:
			default:
			}
			if err := retarget(st); err != nil {
				return
			}

		case c := <-ticks:
			if err := writeEvent(w, "countdown", c); err != nil {
				s.log.DebugContext(ctx, "countdown stream closed", "error", err)
				return
			}
			flusher.Flush()
		}
	}
}

// offerLatest puts v in a one-slot channel, replacing any unread value.
func offerLatest(ch chan domain.CountdownTime, v domain.CountdownTime) {
	for {
		select {
		case ch <- v:
			return
		default:
		}
		select {
		case <-ch:
		default:
		}
	}
}

func writeEvent(w http.ResponseWriter, event string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintf(w, "event: %s\ndata: %s\n\n", event, data)
	return err
}
