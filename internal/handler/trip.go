package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/oapi-codegen/runtime"

	"github.com/pkordes/trip-countdown/internal/countdown"
	"github.com/pkordes/trip-countdown/internal/domain"
	"github.com/pkordes/trip-countdown/internal/itinerary"
)

// localInputLayout matches an HTML datetime-local input value.
const localInputLayout = "2006-01-02T15:04"

// tripResponse is the full view of the trip: the stored snapshot plus the
// values derived from it.
type tripResponse struct {
	Destination string                 `json:"destination"`
	TargetDate  string                 `json:"target_date"`
	TargetLocal string                 `json:"target_local"`
	Itinerary   []domain.ItineraryItem `json:"itinerary"`
	Countdown   domain.CountdownTime   `json:"countdown"`
	Days        []itinerary.DayGroup   `json:"days,omitempty"`
}

// saveTripRequest is the body of PUT /trip. Date is a wall-clock value in
// the server's trip time zone, e.g. "2025-06-01T09:00".
type saveTripRequest struct {
	Destination string                 `json:"destination"`
	Date        string                 `json:"date"`
	Itinerary   []domain.ItineraryItem `json:"itinerary"`
}

type historyResponse struct {
	Data       []domain.TripRecord `json:"data"`
	Pagination pagination          `json:"pagination"`
}

type pagination struct {
	Page  int   `json:"page"`
	Limit int   `json:"limit"`
	Total int64 `json:"total"`
}

// GetTrip handles GET /trip.
func (s *Server) GetTrip(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.tripToResponse(s.trips.Current()))
}

// SaveTrip handles PUT /trip.
func (s *Server) SaveTrip(w http.ResponseWriter, r *http.Request) {
	var body saveTripRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeError(w, http.StatusRequestEntityTooLarge, "body_too_large", "request body too large")
			return
		}
		writeError(w, http.StatusUnprocessableEntity, "validation_error", "request body must be a JSON object")
		return
	}

	saved, err := s.trips.Save(r.Context(), body.Destination, body.Date, body.Itinerary)
	if err != nil {
		if errors.Is(err, domain.ErrValidation) {
			writeValidation(w, err)
			return
		}
		s.log.ErrorContext(r.Context(), "save trip", "error", err)
		writeError(w, http.StatusInternalServerError, "internal_error", "trip could not be stored locally")
		return
	}

	writeJSON(w, http.StatusOK, s.tripToResponse(saved))
}

// GetItinerary handles GET /trip/itinerary.
func (s *Server) GetItinerary(w http.ResponseWriter, _ *http.Request) {
	days := itinerary.GroupByDate(s.trips.Current().Itinerary)
	if days == nil {
		days = []itinerary.DayGroup{}
	}
	writeJSON(w, http.StatusOK, days)
}

// GetItineraryDraft handles GET /trip/itinerary/draft: a blank item with a
// fresh id for the editor to fill in.
func (s *Server) GetItineraryDraft(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, itinerary.NewItem(s.now(), s.trips.Location()))
}

// ListHistory handles GET /trip/history.
// Supports ?page= and ?limit= query parameters (defaults: page=1, limit=20, max=100).
func (s *Server) ListHistory(w http.ResponseWriter, r *http.Request) {
	var page, limit *int
	if err := runtime.BindQueryParameter("form", true, false, "page", r.URL.Query(), &page); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_parameter", "page must be an integer")
		return
	}
	if err := runtime.BindQueryParameter("form", true, false, "limit", r.URL.Query(), &limit); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_parameter", "limit must be an integer")
		return
	}
	params := domain.NewPaginationParams(page, limit)

	records, total, err := s.trips.History(r.Context(), params)
	if err != nil {
		if errors.Is(err, domain.ErrRemoteUnconfigured) {
			writeError(w, http.StatusServiceUnavailable, "remote_unconfigured", "remote trip store is not configured")
			return
		}
		s.log.WarnContext(r.Context(), "list history", "error", err)
		writeError(w, http.StatusBadGateway, "remote_unavailable", "remote trip store is unavailable")
		return
	}

	if records == nil {
		records = []domain.TripRecord{}
	}
	writeJSON(w, http.StatusOK, historyResponse{
		Data:       records,
		Pagination: pagination{Page: params.Page, Limit: params.Limit, Total: total},
	})
}

// --- mapping helpers --------------------------------------------------------

func (s *Server) tripToResponse(st domain.TripState) tripResponse {
	items := st.Itinerary
	if items == nil {
		items = []domain.ItineraryItem{}
	}
	resp := tripResponse{
		Destination: st.Destination,
		Itinerary:   items,
		Countdown:   countdown.Remaining(countdown.TargetOf(st), s.now()),
		Days:        itinerary.GroupByDate(items),
	}
	if !st.TargetInstant.IsZero() {
		resp.TargetDate = domain.FormatInstant(st.TargetInstant)
		resp.TargetLocal = st.TargetInstant.In(s.location()).Format(localInputLayout)
	}
	return resp
}

func (s *Server) location() *time.Location {
	if loc := s.trips.Location(); loc != nil {
		return loc
	}
	return time.Local
}
