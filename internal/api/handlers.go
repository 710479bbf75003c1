package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"spacebook/internal/database"
	"spacebook/internal/models"
	"spacebook/internal/service"
)

func (s *HTTPServer) handleBusySlots(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	start, err := parseQueryTime(r, "start")
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	end, err := parseQueryTime(r, "end")
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if !start.Before(end) {
		writeError(w, http.StatusBadRequest, "end must be after start")
		return
	}

	slots, err := s.service.BusySlots(r.Context(), start, end)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to compute busy slots")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"busy_slots": slots})
}

func (s *HTTPServer) handleExport(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	if s.exporter == nil {
		writeError(w, http.StatusNotImplemented, "export is not configured")
		return
	}

	start, err := parseQueryTime(r, "start")
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	end, err := parseQueryTime(r, "end")
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	path, err := s.exporter.ExportReservations(r.Context(), start, end)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "export failed")
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"file": path})
}

func (s *HTTPServer) handleReservations(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		s.listReservations(w, r)
	case http.MethodPost:
		s.createReservation(w, r)
	default:
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
	}
}

func (s *HTTPServer) listReservations(w http.ResponseWriter, r *http.Request) {
	var filter models.ReservationFilter

	if raw := strings.TrimSpace(r.URL.Query().Get("user_id")); raw != "" {
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid user_id")
			return
		}
		filter.UserID = id
	}
	if status := strings.TrimSpace(r.URL.Query().Get("status")); status != "" {
		if !models.ValidStatus(status) {
			writeError(w, http.StatusBadRequest, "invalid status")
			return
		}
		filter.Status = status
	}
	if raw := strings.TrimSpace(r.URL.Query().Get("start")); raw != "" {
		t, err := parseQueryTime(r, "start")
		if err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		filter.Start = t
	}
	if raw := strings.TrimSpace(r.URL.Query().Get("end")); raw != "" {
		t, err := parseQueryTime(r, "end")
		if err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		filter.End = t
	}

	reservations, err := s.service.GetReservations(r.Context(), filter)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to list reservations")
		return
	}
	if reservations == nil {
		reservations = []*models.Reservation{}
	}

	writeJSON(w, http.StatusOK, map[string]any{"reservations": reservations})
}

func (s *HTTPServer) createReservation(w http.ResponseWriter, r *http.Request) {
	var input models.ReservationInput
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(&input); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	created, err := s.service.CreateReservation(r.Context(), input)
	if err != nil {
		s.writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, created)
}

func (s *HTTPServer) handleReservationByID(w http.ResponseWriter, r *http.Request) {
	const prefix = "/api/v1/reservations/"
	raw := strings.TrimPrefix(r.URL.Path, prefix)
	if raw == "" || strings.Contains(raw, "/") {
		writeError(w, http.StatusNotFound, "not found")
		return
	}
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid reservation id")
		return
	}

	switch r.Method {
	case http.MethodGet:
		s.getReservation(w, r, id)
	case http.MethodPatch:
		s.patchReservation(w, r, id)
	default:
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
	}
}

func (s *HTTPServer) getReservation(w http.ResponseWriter, r *http.Request, id int64) {
	reservation, err := s.service.GetReservation(r.Context(), id)
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, reservation)
}

// patchRequest covers both status transitions and field edits. A status
// transition requires the version the client last saw.
type patchRequest struct {
	Status           *string  `json:"status,omitempty"`
	Version          *int64   `json:"version,omitempty"`
	ActorID          int64    `json:"actor_id,omitempty"`
	OpenTime         *string  `json:"open_time,omitempty"`
	CloseTime        *string  `json:"close_time,omitempty"`
	NumberOfPeople   *int     `json:"number_of_people,omitempty"`
	Payment          *float64 `json:"payment,omitempty"`
	GroupDescription *string  `json:"group_description,omitempty"`
	ManagerComment   *string  `json:"manager_comment,omitempty"`
}

func (s *HTTPServer) patchReservation(w http.ResponseWriter, r *http.Request, id int64) {
	var req patchRequest
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	if req.Status != nil {
		s.transitionReservation(w, r, id, req)
		return
	}

	update := models.ReservationUpdate{
		NumberOfPeople: req.NumberOfPeople,
		Payment:        req.Payment,
		GroupDesc:      req.GroupDescription,
		ManagerComment: req.ManagerComment,
	}
	if req.OpenTime != nil {
		t, err := parseTimeValue(*req.OpenTime)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid open_time")
			return
		}
		update.OpenTime = &t
	}
	if req.CloseTime != nil {
		t, err := parseTimeValue(*req.CloseTime)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid close_time")
			return
		}
		update.CloseTime = &t
	}

	updated, err := s.service.UpdateReservation(r.Context(), id, update)
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, updated)
}

func (s *HTTPServer) transitionReservation(w http.ResponseWriter, r *http.Request, id int64, req patchRequest) {
	if req.Version == nil {
		writeError(w, http.StatusBadRequest, "version is required for status changes")
		return
	}

	switch *req.Status {
	case models.StatusApproved:
		approved, rejected, err := s.service.ApproveReservation(r.Context(), id, *req.Version, req.ActorID)
		if err != nil {
			s.writeServiceError(w, err)
			return
		}
		if rejected == nil {
			rejected = []int64{}
		}
		writeJSON(w, http.StatusOK, map[string]any{
			"reservation":  approved,
			"rejected_ids": rejected,
		})
	case models.StatusRejected:
		if err := s.service.RejectReservation(r.Context(), id, *req.Version, req.ActorID); err != nil {
			s.writeServiceError(w, err)
			return
		}
		s.getReservation(w, r, id)
	case models.StatusCancelled:
		if err := s.service.CancelReservation(r.Context(), id, *req.Version, req.ActorID); err != nil {
			s.writeServiceError(w, err)
			return
		}
		s.getReservation(w, r, id)
	default:
		writeError(w, http.StatusBadRequest, "unsupported status")
	}
}

func (s *HTTPServer) writeServiceError(w http.ResponseWriter, err error) {
	var verr *service.ValidationError
	switch {
	case errors.As(err, &verr):
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": verr.Message, "kind": verr.Kind})
	case errors.Is(err, database.ErrNotFound):
		writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, database.ErrSelfConflict),
		errors.Is(err, database.ErrConcurrentModification),
		errors.Is(err, database.ErrInvalidTransition),
		errors.Is(err, database.ErrTerminalStatus),
		errors.Is(err, service.ErrUserBusy):
		writeError(w, http.StatusConflict, err.Error())
	case errors.Is(err, database.ErrRateLimited):
		writeError(w, http.StatusTooManyRequests, err.Error())
	case errors.Is(err, database.ErrNoFields):
		writeError(w, http.StatusBadRequest, err.Error())
	default:
		s.logger.Error().Err(err).Msg("internal error")
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}

func parseQueryTime(r *http.Request, name string) (time.Time, error) {
	raw := strings.TrimSpace(r.URL.Query().Get(name))
	if raw == "" {
		return time.Time{}, errParam(name, "is required")
	}
	return parseTimeValue(raw)
}

func parseTimeValue(raw string) (time.Time, error) {
	layouts := []string{time.RFC3339, "2006-01-02 15:04", "2006-01-02"}
	for _, layout := range layouts {
		if t, err := time.Parse(layout, raw); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, errParam(raw, "is not a valid timestamp")
}

type paramError struct {
	name, msg string
}

func (e paramError) Error() string { return e.name + " " + e.msg }

func errParam(name, msg string) error { return paramError{name: name, msg: msg} }
