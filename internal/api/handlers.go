package api

import (
	"encoding/json"
	"net/http"
	"strconv"
	"strings"

	"salonbook/internal/service"
)

func (s *HTTPServer) handleCreateHold(w http.ResponseWriter, r *http.Request) {
	var body createHoldRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if err := s.validate.Struct(body); err != nil {
		writeError(w, http.StatusBadRequest, validationMessage(err))
		return
	}

	slot, err := parseSlotDateTime(body.SlotDateTime, s.deps.TZ)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid slotDateTime: "+err.Error())
		return
	}

	hold, err := s.deps.Holds.CreateHold(r.Context(), service.CreateHoldInput{
		SessionID: body.SessionID,
		StaffID:   body.StaffID,
		ServiceID: body.ServiceID,
		SlotStart: slot,
	})
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}

	writeJSON(w, http.StatusCreated, map[string]any{
		"success": true,
		"hold":    toHoldResponse(hold, s.deps.Clock.Now()),
	})
}

func (s *HTTPServer) handleReleaseHold(w http.ResponseWriter, r *http.Request) {
	holdID := strings.TrimSpace(r.URL.Query().Get("holdId"))
	if holdID == "" {
		writeError(w, http.StatusBadRequest, "holdId is required")
		return
	}

	if err := s.deps.Holds.ReleaseHold(r.Context(), holdID); err != nil {
		s.writeDomainError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"success": true, "holdId": holdID})
}

func (s *HTTPServer) handleSessionHold(w http.ResponseWriter, r *http.Request) {
	sessionID := strings.TrimSpace(r.URL.Query().Get("sessionId"))
	if sessionID == "" {
		writeError(w, http.StatusBadRequest, "sessionId is required")
		return
	}

	hold, expired, err := s.deps.Holds.SessionHold(r.Context(), sessionID)
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}

	resp := sessionHoldResponse{}
	switch {
	case hold != nil:
		resp.HasActiveHold = true
		resp.Hold = toHoldResponse(hold, s.deps.Clock.Now())
	case expired:
		resp.Expired = true
		resp.Message = "Hold has expired"
	default:
		resp.Message = "No active hold for this session"
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *HTTPServer) handleConvertHold(w http.ResponseWriter, r *http.Request) {
	holdID := strings.TrimSpace(r.PathValue("holdId"))

	var body convertHoldRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	contact := service.ContactInput{
		Name:             body.CustomerName,
		Phone:            body.CustomerPhone,
		Email:            body.CustomerEmail,
		MarketingConsent: body.MarketingConsent,
	}
	booking, err := s.deps.Bookings.ConvertHold(r.Context(), holdID, contact)
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"booking": toBookingResponse(booking, s.deps.TZ),
		"customer": customerResponse{
			Name:             booking.CustomerName,
			Phone:            booking.CustomerPhone,
			Email:            booking.CustomerEmail,
			MarketingConsent: booking.MarketingConsent,
		},
	})
}

func (s *HTTPServer) handleAvailability(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	staffID, errStaff := parseID(q.Get("staffId"))
	serviceID, errService := parseID(q.Get("serviceId"))
	if errStaff != nil || errService != nil {
		writeError(w, http.StatusBadRequest, "staffId and serviceId must be integers")
		return
	}

	query := availabilityQuery{StaffID: staffID, ServiceID: serviceID, Date: strings.TrimSpace(q.Get("date"))}
	if err := s.validate.Struct(query); err != nil {
		writeError(w, http.StatusBadRequest, validationMessage(err))
		return
	}

	result, err := s.deps.Availability.Calculate(r.Context(), query.StaffID, query.ServiceID, query.Date)
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}

	resp := availabilityResponse{
		Slots:       make([]slotResponse, 0, len(result.Slots)),
		StaffName:   result.StaffName,
		ServiceName: result.ServiceName,
		Date:        result.Date,
		Message:     result.Message,
	}
	for _, slot := range result.Slots {
		resp.Slots = append(resp.Slots, slotResponse{
			DateTime:  formatInstant(slot.Start),
			Available: slot.Available,
			PSTTime:   slot.LocalTime,
			Reason:    slot.Reason,
		})
	}
	resp.TotalSlots = len(resp.Slots)

	writeJSON(w, http.StatusOK, resp)
}

func (s *HTTPServer) handleHealthz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *HTTPServer) handleReadyz(w http.ResponseWriter, r *http.Request) {
	if s.deps.Health != nil {
		if err := s.deps.Health.HealthCheck(r.Context()); err != nil {
			s.logger.Warn().Err(err).Msg("readiness check failed")
			writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable"})
			return
		}
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}

// parseID treats an absent parameter as zero so the validator reports it as required.
func parseID(raw string) (int64, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return 0, nil
	}
	return strconv.ParseInt(raw, 10, 64)
}
