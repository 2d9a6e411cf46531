package handler

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"puppychop-api/internal/converter"
	"puppychop-api/internal/delivery/dto"
	"puppychop-api/internal/domain/entity"
	"puppychop-api/internal/domain/validation"
	"puppychop-api/internal/usecase"
	"puppychop-api/pkg/response"
	"puppychop-api/pkg/validator"

	"github.com/gorilla/mux"
)

const idempotencyKeyHeader = "Idempotency-Key"

type AppointmentHandler struct {
	appointmentUsecase usecase.AppointmentUsecase
	validator          *validator.CustomValidator
}

func NewAppointmentHandler(appointmentUsecase usecase.AppointmentUsecase, validator *validator.CustomValidator) *AppointmentHandler {
	return &AppointmentHandler{
		appointmentUsecase: appointmentUsecase,
		validator:          validator,
	}
}

func (h *AppointmentHandler) ValidateAppointment(w http.ResponseWriter, r *http.Request) {
	var req dto.AppointmentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.Error(w, http.StatusBadRequest, "Invalid request body", nil)
		return
	}

	result := h.appointmentUsecase.ValidateForm(r.Context(), &req)
	response.Success(w, http.StatusOK, "Appointment form checked", result)
}

func (h *AppointmentHandler) CreateAppointment(w http.ResponseWriter, r *http.Request) {
	req, ok := h.decodeRequest(w, r)
	if !ok {
		return
	}

	appointment, err := h.appointmentUsecase.CreateAppointment(r.Context(), req, r.Header.Get(idempotencyKeyHeader))
	if err != nil {
		var formErrs validation.Errors
		switch {
		case errors.As(err, &formErrs):
			response.FormErrors(w, converter.ValidationErrorsToMap(formErrs))
		case errors.Is(err, usecase.ErrDuplicateSubmission):
			response.Conflict(w, "Appointment form already submitted")
		default:
			response.InternalServerError(w, "Failed to create appointment")
		}
		return
	}

	response.Success(w, http.StatusCreated, "Appointment created successfully", appointment)
}

func (h *AppointmentHandler) GetAppointment(w http.ResponseWriter, r *http.Request) {
	appointmentID, ok := appointmentIDFromPath(w, r)
	if !ok {
		return
	}

	appointment, err := h.appointmentUsecase.GetAppointment(r.Context(), appointmentID)
	if err != nil {
		if errors.Is(err, usecase.ErrAppointmentNotFound) {
			response.NotFound(w, "Appointment not found")
			return
		}
		response.InternalServerError(w, "Failed to get appointment")
		return
	}

	response.Success(w, http.StatusOK, "Appointment retrieved successfully", appointment)
}

func (h *AppointmentHandler) GetAllAppointments(w http.ResponseWriter, r *http.Request) {
	filter, ok := h.parseFilter(w, r)
	if !ok {
		return
	}

	appointments, err := h.appointmentUsecase.ListAppointments(r.Context(), filter)
	if err != nil {
		response.InternalServerError(w, "Failed to get appointments")
		return
	}

	response.Success(w, http.StatusOK, "Appointments retrieved successfully", appointments)
}

// StreamAppointments serves the filtered list as server-sent events. The
// first event is the current list; each later event is a fresh list sent
// after a change. The stream ends when the client disconnects.
func (h *AppointmentHandler) StreamAppointments(w http.ResponseWriter, r *http.Request) {
	filter, ok := h.parseFilter(w, r)
	if !ok {
		return
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		response.InternalServerError(w, "Streaming not supported")
		return
	}

	updates, err := h.appointmentUsecase.WatchAppointments(r.Context(), filter)
	if err != nil {
		response.InternalServerError(w, "Failed to watch appointments")
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	for snapshot := range updates {
		payload, err := json.Marshal(snapshot)
		if err != nil {
			continue
		}
		if _, err := fmt.Fprintf(w, "event: appointments\ndata: %s\n\n", payload); err != nil {
			return
		}
		flusher.Flush()
	}
}

func (h *AppointmentHandler) GetStats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.appointmentUsecase.GetStats(r.Context())
	if err != nil {
		response.InternalServerError(w, "Failed to get appointment stats")
		return
	}

	response.Success(w, http.StatusOK, "Appointment stats retrieved successfully", stats)
}

func (h *AppointmentHandler) UpdateAppointment(w http.ResponseWriter, r *http.Request) {
	appointmentID, ok := appointmentIDFromPath(w, r)
	if !ok {
		return
	}

	req, ok := h.decodeRequest(w, r)
	if !ok {
		return
	}

	appointment, err := h.appointmentUsecase.UpdateAppointment(r.Context(), appointmentID, req)
	if err != nil {
		var formErrs validation.Errors
		switch {
		case errors.As(err, &formErrs):
			response.FormErrors(w, converter.ValidationErrorsToMap(formErrs))
		case errors.Is(err, usecase.ErrAppointmentNotFound):
			response.NotFound(w, "Appointment not found")
		default:
			response.InternalServerError(w, "Failed to update appointment")
		}
		return
	}

	response.Success(w, http.StatusOK, "Appointment updated successfully", appointment)
}

func (h *AppointmentHandler) ConfirmAppointment(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, "Appointment confirmed", h.appointmentUsecase.ConfirmAppointment)
}

func (h *AppointmentHandler) UnconfirmAppointment(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, "Appointment marked as pending", h.appointmentUsecase.UnconfirmAppointment)
}

func (h *AppointmentHandler) ToggleConfirmed(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, "Appointment confirmation toggled", h.appointmentUsecase.ToggleConfirmed)
}

func (h *AppointmentHandler) SetConfirmed(w http.ResponseWriter, r *http.Request) {
	appointmentID, ok := appointmentIDFromPath(w, r)
	if !ok {
		return
	}

	var req dto.SetConfirmedRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.Error(w, http.StatusBadRequest, "Invalid request body", nil)
		return
	}

	if err := h.validator.Validate(&req); err != nil {
		response.ValidationError(w, h.validator.FormatValidationErrors(err))
		return
	}

	appointment, err := h.appointmentUsecase.SetConfirmed(r.Context(), appointmentID, *req.Confirmed)
	if err != nil {
		if errors.Is(err, usecase.ErrAppointmentNotFound) {
			response.NotFound(w, "Appointment not found")
			return
		}
		response.InternalServerError(w, "Failed to update appointment confirmation")
		return
	}

	response.Success(w, http.StatusOK, "Appointment confirmation updated", appointment)
}

func (h *AppointmentHandler) DeleteAppointment(w http.ResponseWriter, r *http.Request) {
	appointmentID, ok := appointmentIDFromPath(w, r)
	if !ok {
		return
	}

	if err := h.appointmentUsecase.DeleteAppointment(r.Context(), appointmentID); err != nil {
		if errors.Is(err, usecase.ErrAppointmentNotFound) {
			response.NotFound(w, "Appointment not found")
			return
		}
		response.InternalServerError(w, "Failed to delete appointment")
		return
	}

	response.Success(w, http.StatusOK, "Appointment deleted successfully", nil)
}

func (h *AppointmentHandler) DeleteAllConfirmed(w http.ResponseWriter, r *http.Request) {
	result, err := h.appointmentUsecase.DeleteAllConfirmed(r.Context())
	if err != nil {
		response.InternalServerError(w, "Failed to delete confirmed appointments")
		return
	}

	response.Success(w, http.StatusOK, "Confirmed appointments deleted", result)
}

func (h *AppointmentHandler) ShareAppointment(w http.ResponseWriter, r *http.Request) {
	appointmentID, ok := appointmentIDFromPath(w, r)
	if !ok {
		return
	}

	text, err := h.appointmentUsecase.ShareAppointment(r.Context(), appointmentID)
	if err != nil {
		if errors.Is(err, usecase.ErrAppointmentNotFound) {
			response.NotFound(w, "Appointment not found")
			return
		}
		response.InternalServerError(w, "Failed to share appointment")
		return
	}

	response.Text(w, http.StatusOK, text)
}

func (h *AppointmentHandler) ShareAppointments(w http.ResponseWriter, r *http.Request) {
	filter, ok := h.parseFilter(w, r)
	if !ok {
		return
	}

	text, err := h.appointmentUsecase.ShareAppointments(r.Context(), filter)
	if err != nil {
		response.InternalServerError(w, "Failed to share appointments")
		return
	}

	response.Text(w, http.StatusOK, text)
}

func (h *AppointmentHandler) PreviewNotification(w http.ResponseWriter, r *http.Request) {
	appointmentID, ok := appointmentIDFromPath(w, r)
	if !ok {
		return
	}

	preview, err := h.appointmentUsecase.PreviewNotification(r.Context(), appointmentID)
	if err != nil {
		if errors.Is(err, usecase.ErrAppointmentNotFound) {
			response.NotFound(w, "Appointment not found")
			return
		}
		response.InternalServerError(w, "Failed to build notification")
		return
	}

	response.Success(w, http.StatusOK, "Notification preview", preview)
}

func (h *AppointmentHandler) transition(
	w http.ResponseWriter,
	r *http.Request,
	message string,
	apply func(ctx context.Context, id int64) (*dto.AppointmentResponse, error),
) {
	appointmentID, ok := appointmentIDFromPath(w, r)
	if !ok {
		return
	}

	appointment, err := apply(r.Context(), appointmentID)
	if err != nil {
		if errors.Is(err, usecase.ErrAppointmentNotFound) {
			response.NotFound(w, "Appointment not found")
			return
		}
		response.InternalServerError(w, "Failed to update appointment confirmation")
		return
	}

	response.Success(w, http.StatusOK, message, appointment)
}

func (h *AppointmentHandler) decodeRequest(w http.ResponseWriter, r *http.Request) (*dto.AppointmentRequest, bool) {
	var req dto.AppointmentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.Error(w, http.StatusBadRequest, "Invalid request body", nil)
		return nil, false
	}

	if err := h.validator.Validate(&req); err != nil {
		response.ValidationError(w, h.validator.FormatValidationErrors(err))
		return nil, false
	}

	return &req, true
}

// parseFilter reads status, service_type and veterinarian from the query
// string. Unknown codes are rejected rather than silently ignored.
func (h *AppointmentHandler) parseFilter(w http.ResponseWriter, r *http.Request) (entity.AppointmentFilter, bool) {
	q := r.URL.Query()
	query := dto.AppointmentListQuery{
		Status:       strings.ToLower(strings.TrimSpace(q.Get("status"))),
		ServiceType:  strings.ToUpper(strings.TrimSpace(q.Get("service_type"))),
		Veterinarian: strings.ToUpper(strings.TrimSpace(q.Get("veterinarian"))),
	}

	if err := h.validator.Validate(&query); err != nil {
		response.ValidationError(w, h.validator.FormatValidationErrors(err))
		return entity.AppointmentFilter{}, false
	}

	var filter entity.AppointmentFilter
	if query.Status != "" && query.Status != "all" {
		filter.Status = entity.AppointmentStatus(query.Status)
	}
	if query.ServiceType != "" {
		filter.ServiceType = entity.ServiceType(query.ServiceType)
		if !filter.ServiceType.IsValid() {
			response.ValidationError(w, map[string]string{"service_type": "service_type is invalid"})
			return entity.AppointmentFilter{}, false
		}
	}
	if query.Veterinarian != "" {
		filter.Veterinarian = entity.Veterinarian(query.Veterinarian)
		if !filter.Veterinarian.IsValid() {
			response.ValidationError(w, map[string]string{"veterinarian": "veterinarian is invalid"})
			return entity.AppointmentFilter{}, false
		}
	}

	return filter, true
}

func appointmentIDFromPath(w http.ResponseWriter, r *http.Request) (int64, bool) {
	vars := mux.Vars(r)
	appointmentID, err := strconv.ParseInt(vars["id"], 10, 64)
	if err != nil || appointmentID <= 0 {
		response.Error(w, http.StatusBadRequest, "Invalid appointment ID", nil)
		return 0, false
	}
	return appointmentID, true
}
