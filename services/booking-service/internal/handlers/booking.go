package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/md-rashed-zaman/salonbook/libs/tenancy"
	"github.com/md-rashed-zaman/salonbook/services/booking-service/internal/availability"
	"github.com/md-rashed-zaman/salonbook/services/booking-service/internal/booking"
	"github.com/md-rashed-zaman/salonbook/services/booking-service/internal/model"
	"github.com/md-rashed-zaman/salonbook/services/booking-service/internal/timeutil"
)

// Engine is the slice of the booking engine the HTTP surface drives.
type Engine interface {
	GenerateSlotsForService(ctx context.Context, businessID, professionalID, serviceID string, date time.Time) ([]availability.Slot, error)
	CreateAppointment(ctx context.Context, req booking.Request) (string, error)
	UpdateStatus(ctx context.Context, businessID, appointmentID string, status model.Status) (model.Appointment, error)
	CancelAppointment(ctx context.Context, businessID, appointmentID, reason string) (model.Appointment, error)
	Reschedule(ctx context.Context, businessID, appointmentID string, date time.Time, timeSlot string) (model.Appointment, error)
	ListDay(ctx context.Context, businessID, professionalID string, date time.Time) ([]model.Appointment, error)
	GetAppointment(ctx context.Context, businessID, appointmentID string) (model.Appointment, error)
}

type BookingHandler struct {
	engine Engine
	logger *slog.Logger
}

func NewBookingHandler(engine Engine, logger *slog.Logger) *BookingHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &BookingHandler{engine: engine, logger: logger}
}

// Routes expects tenant middleware to run in front of it.
func (h *BookingHandler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Post("/v1/public/availability", h.Availability)
	r.Post("/v1/public/book", h.Book)
	r.Post("/v1/appointments/status", h.UpdateStatus)
	r.Post("/v1/appointments/cancel", h.Cancel)
	r.Post("/v1/appointments/reschedule", h.Reschedule)
	r.Get("/v1/appointments", h.List)
	r.Get("/v1/appointments/{id}", h.Get)
	return r
}

type availabilityRequest struct {
	Date           string `json:"date"`
	ProfessionalID string `json:"professional_id"`
	ServiceID      string `json:"service_id"`
}

type slotItem struct {
	Time      string `json:"time"`
	Available bool   `json:"available"`
	Reason    string `json:"reason,omitempty"`
}

type availabilityResponse struct {
	Slots []slotItem `json:"slots"`
}

type bookRequest struct {
	ServiceID      string `json:"service_id"`
	ProfessionalID string `json:"professional_id"`
	Date           string `json:"date"`
	TimeSlot       string `json:"time_slot"`
	ClientID       string `json:"client_id"`
	Phone          string `json:"phone"`
}

type bookResponse struct {
	Success       bool   `json:"success"`
	AppointmentID string `json:"appointment_id,omitempty"`
	Error         string `json:"error,omitempty"`
}

type statusRequest struct {
	AppointmentID string `json:"appointment_id"`
	Status        string `json:"status"`
}

type cancelRequest struct {
	AppointmentID string `json:"appointment_id"`
	Reason        string `json:"reason"`
}

type rescheduleRequest struct {
	AppointmentID string `json:"appointment_id"`
	Date          string `json:"date"`
	TimeSlot      string `json:"time_slot"`
}

type appointmentItem struct {
	AppointmentID  string `json:"appointment_id"`
	ProfessionalID string `json:"professional_id"`
	ServiceID      string `json:"service_id"`
	ClientID       string `json:"client_id,omitempty"`
	StartTime      string `json:"start_time"`
	EndTime        string `json:"end_time"`
	Status         string `json:"status"`
	TotalAmount    string `json:"total_amount,omitempty"`
	CancelledAt    string `json:"cancelled_at,omitempty"`
	CancelReason   string `json:"cancellation_reason,omitempty"`
}

type appointmentResponse struct {
	Success     bool             `json:"success"`
	Appointment *appointmentItem `json:"appointment,omitempty"`
	Error       string           `json:"error,omitempty"`
}

type listResponse struct {
	Appointments []appointmentItem `json:"appointments"`
}

func (h *BookingHandler) Availability(w http.ResponseWriter, r *http.Request) {
	businessID, ok := tenantFrom(w, r)
	if !ok {
		return
	}
	var req availabilityRequest
	if !decode(w, r, &req) {
		return
	}
	date, err := parseDate(req.Date)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_date")
		return
	}

	slots, err := h.engine.GenerateSlotsForService(r.Context(), businessID,
		strings.TrimSpace(req.ProfessionalID), strings.TrimSpace(req.ServiceID), date)
	if err != nil {
		h.fail(w, r, "availability", err)
		return
	}

	resp := availabilityResponse{Slots: make([]slotItem, 0, len(slots))}
	for _, s := range slots {
		resp.Slots = append(resp.Slots, slotItem{Time: s.Time, Available: s.Available, Reason: string(s.Reason)})
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *BookingHandler) Book(w http.ResponseWriter, r *http.Request) {
	businessID, ok := tenantFrom(w, r)
	if !ok {
		return
	}
	var req bookRequest
	if !decode(w, r, &req) {
		return
	}
	date, err := parseDate(req.Date)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_date")
		return
	}

	id, err := h.engine.CreateAppointment(r.Context(), booking.Request{
		TenantID:       businessID,
		ServiceID:      strings.TrimSpace(req.ServiceID),
		ProfessionalID: strings.TrimSpace(req.ProfessionalID),
		Date:           date,
		TimeSlot:       strings.TrimSpace(req.TimeSlot),
		ContactID:      strings.TrimSpace(req.ClientID),
		Phone:          strings.TrimSpace(req.Phone),
	})
	if err != nil {
		h.fail(w, r, "book", err)
		return
	}
	writeJSON(w, http.StatusCreated, bookResponse{Success: true, AppointmentID: id})
}

func (h *BookingHandler) UpdateStatus(w http.ResponseWriter, r *http.Request) {
	businessID, ok := tenantFrom(w, r)
	if !ok {
		return
	}
	var req statusRequest
	if !decode(w, r, &req) {
		return
	}
	status, err := model.ParseStatus(req.Status)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_status")
		return
	}

	appt, err := h.engine.UpdateStatus(r.Context(), businessID, strings.TrimSpace(req.AppointmentID), status)
	if err != nil {
		h.fail(w, r, "update status", err)
		return
	}
	writeAppointment(w, appt)
}

func (h *BookingHandler) Cancel(w http.ResponseWriter, r *http.Request) {
	businessID, ok := tenantFrom(w, r)
	if !ok {
		return
	}
	var req cancelRequest
	if !decode(w, r, &req) {
		return
	}

	appt, err := h.engine.CancelAppointment(r.Context(), businessID, strings.TrimSpace(req.AppointmentID), strings.TrimSpace(req.Reason))
	if err != nil {
		h.fail(w, r, "cancel", err)
		return
	}
	writeAppointment(w, appt)
}

func (h *BookingHandler) Reschedule(w http.ResponseWriter, r *http.Request) {
	businessID, ok := tenantFrom(w, r)
	if !ok {
		return
	}
	var req rescheduleRequest
	if !decode(w, r, &req) {
		return
	}
	date, err := parseDate(req.Date)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_date")
		return
	}

	appt, err := h.engine.Reschedule(r.Context(), businessID, strings.TrimSpace(req.AppointmentID), date, strings.TrimSpace(req.TimeSlot))
	if err != nil {
		h.fail(w, r, "reschedule", err)
		return
	}
	writeAppointment(w, appt)
}

func (h *BookingHandler) List(w http.ResponseWriter, r *http.Request) {
	businessID, ok := tenantFrom(w, r)
	if !ok {
		return
	}
	q := r.URL.Query()
	date, err := parseDate(q.Get("date"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_date")
		return
	}

	appts, err := h.engine.ListDay(r.Context(), businessID, strings.TrimSpace(q.Get("professional_id")), date)
	if err != nil {
		h.fail(w, r, "list", err)
		return
	}

	resp := listResponse{Appointments: make([]appointmentItem, 0, len(appts))}
	for _, a := range appts {
		resp.Appointments = append(resp.Appointments, toItem(a))
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *BookingHandler) Get(w http.ResponseWriter, r *http.Request) {
	businessID, ok := tenantFrom(w, r)
	if !ok {
		return
	}
	appt, err := h.engine.GetAppointment(r.Context(), businessID, chi.URLParam(r, "id"))
	if err != nil {
		h.fail(w, r, "get", err)
		return
	}
	writeAppointment(w, appt)
}

// fail maps engine errors onto status codes. Anything unrecognised is logged and hidden.
func (h *BookingHandler) fail(w http.ResponseWriter, r *http.Request, op string, err error) {
	switch {
	case errors.Is(err, booking.ErrSlotTaken):
		writeError(w, http.StatusConflict, "slot_taken")
	case errors.Is(err, model.ErrInvalidTransition):
		writeError(w, http.StatusConflict, "invalid_transition")
	case errors.Is(err, booking.ErrServiceNotFound):
		writeError(w, http.StatusNotFound, "service_not_found")
	case errors.Is(err, booking.ErrAppointmentNotFound):
		writeError(w, http.StatusNotFound, "appointment_not_found")
	case errors.Is(err, booking.ErrProfessionalInactive):
		writeError(w, http.StatusUnprocessableEntity, "professional_inactive")
	case errors.Is(err, booking.ErrInvalidRequest):
		writeError(w, http.StatusBadRequest, "invalid_request")
	default:
		h.logger.ErrorContext(r.Context(), op+" failed", "err", err)
		writeError(w, http.StatusInternalServerError, "internal_error")
	}
}

func tenantFrom(w http.ResponseWriter, r *http.Request) (string, bool) {
	businessID, ok := tenancy.TenantIDFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusBadRequest, "business_id required")
		return "", false
	}
	return businessID, true
}

func decode(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json body")
		return false
	}
	return true
}

func parseDate(raw string) (time.Time, error) {
	return time.Parse(timeutil.DateLayout, strings.TrimSpace(raw))
}

func toItem(a model.Appointment) appointmentItem {
	item := appointmentItem{
		AppointmentID:  a.ID,
		ProfessionalID: a.StaffID,
		ServiceID:      a.ServiceID,
		ClientID:       a.ContactID,
		StartTime:      a.StartTime.UTC().Format(time.RFC3339),
		EndTime:        a.EndTime.UTC().Format(time.RFC3339),
		Status:         string(a.Status),
		CancelReason:   a.CancelReason,
	}
	if a.TotalAmount != nil {
		item.TotalAmount = *a.TotalAmount
	}
	if a.CancelledAt != nil {
		item.CancelledAt = a.CancelledAt.UTC().Format(time.RFC3339)
	}
	return item
}

func writeAppointment(w http.ResponseWriter, a model.Appointment) {
	item := toItem(a)
	writeJSON(w, http.StatusOK, appointmentResponse{Success: true, Appointment: &item})
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, bookResponse{Success: false, Error: msg})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	body, err := json.Marshal(v)
	if err != nil {
		http.Error(w, "failed to build response", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(body)
}
