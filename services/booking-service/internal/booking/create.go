package booking

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/md-rashed-zaman/salonbook/services/booking-service/internal/model"
	"github.com/md-rashed-zaman/salonbook/services/booking-service/internal/outbox"
	"github.com/md-rashed-zaman/salonbook/services/booking-service/internal/storage"
	"github.com/md-rashed-zaman/salonbook/services/booking-service/internal/timeutil"
	"go.opentelemetry.io/otel/attribute"
)

type Request struct {
	TenantID       string
	ServiceID      string
	ProfessionalID string
	// Date supplies the calendar day; its clock and location are ignored.
	Date     time.Time
	TimeSlot string
	// ContactID is optional for staff-created appointments.
	ContactID string
	// Phone, when set, is written to the contact after the appointment commits.
	Phone string
	// InitialStatus defaults to confirmed. Staff flows may create pending appointments.
	InitialStatus model.Status
}

func (r Request) validate() error {
	switch {
	case !validID(r.TenantID):
		return fmt.Errorf("%w: missing tenant", ErrInvalidRequest)
	case !validID(r.ServiceID):
		return fmt.Errorf("%w: service_id", ErrInvalidRequest)
	case !validID(r.ProfessionalID):
		return fmt.Errorf("%w: professional_id", ErrInvalidRequest)
	case r.ContactID != "" && !validID(r.ContactID):
		return fmt.Errorf("%w: client_id", ErrInvalidRequest)
	case r.Date.IsZero():
		return fmt.Errorf("%w: date", ErrInvalidRequest)
	case r.InitialStatus != "" && !model.InitialStatus(r.InitialStatus):
		return fmt.Errorf("%w: initial status %q", ErrInvalidRequest, r.InitialStatus)
	}
	return nil
}

// CreateAppointment books the requested slot and returns the new appointment id.
// A slot taken between the availability read and the commit yields ErrSlotTaken.
func (e *Engine) CreateAppointment(ctx context.Context, req Request) (id string, err error) {
	ctx, span := e.tracer.Start(ctx, "booking.CreateAppointment", spanAttrs(req.TenantID, req.ProfessionalID))
	defer func() {
		e.metrics.ObserveBooking(bookingResult(err))
		endSpan(span, err)
	}()

	if err := req.validate(); err != nil {
		return "", err
	}
	settings, err := e.settings(ctx, req.TenantID)
	if err != nil {
		return "", err
	}
	loc := settings.Location()
	start, err := timeutil.At(req.Date, req.TimeSlot, loc)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidRequest, err)
	}

	svc, err := e.service(ctx, req.TenantID, req.ServiceID)
	if err != nil {
		return "", err
	}
	if err := e.activeProfessional(ctx, req.TenantID, req.ProfessionalID); err != nil {
		return "", err
	}
	end := timeutil.AddMinutes(start, svc.DurationMins)
	span.SetAttributes(attribute.String("appointment.start", start.Format(time.RFC3339)))

	taken, err := e.HasConflict(ctx, req.TenantID, req.ProfessionalID, start, end)
	if err != nil {
		return "", err
	}
	if taken {
		return "", ErrSlotTaken
	}

	status := req.InitialStatus
	if status == "" {
		status = model.StatusConfirmed
	}
	appt := model.Appointment{
		ID:         e.newID(),
		BusinessID: req.TenantID,
		ContactID:  req.ContactID,
		StaffID:    req.ProfessionalID,
		ServiceID:  req.ServiceID,
		StartTime:  start,
		EndTime:    end,
		Status:     status,
	}
	evt, err := outbox.NewAppointmentEvent(outbox.EventAppointmentBooked, payloadFor(appt))
	if err != nil {
		return "", fmt.Errorf("booking: encode event: %w", err)
	}
	if err := e.store.CreateAppointment(ctx, appt, evt); err != nil {
		if errors.Is(err, storage.ErrOverlap) {
			return "", ErrSlotTaken
		}
		return "", fmt.Errorf("booking: create appointment: %w", err)
	}
	span.SetAttributes(attribute.String("appointment.id", appt.ID))

	e.updatePhone(ctx, req)
	e.invalidate(ctx, req.TenantID, req.ProfessionalID, loc, start)
	e.logger.Info("appointment booked",
		"business_id", req.TenantID,
		"appointment_id", appt.ID,
		"staff_id", req.ProfessionalID,
		"start", start.Format(time.RFC3339),
		"status", string(status),
	)
	return appt.ID, nil
}

// updatePhone runs after the appointment is committed. Its failure never undoes the booking.
func (e *Engine) updatePhone(ctx context.Context, req Request) {
	if req.Phone == "" || req.ContactID == "" {
		return
	}
	ok, err := e.store.UpdateContactPhone(ctx, req.TenantID, req.ContactID, req.Phone)
	switch {
	case err != nil:
		e.logger.Warn("contact phone update failed", "business_id", req.TenantID, "contact_id", req.ContactID, "err", err)
		e.metrics.ObserveSideEffectFailure("contact_phone")
	case !ok:
		e.logger.Warn("contact phone update matched no contact", "business_id", req.TenantID, "contact_id", req.ContactID)
		e.metrics.ObserveSideEffectFailure("contact_phone")
	}
}

func payloadFor(a model.Appointment) outbox.AppointmentPayload {
	p := outbox.AppointmentPayload{
		AppointmentID: a.ID,
		BusinessID:    a.BusinessID,
		StaffID:       a.StaffID,
		ServiceID:     a.ServiceID,
		ContactID:     a.ContactID,
		StartTime:     a.StartTime.UTC(),
		EndTime:       a.EndTime.UTC(),
		Status:        string(a.Status),
		Reason:        a.CancelReason,
	}
	if a.TotalAmount != nil {
		p.TotalAmount = *a.TotalAmount
	}
	return p
}

func bookingResult(err error) string {
	switch {
	case err == nil:
		return "success"
	case errors.Is(err, ErrSlotTaken):
		return "slot_taken"
	case errors.Is(err, ErrServiceNotFound):
		return "service_not_found"
	case errors.Is(err, ErrProfessionalInactive):
		return "professional_inactive"
	case errors.Is(err, ErrInvalidRequest):
		return "invalid_request"
	case errors.Is(err, ErrAppointmentNotFound):
		return "not_found"
	case errors.Is(err, model.ErrInvalidTransition):
		return "invalid_transition"
	default:
		return "error"
	}
}
