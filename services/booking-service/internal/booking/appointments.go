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

// UpdateStatus moves an appointment to status. Moving a cancelled appointment back onto the calendar
// fails with ErrSlotTaken when its interval has been booked since.
func (e *Engine) UpdateStatus(ctx context.Context, businessID, appointmentID string, status model.Status) (model.Appointment, error) {
	return e.changeStatus(ctx, businessID, appointmentID, status, "")
}

// CancelAppointment cancels with a reason. Cancelling twice keeps the first cancellation.
func (e *Engine) CancelAppointment(ctx context.Context, businessID, appointmentID, reason string) (model.Appointment, error) {
	return e.changeStatus(ctx, businessID, appointmentID, model.StatusCancelled, reason)
}

func (e *Engine) changeStatus(ctx context.Context, businessID, appointmentID string, to model.Status, reason string) (appt model.Appointment, err error) {
	ctx, span := e.tracer.Start(ctx, "booking.UpdateStatus")
	defer func() {
		e.metrics.ObserveStatusUpdate(string(to), bookingResult(err))
		endSpan(span, err)
	}()
	span.SetAttributes(
		attribute.String("business.id", businessID),
		attribute.String("appointment.id", appointmentID),
		attribute.String("appointment.status", string(to)),
	)

	if !validID(businessID) || !validID(appointmentID) {
		return model.Appointment{}, ErrInvalidRequest
	}
	if !to.Valid() {
		return model.Appointment{}, fmt.Errorf("%w: unknown status %q", ErrInvalidRequest, to)
	}

	var price *string
	if to == model.StatusCompleted {
		price = e.completionPrice(ctx, businessID, appointmentID)
	}

	var previous model.Status
	updated, err := e.store.UpdateAppointment(ctx, businessID, appointmentID, func(cur model.Appointment) (model.Appointment, outbox.Event, error) {
		if err := model.Transition(cur.Status, to); err != nil {
			return model.Appointment{}, outbox.Event{}, err
		}
		previous = cur.Status
		next := cur
		next.Status = to
		switch {
		case to == model.StatusCancelled && cur.Status != model.StatusCancelled:
			now := e.now().UTC()
			next.CancelledAt = &now
			next.CancelReason = reason
		case to == model.StatusCancelled && reason != "" && cur.CancelReason == "":
			next.CancelReason = reason
		case model.Reopens(cur.Status, to):
			next.CancelledAt = nil
			next.CancelReason = ""
		}
		if to == model.StatusCompleted && next.TotalAmount == nil {
			next.TotalAmount = price
		}
		p := payloadFor(next)
		p.PreviousStatus = string(cur.Status)
		evt, err := outbox.NewAppointmentEvent(outbox.EventAppointmentStatusChanged, p)
		return next, evt, err
	})
	if err != nil {
		return model.Appointment{}, e.mapWriteError(err)
	}

	e.invalidateFor(ctx, businessID, updated, updated.StartTime)
	e.logger.Info("appointment status changed",
		"business_id", businessID,
		"appointment_id", appointmentID,
		"from", string(previous),
		"to", string(to),
	)
	return updated, nil
}

// completionPrice is the service price billed when an appointment completes. It returns nil
// when the price cannot be resolved; the amount is then left for the financial system to set.
func (e *Engine) completionPrice(ctx context.Context, businessID, appointmentID string) *string {
	cur, err := e.store.GetAppointment(ctx, businessID, appointmentID)
	if err != nil || cur.TotalAmount != nil {
		return nil
	}
	svc, err := e.store.GetService(ctx, businessID, cur.ServiceID)
	if err != nil {
		e.logger.Warn("service price unavailable for completed appointment",
			"business_id", businessID, "appointment_id", appointmentID, "err", err)
		return nil
	}
	if svc.Price == "" {
		return nil
	}
	price := svc.Price
	return &price
}

// Reschedule moves an appointment to a new start on date, keeping its duration and professional.
func (e *Engine) Reschedule(ctx context.Context, businessID, appointmentID string, date time.Time, timeSlot string) (appt model.Appointment, err error) {
	ctx, span := e.tracer.Start(ctx, "booking.Reschedule")
	defer func() { endSpan(span, err) }()
	span.SetAttributes(attribute.String("business.id", businessID), attribute.String("appointment.id", appointmentID))

	if !validID(businessID) || !validID(appointmentID) || date.IsZero() {
		return model.Appointment{}, ErrInvalidRequest
	}
	settings, err := e.settings(ctx, businessID)
	if err != nil {
		return model.Appointment{}, err
	}
	start, err := timeutil.At(date, timeSlot, settings.Location())
	if err != nil {
		return model.Appointment{}, fmt.Errorf("%w: %v", ErrInvalidRequest, err)
	}

	var previousStart time.Time
	updated, err := e.store.UpdateAppointment(ctx, businessID, appointmentID, func(cur model.Appointment) (model.Appointment, outbox.Event, error) {
		if cur.Status.Terminal() {
			return model.Appointment{}, outbox.Event{}, fmt.Errorf("%w: cannot reschedule a %s appointment", model.ErrInvalidTransition, cur.Status)
		}
		previousStart = cur.StartTime
		next := cur
		next.StartTime = start
		next.EndTime = start.Add(cur.EndTime.Sub(cur.StartTime))
		p := payloadFor(next)
		p.PreviousStart = cur.StartTime.UTC()
		evt, err := outbox.NewAppointmentEvent(outbox.EventAppointmentRescheduled, p)
		return next, evt, err
	})
	if err != nil {
		return model.Appointment{}, e.mapWriteError(err)
	}

	e.invalidateFor(ctx, businessID, updated, previousStart, updated.StartTime)
	e.logger.Info("appointment rescheduled",
		"business_id", businessID,
		"appointment_id", appointmentID,
		"from", previousStart.Format(time.RFC3339),
		"to", updated.StartTime.Format(time.RFC3339),
	)
	return updated, nil
}

func (e *Engine) GetAppointment(ctx context.Context, businessID, appointmentID string) (model.Appointment, error) {
	if !validID(businessID) || !validID(appointmentID) {
		return model.Appointment{}, ErrInvalidRequest
	}
	appt, err := e.store.GetAppointment(ctx, businessID, appointmentID)
	if storage.IsNotFound(err) {
		return model.Appointment{}, ErrAppointmentNotFound
	}
	if err != nil {
		return model.Appointment{}, fmt.Errorf("booking: get appointment: %w", err)
	}
	return appt, nil
}

// ListDay returns the day's appointments, cancelled ones included, for one professional or,
// when professionalID is empty, for the whole business.
func (e *Engine) ListDay(ctx context.Context, businessID, professionalID string, date time.Time) ([]model.Appointment, error) {
	if !validID(businessID) || (professionalID != "" && !validID(professionalID)) || date.IsZero() {
		return nil, ErrInvalidRequest
	}
	settings, err := e.settings(ctx, businessID)
	if err != nil {
		return nil, err
	}
	from := localDay(date, settings.Location())
	appts, err := e.store.ListDay(ctx, businessID, professionalID, from, from.AddDate(0, 0, 1))
	if err != nil {
		return nil, fmt.Errorf("booking: list day: %w", err)
	}
	if appts == nil {
		appts = []model.Appointment{}
	}
	return appts, nil
}

func (e *Engine) mapWriteError(err error) error {
	switch {
	case storage.IsNotFound(err):
		return ErrAppointmentNotFound
	case errors.Is(err, storage.ErrOverlap):
		return ErrSlotTaken
	case errors.Is(err, model.ErrInvalidTransition):
		return err
	default:
		return fmt.Errorf("booking: update appointment: %w", err)
	}
}

func (e *Engine) invalidateFor(ctx context.Context, businessID string, appt model.Appointment, days ...time.Time) {
	loc := time.UTC
	if settings, err := e.schedule.Settings(ctx, businessID); err == nil {
		loc = settings.Location()
	}
	e.invalidate(ctx, businessID, appt.StaffID, loc, days...)
}
