package outbox

import (
	"encoding/json"
	"time"
)

const (
	AggregateAppointment = "appointment"

	EventAppointmentBooked        = "booking.appointment.booked.v1"
	EventAppointmentStatusChanged = "booking.appointment.status_changed.v1"
	EventAppointmentRescheduled   = "booking.appointment.rescheduled.v1"
)

// Event is the envelope written to outbox_events. The Kafka topic equals EventType.
type Event struct {
	AggregateType string
	AggregateID   string
	EventType     string
	Payload       []byte
}

// AppointmentPayload is the JSON body of every appointment event.
type AppointmentPayload struct {
	AppointmentID  string    `json:"appointment_id"`
	BusinessID     string    `json:"business_id"`
	StaffID        string    `json:"staff_id"`
	ServiceID      string    `json:"service_id"`
	ContactID      string    `json:"contact_id,omitempty"`
	StartTime      time.Time `json:"start_time"`
	EndTime        time.Time `json:"end_time"`
	Status         string    `json:"status"`
	PreviousStatus string    `json:"previous_status,omitempty"`
	PreviousStart  time.Time `json:"previous_start_time,omitzero"`
	Reason         string    `json:"reason,omitempty"`
	TotalAmount    string    `json:"total_amount,omitempty"`
	OccurredAt     time.Time `json:"occurred_at"`
}

func NewAppointmentEvent(eventType string, p AppointmentPayload) (Event, error) {
	if p.OccurredAt.IsZero() {
		p.OccurredAt = time.Now().UTC()
	}
	body, err := json.Marshal(p)
	if err != nil {
		return Event{}, err
	}
	return Event{
		AggregateType: AggregateAppointment,
		AggregateID:   p.AppointmentID,
		EventType:     eventType,
		Payload:       body,
	}, nil
}
