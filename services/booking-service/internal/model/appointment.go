package model

import "time"

type Appointment struct {
	ID           string
	BusinessID   string
	ContactID    string
	StaffID      string
	ServiceID    string
	StartTime    time.Time
	EndTime      time.Time
	Status       Status
	TotalAmount  *string
	CancelledAt  *time.Time
	CancelReason string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// Blocking reports whether the appointment occupies its interval on the staff calendar.
func (a Appointment) Blocking() bool {
	return a.Status != StatusCancelled
}

// Service is a bookable offering. Price is kept as the database's numeric text.
type Service struct {
	ID           string
	BusinessID   string
	Title        string
	Price        string
	DurationMins int
	Category     string
}

// Professional is a staff member whose calendar is scheduled against.
type Professional struct {
	ID         string
	BusinessID string
	Name       string
	IsActive   bool
	Color      string
}
