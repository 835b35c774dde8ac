package booking

import "errors"

var (
	// ErrSlotTaken means the requested interval overlaps a non-cancelled appointment of the same
	// professional, whether detected before the write or by the database at commit.
	ErrSlotTaken            = errors.New("slot taken")
	ErrServiceNotFound      = errors.New("service not found")
	ErrProfessionalInactive = errors.New("professional inactive")
	ErrAppointmentNotFound  = errors.New("appointment not found")
	ErrInvalidRequest       = errors.New("invalid request")
)
