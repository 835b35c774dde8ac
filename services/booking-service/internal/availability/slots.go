package availability

import (
	"time"

	"github.com/md-rashed-zaman/salonbook/services/booking-service/internal/timeutil"
)

type Interval struct {
	Start time.Time
	End   time.Time
}

type Reason string

const (
	ReasonNone   Reason = "none"
	ReasonBooked Reason = "booked"
	ReasonBuffer Reason = "buffer"
	ReasonClosed Reason = "closed"
)

type Slot struct {
	Time      string    `json:"time"`
	Start     time.Time `json:"start"`
	End       time.Time `json:"end"`
	Available bool      `json:"available"`
	Reason    Reason    `json:"reason"`
}

// Window describes one business day for a single staff member.
type Window struct {
	DayStart time.Time
	DayEnd   time.Time
	Step     time.Duration
	// Buffer is the trailing gap kept free after every existing appointment.
	Buffer time.Duration
	// Closed marks a day the business does not open; every candidate is reported closed.
	Closed bool
	// Candidates starting before Now are reported closed. Zero disables the check.
	Now time.Time
}

// Generate walks candidate starts from DayStart in Step increments and classifies each one
// against the busy intervals. The walk stops at the first candidate whose service would end
// after DayEnd, so a service that fits nowhere yields no slots.
//
// All times are expected to be in the same location (timezone).
func Generate(w Window, duration time.Duration, busy []Interval) []Slot {
	if duration <= 0 || w.Step <= 0 {
		return nil
	}
	if !w.DayEnd.After(w.DayStart) {
		return nil
	}

	var slots []Slot
	for t := w.DayStart; ; t = t.Add(w.Step) {
		end := t.Add(duration)
		if end.After(w.DayEnd) {
			break
		}
		slot := Slot{
			Time:      timeutil.FormatClock(t),
			Start:     t,
			End:       end,
			Available: true,
			Reason:    ReasonNone,
		}
		switch {
		case w.Closed, !w.Now.IsZero() && t.Before(w.Now):
			slot.Available = false
			slot.Reason = ReasonClosed
		default:
			if reason := classify(t, end, w.Buffer, busy); reason != ReasonNone {
				slot.Available = false
				slot.Reason = reason
			}
		}
		slots = append(slots, slot)
	}
	return slots
}

// classify returns booked when [start,end) hits an existing appointment, buffer when it only
// hits the trailing buffer of one, and none otherwise.
func classify(start, end time.Time, buffer time.Duration, busy []Interval) Reason {
	reason := ReasonNone
	for _, b := range busy {
		if timeutil.Overlaps(start, end, b.Start, b.End) {
			return ReasonBooked
		}
		if buffer > 0 && timeutil.Overlaps(start, end, b.End, b.End.Add(buffer)) {
			reason = ReasonBuffer
		}
	}
	return reason
}
