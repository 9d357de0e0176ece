package scheduling

import (
	"errors"
	"time"
)

// Status is the lifecycle state of an appointment.
type Status string

const (
	StatusUpcoming  Status = "upcoming"
	StatusCompleted Status = "completed"
	StatusCancelled Status = "cancelled"
)

// DateLayout is the calendar-date format used for appointment dates.
const DateLayout = "2006-01-02"

// Common errors returned by the scheduler. In every case the appointment
// collection is returned unchanged.
var (
	ErrInvalidDate         = errors.New("date must be formatted as YYYY-MM-DD")
	ErrPastDate            = errors.New("date is in the past")
	ErrUnknownSlot         = errors.New("time is not a bookable slot")
	ErrSlotTaken           = errors.New("slot is already booked")
	ErrMissingTreatment    = errors.New("treatmentType is required")
	ErrAppointmentNotFound = errors.New("appointment not found")
	ErrNotUpcoming         = errors.New("appointment is not upcoming")
	ErrNoTimeSelected      = errors.New("no time slot selected")
)

// PrescribedMed is a medication prescribed during a visit.
type PrescribedMed struct {
	Name     string `json:"name"`
	Duration string `json:"duration"`
}

// Appointment is a single clinic visit.
type Appointment struct {
	ID                    string          `json:"id"`
	DoctorName            string          `json:"doctorName"`
	TreatmentType         string          `json:"treatmentType"`
	Date                  string          `json:"date"`
	Time                  string          `json:"time"`
	Status                Status          `json:"status"`
	HistorySummary        string          `json:"historySummary,omitempty"`
	PrescribedMedications []PrescribedMed `json:"prescribedMedications,omitempty"`
	VisitNotes            string          `json:"visitNotes,omitempty"`
}

// IsUpcoming reports whether the appointment still occupies its slot.
func (a Appointment) IsUpcoming() bool { return a.Status == StatusUpcoming }

// clone returns a copy that shares no slices with a.
func (a Appointment) clone() Appointment {
	if a.PrescribedMedications != nil {
		meds := make([]PrescribedMed, len(a.PrescribedMedications))
		copy(meds, a.PrescribedMedications)
		a.PrescribedMedications = meds
	}
	return a
}

// Clone returns a deep copy of the collection.
func Clone(appts []Appointment) []Appointment {
	if appts == nil {
		return nil
	}
	out := make([]Appointment, len(appts))
	for i, a := range appts {
		out[i] = a.clone()
	}
	return out
}

// BookingRequest is the input of a booking confirmation.
type BookingRequest struct {
	Date          string `json:"date"`
	Time          string `json:"time"`
	TreatmentType string `json:"treatmentType"`
}

// Slot is one catalog time label for a given date.
type Slot struct {
	Time   string `json:"time"`
	Booked bool   `json:"booked"`
}

// ParseDate parses a YYYY-MM-DD calendar date in UTC.
func ParseDate(s string) (time.Time, error) {
	d, err := time.Parse(DateLayout, s)
	if err != nil {
		return time.Time{}, ErrInvalidDate
	}
	return d, nil
}

// FormatDate formats t as a calendar date in t's location.
func FormatDate(t time.Time) string {
	return t.Format(DateLayout)
}
