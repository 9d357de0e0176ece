package scheduling

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// DefaultSlots is the daily catalog of bookable time labels: a morning,
// an afternoon and an evening band.
var DefaultSlots = []string{
	"10:00 AM", "10:30 AM", "11:00 AM", "11:30 AM",
	"02:00 PM", "02:30 PM", "03:00 PM", "03:30 PM", "04:00 PM", "04:30 PM",
	"07:00 PM", "07:30 PM", "08:00 PM", "08:30 PM",
}

const (
	// DefaultDoctor is assigned to every appointment booked through the portal.
	DefaultDoctor = "Dr. Faiz"
	// IntakeSummary is the history summary of a freshly booked appointment.
	IntakeSummary = "Pre-consultation intake completed. Waiting for doctor evaluation."
)

// Scheduler computes slot availability and produces new appointment
// collections for booking, cancellation and note taking. It never mutates
// the collections it is given.
type Scheduler struct {
	slots  []string
	known  map[string]struct{}
	doctor string
	now    func() time.Time
	newID  func() string
}

// Option configures a Scheduler.
type Option func(*Scheduler)

// WithClock sets the clock used to decide which dates are in the past.
func WithClock(now func() time.Time) Option {
	return func(s *Scheduler) { s.now = now }
}

// WithDoctor overrides the doctor assigned to new bookings.
func WithDoctor(name string) Option {
	return func(s *Scheduler) {
		if name != "" {
			s.doctor = name
		}
	}
}

// WithIDGenerator overrides how appointment ids are generated.
func WithIDGenerator(f func() string) Option {
	return func(s *Scheduler) { s.newID = f }
}

// WithSlots replaces the slot catalog.
func WithSlots(slots []string) Option {
	return func(s *Scheduler) { s.slots = append([]string(nil), slots...) }
}

// NewScheduler creates a Scheduler over DefaultSlots.
func NewScheduler(opts ...Option) *Scheduler {
	s := &Scheduler{
		slots:  append([]string(nil), DefaultSlots...),
		doctor: DefaultDoctor,
		now:    time.Now,
		newID:  func() string { return uuid.New().String() },
	}
	for _, opt := range opts {
		opt(s)
	}
	s.known = make(map[string]struct{}, len(s.slots))
	for _, slot := range s.slots {
		s.known[slot] = struct{}{}
	}
	return s
}

// Catalog returns a copy of the slot catalog in display order.
func (s *Scheduler) Catalog() []string {
	return append([]string(nil), s.slots...)
}

// Today returns the current UTC calendar date according to the scheduler
// clock.
func (s *Scheduler) Today() string {
	return FormatDate(s.Now())
}

// Now returns the scheduler clock's current time in UTC.
func (s *Scheduler) Now() time.Time {
	return s.now().UTC()
}

// IsPast reports whether date is strictly before today.
func (s *Scheduler) IsPast(date string) bool {
	return date < s.Today()
}

func isBooked(date, slot string, appts []Appointment) bool {
	for _, a := range appts {
		if a.Date == date && a.Time == slot && a.IsUpcoming() {
			return true
		}
	}
	return false
}

// AvailableSlots returns the catalog slots on date that no upcoming
// appointment occupies, in catalog order.
func (s *Scheduler) AvailableSlots(date string, appts []Appointment) []string {
	out := make([]string, 0, len(s.slots))
	for _, slot := range s.slots {
		if !isBooked(date, slot, appts) {
			out = append(out, slot)
		}
	}
	return out
}

// Slots returns every catalog slot on date with its booked flag.
func (s *Scheduler) Slots(date string, appts []Appointment) []Slot {
	out := make([]Slot, len(s.slots))
	for i, slot := range s.slots {
		out[i] = Slot{Time: slot, Booked: isBooked(date, slot, appts)}
	}
	return out
}

// Book validates req and appends a new upcoming appointment. On rejection
// the input collection is returned as is together with the reason.
func (s *Scheduler) Book(req BookingRequest, appts []Appointment) ([]Appointment, Appointment, error) {
	if _, err := ParseDate(req.Date); err != nil {
		return appts, Appointment{}, err
	}
	if s.IsPast(req.Date) {
		return appts, Appointment{}, ErrPastDate
	}
	if _, ok := s.known[req.Time]; !ok {
		return appts, Appointment{}, ErrUnknownSlot
	}
	treatment := strings.TrimSpace(req.TreatmentType)
	if treatment == "" {
		return appts, Appointment{}, ErrMissingTreatment
	}
	if isBooked(req.Date, req.Time, appts) {
		return appts, Appointment{}, ErrSlotTaken
	}

	appt := Appointment{
		ID:                    s.newID(),
		DoctorName:            s.doctor,
		TreatmentType:         treatment,
		Date:                  req.Date,
		Time:                  req.Time,
		Status:                StatusUpcoming,
		HistorySummary:        IntakeSummary,
		PrescribedMedications: []PrescribedMed{},
	}

	out := make([]Appointment, 0, len(appts)+1)
	out = append(out, Clone(appts)...)
	out = append(out, appt)
	return out, appt.clone(), nil
}

func indexOf(id string, appts []Appointment) int {
	for i, a := range appts {
		if a.ID == id {
			return i
		}
	}
	return -1
}

// Find returns the appointment with the given id.
func Find(id string, appts []Appointment) (Appointment, bool) {
	if i := indexOf(id, appts); i >= 0 {
		return appts[i].clone(), true
	}
	return Appointment{}, false
}

// Cancel moves an upcoming appointment to cancelled. Only the status field
// of that entry changes.
func Cancel(id string, appts []Appointment) ([]Appointment, error) {
	i := indexOf(id, appts)
	if i < 0 {
		return appts, ErrAppointmentNotFound
	}
	if !appts[i].IsUpcoming() {
		return appts, ErrNotUpcoming
	}
	out := Clone(appts)
	out[i].Status = StatusCancelled
	return out, nil
}

// SaveNotes replaces the visit notes of an appointment in any status.
func SaveNotes(id, notes string, appts []Appointment) ([]Appointment, error) {
	i := indexOf(id, appts)
	if i < 0 {
		return appts, ErrAppointmentNotFound
	}
	out := Clone(appts)
	out[i].VisitNotes = notes
	return out, nil
}

// NextUpcoming returns the first upcoming appointment in collection order.
func NextUpcoming(appts []Appointment) (Appointment, bool) {
	for _, a := range appts {
		if a.IsUpcoming() {
			return a.clone(), true
		}
	}
	return Appointment{}, false
}
