package scheduling

import (
	"strings"
	"time"
)

// Services offered on the booking screen. The first entry is the default.
var Services = []string{
	"General Checkup",
	"Teeth Whitening",
	"Root Canal Therapy",
	"Dental Hygiene",
	"Orthodontic Consult",
}

// DefaultService is preselected whenever the calendar is reset.
const DefaultService = "General Checkup"

// Calendar is the booking screen's navigation state: the displayed month,
// the selected date, time and service.
type Calendar struct {
	Month   time.Time `json:"-"`
	Date    string    `json:"selectedDate"`
	Time    string    `json:"selectedTime,omitempty"`
	Service string    `json:"service"`
}

// NewCalendar returns a calendar showing today's month with today selected.
func NewCalendar(today time.Time) Calendar {
	return Calendar{
		Month:   firstOfMonth(today),
		Date:    FormatDate(today),
		Service: DefaultService,
	}
}

func firstOfMonth(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, time.UTC)
}

// MonthLabel returns the displayed month as YYYY-MM.
func (c Calendar) MonthLabel() string {
	return c.Month.Format("2006-01")
}

// ChangeMonth moves the displayed month by offset months. The selection is
// kept.
func (c *Calendar) ChangeMonth(offset int) {
	c.Month = firstOfMonth(c.Month).AddDate(0, offset, 0)
}

// DaysInMonth returns the number of days in the displayed month.
func (c Calendar) DaysInMonth() int {
	return c.Month.AddDate(0, 1, -1).Day()
}

// LeadingBlanks returns the weekday of the first of the displayed month,
// counting Sunday as zero.
func (c Calendar) LeadingBlanks() int {
	return int(firstOfMonth(c.Month).Weekday())
}

// SelectDay selects a day of the displayed month. Days before today and
// days outside the month are rejected without changing the selection.
func (c *Calendar) SelectDay(day int, today string) error {
	if day < 1 || day > c.DaysInMonth() {
		return ErrInvalidDate
	}
	d := time.Date(c.Month.Year(), c.Month.Month(), day, 0, 0, 0, 0, time.UTC)
	return c.SelectDate(FormatDate(d), today)
}

// SelectDate selects an arbitrary date and shows its month. A changed date
// clears the selected time.
func (c *Calendar) SelectDate(date, today string) error {
	d, err := ParseDate(date)
	if err != nil {
		return err
	}
	if date < today {
		return ErrPastDate
	}
	if date != c.Date {
		c.Time = ""
	}
	c.Date = date
	c.Month = firstOfMonth(d)
	return nil
}

// SelectTime selects a slot label.
func (c *Calendar) SelectTime(slot string) {
	c.Time = slot
}

// SelectService selects the treatment to book. Blank input restores the
// default service.
func (c *Calendar) SelectService(service string) {
	service = strings.TrimSpace(service)
	if service == "" {
		service = DefaultService
	}
	c.Service = service
}

// Request returns the booking request for the current selection.
func (c Calendar) Request() (BookingRequest, error) {
	if c.Time == "" {
		return BookingRequest{}, ErrNoTimeSelected
	}
	return BookingRequest{Date: c.Date, Time: c.Time, TreatmentType: c.Service}, nil
}
