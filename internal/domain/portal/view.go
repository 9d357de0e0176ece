package portal

import (
	"errors"
	"fmt"
)

// View is the screen the portal is showing.
type View string

const (
	ViewAuth               View = "AUTH"
	ViewDashboard          View = "DASHBOARD"
	ViewBookingCalendar    View = "BOOKING_CALENDAR"
	ViewAppointments       View = "APPOINTMENTS"
	ViewMedications        View = "MEDICATIONS"
	ViewRecords            View = "RECORDS"
	ViewChat               View = "CHAT"
	ViewProfile            View = "PROFILE"
	ViewNotificationDetail View = "NOTIFICATION_DETAIL"
	ViewTerms              View = "TERMS"
)

// Views lists every view in navigation order.
var Views = []View{
	ViewAuth, ViewDashboard, ViewBookingCalendar, ViewAppointments, ViewMedications,
	ViewRecords, ViewChat, ViewProfile, ViewNotificationDetail, ViewTerms,
}

var (
	ErrUnknownView       = errors.New("unknown view")
	ErrSignInRequired    = errors.New("sign in required")
	ErrInvalidTransition = errors.New("view transition not allowed")
)

// ParseView validates a view name.
func ParseView(s string) (View, error) {
	for _, v := range Views {
		if string(v) == s {
			return v, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownView, s)
}
