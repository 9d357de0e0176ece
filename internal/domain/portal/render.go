package portal

import (
	"fmt"
	"strings"

	"github.com/luminous/portal/internal/domain/chat"
	"github.com/luminous/portal/internal/domain/identity"
	"github.com/luminous/portal/internal/domain/inbox"
	"github.com/luminous/portal/internal/domain/medication"
	"github.com/luminous/portal/internal/domain/records"
	"github.com/luminous/portal/internal/domain/scheduling"
	"github.com/luminous/portal/internal/platform/aigateway"
	"github.com/luminous/portal/internal/platform/audio"
)

// ViewModel is what the client renders for the current view.
type ViewModel struct {
	View        View   `json:"view"`
	Title       string `json:"title"`
	UnreadCount int    `json:"unreadCount"`
	Data        any    `json:"data"`
}

type AuthModel struct {
	Clinic string `json:"clinic"`
}

type DashboardModel struct {
	User                identity.Profile        `json:"user"`
	NextAppointment     *scheduling.Appointment `json:"nextAppointment"`
	ActiveMedications   int                     `json:"activeMedications"`
	PendingMedications  int                     `json:"pendingMedications"`
	UnreadNotifications int                     `json:"unreadNotifications"`
	Tip                 string                  `json:"tip"`
	Premium             bool                    `json:"premium"`
}

type CalendarModel struct {
	Month         string            `json:"month"`
	DaysInMonth   int               `json:"daysInMonth"`
	LeadingBlanks int               `json:"leadingBlanks"`
	Today         string            `json:"today"`
	SelectedDate  string            `json:"selectedDate"`
	SelectedTime  string            `json:"selectedTime,omitempty"`
	Service       string            `json:"service"`
	Services      []string          `json:"services"`
	Slots         []scheduling.Slot `json:"slots"`
}

type AppointmentsModel struct {
	Upcoming []scheduling.Appointment `json:"upcoming"`
	History  []scheduling.Appointment `json:"history"`
}

type MedicationsModel struct {
	Medications []medication.Medication `json:"medications"`
	Pending     int                     `json:"pending"`
}

type RecordsModel struct {
	Records        []records.Item `json:"records"`
	SelectedRecord *records.Item  `json:"selectedRecord"`
	Languages      []string       `json:"languages"`
	Language       string         `json:"language"`
	Loading        bool           `json:"loading"`
	Explanation    *Explanation   `json:"explanation"`
	Audio          audio.State    `json:"audio"`
}

type ChatModel struct {
	SessionID    string         `json:"sessionId"`
	Messages     []chat.Message `json:"messages"`
	QuickActions []string       `json:"quickActions"`
	Loading      bool           `json:"loading"`
}

type ProfileModel struct {
	Profile     identity.Profile     `json:"profile"`
	Editing     bool                 `json:"editing"`
	Draft       *identity.Profile    `json:"draft,omitempty"`
	Preferences identity.Preferences `json:"preferences"`
}

type NotificationDetailModel struct {
	Notification inbox.Notification `json:"notification"`
}

type TermsModel struct {
	Sections []TermsSection `json:"sections"`
}

// Title returns the header title of v.
func (v View) Title() string {
	switch v {
	case ViewNotificationDetail:
		return "Notification"
	case ViewTerms:
		return "Policy"
	case ViewBookingCalendar:
		return "Book Visit"
	case ViewAuth:
		return "Welcome"
	default:
		s := string(v)
		if s == "" {
			return ""
		}
		return s[:1] + strings.ToLower(s[1:])
	}
}

// Render builds the view model of the current view.
func (c *Controller) Render() (ViewModel, error) {
	st := &c.state
	vm := ViewModel{
		View:        st.View,
		Title:       st.View.Title(),
		UnreadCount: inbox.UnreadCount(st.Notifications),
	}

	switch st.View {
	case ViewAuth:
		vm.Data = AuthModel{Clinic: "Luminous Dental Care"}
	case ViewDashboard:
		m := DashboardModel{
			User:                st.Profile,
			ActiveMedications:   len(st.Medications),
			PendingMedications:  medication.PendingCount(st.Medications),
			UnreadNotifications: vm.UnreadCount,
			Tip:                 st.Tip,
			Premium:             st.Preferences.Premium,
		}
		if appt, ok := scheduling.NextUpcoming(st.Appointments); ok {
			m.NextAppointment = &appt
		}
		vm.Data = m
	case ViewBookingCalendar:
		cal := st.Calendar
		vm.Data = CalendarModel{
			Month:         cal.MonthLabel(),
			DaysInMonth:   cal.DaysInMonth(),
			LeadingBlanks: cal.LeadingBlanks(),
			Today:         c.scheduler.Today(),
			SelectedDate:  cal.Date,
			SelectedTime:  cal.Time,
			Service:       cal.Service,
			Services:      append([]string(nil), scheduling.Services...),
			Slots:         c.scheduler.Slots(cal.Date, st.Appointments),
		}
	case ViewAppointments:
		m := AppointmentsModel{Upcoming: []scheduling.Appointment{}, History: []scheduling.Appointment{}}
		for _, a := range scheduling.Clone(st.Appointments) {
			if a.IsUpcoming() {
				m.Upcoming = append(m.Upcoming, a)
			} else {
				m.History = append(m.History, a)
			}
		}
		vm.Data = m
	case ViewMedications:
		vm.Data = MedicationsModel{
			Medications: medication.Clone(st.Medications),
			Pending:     medication.PendingCount(st.Medications),
		}
	case ViewRecords:
		p := st.RecordsPanel
		m := RecordsModel{
			Records:     records.Clone(st.Records),
			Languages:   append([]string(nil), aigateway.Languages...),
			Language:    p.Language,
			Loading:     p.Loading,
			Explanation: p.Explanation,
			Audio:       c.player.State(),
		}
		if item, ok := records.Find(p.SelectedID, st.Records); ok {
			m.SelectedRecord = &item
		}
		vm.Data = m
	case ViewChat:
		m := ChatModel{QuickActions: append([]string(nil), chat.QuickActions...), Loading: st.ChatLoading}
		if s, ok := c.ChatSession(); ok {
			m.SessionID = s.ID
			m.Messages = s.Messages
		}
		vm.Data = m
	case ViewProfile:
		vm.Data = c.ProfileView()
	case ViewNotificationDetail:
		if st.SelectedNotification == nil {
			return ViewModel{}, fmt.Errorf("render %s: no notification selected", st.View)
		}
		n, ok := inbox.Find(*st.SelectedNotification, st.Notifications)
		if !ok {
			return ViewModel{}, inbox.ErrNotificationNotFound
		}
		vm.Data = NotificationDetailModel{Notification: n}
	case ViewTerms:
		vm.Data = TermsModel{Sections: append([]TermsSection(nil), Terms...)}
	default:
		return ViewModel{}, fmt.Errorf("%w: %q", ErrUnknownView, st.View)
	}
	return vm, nil
}

// ProfileView returns the profile screen model.
func (c *Controller) ProfileView() ProfileModel {
	m := ProfileModel{
		Profile:     c.state.Profile,
		Editing:     c.state.Editor.Editing,
		Preferences: c.state.Preferences,
	}
	if c.state.Editor.Editing {
		d := c.state.Editor.Draft
		m.Draft = &d
	}
	return m
}
