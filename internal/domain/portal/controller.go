package portal

import (
	"errors"
	"strings"

	"github.com/google/uuid"

	"github.com/luminous/portal/internal/domain/chat"
	"github.com/luminous/portal/internal/domain/identity"
	"github.com/luminous/portal/internal/domain/inbox"
	"github.com/luminous/portal/internal/domain/medication"
	"github.com/luminous/portal/internal/domain/records"
	"github.com/luminous/portal/internal/domain/scheduling"
	"github.com/luminous/portal/internal/platform/aigateway"
	"github.com/luminous/portal/internal/platform/audio"
	"github.com/luminous/portal/internal/platform/sandbox"
)

var (
	ErrWrongView           = errors.New("action is not available on the current view")
	ErrNoRecordSelected    = errors.New("no record selected")
	ErrUnsupportedLanguage = errors.New("unsupported language")
)

// Playback is the audio output the records screen narrates through.
type Playback interface {
	Play(clip audio.Clip)
	Stop()
	State() audio.State
}

// Controller owns one session's State and implements every view
// transition and user action. It is not safe for concurrent use; Service
// serialises access.
type Controller struct {
	state     State
	scheduler *scheduling.Scheduler
	player    Playback
	newID     func() string
}

// ControllerOption configures a Controller.
type ControllerOption func(*Controller)

// WithScheduler sets the scheduler, and with it the clock.
func WithScheduler(s *scheduling.Scheduler) ControllerOption {
	return func(c *Controller) { c.scheduler = s }
}

// WithPlayback sets the audio output.
func WithPlayback(p Playback) ControllerOption {
	return func(c *Controller) { c.player = p }
}

// WithIDs overrides id generation for chat messages.
func WithIDs(f func() string) ControllerOption {
	return func(c *Controller) { c.newID = f }
}

// NewController creates a signed-out controller over seed.
func NewController(seed *sandbox.Dataset, opts ...ControllerOption) *Controller {
	c := &Controller{
		scheduler: scheduling.NewScheduler(),
		newID:     func() string { return uuid.New().String() },
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.player == nil {
		c.player = audio.NewPlayer(nil)
	}
	c.state = State{
		View:          ViewAuth,
		Profile:       seed.Profile,
		Preferences:   identity.DefaultPreferences(),
		Appointments:  seed.Appointments,
		Medications:   seed.Medications,
		Records:       seed.Records,
		Notifications: seed.Notifications,
		Calendar:      scheduling.NewCalendar(c.scheduler.Now()),
		RecordsPanel:  RecordsPanel{Language: aigateway.DefaultLanguage},
	}
	return c
}

// View returns the current view.
func (c *Controller) View() View { return c.state.View }

// Scheduler returns the scheduler used for bookings.
func (c *Controller) Scheduler() *scheduling.Scheduler { return c.scheduler }

// Appointments returns a copy of the appointment collection.
func (c *Controller) Appointments() []scheduling.Appointment {
	return scheduling.Clone(c.state.Appointments)
}

// Medications returns a copy of the medication collection.
func (c *Controller) Medications() []medication.Medication {
	return medication.Clone(c.state.Medications)
}

// Records returns a copy of the record collection.
func (c *Controller) Records() []records.Item {
	return records.Clone(c.state.Records)
}

// Notifications returns a copy of the notification collection.
func (c *Controller) Notifications() []inbox.Notification {
	return inbox.Clone(c.state.Notifications)
}

// Profile returns the saved profile.
func (c *Controller) Profile() identity.Profile { return c.state.Profile }

// Preferences returns the account preferences.
func (c *Controller) Preferences() identity.Preferences { return c.state.Preferences }

// Editor returns the profile edit state.
func (c *Controller) Editor() identity.Editor { return c.state.Editor }

// ChatSession returns the open chat session, if any.
func (c *Controller) ChatSession() (chat.Session, bool) {
	if c.state.Chat == nil {
		return chat.Session{}, false
	}
	s := *c.state.Chat
	s.Messages = append([]chat.Message(nil), s.Messages...)
	return s, true
}

// Panel returns the records screen state.
func (c *Controller) Panel() RecordsPanel { return c.state.RecordsPanel }

// AudioState returns the narration playback state.
func (c *Controller) AudioState() audio.State { return c.player.State() }

func (c *Controller) requireAuth() error {
	if c.state.View == ViewAuth {
		return ErrSignInRequired
	}
	return nil
}

func (c *Controller) requireView(v View) error {
	if err := c.requireAuth(); err != nil {
		return err
	}
	if c.state.View != v {
		return ErrWrongView
	}
	return nil
}

// -- Transitions --

// SignIn leaves the sign-in screen for the dashboard. Signing in is mocked
// and always succeeds.
func (c *Controller) SignIn() {
	if c.state.View == ViewAuth {
		c.state.View = ViewDashboard
	}
}

// SignUp signs in and copies the entered name and email into the profile.
func (c *Controller) SignUp(name, email string) {
	if c.state.View != ViewAuth {
		return
	}
	c.state.Profile = identity.ApplySignUp(c.state.Profile, name, email)
	c.state.View = ViewDashboard
}

// SignOut returns to the sign-in screen from any view. Collections are
// kept.
func (c *Controller) SignOut() {
	c.leave(c.state.View)
	c.state.View = ViewAuth
}

// Navigate moves to target, applying the entry and exit effects of the
// views involved. Navigating to the current view does nothing.
func (c *Controller) Navigate(target View) error {
	if _, err := ParseView(string(target)); err != nil {
		return err
	}
	if err := c.requireAuth(); err != nil {
		return err
	}
	from := c.state.View
	if target == from {
		return nil
	}
	switch {
	case target == ViewAuth:
		return ErrInvalidTransition
	case target == ViewTerms && from != ViewProfile:
		return ErrInvalidTransition
	case from == ViewTerms && target != ViewProfile:
		return ErrInvalidTransition
	case target == ViewNotificationDetail && c.state.SelectedNotification == nil:
		target = ViewDashboard
		if from == ViewDashboard {
			return nil
		}
	}
	c.transition(from, target)
	return nil
}

func (c *Controller) transition(from, to View) {
	c.leave(from)
	c.state.View = to
	c.enter(to)
}

func (c *Controller) leave(v View) {
	switch v {
	case ViewNotificationDetail:
		c.state.SelectedNotification = nil
	case ViewRecords:
		c.closeExplanation()
	}
}

func (c *Controller) enter(v View) {
	switch v {
	case ViewBookingCalendar:
		c.state.Calendar = scheduling.NewCalendar(c.scheduler.Now())
	case ViewChat:
		s := chat.NewSession(c.newID(), c.newID(), c.scheduler.Now())
		c.state.Chat = &s
		c.state.ChatLoading = false
	}
}

// -- Scheduling --

// Book books an appointment. A successful booking made from the booking
// calendar moves to the appointments list. A rejected booking changes
// nothing.
func (c *Controller) Book(req scheduling.BookingRequest) (scheduling.Appointment, error) {
	if err := c.requireAuth(); err != nil {
		return scheduling.Appointment{}, err
	}
	appts, appt, err := c.scheduler.Book(req, c.state.Appointments)
	if err != nil {
		return scheduling.Appointment{}, err
	}
	c.state.Appointments = appts
	if c.state.View == ViewBookingCalendar {
		c.transition(ViewBookingCalendar, ViewAppointments)
	}
	return appt, nil
}

// ChangeMonth moves the calendar by offset months.
func (c *Controller) ChangeMonth(offset int) error {
	if err := c.requireView(ViewBookingCalendar); err != nil {
		return err
	}
	c.state.Calendar.ChangeMonth(offset)
	return nil
}

// SelectDate selects a calendar date. Past dates are rejected.
func (c *Controller) SelectDate(date string) error {
	if err := c.requireView(ViewBookingCalendar); err != nil {
		return err
	}
	return c.state.Calendar.SelectDate(date, c.scheduler.Today())
}

// SelectTime selects a free slot on the selected date.
func (c *Controller) SelectTime(slot string) error {
	if err := c.requireView(ViewBookingCalendar); err != nil {
		return err
	}
	for _, s := range c.scheduler.Slots(c.state.Calendar.Date, c.state.Appointments) {
		if s.Time != slot {
			continue
		}
		if s.Booked {
			return scheduling.ErrSlotTaken
		}
		c.state.Calendar.SelectTime(slot)
		return nil
	}
	return scheduling.ErrUnknownSlot
}

// SelectService selects the treatment to book.
func (c *Controller) SelectService(service string) error {
	if err := c.requireView(ViewBookingCalendar); err != nil {
		return err
	}
	c.state.Calendar.SelectService(service)
	return nil
}

// ConfirmBooking books the calendar selection.
func (c *Controller) ConfirmBooking() (scheduling.Appointment, error) {
	if err := c.requireView(ViewBookingCalendar); err != nil {
		return scheduling.Appointment{}, err
	}
	req, err := c.state.Calendar.Request()
	if err != nil {
		return scheduling.Appointment{}, err
	}
	return c.Book(req)
}

// CancelAppointment cancels an upcoming appointment.
func (c *Controller) CancelAppointment(id string) error {
	if err := c.requireAuth(); err != nil {
		return err
	}
	appts, err := scheduling.Cancel(id, c.state.Appointments)
	if err != nil {
		return err
	}
	c.state.Appointments = appts
	return nil
}

// SaveNotes replaces an appointment's visit notes.
func (c *Controller) SaveNotes(id, notes string) error {
	if err := c.requireAuth(); err != nil {
		return err
	}
	appts, err := scheduling.SaveNotes(id, notes, c.state.Appointments)
	if err != nil {
		return err
	}
	c.state.Appointments = appts
	return nil
}

// -- Medications --

// ToggleDose flips one of today's dose flags and returns the medication.
func (c *Controller) ToggleDose(id string, index int) (medication.Medication, error) {
	if err := c.requireAuth(); err != nil {
		return medication.Medication{}, err
	}
	meds, err := medication.ToggleDose(id, index, c.state.Medications)
	if err != nil {
		return medication.Medication{}, err
	}
	c.state.Medications = meds
	m, _ := medication.Find(id, meds)
	return m, nil
}

// -- Records --

// UploadRecord prepends a record for an uploaded file.
func (c *Controller) UploadRecord(u records.Upload) (records.Item, error) {
	if err := c.requireAuth(); err != nil {
		return records.Item{}, err
	}
	if u.Date == "" {
		u.Date = c.scheduler.Today()
	}
	item := records.FromUpload(u)
	c.state.Records = records.Prepend(item, c.state.Records)
	return item, nil
}

// SelectRecord selects a record for explanation. Any explanation shown or
// pending for the previous selection is dropped.
func (c *Controller) SelectRecord(id string) error {
	if err := c.requireAuth(); err != nil {
		return err
	}
	if _, ok := records.Find(id, c.state.Records); !ok {
		return records.ErrRecordNotFound
	}
	c.closeExplanation()
	c.state.RecordsPanel.SelectedID = id
	return nil
}

// BeginExplain starts an explanation of the selected record in language.
// Playback stops and the previous explanation is cleared.
func (c *Controller) BeginExplain(language string) (ExplainTicket, error) {
	if err := c.requireView(ViewRecords); err != nil {
		return ExplainTicket{}, err
	}
	if language == "" {
		language = c.state.RecordsPanel.Language
	}
	if !aigateway.IsSupportedLanguage(language) {
		return ExplainTicket{}, ErrUnsupportedLanguage
	}
	item, ok := records.Find(c.state.RecordsPanel.SelectedID, c.state.Records)
	if !ok {
		return ExplainTicket{}, ErrNoRecordSelected
	}

	c.player.Stop()
	p := &c.state.RecordsPanel
	p.seq++
	p.Language = language
	p.Loading = true
	p.Explanation = nil
	return ExplainTicket{Seq: p.seq, RecordID: item.ID, Summary: item.Summary, Language: language}, nil
}

// FinishExplain applies a narration if t is still the latest request for
// the selected record. It reports whether the narration was applied.
func (c *Controller) FinishExplain(t ExplainTicket, n Narration) bool {
	p := &c.state.RecordsPanel
	if p.seq != t.Seq || p.SelectedID != t.RecordID || c.state.View != ViewRecords {
		return false
	}
	p.Loading = false
	p.Explanation = &Explanation{
		RecordID: t.RecordID,
		Language: t.Language,
		Text:     n.Text,
		HasAudio: n.AudioURL != "",
		AudioURL: n.AudioURL,
		Failed:   n.Failed,
	}
	return true
}

// PlayNarration plays clip for the applied explanation.
func (c *Controller) PlayNarration(clip audio.Clip) {
	c.player.Play(clip)
}

// StopAudio stops narration playback.
func (c *Controller) StopAudio() {
	c.player.Stop()
}

// CloseExplanation hides the explanation panel and stops playback.
func (c *Controller) CloseExplanation() {
	c.closeExplanation()
}

func (c *Controller) closeExplanation() {
	c.player.Stop()
	p := &c.state.RecordsPanel
	p.seq++
	p.Loading = false
	p.Explanation = nil
}

// -- Notifications --

// OpenNotification marks a notification read and shows its details.
func (c *Controller) OpenNotification(id int) error {
	if err := c.requireAuth(); err != nil {
		return err
	}
	// TERMS is left only for PROFILE.
	if c.state.View == ViewTerms {
		return ErrInvalidTransition
	}
	ns, err := inbox.MarkRead(id, c.state.Notifications)
	if err != nil {
		return err
	}
	c.state.Notifications = ns
	from := c.state.View
	if from != ViewNotificationDetail {
		c.leave(from)
	}
	c.state.SelectedNotification = &id
	c.state.View = ViewNotificationDetail
	return nil
}

// MarkAllRead marks every notification read.
func (c *Controller) MarkAllRead() error {
	if err := c.requireAuth(); err != nil {
		return err
	}
	c.state.Notifications = inbox.MarkAllRead(c.state.Notifications)
	return nil
}

// -- Chat --

// SendChat appends the user's message to the open chat and returns the
// ticket its reply must be applied with.
func (c *Controller) SendChat(text string) (ChatTicket, error) {
	if err := c.requireView(ViewChat); err != nil {
		return ChatTicket{}, err
	}
	if c.state.Chat == nil {
		c.enter(ViewChat)
	}
	msg, err := chat.UserMessage(c.newID(), text, c.scheduler.Now())
	if err != nil {
		return ChatTicket{}, err
	}
	s := c.state.Chat.Append(msg)
	c.state.Chat = &s
	c.state.ChatLoading = true
	return ChatTicket{SessionID: s.ID, Text: msg.Text}, nil
}

// FinishChat appends the assistant's reply if the chat that asked is still
// open. It reports whether the reply was applied.
func (c *Controller) FinishChat(t ChatTicket, reply string, isError bool) bool {
	if c.state.Chat == nil || c.state.Chat.ID != t.SessionID {
		return false
	}
	s := c.state.Chat.Append(chat.Message{
		ID:        c.newID(),
		Role:      chat.RoleModel,
		Text:      reply,
		Timestamp: c.scheduler.Now(),
		IsError:   isError,
	})
	c.state.Chat = &s
	c.state.ChatLoading = false
	return true
}

// -- Profile --

// StartEdit begins editing a copy of the profile.
func (c *Controller) StartEdit() error {
	if err := c.requireView(ViewProfile); err != nil {
		return err
	}
	c.state.Editor.Start(c.state.Profile)
	return nil
}

// UpdateDraft changes fields of the draft.
func (c *Controller) UpdateDraft(patch identity.Patch) error {
	if err := c.requireAuth(); err != nil {
		return err
	}
	return c.state.Editor.Update(patch)
}

// SaveProfile replaces the profile with the draft.
func (c *Controller) SaveProfile() (identity.Profile, error) {
	if err := c.requireAuth(); err != nil {
		return identity.Profile{}, err
	}
	p, err := c.state.Editor.Save()
	if err != nil {
		return identity.Profile{}, err
	}
	c.state.Profile = p
	return p, nil
}

// CancelEdit discards the draft.
func (c *Controller) CancelEdit() error {
	if err := c.requireAuth(); err != nil {
		return err
	}
	c.state.Editor.Cancel()
	return nil
}

// SetProfileImage sets the profile picture, also on the draft while
// editing.
func (c *Controller) SetProfileImage(dataURL string) error {
	if err := c.requireAuth(); err != nil {
		return err
	}
	if !strings.HasPrefix(dataURL, "data:image/") {
		return identity.ErrNotImage
	}
	c.state.Profile = c.state.Editor.SetImage(c.state.Profile, dataURL)
	return nil
}

// TogglePush flips push notifications.
func (c *Controller) TogglePush() (identity.Preferences, error) {
	if err := c.requireAuth(); err != nil {
		return identity.Preferences{}, err
	}
	c.state.Preferences = c.state.Preferences.TogglePush()
	return c.state.Preferences, nil
}

// UpgradePremium records a completed premium purchase. Payment is mocked.
func (c *Controller) UpgradePremium() (identity.Preferences, error) {
	if err := c.requireAuth(); err != nil {
		return identity.Preferences{}, err
	}
	c.state.Preferences = c.state.Preferences.UpgradePremium()
	return c.state.Preferences, nil
}

// -- Tip --

// NeedsTip reports whether the dashboard tip for day is missing.
func (c *Controller) NeedsTip(day string) bool {
	return c.state.TipDay != day || c.state.Tip == ""
}

// SetTip stores the dashboard tip for day.
func (c *Controller) SetTip(day, tip string) {
	c.state.Tip = tip
	c.state.TipDay = day
}
