package portal

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/luminous/portal/internal/domain/chat"
	"github.com/luminous/portal/internal/domain/identity"
	"github.com/luminous/portal/internal/domain/inbox"
	"github.com/luminous/portal/internal/domain/medication"
	"github.com/luminous/portal/internal/domain/records"
	"github.com/luminous/portal/internal/domain/scheduling"
	"github.com/luminous/portal/internal/platform/aigateway"
	"github.com/luminous/portal/internal/platform/audio"
	"github.com/luminous/portal/internal/platform/blobstore"
	"github.com/luminous/portal/internal/platform/events"
	"github.com/luminous/portal/internal/platform/inflight"
	"github.com/luminous/portal/internal/platform/sandbox"
)

var (
	ErrSessionNotFound = errors.New("portal session not found")
	ErrNoNarration     = errors.New("no narration audio available")
)

// Guarded operations.
const (
	opBook    = "book"
	opExplain = "explain"
	opChat    = "chat"
)

// BlobPathPrefix is where uploaded files and narration are served from.
const BlobPathPrefix = "/api/v1/blobs/"

// Notifier pushes events to a connected client.
type Notifier interface {
	PublishSession(ctx context.Context, sessionID, eventType string, payload any) error
}

type nopNotifier struct{}

func (nopNotifier) PublishSession(context.Context, string, string, any) error { return nil }

type session struct {
	mu       sync.Mutex
	ctrl     *Controller
	conv     *aigateway.Conversation
	convFor  string
	lastSeen time.Time

	// narration is the blob id of the current explanation's audio.
	narration string
}

// Service owns every portal session. Each session's mutations are
// serialised by its own mutex; calls to the AI gateway are made without
// holding it.
type Service struct {
	mu       sync.RWMutex
	sessions map[string]*session

	assistant  *aigateway.Assistant
	blobs      blobstore.BlobStore
	guard      *inflight.Guard
	events     events.Publisher
	notifier   Notifier
	logger     zerolog.Logger
	now        func() time.Time
	playerOpts []audio.PlayerOption
}

// ServiceOption configures a Service.
type ServiceOption func(*Service)

// WithClock sets the clock used for scheduling and session expiry.
func WithClock(now func() time.Time) ServiceOption {
	return func(s *Service) { s.now = now }
}

// WithBlobStore sets where uploads and narration are stored.
func WithBlobStore(b blobstore.BlobStore) ServiceOption {
	return func(s *Service) { s.blobs = b }
}

// WithEvents sets the clinic event publisher.
func WithEvents(p events.Publisher) ServiceOption {
	return func(s *Service) { s.events = p }
}

// WithNotifier sets where session events are pushed.
func WithNotifier(n Notifier) ServiceOption {
	return func(s *Service) { s.notifier = n }
}

// WithLogger sets the service logger.
func WithLogger(l zerolog.Logger) ServiceOption {
	return func(s *Service) { s.logger = l }
}

// WithPlayerOptions configures each session's audio player.
func WithPlayerOptions(opts ...audio.PlayerOption) ServiceOption {
	return func(s *Service) { s.playerOpts = append(s.playerOpts, opts...) }
}

// NewService creates a Service backed by assistant.
func NewService(assistant *aigateway.Assistant, opts ...ServiceOption) *Service {
	s := &Service{
		sessions:  make(map[string]*session),
		assistant: assistant,
		guard:     inflight.NewGuard(),
		notifier:  nopNotifier{},
		logger:    zerolog.Nop(),
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.blobs == nil {
		s.blobs = blobstore.NewInMemoryBlobStore(0)
	}
	if s.events == nil {
		s.events = events.NewLogPublisher(s.logger)
	}
	return s
}

// -- Session registry --

// CreateSession starts a portal session over a fresh copy of the seed
// data. The session starts signed out.
func (s *Service) CreateSession(ctx context.Context) (string, ViewModel, error) {
	id := uuid.New().String()

	player := audio.NewPlayer(func(st audio.State) {
		if err := s.notifier.PublishSession(context.Background(), id, "audio.state", map[string]any{"state": st}); err != nil {
			s.logger.Warn().Err(err).Str("session_id", id).Msg("failed to push audio state")
		}
	}, s.playerOpts...)

	ctrl := NewController(sandbox.Generate(),
		WithScheduler(scheduling.NewScheduler(scheduling.WithClock(s.now))),
		WithPlayback(player),
	)

	sess := &session{ctrl: ctrl, lastSeen: s.now()}
	s.mu.Lock()
	s.sessions[id] = sess
	s.mu.Unlock()

	s.logger.Info().Str("session_id", id).Msg("portal session created")

	vm, err := s.render(ctx, sess)
	return id, vm, err
}

// EndSession stops playback, drops the session and deletes its files.
func (s *Service) EndSession(ctx context.Context, sessionID string) error {
	s.mu.Lock()
	sess, ok := s.sessions[sessionID]
	delete(s.sessions, sessionID)
	s.mu.Unlock()
	if !ok {
		return ErrSessionNotFound
	}

	sess.mu.Lock()
	sess.ctrl.StopAudio()
	sess.mu.Unlock()

	n, err := s.blobs.DeleteByOwner(ctx, sessionID)
	if err != nil {
		return fmt.Errorf("delete session files: %w", err)
	}
	s.logger.Info().Str("session_id", sessionID).Int("files", n).Msg("portal session ended")
	return nil
}

// SessionCount returns the number of live sessions.
func (s *Service) SessionCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.sessions)
}

// Sweep ends sessions idle for longer than maxIdle and returns how many
// were ended.
func (s *Service) Sweep(ctx context.Context, maxIdle time.Duration) int {
	cutoff := s.now().Add(-maxIdle)
	var idle []string
	s.mu.RLock()
	for id, sess := range s.sessions {
		sess.mu.Lock()
		if sess.lastSeen.Before(cutoff) {
			idle = append(idle, id)
		}
		sess.mu.Unlock()
	}
	s.mu.RUnlock()

	for _, id := range idle {
		if err := s.EndSession(ctx, id); err != nil && !errors.Is(err, ErrSessionNotFound) {
			s.logger.Warn().Err(err).Str("session_id", id).Msg("failed to end idle session")
		}
	}
	return len(idle)
}

// RunJanitor sweeps idle sessions every interval until ctx is done.
func (s *Service) RunJanitor(ctx context.Context, interval, maxIdle time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := s.Sweep(ctx, maxIdle); n > 0 {
				s.logger.Info().Int("sessions", n).Msg("expired idle portal sessions")
			}
		}
	}
}

func (s *Service) lookup(sessionID string) (*session, error) {
	s.mu.RLock()
	sess, ok := s.sessions[sessionID]
	s.mu.RUnlock()
	if !ok {
		return nil, ErrSessionNotFound
	}
	return sess, nil
}

// with runs fn with the session locked.
func (s *Service) with(sessionID string, fn func(sess *session) error) error {
	sess, err := s.lookup(sessionID)
	if err != nil {
		return err
	}
	sess.mu.Lock()
	defer sess.mu.Unlock()
	sess.lastSeen = s.now()
	return fn(sess)
}

// render fetches the dashboard tip when it is missing, then renders. It
// must be called without the session lock.
func (s *Service) render(ctx context.Context, sess *session) (ViewModel, error) {
	sess.mu.Lock()
	day := sess.ctrl.Scheduler().Today()
	needsTip := sess.ctrl.View() == ViewDashboard && sess.ctrl.NeedsTip(day)
	sess.mu.Unlock()

	if needsTip {
		tip := s.assistant.DailyTip(ctx, day)
		sess.mu.Lock()
		sess.ctrl.SetTip(day, tip)
		sess.mu.Unlock()
	}

	sess.mu.Lock()
	defer sess.mu.Unlock()
	return sess.ctrl.Render()
}

// mutate applies fn under the session lock and renders the result.
func (s *Service) mutate(ctx context.Context, sessionID string, fn func(c *Controller) error) (ViewModel, error) {
	sess, err := s.lookup(sessionID)
	if err != nil {
		return ViewModel{}, err
	}
	if err := s.with(sessionID, func(sess *session) error { return fn(sess.ctrl) }); err != nil {
		return ViewModel{}, err
	}
	return s.render(ctx, sess)
}

// publish sends a clinic event and pushes it to the session's client.
func (s *Service) publish(ctx context.Context, sessionID, eventType string, data map[string]any) {
	if err := s.events.Publish(ctx, events.NewEvent(eventType, sessionID, data)); err != nil {
		s.logger.Error().Err(err).Str("type", eventType).Str("session_id", sessionID).Msg("failed to publish event")
	}
	s.push(ctx, sessionID, eventType, data)
}

func (s *Service) push(ctx context.Context, sessionID, eventType string, payload any) {
	if err := s.notifier.PublishSession(ctx, sessionID, eventType, payload); err != nil {
		s.logger.Warn().Err(err).Str("type", eventType).Str("session_id", sessionID).Msg("failed to push session event")
	}
}

// -- Views and auth --

// View renders the current view of a session.
func (s *Service) View(ctx context.Context, sessionID string) (ViewModel, error) {
	sess, err := s.lookup(sessionID)
	if err != nil {
		return ViewModel{}, err
	}
	return s.render(ctx, sess)
}

// Navigate moves a session to target.
func (s *Service) Navigate(ctx context.Context, sessionID string, target View) (ViewModel, error) {
	return s.mutate(ctx, sessionID, func(c *Controller) error { return c.Navigate(target) })
}

// SignIn signs a session in.
func (s *Service) SignIn(ctx context.Context, sessionID string) (ViewModel, error) {
	return s.mutate(ctx, sessionID, func(c *Controller) error { c.SignIn(); return nil })
}

// SignUp signs a session in with a new name and email.
func (s *Service) SignUp(ctx context.Context, sessionID, name, email string) (ViewModel, error) {
	return s.mutate(ctx, sessionID, func(c *Controller) error { c.SignUp(name, email); return nil })
}

// SignOut returns a session to the sign-in screen.
func (s *Service) SignOut(ctx context.Context, sessionID string) (ViewModel, error) {
	return s.mutate(ctx, sessionID, func(c *Controller) error { c.SignOut(); return nil })
}

// -- Scheduling --

// Slots returns the slot grid of date.
func (s *Service) Slots(_ context.Context, sessionID, date string) ([]scheduling.Slot, error) {
	if _, err := scheduling.ParseDate(date); err != nil {
		return nil, err
	}
	var out []scheduling.Slot
	err := s.with(sessionID, func(sess *session) error {
		if err := sess.ctrl.requireAuth(); err != nil {
			return err
		}
		out = sess.ctrl.Scheduler().Slots(date, sess.ctrl.state.Appointments)
		return nil
	})
	return out, err
}

func (s *Service) book(ctx context.Context, sessionID string, fn func(c *Controller) (scheduling.Appointment, error)) (scheduling.Appointment, error) {
	release, err := s.guard.TryAcquire(inflight.Key(sessionID, opBook))
	if err != nil {
		return scheduling.Appointment{}, err
	}
	defer release()

	var appt scheduling.Appointment
	err = s.with(sessionID, func(sess *session) error {
		var err error
		appt, err = fn(sess.ctrl)
		return err
	})
	if err != nil {
		return scheduling.Appointment{}, err
	}
	s.publish(ctx, sessionID, events.AppointmentBooked, map[string]any{
		"appointmentId": appt.ID,
		"treatmentType": appt.TreatmentType,
		"date":          appt.Date,
		"time":          appt.Time,
		"doctorName":    appt.DoctorName,
	})
	return appt, nil
}

// Book books an appointment directly.
func (s *Service) Book(ctx context.Context, sessionID string, req scheduling.BookingRequest) (scheduling.Appointment, error) {
	return s.book(ctx, sessionID, func(c *Controller) (scheduling.Appointment, error) { return c.Book(req) })
}

// ConfirmBooking books the calendar selection and renders the resulting
// view.
func (s *Service) ConfirmBooking(ctx context.Context, sessionID string) (ViewModel, error) {
	if _, err := s.book(ctx, sessionID, (*Controller).ConfirmBooking); err != nil {
		return ViewModel{}, err
	}
	return s.View(ctx, sessionID)
}

// ChangeMonth moves the booking calendar.
func (s *Service) ChangeMonth(ctx context.Context, sessionID string, offset int) (ViewModel, error) {
	return s.mutate(ctx, sessionID, func(c *Controller) error { return c.ChangeMonth(offset) })
}

// SelectDate selects a booking date.
func (s *Service) SelectDate(ctx context.Context, sessionID, date string) (ViewModel, error) {
	return s.mutate(ctx, sessionID, func(c *Controller) error { return c.SelectDate(date) })
}

// SelectTime selects a booking slot.
func (s *Service) SelectTime(ctx context.Context, sessionID, slot string) (ViewModel, error) {
	return s.mutate(ctx, sessionID, func(c *Controller) error { return c.SelectTime(slot) })
}

// SelectService selects the treatment to book.
func (s *Service) SelectService(ctx context.Context, sessionID, service string) (ViewModel, error) {
	return s.mutate(ctx, sessionID, func(c *Controller) error { return c.SelectService(service) })
}

// Appointments lists a session's appointments.
func (s *Service) Appointments(_ context.Context, sessionID string) ([]scheduling.Appointment, error) {
	var out []scheduling.Appointment
	err := s.with(sessionID, func(sess *session) error {
		if err := sess.ctrl.requireAuth(); err != nil {
			return err
		}
		out = sess.ctrl.Appointments()
		return nil
	})
	return out, err
}

// CancelAppointment cancels an upcoming appointment.
func (s *Service) CancelAppointment(ctx context.Context, sessionID, id string) (scheduling.Appointment, error) {
	var appt scheduling.Appointment
	err := s.with(sessionID, func(sess *session) error {
		if err := sess.ctrl.CancelAppointment(id); err != nil {
			return err
		}
		appt, _ = scheduling.Find(id, sess.ctrl.state.Appointments)
		return nil
	})
	if err != nil {
		return scheduling.Appointment{}, err
	}
	s.publish(ctx, sessionID, events.AppointmentCancelled, map[string]any{
		"appointmentId": appt.ID,
		"date":          appt.Date,
		"time":          appt.Time,
	})
	return appt, nil
}

// SaveNotes replaces an appointment's visit notes.
func (s *Service) SaveNotes(_ context.Context, sessionID, id, notes string) (scheduling.Appointment, error) {
	var appt scheduling.Appointment
	err := s.with(sessionID, func(sess *session) error {
		if err := sess.ctrl.SaveNotes(id, notes); err != nil {
			return err
		}
		appt, _ = scheduling.Find(id, sess.ctrl.state.Appointments)
		return nil
	})
	return appt, err
}

// -- Medications --

// Medications lists a session's medications.
func (s *Service) Medications(_ context.Context, sessionID string) ([]medication.Medication, error) {
	var out []medication.Medication
	err := s.with(sessionID, func(sess *session) error {
		if err := sess.ctrl.requireAuth(); err != nil {
			return err
		}
		out = sess.ctrl.Medications()
		return nil
	})
	return out, err
}

// ToggleDose flips one dose flag.
func (s *Service) ToggleDose(ctx context.Context, sessionID, id string, index int) (medication.Medication, error) {
	var med medication.Medication
	err := s.with(sessionID, func(sess *session) error {
		var err error
		med, err = sess.ctrl.ToggleDose(id, index)
		return err
	})
	if err != nil {
		return medication.Medication{}, err
	}
	s.publish(ctx, sessionID, events.DoseToggled, map[string]any{
		"medicationId": med.ID,
		"dose":         index,
		"taken":        med.TakenToday[index],
	})
	return med, nil
}

// -- Records --

// Records lists a session's records.
func (s *Service) Records(_ context.Context, sessionID string) ([]records.Item, error) {
	var out []records.Item
	err := s.with(sessionID, func(sess *session) error {
		if err := sess.ctrl.requireAuth(); err != nil {
			return err
		}
		out = sess.ctrl.Records()
		return nil
	})
	return out, err
}

// UploadRecord stores an uploaded file and adds a record for it.
func (s *Service) UploadRecord(ctx context.Context, sessionID, filename, contentType string, content io.Reader) (records.Item, error) {
	sess, err := s.lookup(sessionID)
	if err != nil {
		return records.Item{}, err
	}
	sess.mu.Lock()
	authErr := sess.ctrl.requireAuth()
	sess.mu.Unlock()
	if authErr != nil {
		return records.Item{}, authErr
	}

	meta, err := s.blobs.Upload(ctx, blobstore.BlobMetadata{
		FileName:    filename,
		ContentType: contentType,
		OwnerID:     sessionID,
		Category:    blobstore.CategoryRecord,
	}, content)
	if err != nil {
		return records.Item{}, err
	}

	var item records.Item
	err = s.with(sessionID, func(sess *session) error {
		var err error
		item, err = sess.ctrl.UploadRecord(records.Upload{
			ID:       uuid.New().String(),
			Filename: filename,
			URL:      BlobPathPrefix + meta.ID,
		})
		return err
	})
	if err != nil {
		return records.Item{}, err
	}
	s.publish(ctx, sessionID, events.RecordUploaded, map[string]any{
		"recordId":    item.ID,
		"title":       item.Title,
		"contentType": meta.ContentType,
		"size":        meta.Size,
	})
	return item, nil
}

// SelectRecord selects a record on the records screen.
func (s *Service) SelectRecord(ctx context.Context, sessionID, id string) (ViewModel, error) {
	return s.mutate(ctx, sessionID, func(c *Controller) error { return c.SelectRecord(id) })
}

// Explain explains the selected record in language and starts narrating
// it. Only one explanation per session runs at a time.
func (s *Service) Explain(ctx context.Context, sessionID, language string) (ViewModel, error) {
	release, err := s.guard.TryAcquire(inflight.Key(sessionID, opExplain))
	if err != nil {
		return ViewModel{}, err
	}
	defer release()

	var ticket ExplainTicket
	err = s.with(sessionID, func(sess *session) error {
		var err error
		ticket, err = sess.ctrl.BeginExplain(language)
		return err
	})
	if err != nil {
		return ViewModel{}, err
	}
	s.push(ctx, sessionID, "records.explaining", map[string]any{"recordId": ticket.RecordID, "language": ticket.Language})

	ex := s.assistant.Explain(ctx, ticket.Summary, ticket.Language)
	narration := Narration{Text: ex.Text, Failed: ex.Failed}

	var clip *audio.Clip
	var blobID string
	if ex.Audio != "" {
		c, err := audio.DecodeSpeech(ex.Audio)
		if err != nil {
			s.logger.Warn().Err(err).Str("session_id", sessionID).Msg("failed to decode narration")
		} else {
			meta, err := s.blobs.Upload(ctx, blobstore.BlobMetadata{
				FileName:    "narration-" + ticket.RecordID + ".wav",
				ContentType: "audio/wav",
				OwnerID:     sessionID,
				Category:    blobstore.CategoryNarration,
			}, bytes.NewReader(audio.EncodeWAV(c)))
			if err != nil {
				s.logger.Warn().Err(err).Str("session_id", sessionID).Msg("failed to store narration")
			} else {
				clip = &c
				blobID = meta.ID
				narration.AudioURL = BlobPathPrefix + meta.ID
			}
		}
	}

	var stale string
	applied := false
	err = s.with(sessionID, func(sess *session) error {
		applied = sess.ctrl.FinishExplain(ticket, narration)
		if !applied {
			return nil
		}
		stale, sess.narration = sess.narration, blobID
		if clip != nil {
			sess.ctrl.PlayNarration(*clip)
		}
		return nil
	})
	if err != nil {
		return ViewModel{}, err
	}
	if !applied {
		stale = blobID
	}
	if stale != "" {
		if err := s.blobs.Delete(ctx, stale); err != nil && !errors.Is(err, blobstore.ErrBlobNotFound) {
			s.logger.Warn().Err(err).Msg("failed to delete narration")
		}
	}
	return s.View(ctx, sessionID)
}

// StopAudio stops narration playback.
func (s *Service) StopAudio(ctx context.Context, sessionID string) (ViewModel, error) {
	return s.mutate(ctx, sessionID, func(c *Controller) error { c.StopAudio(); return nil })
}

// CloseExplanation hides the explanation panel.
func (s *Service) CloseExplanation(ctx context.Context, sessionID string) (ViewModel, error) {
	return s.mutate(ctx, sessionID, func(c *Controller) error { c.CloseExplanation(); return nil })
}

// NarrationAudio returns the WAV narration of the current explanation.
func (s *Service) NarrationAudio(ctx context.Context, sessionID string) (io.ReadCloser, *blobstore.BlobMetadata, error) {
	var id string
	err := s.with(sessionID, func(sess *session) error {
		if e := sess.ctrl.Panel().Explanation; e != nil && e.HasAudio {
			id = sess.narration
		}
		return nil
	})
	if err != nil {
		return nil, nil, err
	}
	if id == "" {
		return nil, nil, ErrNoNarration
	}
	return s.blobs.Download(ctx, id)
}

// -- Notifications --

// Notifications lists a session's notifications.
func (s *Service) Notifications(_ context.Context, sessionID string) ([]inbox.Notification, error) {
	var out []inbox.Notification
	err := s.with(sessionID, func(sess *session) error {
		if err := sess.ctrl.requireAuth(); err != nil {
			return err
		}
		out = sess.ctrl.Notifications()
		return nil
	})
	return out, err
}

// OpenNotification marks a notification read and shows it.
func (s *Service) OpenNotification(ctx context.Context, sessionID string, id int) (ViewModel, error) {
	return s.mutate(ctx, sessionID, func(c *Controller) error { return c.OpenNotification(id) })
}

// MarkAllRead marks every notification read.
func (s *Service) MarkAllRead(ctx context.Context, sessionID string) ([]inbox.Notification, error) {
	var out []inbox.Notification
	err := s.with(sessionID, func(sess *session) error {
		if err := sess.ctrl.MarkAllRead(); err != nil {
			return err
		}
		out = sess.ctrl.Notifications()
		return nil
	})
	if err == nil {
		s.push(ctx, sessionID, "notifications.read", map[string]any{"unread": 0})
	}
	return out, err
}

// ExportNotifications returns the notification history as indented JSON.
func (s *Service) ExportNotifications(ctx context.Context, sessionID string) ([]byte, error) {
	ns, err := s.Notifications(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	return inbox.ExportSnapshot(ns)
}

// -- Chat --

// Chat returns the open chat session.
func (s *Service) Chat(_ context.Context, sessionID string) (chat.Session, error) {
	var out chat.Session
	err := s.with(sessionID, func(sess *session) error {
		if err := sess.ctrl.requireView(ViewChat); err != nil {
			return err
		}
		out, _ = sess.ctrl.ChatSession()
		return nil
	})
	return out, err
}

// SendChat sends a message to the assistant and returns the chat with the
// reply appended. A gateway failure becomes an error reply in the chat.
func (s *Service) SendChat(ctx context.Context, sessionID, text string) (chat.Session, error) {
	release, err := s.guard.TryAcquire(inflight.Key(sessionID, opChat))
	if err != nil {
		return chat.Session{}, err
	}
	defer release()

	var ticket ChatTicket
	var conv *aigateway.Conversation
	err = s.with(sessionID, func(sess *session) error {
		var err error
		ticket, err = sess.ctrl.SendChat(text)
		if err != nil {
			return err
		}
		if sess.convFor == ticket.SessionID {
			conv = sess.conv
		}
		return nil
	})
	if err != nil {
		return chat.Session{}, err
	}

	if conv == nil {
		started := s.assistant.StartChat(ctx)
		err = s.with(sessionID, func(sess *session) error {
			if sess.convFor != ticket.SessionID {
				sess.conv, sess.convFor = started, ticket.SessionID
			}
			conv = sess.conv
			return nil
		})
		if err != nil {
			return chat.Session{}, err
		}
	}

	reply, isErr := s.assistant.Reply(ctx, conv, ticket.Text)

	var out chat.Session
	err = s.with(sessionID, func(sess *session) error {
		sess.ctrl.FinishChat(ticket, reply, isErr)
		out, _ = sess.ctrl.ChatSession()
		return nil
	})
	if err != nil {
		return chat.Session{}, err
	}
	s.push(ctx, sessionID, "chat.reply", map[string]any{"chatId": ticket.SessionID, "isError": isErr})
	return out, nil
}

// -- Profile --

// Profile returns the profile screen model.
func (s *Service) Profile(_ context.Context, sessionID string) (ProfileModel, error) {
	return s.profile(sessionID, func(c *Controller) error { return c.requireAuth() })
}

func (s *Service) profile(sessionID string, fn func(c *Controller) error) (ProfileModel, error) {
	var out ProfileModel
	err := s.with(sessionID, func(sess *session) error {
		if err := fn(sess.ctrl); err != nil {
			return err
		}
		out = sess.ctrl.ProfileView()
		return nil
	})
	return out, err
}

// StartEdit begins a profile edit.
func (s *Service) StartEdit(_ context.Context, sessionID string) (ProfileModel, error) {
	return s.profile(sessionID, (*Controller).StartEdit)
}

// UpdateDraft changes the profile draft.
func (s *Service) UpdateDraft(_ context.Context, sessionID string, patch identity.Patch) (ProfileModel, error) {
	return s.profile(sessionID, func(c *Controller) error { return c.UpdateDraft(patch) })
}

// SaveProfile saves the profile draft.
func (s *Service) SaveProfile(ctx context.Context, sessionID string) (ProfileModel, error) {
	m, err := s.profile(sessionID, func(c *Controller) error {
		_, err := c.SaveProfile()
		return err
	})
	if err == nil {
		s.publish(ctx, sessionID, events.ProfileUpdated, map[string]any{"name": m.Profile.Name, "email": m.Profile.Email})
	}
	return m, err
}

// CancelEdit discards the profile draft.
func (s *Service) CancelEdit(_ context.Context, sessionID string) (ProfileModel, error) {
	return s.profile(sessionID, (*Controller).CancelEdit)
}

// SetProfileImage sets the profile picture from uploaded image bytes.
func (s *Service) SetProfileImage(_ context.Context, sessionID, contentType string, data []byte) (ProfileModel, error) {
	dataURL, err := identity.ImageDataURL(contentType, data)
	if err != nil {
		return ProfileModel{}, err
	}
	return s.profile(sessionID, func(c *Controller) error { return c.SetProfileImage(dataURL) })
}

// TogglePush flips push notifications.
func (s *Service) TogglePush(_ context.Context, sessionID string) (ProfileModel, error) {
	return s.profile(sessionID, func(c *Controller) error {
		_, err := c.TogglePush()
		return err
	})
}

// UpgradePremium completes the mocked premium purchase.
func (s *Service) UpgradePremium(ctx context.Context, sessionID string) (ProfileModel, error) {
	m, err := s.profile(sessionID, func(c *Controller) error {
		_, err := c.UpgradePremium()
		return err
	})
	if err == nil {
		s.publish(ctx, sessionID, events.PremiumUpgraded, nil)
	}
	return m, err
}
