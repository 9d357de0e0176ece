package portal

import (
	"bytes"
	"context"
	"errors"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/luminous/portal/internal/domain/chat"
	"github.com/luminous/portal/internal/domain/scheduling"
	"github.com/luminous/portal/internal/platform/aigateway"
	"github.com/luminous/portal/internal/platform/audio"
	"github.com/luminous/portal/internal/platform/blobstore"
	"github.com/luminous/portal/internal/platform/events"
	"github.com/luminous/portal/internal/platform/inflight"
)

func TestService_CreateSession(t *testing.T) {
	env := newTestEnv(&fakeGateway{})
	sid, vm, err := env.svc.CreateSession(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if sid == "" || vm.View != ViewAuth {
		t.Errorf("unexpected session %q view %s", sid, vm.View)
	}
	if env.svc.SessionCount() != 1 {
		t.Errorf("expected 1 session, got %d", env.svc.SessionCount())
	}
	if _, err := env.svc.View(context.Background(), "nope"); !errors.Is(err, ErrSessionNotFound) {
		t.Errorf("expected ErrSessionNotFound, got %v", err)
	}
}

func TestService_SessionsAreIsolated(t *testing.T) {
	env := newTestEnv(&fakeGateway{})
	ctx := context.Background()
	a, b := env.session(), env.session()

	if _, err := env.svc.CancelAppointment(ctx, a, "1"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	appts, _ := env.svc.Appointments(ctx, b)
	if appts[0].Status != scheduling.StatusUpcoming {
		t.Error("cancellation in one session affected another")
	}
}

func TestService_SendChat_GatewayFailure(t *testing.T) {
	env := newTestEnv(&fakeGateway{replyErr: errors.New("connection refused")})
	ctx := context.Background()
	sid := env.session()
	env.svc.Navigate(ctx, sid, ViewChat)

	before, _ := env.svc.Chat(ctx, sid)
	s, err := env.svc.SendChat(ctx, sid, "Are you open on Sunday?")
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if len(s.Messages) != len(before.Messages)+2 {
		t.Fatalf("expected user message and one reply, got %d messages", len(s.Messages))
	}
	user, reply := s.Messages[len(s.Messages)-2], s.Messages[len(s.Messages)-1]
	if user.Role != chat.RoleUser || user.Text != "Are you open on Sunday?" {
		t.Errorf("unexpected user message %+v", user)
	}
	if reply.Role != chat.RoleModel || !reply.IsError || reply.Text != aigateway.ChatErrorReply {
		t.Errorf("unexpected reply %+v", reply)
	}
	models := 0
	for _, m := range s.Messages[len(before.Messages):] {
		if m.Role == chat.RoleModel {
			models++
		}
	}
	if models != 1 {
		t.Errorf("expected exactly one model message, got %d", models)
	}
}

func TestService_SendChat_Reply(t *testing.T) {
	env := newTestEnv(&fakeGateway{reply: "We are open Mon-Sat."})
	ctx := context.Background()
	sid := env.session()
	env.svc.Navigate(ctx, sid, ViewChat)

	s, err := env.svc.SendChat(ctx, sid, "hours?")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	last := s.Messages[len(s.Messages)-1]
	if last.Text != "We are open Mon-Sat." || last.IsError {
		t.Errorf("unexpected reply %+v", last)
	}
	if _, err := env.svc.SendChat(ctx, sid, "   "); !errors.Is(err, chat.ErrEmptyMessage) {
		t.Errorf("expected ErrEmptyMessage, got %v", err)
	}
}

func TestService_SendChat_SecondTriggerBusy(t *testing.T) {
	gw := &fakeGateway{reply: "ok", entered: make(chan struct{}), block: make(chan struct{})}
	env := newTestEnv(gw)
	ctx := context.Background()
	sid := env.session()
	env.svc.Navigate(ctx, sid, ViewChat)

	done := make(chan error, 1)
	go func() {
		_, err := env.svc.SendChat(ctx, sid, "first")
		done <- err
	}()
	<-gw.entered

	if _, err := env.svc.SendChat(ctx, sid, "second"); !errors.Is(err, inflight.ErrBusy) {
		t.Errorf("expected ErrBusy, got %v", err)
	}
	// The session lock is free while the gateway call runs.
	if _, err := env.svc.View(ctx, sid); err != nil {
		t.Errorf("view blocked during gateway call: %v", err)
	}

	close(gw.block)
	if err := <-done; err != nil {
		t.Fatalf("first message failed: %v", err)
	}
	s, _ := env.svc.Chat(ctx, sid)
	if len(s.Messages) != 3 {
		t.Errorf("expected greeting, message and reply, got %d", len(s.Messages))
	}
}

func TestService_Explain_PlaybackNeverOverlaps(t *testing.T) {
	env := newTestEnv(&fakeGateway{explain: "Your bones look healthy.", audio: speech(2400)})
	ctx := context.Background()
	sid := env.session()
	env.svc.Navigate(ctx, sid, ViewRecords)
	env.svc.SelectRecord(ctx, sid, "2")

	vm, err := env.svc.Explain(ctx, sid, "English")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	m := vm.Data.(RecordsModel)
	if m.Explanation == nil || m.Explanation.Text != "Your bones look healthy." || !m.Explanation.HasAudio {
		t.Fatalf("unexpected explanation %+v", m.Explanation)
	}
	if m.Audio != audio.StatePlaying {
		t.Fatalf("expected playing, got %s", m.Audio)
	}

	// A second explanation while the first still plays.
	if _, err := env.svc.Explain(ctx, sid, "French"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	env.timers.FireAll()

	want := []audio.State{audio.StatePlaying, audio.StateStopped, audio.StatePlaying, audio.StateStopped}
	got := env.notifier.AudioStates()
	if len(got) != len(want) {
		t.Fatalf("expected states %v, got %v", want, got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("expected states %v, got %v", want, got)
		}
	}
}

func TestService_Explain_StopAndClose(t *testing.T) {
	env := newTestEnv(&fakeGateway{explain: "ok", audio: speech(2400)})
	ctx := context.Background()
	sid := env.session()
	env.svc.Navigate(ctx, sid, ViewRecords)
	env.svc.SelectRecord(ctx, sid, "1")
	env.svc.Explain(ctx, sid, "Hindi")

	vm, err := env.svc.StopAudio(ctx, sid)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if vm.Data.(RecordsModel).Audio != audio.StateStopped {
		t.Error("expected stopped after StopAudio")
	}
	env.svc.StopAudio(ctx, sid)
	if states := env.notifier.AudioStates(); len(states) != 2 {
		t.Errorf("expected stop to be idempotent, got %v", states)
	}

	vm, _ = env.svc.CloseExplanation(ctx, sid)
	if vm.Data.(RecordsModel).Explanation != nil {
		t.Error("expected explanation closed")
	}
	if _, _, err := env.svc.NarrationAudio(ctx, sid); !errors.Is(err, ErrNoNarration) {
		t.Errorf("expected ErrNoNarration, got %v", err)
	}
}

func TestService_Explain_Fallbacks(t *testing.T) {
	tests := []struct {
		name     string
		gw       *fakeGateway
		wantText string
		wantAuds bool
	}{
		{"text failure", &fakeGateway{explainErr: errors.New("down"), audio: speech(10)}, aigateway.ExplainErrorText, false},
		{"speech failure", &fakeGateway{explain: "fine", audioErr: errors.New("tts down")}, "fine", false},
		{"undecodable audio", &fakeGateway{explain: "fine", audio: "!!!"}, "fine", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := newTestEnv(tt.gw)
			ctx := context.Background()
			sid := env.session()
			env.svc.Navigate(ctx, sid, ViewRecords)
			env.svc.SelectRecord(ctx, sid, "3")

			vm, err := env.svc.Explain(ctx, sid, "Arabic")
			if err != nil {
				t.Fatalf("expected no error, got %v", err)
			}
			m := vm.Data.(RecordsModel)
			if m.Explanation == nil || m.Explanation.Text != tt.wantText || m.Explanation.HasAudio != tt.wantAuds {
				t.Errorf("unexpected explanation %+v", m.Explanation)
			}
			if m.Audio != audio.StateStopped || m.Loading {
				t.Errorf("expected idle panel, got audio=%s loading=%v", m.Audio, m.Loading)
			}
		})
	}
}

func TestService_Explain_SecondTriggerBusy(t *testing.T) {
	gw := &fakeGateway{explain: "ok", entered: make(chan struct{}), block: make(chan struct{})}
	env := newTestEnv(gw)
	ctx := context.Background()
	sid := env.session()
	env.svc.Navigate(ctx, sid, ViewRecords)
	env.svc.SelectRecord(ctx, sid, "1")

	done := make(chan error, 1)
	go func() {
		_, err := env.svc.Explain(ctx, sid, "English")
		done <- err
	}()
	<-gw.entered
	if _, err := env.svc.Explain(ctx, sid, "English"); !errors.Is(err, inflight.ErrBusy) {
		t.Errorf("expected ErrBusy, got %v", err)
	}
	close(gw.block)
	if err := <-done; err != nil {
		t.Fatalf("first explanation failed: %v", err)
	}
}

func TestService_NarrationAudio(t *testing.T) {
	env := newTestEnv(&fakeGateway{explain: "ok", audio: speech(100)})
	ctx := context.Background()
	sid := env.session()
	env.svc.Navigate(ctx, sid, ViewRecords)
	env.svc.SelectRecord(ctx, sid, "1")
	env.svc.Explain(ctx, sid, "English")

	rc, meta, err := env.svc.NarrationAudio(ctx, sid)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	defer rc.Close()
	data, _ := io.ReadAll(rc)
	if meta.ContentType != "audio/wav" || len(data) != 44+200 || string(data[:4]) != "RIFF" {
		t.Errorf("unexpected narration %s, %d bytes", meta.ContentType, len(data))
	}
}

func TestService_BookPublishesEvent(t *testing.T) {
	env := newTestEnv(&fakeGateway{})
	ctx := context.Background()
	sid := env.session()

	if _, err := env.svc.Book(ctx, sid, scheduling.BookingRequest{Date: "2024-05-20", Time: "10:00 AM", TreatmentType: "Teeth Whitening"}); !errors.Is(err, scheduling.ErrSlotTaken) {
		t.Fatalf("expected ErrSlotTaken, got %v", err)
	}
	if len(env.events.Types()) != 0 {
		t.Error("rejected booking published an event")
	}
	appt, err := env.svc.Book(ctx, sid, scheduling.BookingRequest{Date: "2024-06-01", Time: "11:00 AM", TreatmentType: "Teeth Whitening"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	types := env.events.Types()
	if len(types) != 1 || types[0] != events.AppointmentBooked {
		t.Errorf("unexpected events %v", types)
	}
	if env.events.events[0].Data["appointmentId"] != appt.ID {
		t.Errorf("event does not reference the appointment: %+v", env.events.events[0])
	}
}

func TestService_ConfirmBooking(t *testing.T) {
	env := newTestEnv(&fakeGateway{})
	ctx := context.Background()
	sid := env.session()
	env.svc.Navigate(ctx, sid, ViewBookingCalendar)
	env.svc.SelectDate(ctx, sid, "2024-06-01")
	env.svc.SelectTime(ctx, sid, "11:00 AM")
	env.svc.SelectService(ctx, sid, "Teeth Whitening")

	vm, err := env.svc.ConfirmBooking(ctx, sid)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if vm.View != ViewAppointments {
		t.Errorf("expected APPOINTMENTS, got %s", vm.View)
	}
	m := vm.Data.(AppointmentsModel)
	if len(m.Upcoming) != 2 {
		t.Errorf("expected 2 upcoming appointments, got %d", len(m.Upcoming))
	}
}

func TestService_SignedOutRejected(t *testing.T) {
	env := newTestEnv(&fakeGateway{})
	ctx := context.Background()
	sid, _, _ := env.svc.CreateSession(ctx)

	if _, err := env.svc.Appointments(ctx, sid); !errors.Is(err, ErrSignInRequired) {
		t.Errorf("expected ErrSignInRequired, got %v", err)
	}
	if _, err := env.svc.UploadRecord(ctx, sid, "x.png", "image/png", strings.NewReader("x")); !errors.Is(err, ErrSignInRequired) {
		t.Errorf("expected ErrSignInRequired, got %v", err)
	}
}

func TestService_UploadRecordAndEndSession(t *testing.T) {
	store := blobstore.NewInMemoryBlobStore(0)
	env := newTestEnv(&fakeGateway{})
	env.svc.blobs = store
	ctx := context.Background()
	sid := env.session()

	item, err := env.svc.UploadRecord(ctx, sid, "xray.png", "image/png", bytes.NewReader([]byte("png-bytes")))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.HasPrefix(item.ImageURL, BlobPathPrefix) || item.Title != "xray.png" {
		t.Errorf("unexpected record %+v", item)
	}
	recs, _ := env.svc.Records(ctx, sid)
	if recs[0].ID != item.ID {
		t.Error("expected uploaded record first")
	}
	if types := env.events.Types(); len(types) != 1 || types[0] != events.RecordUploaded {
		t.Errorf("unexpected events %v", types)
	}

	if _, err := env.svc.UploadRecord(ctx, sid, "notes.txt", "text/plain", strings.NewReader("x")); !errors.Is(err, blobstore.ErrInvalidContentType) {
		t.Errorf("expected ErrInvalidContentType, got %v", err)
	}

	if err := env.svc.EndSession(ctx, sid); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	blobID := strings.TrimPrefix(item.ImageURL, BlobPathPrefix)
	if _, _, err := store.Download(ctx, blobID); !errors.Is(err, blobstore.ErrBlobNotFound) {
		t.Errorf("expected session files deleted, got %v", err)
	}
	if err := env.svc.EndSession(ctx, sid); !errors.Is(err, ErrSessionNotFound) {
		t.Errorf("expected ErrSessionNotFound, got %v", err)
	}
}

func TestService_DailyTipFetchedOncePerDay(t *testing.T) {
	gw := &fakeGateway{tip: "Brush for two minutes."}
	env := newTestEnv(gw)
	ctx := context.Background()
	sid := env.session()

	vm, _ := env.svc.View(ctx, sid)
	if vm.Data.(DashboardModel).Tip != "Brush for two minutes." {
		t.Errorf("unexpected tip %+v", vm.Data)
	}
	env.svc.View(ctx, sid)
	env.session()
	if gw.tipCalls != 1 {
		t.Errorf("expected one tip request, got %d", gw.tipCalls)
	}

	env.clock.Advance(24 * time.Hour)
	env.svc.View(ctx, sid)
	if gw.tipCalls != 2 {
		t.Errorf("expected a new tip on a new day, got %d calls", gw.tipCalls)
	}
}

func TestService_DailyTipFallback(t *testing.T) {
	env := newTestEnv(&fakeGateway{})
	vm, _ := env.svc.View(context.Background(), env.session())
	if vm.Data.(DashboardModel).Tip != aigateway.FallbackTip {
		t.Errorf("expected fallback tip, got %+v", vm.Data)
	}
}

func TestService_Sweep(t *testing.T) {
	env := newTestEnv(&fakeGateway{})
	ctx := context.Background()
	idle := env.session()
	env.clock.Advance(2 * time.Hour)
	active := env.session()

	if n := env.svc.Sweep(ctx, time.Hour); n != 1 {
		t.Fatalf("expected 1 session swept, got %d", n)
	}
	if _, err := env.svc.View(ctx, idle); !errors.Is(err, ErrSessionNotFound) {
		t.Errorf("expected idle session gone, got %v", err)
	}
	if _, err := env.svc.View(ctx, active); err != nil {
		t.Errorf("active session swept: %v", err)
	}
}

func TestService_ToggleDoseAndProfile(t *testing.T) {
	env := newTestEnv(&fakeGateway{})
	ctx := context.Background()
	sid := env.session()

	med, err := env.svc.ToggleDose(ctx, sid, "1", 1)
	if err != nil || !med.TakenToday[1] {
		t.Fatalf("unexpected toggle result %+v, %v", med, err)
	}
	env.svc.ToggleDose(ctx, sid, "1", 1)
	meds, _ := env.svc.Medications(ctx, sid)
	if meds[0].TakenToday[1] {
		t.Error("expected second toggle to restore the dose")
	}

	env.svc.Navigate(ctx, sid, ViewProfile)
	if _, err := env.svc.StartEdit(ctx, sid); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := env.svc.SetProfileImage(ctx, sid, "image/jpeg", []byte{0xff, 0xd8}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	m, err := env.svc.SaveProfile(ctx, sid)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.HasPrefix(m.Profile.ProfileImage, "data:image/jpeg;base64,") || m.Editing {
		t.Errorf("unexpected profile %+v", m)
	}
	if _, err := env.svc.SetProfileImage(ctx, sid, "application/pdf", []byte("x")); err == nil {
		t.Error("expected non-image rejected")
	}
	m, _ = env.svc.UpgradePremium(ctx, sid)
	if !m.Preferences.Premium {
		t.Error("expected premium")
	}
}
