package portal

import (
	"context"
	"encoding/base64"
	"encoding/binary"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/luminous/portal/internal/domain/scheduling"
	"github.com/luminous/portal/internal/platform/aigateway"
	"github.com/luminous/portal/internal/platform/audio"
	"github.com/luminous/portal/internal/platform/events"
	"github.com/luminous/portal/internal/platform/sandbox"
)

var testNow = time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC)

type testClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *testClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

// manualTimers schedules player completions that fire only when the test
// says so.
type manualTimers struct {
	mu      sync.Mutex
	pending []*manualTimer
}

type manualTimer struct {
	mu      sync.Mutex
	f       func()
	stopped bool
}

func (t *manualTimer) Stop() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	was := !t.stopped
	t.stopped = true
	return was
}

func (m *manualTimers) After(_ time.Duration, f func()) audio.Timer {
	t := &manualTimer{f: f}
	m.mu.Lock()
	m.pending = append(m.pending, t)
	m.mu.Unlock()
	return t
}

// FireAll runs every pending completion, including stopped ones, the way a
// late timer would.
func (m *manualTimers) FireAll() {
	m.mu.Lock()
	pending := m.pending
	m.pending = nil
	m.mu.Unlock()
	for _, t := range pending {
		t.f()
	}
}

type stateRecorder struct {
	mu     sync.Mutex
	states []audio.State
}

func (r *stateRecorder) Observe(s audio.State) {
	r.mu.Lock()
	r.states = append(r.states, s)
	r.mu.Unlock()
}

func (r *stateRecorder) States() []audio.State {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]audio.State(nil), r.states...)
}

func sequentialIDs() func() string {
	var mu sync.Mutex
	n := 0
	return func() string {
		mu.Lock()
		defer mu.Unlock()
		n++
		return fmt.Sprintf("id-%d", n)
	}
}

// speech returns base64 PCM of n silent samples.
func speech(n int) string {
	raw := make([]byte, 2*n)
	for i := 0; i < n; i++ {
		binary.LittleEndian.PutUint16(raw[2*i:], uint16(i%100))
	}
	return base64.StdEncoding.EncodeToString(raw)
}

func newTestController(player Playback) *Controller {
	sched := scheduling.NewScheduler(
		scheduling.WithClock(func() time.Time { return testNow }),
		scheduling.WithIDGenerator(func() string { return "appt-new" }),
	)
	opts := []ControllerOption{WithScheduler(sched), WithIDs(sequentialIDs())}
	if player != nil {
		opts = append(opts, WithPlayback(player))
	}
	return NewController(sandbox.Generate(), opts...)
}

func signedIn(player Playback) *Controller {
	c := newTestController(player)
	c.SignIn()
	return c
}

// fakeGateway answers from fields; block, when set, holds SendMessage and
// ExplainText until it is closed.
type fakeGateway struct {
	mu         sync.Mutex
	reply      string
	replyErr   error
	explain    string
	explainErr error
	audio      string
	audioErr   error
	tip        string
	tipCalls   int
	entered    chan struct{}
	block      chan struct{}
}

func (f *fakeGateway) wait() {
	if f.entered != nil {
		f.entered <- struct{}{}
	}
	if f.block != nil {
		<-f.block
	}
}

func (f *fakeGateway) StartChat(context.Context) (*aigateway.Conversation, error) {
	return aigateway.NewConversation(aigateway.SystemInstruction), nil
}

func (f *fakeGateway) SendMessage(context.Context, *aigateway.Conversation, string) (string, error) {
	f.wait()
	return f.reply, f.replyErr
}

func (f *fakeGateway) ExplainText(context.Context, string, string) (string, error) {
	f.wait()
	return f.explain, f.explainErr
}

func (f *fakeGateway) Synthesize(context.Context, string) (string, error) {
	return f.audio, f.audioErr
}

func (f *fakeGateway) DailyTip(context.Context) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.tipCalls++
	return f.tip, nil
}

type pushed struct {
	SessionID string
	Type      string
	Payload   any
}

type recordingNotifier struct {
	mu     sync.Mutex
	events []pushed
}

func (n *recordingNotifier) PublishSession(_ context.Context, sessionID, eventType string, payload any) error {
	n.mu.Lock()
	n.events = append(n.events, pushed{sessionID, eventType, payload})
	n.mu.Unlock()
	return nil
}

func (n *recordingNotifier) AudioStates() []audio.State {
	n.mu.Lock()
	defer n.mu.Unlock()
	var out []audio.State
	for _, e := range n.events {
		if e.Type == "audio.state" {
			m := e.Payload.(map[string]any)
			out = append(out, m["state"].(audio.State))
		}
	}
	return out
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []events.Event
}

func (p *recordingPublisher) Publish(_ context.Context, e events.Event) error {
	p.mu.Lock()
	p.events = append(p.events, e)
	p.mu.Unlock()
	return nil
}

func (p *recordingPublisher) Close() error { return nil }

func (p *recordingPublisher) Types() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]string, len(p.events))
	for i, e := range p.events {
		out[i] = e.Type
	}
	return out
}

type testEnv struct {
	svc      *Service
	gw       *fakeGateway
	clock    *testClock
	timers   *manualTimers
	notifier *recordingNotifier
	events   *recordingPublisher
}

func newTestEnv(gw *fakeGateway) *testEnv {
	env := &testEnv{
		gw:       gw,
		clock:    &testClock{now: testNow},
		timers:   &manualTimers{},
		notifier: &recordingNotifier{},
		events:   &recordingPublisher{},
	}
	env.svc = NewService(aigateway.NewAssistant(gw, nil, zerolog.Nop()),
		WithClock(env.clock.Now),
		WithNotifier(env.notifier),
		WithEvents(env.events),
		WithPlayerOptions(audio.WithAfterFunc(env.timers.After)),
	)
	return env
}

// session creates a signed-in session.
func (env *testEnv) session() string {
	ctx := context.Background()
	sid, _, err := env.svc.CreateSession(ctx)
	if err != nil {
		panic(err)
	}
	if _, err := env.svc.SignIn(ctx, sid); err != nil {
		panic(err)
	}
	return sid
}
