package audio

import (
	"sync"
	"time"
)

// State is the playback state of a Player.
type State string

const (
	StateStopped State = "stopped"
	StatePlaying State = "playing"
)

// Observer is notified of every state change in order. It runs with the
// player locked and must not call back into the player.
type Observer func(State)

// Timer is the part of *time.Timer the player needs.
type Timer interface {
	Stop() bool
}

// Player is a single audio output: at most one clip plays at a time and a
// new clip replaces the current one.
type Player struct {
	mu        sync.Mutex
	state     State
	gen       uint64
	timer     Timer
	observer  Observer
	afterFunc func(time.Duration, func()) Timer
}

// PlayerOption configures a Player.
type PlayerOption func(*Player)

// WithAfterFunc replaces time.AfterFunc, used to schedule completion.
func WithAfterFunc(f func(time.Duration, func()) Timer) PlayerOption {
	return func(p *Player) { p.afterFunc = f }
}

// NewPlayer creates a stopped player.
func NewPlayer(observer Observer, opts ...PlayerOption) *Player {
	p := &Player{
		state:    StateStopped,
		observer: observer,
		afterFunc: func(d time.Duration, f func()) Timer {
			return time.AfterFunc(d, f)
		},
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// State returns the current playback state.
func (p *Player) State() State {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.state
}

func (p *Player) setLocked(s State) {
	if p.state == s {
		return
	}
	p.state = s
	if p.observer != nil {
		p.observer(s)
	}
}

func (p *Player) stopLocked() {
	if p.timer != nil {
		p.timer.Stop()
		p.timer = nil
	}
	p.gen++
	p.setLocked(StateStopped)
}

// Play stops whatever is playing and starts clip. The player returns to
// stopped when the clip's duration has elapsed.
func (p *Player) Play(clip Clip) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.stopLocked()
	gen := p.gen
	p.setLocked(StatePlaying)
	p.timer = p.afterFunc(clip.Duration(), func() { p.complete(gen) })
}

func (p *Player) complete(gen uint64) {
	p.mu.Lock()
	defer p.mu.Unlock()
	// A completion scheduled for a replaced clip is ignored.
	if gen != p.gen {
		return
	}
	p.timer = nil
	p.setLocked(StateStopped)
}

// Stop halts playback. Stopping a stopped player does nothing.
func (p *Player) Stop() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.state == StateStopped {
		return
	}
	p.stopLocked()
}
