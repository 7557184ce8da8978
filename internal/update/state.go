package update

import (
	"errors"
	"sync"
)

// Phase is a step of the update state machine.
type Phase int

const (
	PhaseIdle Phase = iota
	PhaseChecking
	PhaseUpdating
	PhaseDone
)

func (p Phase) String() string {
	switch p {
	case PhaseIdle:
		return "idle"
	case PhaseChecking:
		return "checking"
	case PhaseUpdating:
		return "updating"
	case PhaseDone:
		return "done"
	default:
		return "unknown"
	}
}

// State is the published snapshot of an update invocation.
type State struct {
	Phase    Phase
	Progress float64 // 0-100, never decreases within one invocation
	Err      error   // set only in PhaseDone
}

// Succeeded reports a finished invocation without error.
func (s State) Succeeded() bool {
	return s.Phase == PhaseDone && s.Err == nil
}

// NoUpdate reports a finished invocation that found nothing to do.
func (s State) NoUpdate() bool {
	return s.Phase == PhaseDone && errors.Is(s.Err, ErrNoUpdate)
}

// Publisher fans states out to subscribers. Slow subscribers only ever miss
// intermediate states; the latest one is always delivered.
type Publisher struct {
	mu      sync.Mutex
	current State
	subs    map[int]chan State
	nextID  int
}

// NewPublisher creates a publisher in PhaseIdle.
func NewPublisher() *Publisher {
	return &Publisher{subs: make(map[int]chan State)}
}

// Current returns the most recently published state.
func (p *Publisher) Current() State {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.current
}

// Subscribe returns a channel primed with the current state and a cancel
// function that closes it.
func (p *Publisher) Subscribe(buffer int) (<-chan State, func()) {
	if buffer < 1 {
		buffer = 1
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	id := p.nextID
	p.nextID++
	ch := make(chan State, buffer)
	ch <- p.current
	p.subs[id] = ch

	var once sync.Once
	cancel := func() {
		once.Do(func() {
			p.mu.Lock()
			defer p.mu.Unlock()
			delete(p.subs, id)
			close(ch)
		})
	}
	return ch, cancel
}

// Publish records s and delivers it to every subscriber.
// Progress is clamped to [previous, 100]; publishing PhaseIdle resets it.
func (p *Publisher) Publish(s State) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if s.Progress > 100 {
		s.Progress = 100
	}
	if s.Phase != PhaseIdle && s.Progress < p.current.Progress {
		s.Progress = p.current.Progress
	}
	p.current = s

	for _, ch := range p.subs {
		select {
		case ch <- s:
		default:
			// Drop the oldest queued state to make room for the latest
			select {
			case <-ch:
			default:
			}
			select {
			case ch <- s:
			default:
			}
		}
	}
}
