package avdtp

import (
	"errors"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
)

// ErrNoFreeLabel means all 16 transaction labels have commands in
// flight, which indicates the peer has stopped responding.
var ErrNoFreeLabel = errors.New("avdtp: no free transaction label")

// Pending is one outstanding command awaiting its response.
type Pending struct {
	// Label is the transaction label the response must echo.
	Label uint8
	// Signal is the procedure the command started.
	Signal SignalID
	// Deadline is when the command times out.
	Deadline time.Time
	// SentAt records when the command went out, for latency logging.
	SentAt time.Time
}

// Tracker pairs signaling commands with their responses using the
// 4-bit transaction label space. Each pending command carries its own
// deadline; the session loop polls Expired so a silent peer converts
// into a timeout event instead of a stuck procedure.
//
// All methods are safe for concurrent use.
type Tracker struct {
	mu        sync.Mutex
	pending   map[uint8]*Pending
	nextLabel uint8
	now       func() time.Time
}

// NewTracker creates an empty transaction tracker.
func NewTracker() *Tracker {
	return &Tracker{
		pending: make(map[uint8]*Pending),
		now:     time.Now,
	}
}

// Begin registers a new outstanding command and returns the label to
// send it under. Labels are allocated round-robin so a delayed response
// to an old label is unlikely to collide with a live transaction.
func (t *Tracker) Begin(signal SignalID, timeout time.Duration) (uint8, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	for i := 0; i < 16; i++ {
		label := t.nextLabel
		t.nextLabel = (t.nextLabel + 1) & 0x0F
		if _, busy := t.pending[label]; busy {
			continue
		}

		now := t.now()
		t.pending[label] = &Pending{
			Label:    label,
			Signal:   signal,
			Deadline: now.Add(timeout),
			SentAt:   now,
		}
		return label, nil
	}
	return 0, ErrNoFreeLabel
}

// Match consumes the pending command a response resolves. Responses
// with no matching label, or whose signal does not match the command,
// are stale or duplicate and are discarded with a log line.
func (t *Tracker) Match(msg *Message) (*Pending, bool) {
	if msg.Type == MessageCommand {
		return nil, false
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	p, ok := t.pending[msg.Label]
	if !ok || p.Signal != msg.Signal {
		logrus.WithFields(logrus.Fields{
			"function": "Match",
			"label":    msg.Label,
			"signal":   msg.Signal.String(),
		}).Debug("Discarding stale or duplicate signaling response")
		return nil, false
	}

	delete(t.pending, msg.Label)
	return p, true
}

// Expired removes and returns every pending command whose deadline has
// passed.
func (t *Tracker) Expired() []Pending {
	t.mu.Lock()
	defer t.mu.Unlock()

	now := t.now()
	var out []Pending
	for label, p := range t.pending {
		if now.Before(p.Deadline) {
			continue
		}
		out = append(out, *p)
		delete(t.pending, label)
	}
	return out
}

// AbortAll removes and returns every pending command. Used when the
// link drops or the session closes: in-flight waits resolve as aborted
// rather than waiting out their timeouts.
func (t *Tracker) AbortAll() []Pending {
	t.mu.Lock()
	defer t.mu.Unlock()

	out := make([]Pending, 0, len(t.pending))
	for label, p := range t.pending {
		out = append(out, *p)
		delete(t.pending, label)
	}
	return out
}

// Outstanding returns the number of commands awaiting responses.
func (t *Tracker) Outstanding() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.pending)
}
