// Package commstest provides an in-memory comms.Conn for tests.
package commstest

import (
	"sync"

	"github.com/JJ-Intelligence/slide-tac-toe/pkg/comms"
	"github.com/google/uuid"
)

// Recorder is a comms.Conn which keeps every message it is sent.
type Recorder struct {
	id       string
	mu       sync.Mutex
	messages []comms.Message
	closed   bool
	// FailSends makes every Send return an error without recording.
	FailSends bool
}

func NewRecorder() *Recorder {
	return &Recorder{id: uuid.NewString()}
}

func (r *Recorder) ID() string {
	return r.id
}

func (r *Recorder) Send(message comms.Message) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.FailSends || r.closed {
		return comms.ErrConnectionClosed
	}
	r.messages = append(r.messages, message)
	return nil
}

func (r *Recorder) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.closed = true
	return nil
}

// Messages returns a copy of everything sent so far.
func (r *Recorder) Messages() []comms.Message {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]comms.Message(nil), r.messages...)
}

// OfType returns the sent messages with the given type.
func (r *Recorder) OfType(typ string) []comms.Message {
	var out []comms.Message
	for _, m := range r.Messages() {
		if m.Type == typ {
			out = append(out, m)
		}
	}
	return out
}

// Last returns the most recent message, or false if none was sent.
func (r *Recorder) Last() (comms.Message, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.messages) == 0 {
		return comms.Message{}, false
	}
	return r.messages[len(r.messages)-1], true
}

// Reset forgets recorded messages.
func (r *Recorder) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.messages = nil
}

func (r *Recorder) Closed() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.closed
}
