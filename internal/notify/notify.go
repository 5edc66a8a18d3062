// Package notify holds the single-slot hand-off between the peer's
// callback-delivery context and the synchronous call path: a capacity-one
// mailbox that keeps only the latest payload and signals a registered
// interrupt line on each publish.
package notify

import (
	"log/slog"
	"sync"

	"github.com/hvkit/pmbridge/internal/gic"
	"github.com/hvkit/pmbridge/internal/ipi"
)

// Slot buffers the most recent callback payload from the peer.
//
// Publishing overwrites the previous payload unconditionally: the design
// retains at most one unread notification, and a payload that arrives
// before the last one is consumed replaces it. Reading takes a snapshot
// without clearing, so repeated reads between publishes see the same
// value. The mutex only serializes the word copy between the delivery
// goroutine and readers; Publish never waits for a consumer.
type Slot struct {
	mu         sync.Mutex
	payload    ipi.Payload
	irq        uint32
	registered bool

	ctrl   gic.Controller
	logger *slog.Logger
}

// NewSlot returns a Slot that signals through ctrl. A nil ctrl is
// replaced with a detached controller; a nil logger with the default.
func NewSlot(ctrl gic.Controller, logger *slog.Logger) *Slot {
	if ctrl == nil {
		ctrl = gic.Detached()
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Slot{ctrl: ctrl, logger: logger}
}

// Publish stores the payload and signals the registered interrupt line.
// When no line has been registered yet the signal is skipped but the
// payload is still stored: a later registration followed by a read can
// still observe it. Loss of the signal never loses the data, only its
// timely notice.
func (s *Slot) Publish(words ipi.Payload) {
	s.mu.Lock()
	s.payload = words
	irq := s.irq
	registered := s.registered
	s.mu.Unlock()

	if !registered {
		return
	}
	s.ctrl.Signal(irq)
}

// RegisterChannel stores the interrupt line to signal on publish and
// arms it at the controller. The line is set once per session by
// contract; a repeat registration overwrites the previous line and is
// logged rather than rejected, so a caller re-initializing after kexec
// keeps a working callback path.
func (s *Slot) RegisterChannel(irq uint32) {
	s.mu.Lock()
	wasRegistered := s.registered
	previous := s.irq
	s.irq = irq
	s.registered = true
	s.mu.Unlock()

	if wasRegistered && previous != irq {
		s.logger.Warn("callback interrupt re-registered", "previous", previous, "irq", irq)
	}
	s.ctrl.Enable(irq)
}

// Pending returns a snapshot of the buffered payload. The slot is not
// cleared; the next Publish overwrites it.
func (s *Slot) Pending() ipi.Payload {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.payload
}
