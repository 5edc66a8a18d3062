// Package ipi abstracts the inter-processor mailbox used to talk to the
// power-management peer: a probe for peer presence, a synchronous
// five-word request/response call, and registration of the handler that
// receives unsolicited five-word callbacks from the peer.
//
// Mailbox framing and retry belong to the platform transport and are out
// of scope here; implementations expose only the word-level contract.
package ipi

import (
	"errors"
	"fmt"
	"sync"
)

// PayloadWords is the fixed width of every mailbox message.
const PayloadWords = 5

// Payload is one mailbox message: five 32-bit words.
type Payload [PayloadWords]uint32

// Handler receives unsolicited callback payloads from the peer. It runs
// in the transport's delivery context and must not block.
type Handler func(Payload)

// ErrPeerDown reports that the peer mailbox is not present.
var ErrPeerDown = errors.New("ipi: peer mailbox not present")

// Transport is the mailbox surface the bridge consumes.
type Transport interface {
	// Probe reports whether the peer is reachable. Called once during
	// bridge setup.
	Probe() error
	// Call sends a request and blocks for the matching response.
	Call(req Payload) (Payload, error)
	// RegisterHandler installs the callback-delivery handler.
	RegisterHandler(fn Handler) error
}

// Responder is the peer side of a loopback transport.
type Responder interface {
	HandleRequest(req Payload) (Payload, error)
}

// Loopback is an in-process Transport backed by a Responder. It gives
// tests and the demo daemon a complete round trip without platform
// mailbox hardware.
type Loopback struct {
	mu        sync.Mutex
	responder Responder
	handler   Handler
	down      bool
}

// NewLoopback returns a Loopback that forwards calls to responder.
func NewLoopback(responder Responder) *Loopback {
	return &Loopback{responder: responder}
}

// SetDown marks the peer unreachable; subsequent Probe and Call fail.
func (l *Loopback) SetDown(down bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.down = down
}

// Probe implements Transport.
func (l *Loopback) Probe() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.down || l.responder == nil {
		return ErrPeerDown
	}
	return nil
}

// Call implements Transport.
func (l *Loopback) Call(req Payload) (Payload, error) {
	l.mu.Lock()
	responder := l.responder
	down := l.down
	l.mu.Unlock()

	if down || responder == nil {
		return Payload{}, ErrPeerDown
	}
	resp, err := responder.HandleRequest(req)
	if err != nil {
		return Payload{}, fmt.Errorf("ipi: call failed: %w", err)
	}
	return resp, nil
}

// RegisterHandler implements Transport.
func (l *Loopback) RegisterHandler(fn Handler) error {
	if fn == nil {
		return fmt.Errorf("ipi: handler is nil")
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	l.handler = fn
	return nil
}

// Deliver injects a callback payload from the peer side, invoking the
// registered handler. Payloads delivered before a handler is registered
// are dropped, matching interrupt delivery to an unconfigured line.
func (l *Loopback) Deliver(p Payload) {
	l.mu.Lock()
	handler := l.handler
	l.mu.Unlock()

	if handler != nil {
		handler(p)
	}
}

var _ Transport = (*Loopback)(nil)
