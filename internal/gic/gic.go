// Package gic models the interrupt-controller primitives the bridge
// consumes: enabling a line when the caller registers its callback
// interrupt, and signalling that line (pending + active) when the peer
// raises a notification.
package gic

import "sync"

// Controller is the minimal distributor surface the bridge needs.
type Controller interface {
	// Enable arms an interrupt line so it can be delivered.
	Enable(irq uint32)
	// Signal marks the line pending and active, injecting it into the
	// non-secure world.
	Signal(irq uint32)
}

type noopController struct{}

func (noopController) Enable(uint32) {}
func (noopController) Signal(uint32) {}

// Detached returns a Controller that drops all operations.
func Detached() Controller {
	return noopController{}
}

// LineState tracks a single interrupt line in the distributor model.
type LineState struct {
	Enabled bool
	Pending bool
	Active  bool
}

// Distributor is an in-memory distributor model. It records line state
// and delivers signalled interrupts to an optional sink, standing in for
// the platform interrupt controller in tests and the demo daemon.
type Distributor struct {
	mu    sync.Mutex
	lines map[uint32]*LineState
	sink  func(irq uint32)
}

// NewDistributor returns an empty distributor model. sink may be nil;
// when set it is invoked once per Signal with the line number.
func NewDistributor(sink func(irq uint32)) *Distributor {
	return &Distributor{
		lines: make(map[uint32]*LineState),
		sink:  sink,
	}
}

// Enable implements Controller.
func (d *Distributor) Enable(irq uint32) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.line(irq).Enabled = true
}

// Signal implements Controller. The line is marked pending and active
// regardless of its enable state; delivery to the sink happens only for
// enabled lines, matching distributor forwarding behavior.
func (d *Distributor) Signal(irq uint32) {
	d.mu.Lock()
	state := d.line(irq)
	state.Pending = true
	state.Active = true
	enabled := state.Enabled
	sink := d.sink
	d.mu.Unlock()

	if enabled && sink != nil {
		sink(irq)
	}
}

// Acknowledge clears the pending and active bits for a line, modelling
// the non-secure handler completing the interrupt.
func (d *Distributor) Acknowledge(irq uint32) {
	d.mu.Lock()
	defer d.mu.Unlock()
	state := d.line(irq)
	state.Pending = false
	state.Active = false
}

// Line returns a snapshot of the state for an interrupt line.
func (d *Distributor) Line(irq uint32) LineState {
	d.mu.Lock()
	defer d.mu.Unlock()
	return *d.line(irq)
}

func (d *Distributor) line(irq uint32) *LineState {
	state, ok := d.lines[irq]
	if !ok {
		state = &LineState{}
		d.lines[irq] = state
	}
	return state
}

var _ Controller = (*Distributor)(nil)
