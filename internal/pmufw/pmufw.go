// Package pmufw is an in-process model of the power-management peer.
// It answers mailbox requests against a small node/reset/register table
// and emits callback payloads, giving the demo daemon and integration
// tests a complete round trip without the real controller firmware.
package pmufw

import (
	"log/slog"
	"sync"

	"github.com/hvkit/pmbridge/internal/ipi"
	"github.com/hvkit/pmbridge/internal/pmapi"
)

// Acknowledge request types carried in the ack argument of suspend and
// node operations. Non-blocking acknowledges produce a callback payload.
const (
	AckNone        = 0
	AckBlocking    = 1
	AckNonBlocking = 2
)

type nodeState struct {
	suspended    bool
	poweredDown  bool
	requested    bool
	capabilities uint32
	qos          uint32
	maxLatency   uint32
	wakeupSource uint32
	notifier     bool
}

// Firmware models the peer controller.
type Firmware struct {
	mu sync.Mutex

	version   pmapi.Version
	nodes     map[uint32]*nodeState
	fixed     bool
	resets    map[uint32]uint32
	registers map[uint32]uint32
	config    uint32
	shutdown  bool
	restart   bool

	deliver func(ipi.Payload)
	logger  *slog.Logger
}

// Option configures a Firmware.
type Option func(*Firmware)

// WithVersion overrides the version the firmware reports.
func WithVersion(v pmapi.Version) Option {
	return func(f *Firmware) { f.version = v }
}

// WithNodes pre-populates the node inventory. Operations on nodes
// outside the inventory fail with the invalid-arguments status. An empty
// inventory accepts any node.
func WithNodes(ids []uint32) Option {
	return func(f *Firmware) {
		f.fixed = true
		for _, id := range ids {
			f.nodes[id] = &nodeState{}
		}
	}
}

// WithRegister seeds a proxied register value.
func WithRegister(addr, value uint32) Option {
	return func(f *Firmware) { f.registers[addr] = value }
}

// WithLogger sets the firmware's logger.
func WithLogger(logger *slog.Logger) Option {
	return func(f *Firmware) { f.logger = logger }
}

// New returns a Firmware with the given options applied.
func New(opts ...Option) *Firmware {
	f := &Firmware{
		version:   pmapi.CurrentVersion,
		nodes:     make(map[uint32]*nodeState),
		resets:    make(map[uint32]uint32),
		registers: make(map[uint32]uint32),
		logger:    slog.Default(),
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// SetCallbackSink installs the function used to deliver callback
// payloads toward the bridge, typically ipi.(*Loopback).Deliver.
func (f *Firmware) SetCallbackSink(deliver func(ipi.Payload)) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.deliver = deliver
}

// ShutdownRequested reports whether a system-shutdown call was handled,
// and whether it asked for a restart.
func (f *Firmware) ShutdownRequested() (shutdown, restart bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.shutdown, f.restart
}

// Register returns the current value of a proxied register.
func (f *Firmware) Register(addr uint32) uint32 {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.registers[addr]
}

// HandleRequest implements ipi.Responder. Word 0 selects the function;
// words 1..4 carry its arguments. The response carries the status in
// word 0 and an optional value in word 1.
func (f *Firmware) HandleRequest(req ipi.Payload) (ipi.Payload, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	id := pmapi.FunctionID(req[0])
	a := req[1:]

	switch id {
	case pmapi.GetAPIVersion:
		return respond(pmapi.StatusSuccess, f.version.Packed()), nil

	case pmapi.SetConfiguration:
		f.config = a[0]
		return respond(pmapi.StatusSuccess, 0), nil

	case pmapi.GetNodeStatus:
		if f.node(a[0]) == nil {
			return respond(pmapi.StatusInvalidArgs, 0), nil
		}
		return respond(pmapi.StatusSuccess, 0), nil

	case pmapi.GetOpCharacteristic:
		if f.node(a[0]) == nil {
			return respond(pmapi.StatusInvalidArgs, 0), nil
		}
		return respond(pmapi.StatusSuccess, 0), nil

	case pmapi.RegisterNotifier:
		node := f.node(a[0])
		if node == nil {
			return respond(pmapi.StatusInvalidArgs, 0), nil
		}
		node.notifier = a[3] != 0
		return respond(pmapi.StatusSuccess, 0), nil

	case pmapi.RequestSuspend:
		node := f.node(a[0])
		if node == nil {
			return respond(pmapi.StatusInvalidArgs, 0), nil
		}
		node.suspended = true
		if a[1] == AckNonBlocking {
			f.emitLocked(ipi.Payload{uint32(pmapi.AcknowledgeCallback), a[0], uint32(pmapi.StatusSuccess), 0, 0})
		}
		return respond(pmapi.StatusSuccess, 0), nil

	case pmapi.SelfSuspend:
		node := f.node(a[0])
		if node == nil {
			return respond(pmapi.StatusInvalidArgs, 0), nil
		}
		node.suspended = true
		return respond(pmapi.StatusSuccess, 0), nil

	case pmapi.ForcePowerdown:
		node := f.node(a[0])
		if node == nil {
			return respond(pmapi.StatusInvalidArgs, 0), nil
		}
		node.poweredDown = true
		return respond(pmapi.StatusSuccess, 0), nil

	case pmapi.AbortSuspend:
		for _, node := range f.nodes {
			node.suspended = false
		}
		return respond(pmapi.StatusSuccess, 0), nil

	case pmapi.RequestWakeup:
		node := f.node(a[0])
		if node == nil {
			return respond(pmapi.StatusInvalidArgs, 0), nil
		}
		node.suspended = false
		node.poweredDown = false
		if a[3] == AckNonBlocking {
			f.emitLocked(ipi.Payload{uint32(pmapi.AcknowledgeCallback), a[0], uint32(pmapi.StatusSuccess), 0, 0})
		}
		return respond(pmapi.StatusSuccess, 0), nil

	case pmapi.SetWakeupSource:
		node := f.node(a[0])
		if node == nil {
			return respond(pmapi.StatusInvalidArgs, 0), nil
		}
		if a[2] != 0 {
			node.wakeupSource = a[1]
		} else {
			node.wakeupSource = 0
		}
		return respond(pmapi.StatusSuccess, 0), nil

	case pmapi.SystemShutdown:
		f.shutdown = true
		f.restart = a[0] != 0
		return respond(pmapi.StatusSuccess, 0), nil

	case pmapi.RequestNode:
		node := f.node(a[0])
		if node == nil {
			return respond(pmapi.StatusInvalidArgs, 0), nil
		}
		if node.requested {
			return respond(pmapi.StatusDoubleRequest, 0), nil
		}
		node.requested = true
		node.capabilities = a[1]
		node.qos = a[2]
		return respond(pmapi.StatusSuccess, 0), nil

	case pmapi.ReleaseNode:
		node := f.node(a[0])
		if node == nil || !node.requested {
			return respond(pmapi.StatusInvalidArgs, 0), nil
		}
		node.requested = false
		return respond(pmapi.StatusSuccess, 0), nil

	case pmapi.SetRequirement:
		node := f.node(a[0])
		if node == nil || !node.requested {
			return respond(pmapi.StatusNoAccess, 0), nil
		}
		node.capabilities = a[1]
		node.qos = a[2]
		return respond(pmapi.StatusSuccess, 0), nil

	case pmapi.SetMaxLatency:
		node := f.node(a[0])
		if node == nil {
			return respond(pmapi.StatusInvalidArgs, 0), nil
		}
		node.maxLatency = a[1]
		return respond(pmapi.StatusSuccess, 0), nil

	case pmapi.ResetAssert:
		f.resets[a[0]] = a[1]
		return respond(pmapi.StatusSuccess, 0), nil

	case pmapi.ResetGetStatus:
		return respond(pmapi.StatusSuccess, f.resets[a[0]]), nil

	case pmapi.MMIOWrite:
		addr, mask, value := a[0], a[1], a[2]
		f.registers[addr] = f.registers[addr]&^mask | value&mask
		return respond(pmapi.StatusSuccess, 0), nil

	case pmapi.MMIORead:
		return respond(pmapi.StatusSuccess, f.registers[a[0]]), nil

	default:
		f.logger.Warn("unhandled peer function", "function", id.String())
		return respond(pmapi.StatusInvalidAPIID, 0), nil
	}
}

// RaiseSuspendRequest emits an init-suspend callback asking the caller
// to suspend itself, e.g. on a power-button event.
func (f *Firmware) RaiseSuspendRequest(reason, latency, state, timeout uint32) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.emitLocked(ipi.Payload{uint32(pmapi.InitSuspendCallback), reason, latency, state, timeout})
}

// RaiseEvent emits a notify callback for a node event to which the
// caller subscribed with register-notifier.
func (f *Firmware) RaiseEvent(nodeID, event, data uint32) {
	f.mu.Lock()
	defer f.mu.Unlock()
	node := f.node(nodeID)
	if node == nil || !node.notifier {
		return
	}
	f.emitLocked(ipi.Payload{uint32(pmapi.NotifyCallback), nodeID, event, data, 0})
}

func (f *Firmware) emitLocked(p ipi.Payload) {
	if f.deliver == nil {
		f.logger.Warn("callback dropped, no sink", "function", pmapi.FunctionID(p[0]).String())
		return
	}
	f.deliver(p)
}

// node resolves a node ID against the inventory. An empty inventory
// accepts and lazily creates any node.
func (f *Firmware) node(id uint32) *nodeState {
	if node, ok := f.nodes[id]; ok {
		return node
	}
	if !f.fixed {
		node := &nodeState{}
		f.nodes[id] = node
		return node
	}
	return nil
}

func respond(status pmapi.Status, value uint32) ipi.Payload {
	return ipi.Payload{uint32(status), value}
}

var _ ipi.Responder = (*Firmware)(nil)
