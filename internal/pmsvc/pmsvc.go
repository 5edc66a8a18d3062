// Package pmsvc is the secure-side bridge between non-secure
// power-management calls and the power-management peer controller. It
// owns the dispatch table for the fixed call set, the service lifecycle
// gate, and the hand-off of asynchronous peer callbacks back to the
// caller through an interrupt line.
package pmsvc

import (
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/hvkit/pmbridge/internal/gic"
	"github.com/hvkit/pmbridge/internal/ipi"
	"github.com/hvkit/pmbridge/internal/notify"
	"github.com/hvkit/pmbridge/internal/pmapi"
	"github.com/hvkit/pmbridge/internal/smc"
)

// Function numbers handled inside the bridge rather than delegated to
// the peer. They sit outside the power-management identifier range so
// they can never collide with delegated operations.
const (
	FuncInitCallback    uint32 = 0xa01
	FuncGetCallbackData uint32 = 0xa02
)

var (
	// ErrPeerUnavailable reports that setup could not reach the peer.
	// The failure is terminal: the service stays unavailable for the
	// rest of the process, with no background retry.
	ErrPeerUnavailable = errors.New("pmsvc: power-management peer unavailable")

	// ErrAlreadyInitialized reports a repeated Setup call.
	ErrAlreadyInitialized = errors.New("pmsvc: service already initialized")
)

// Service is the bridge state. One instance exists per process; every
// field except the notification slot is written only from the
// synchronous call path.
type Service struct {
	mu          sync.Mutex
	available   bool
	initialized bool
	versionWord uint32
	versionSet  bool

	api       pmapi.API
	transport ipi.Transport
	slot      *notify.Slot
	logger    *slog.Logger
}

// Option configures a Service.
type Option func(*Service)

// WithLogger sets the service logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) { s.logger = logger }
}

// New returns an unavailable Service. It delegates operations to api,
// probes and receives callbacks over transport, and arms/signals the
// caller's callback interrupt through ctrl.
func New(api pmapi.API, transport ipi.Transport, ctrl gic.Controller, opts ...Option) *Service {
	s := &Service{
		api:       api,
		transport: transport,
		logger:    slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.slot = notify.NewSlot(ctrl, s.logger)
	return s
}

// Setup brings the service up: it probes the peer, registers the
// callback-delivery handler, and negotiates the protocol version.
// Any failure leaves the service permanently unavailable. A second call
// returns ErrAlreadyInitialized whatever the first outcome was.
func (s *Service) Setup() (pmapi.Version, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.initialized {
		return pmapi.Version{}, ErrAlreadyInitialized
	}
	s.initialized = true

	if err := s.transport.Probe(); err != nil {
		s.logger.Warn("power-management service init failed", "err", err)
		return pmapi.Version{}, fmt.Errorf("%w: %v", ErrPeerUnavailable, err)
	}
	if err := s.transport.RegisterHandler(s.slot.Publish); err != nil {
		s.logger.Warn("power-management service init failed", "err", err)
		return pmapi.Version{}, fmt.Errorf("%w: %v", ErrPeerUnavailable, err)
	}

	packed, status := s.negotiateVersionLocked()
	if status != pmapi.StatusSuccess {
		s.logger.Warn("power-management service init failed", "status", status.String())
		return pmapi.Version{}, fmt.Errorf("%w: version query returned %v", ErrPeerUnavailable, status)
	}
	version := pmapi.VersionFromPacked(packed)
	if packed != pmapi.CurrentVersion.Packed() {
		s.logger.Warn("peer reports different protocol version",
			"peer", version.String(), "local", pmapi.CurrentVersion.String())
	}

	s.available = true
	s.logger.Info("power-management service init complete", "version", version.String())
	return version, nil
}

// Available reports whether setup succeeded.
func (s *Service) Available() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.available
}

// negotiateVersionLocked returns the cached version word when the two
// sides already agree, and otherwise queries the peer once and caches
// the answer. Callers hold s.mu.
func (s *Service) negotiateVersionLocked() (uint32, pmapi.Status) {
	if s.versionSet && s.versionWord == pmapi.CurrentVersion.Packed() {
		return s.versionWord, pmapi.StatusSuccess
	}
	version, status := s.api.APIVersion()
	if status == pmapi.StatusSuccess {
		s.versionWord = version.Packed()
		s.versionSet = true
	}
	return version.Packed(), status
}

// Dispatch routes one call. While the service is unavailable every call,
// known or not, gets the canonical unknown-function response with no
// side effects. Delegated operations return the peer's status verbatim.
func (s *Service) Dispatch(call smc.Call) smc.Result {
	s.mu.Lock()
	available := s.available
	s.mu.Unlock()
	if !available {
		return smc.Unknown()
	}

	switch fn := call.Function(); fn {
	case FuncInitCallback:
		irq := uint32(call.Args[0])
		s.logger.Debug("initialize callback interrupt", "irq", irq)
		s.slot.RegisterChannel(irq)
		return smc.Return1(smc.PackStatus(uint32(pmapi.StatusSuccess)))

	case FuncGetCallbackData:
		regs := smc.PackWords(s.slot.Pending())
		return smc.Return3(regs[0], regs[1], regs[2])
	}

	arg := smc.SplitArgs(call.Args[0], call.Args[1])

	switch id := pmapi.FunctionID(call.Function()); id {
	case pmapi.GetAPIVersion:
		s.mu.Lock()
		packed, status := s.negotiateVersionLocked()
		s.mu.Unlock()
		return smc.Return1(smc.PackStatusValue(uint32(status), packed))

	case pmapi.SelfSuspend:
		return statusResult(s.api.SelfSuspend(arg[0], arg[1], arg[2], arg[3]))

	case pmapi.RequestSuspend:
		return statusResult(s.api.RequestSuspend(arg[0], arg[1], arg[2], arg[3]))

	case pmapi.RequestWakeup:
		return statusResult(s.api.RequestWakeup(arg[0], arg[1], arg[2], arg[3]))

	case pmapi.ForcePowerdown:
		return statusResult(s.api.ForcePowerdown(arg[0], arg[1]))

	case pmapi.AbortSuspend:
		return statusResult(s.api.AbortSuspend(arg[0]))

	case pmapi.SetWakeupSource:
		return statusResult(s.api.SetWakeupSource(arg[0], arg[1], arg[2]))

	case pmapi.SystemShutdown:
		return statusResult(s.api.SystemShutdown(arg[0]))

	case pmapi.RequestNode:
		return statusResult(s.api.RequestNode(arg[0], arg[1], arg[2], arg[3]))

	case pmapi.ReleaseNode:
		return statusResult(s.api.ReleaseNode(arg[0]))

	case pmapi.SetRequirement:
		return statusResult(s.api.SetRequirement(arg[0], arg[1], arg[2], arg[3]))

	case pmapi.SetMaxLatency:
		return statusResult(s.api.SetMaxLatency(arg[0], arg[1]))

	case pmapi.SetConfiguration:
		return statusResult(s.api.SetConfiguration(arg[0]))

	case pmapi.GetNodeStatus:
		return statusResult(s.api.NodeStatus(arg[0]))

	case pmapi.GetOpCharacteristic:
		return statusResult(s.api.OpCharacteristic(arg[0], arg[1]))

	case pmapi.RegisterNotifier:
		return statusResult(s.api.RegisterNotifier(arg[0], arg[1], arg[2], arg[3]))

	case pmapi.ResetAssert:
		return statusResult(s.api.ResetAssert(arg[0], arg[1]))

	case pmapi.ResetGetStatus:
		value, status := s.api.ResetGetStatus(arg[0])
		return smc.Return1(smc.PackStatusValue(uint32(status), value))

	case pmapi.MMIOWrite:
		return statusResult(s.api.MMIOWrite(arg[0], arg[1], arg[2]))

	case pmapi.MMIORead:
		value, status := s.api.MMIORead(arg[0])
		return smc.Return1(smc.PackStatusValue(uint32(status), value))

	default:
		s.logger.Warn("unimplemented power-management call", "id", fmt.Sprintf("%#x", call.ID))
		return smc.Unknown()
	}
}

func statusResult(status pmapi.Status) smc.Result {
	return smc.Return1(smc.PackStatus(uint32(status)))
}
