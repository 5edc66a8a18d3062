// Package pmapi defines the power-management API shared with the peer
// controller: function identifiers, return statuses, the negotiated
// version, and the operation surface the call bridge delegates to.
package pmapi

import "fmt"

// FunctionID selects a power-management operation. The values are part
// of the wire contract with the peer and with the non-secure caller.
type FunctionID uint32

const (
	GetAPIVersion       FunctionID = 1
	SetConfiguration    FunctionID = 2
	GetNodeStatus       FunctionID = 3
	GetOpCharacteristic FunctionID = 4
	RegisterNotifier    FunctionID = 5
	RequestSuspend      FunctionID = 6
	SelfSuspend         FunctionID = 7
	ForcePowerdown      FunctionID = 8
	AbortSuspend        FunctionID = 9
	RequestWakeup       FunctionID = 10
	SetWakeupSource     FunctionID = 11
	SystemShutdown      FunctionID = 12
	RequestNode         FunctionID = 13
	ReleaseNode         FunctionID = 14
	SetRequirement      FunctionID = 15
	SetMaxLatency       FunctionID = 16
	ResetAssert         FunctionID = 17
	ResetGetStatus      FunctionID = 18
	MMIOWrite           FunctionID = 19
	MMIORead            FunctionID = 20
)

// Callback identifiers carried in word 0 of peer-initiated payloads.
// They sit above the call range so a buffered callback can never be
// mistaken for a request.
const (
	InitSuspendCallback FunctionID = 30
	AcknowledgeCallback FunctionID = 31
	NotifyCallback      FunctionID = 32
)

func (f FunctionID) String() string {
	switch f {
	case GetAPIVersion:
		return "get-api-version"
	case SetConfiguration:
		return "set-configuration"
	case GetNodeStatus:
		return "get-node-status"
	case GetOpCharacteristic:
		return "get-op-characteristic"
	case RegisterNotifier:
		return "register-notifier"
	case RequestSuspend:
		return "request-suspend"
	case SelfSuspend:
		return "self-suspend"
	case ForcePowerdown:
		return "force-powerdown"
	case AbortSuspend:
		return "abort-suspend"
	case RequestWakeup:
		return "request-wakeup"
	case SetWakeupSource:
		return "set-wakeup-source"
	case SystemShutdown:
		return "system-shutdown"
	case RequestNode:
		return "request-node"
	case ReleaseNode:
		return "release-node"
	case SetRequirement:
		return "set-requirement"
	case SetMaxLatency:
		return "set-max-latency"
	case ResetAssert:
		return "reset-assert"
	case ResetGetStatus:
		return "reset-get-status"
	case MMIOWrite:
		return "mmio-write"
	case MMIORead:
		return "mmio-read"
	case InitSuspendCallback:
		return "init-suspend-callback"
	case AcknowledgeCallback:
		return "acknowledge-callback"
	case NotifyCallback:
		return "notify-callback"
	default:
		return fmt.Sprintf("pm-function-%d", uint32(f))
	}
}

// Status is a power-management return code. Delegated operations hand
// these back verbatim; the bridge never reinterprets them.
type Status uint32

const (
	StatusSuccess       Status = 0
	StatusInvalidArgs   Status = 1
	StatusNoAccess      Status = 2
	StatusTimeout       Status = 3
	StatusNotSupported  Status = 4
	StatusInvalidProc   Status = 5
	StatusInvalidAPIID  Status = 6
	StatusFailure       Status = 7
	StatusCommunication Status = 8
	StatusDoubleRequest Status = 9
	StatusAbortSuspend  Status = 10
)

func (s Status) String() string {
	switch s {
	case StatusSuccess:
		return "success"
	case StatusInvalidArgs:
		return "invalid arguments"
	case StatusNoAccess:
		return "access denied"
	case StatusTimeout:
		return "timeout"
	case StatusNotSupported:
		return "not supported"
	case StatusInvalidProc:
		return "invalid processor"
	case StatusInvalidAPIID:
		return "invalid api id"
	case StatusFailure:
		return "failure"
	case StatusCommunication:
		return "communication error"
	case StatusDoubleRequest:
		return "double request"
	case StatusAbortSuspend:
		return "suspend aborted"
	default:
		return fmt.Sprintf("status-%d", uint32(s))
	}
}

// Version is the protocol version negotiated with the peer. The wire
// carries major and minor packed into one 32-bit word; Patch exists for
// the triple shape and is zero on this wire revision.
type Version struct {
	Major uint32
	Minor uint32
	Patch uint32
}

// CurrentVersion is the version this side implements. The peer must
// report the same packed value for setup to consider versions agreed.
var CurrentVersion = Version{Major: 1, Minor: 0}

// Packed returns the wire form: major in bits [31:16], minor in [15:0].
func (v Version) Packed() uint32 {
	return v.Major<<16 | v.Minor&0xffff
}

// VersionFromPacked expands the wire form.
func VersionFromPacked(w uint32) Version {
	return Version{Major: w >> 16, Minor: w & 0xffff}
}

func (v Version) String() string {
	return fmt.Sprintf("v%d.%d", v.Major, v.Minor)
}

// API is the operation surface the call bridge delegates to. Each method
// takes the decoded 32-bit parameters in calling-convention order and
// returns the peer's status verbatim; ResetGetStatus and MMIORead also
// return one scalar result.
type API interface {
	APIVersion() (Version, Status)
	SetConfiguration(addr uint32) Status
	NodeStatus(node uint32) Status
	OpCharacteristic(node, kind uint32) Status
	RegisterNotifier(node, event, wake, enable uint32) Status
	RequestSuspend(target, ack, latency, state uint32) Status
	SelfSuspend(node, latency, state, address uint32) Status
	ForcePowerdown(target, ack uint32) Status
	AbortSuspend(reason uint32) Status
	RequestWakeup(target, addressLow, addressHigh, ack uint32) Status
	SetWakeupSource(target, source, enable uint32) Status
	SystemShutdown(kind uint32) Status
	RequestNode(node, capabilities, qos, ack uint32) Status
	ReleaseNode(node uint32) Status
	SetRequirement(node, capabilities, qos, ack uint32) Status
	SetMaxLatency(node, latency uint32) Status
	ResetAssert(reset, assert uint32) Status
	ResetGetStatus(reset uint32) (uint32, Status)
	MMIOWrite(addr, mask, value uint32) Status
	MMIORead(addr uint32) (uint32, Status)
}
