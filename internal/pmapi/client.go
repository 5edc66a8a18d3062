package pmapi

import (
	"log/slog"

	"github.com/hvkit/pmbridge/internal/ipi"
)

// Client implements API over an ipi.Transport. Each operation marshals
// the function identifier and its arguments into one mailbox payload as
// [id, arg0, arg1, arg2, arg3]; the response carries the status in word
// 0 and, for value-returning operations, the result in word 1.
type Client struct {
	transport ipi.Transport
	logger    *slog.Logger
}

// NewClient returns a Client speaking over transport.
func NewClient(transport ipi.Transport, logger *slog.Logger) *Client {
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{transport: transport, logger: logger}
}

// call performs one request/response exchange. Transport failures map to
// the communication status; the bridge surfaces statuses, not errors.
func (c *Client) call(id FunctionID, args ...uint32) (Status, uint32) {
	req := ipi.Payload{uint32(id)}
	copy(req[1:], args)

	resp, err := c.transport.Call(req)
	if err != nil {
		c.logger.Warn("peer call failed", "function", id.String(), "err", err)
		return StatusCommunication, 0
	}
	return Status(resp[0]), resp[1]
}

// APIVersion implements API.
func (c *Client) APIVersion() (Version, Status) {
	status, packed := c.call(GetAPIVersion)
	if status != StatusSuccess {
		return Version{}, status
	}
	return VersionFromPacked(packed), status
}

// SetConfiguration implements API.
func (c *Client) SetConfiguration(addr uint32) Status {
	status, _ := c.call(SetConfiguration, addr)
	return status
}

// NodeStatus implements API.
func (c *Client) NodeStatus(node uint32) Status {
	status, _ := c.call(GetNodeStatus, node)
	return status
}

// OpCharacteristic implements API.
func (c *Client) OpCharacteristic(node, kind uint32) Status {
	status, _ := c.call(GetOpCharacteristic, node, kind)
	return status
}

// RegisterNotifier implements API.
func (c *Client) RegisterNotifier(node, event, wake, enable uint32) Status {
	status, _ := c.call(RegisterNotifier, node, event, wake, enable)
	return status
}

// RequestSuspend implements API.
func (c *Client) RequestSuspend(target, ack, latency, state uint32) Status {
	status, _ := c.call(RequestSuspend, target, ack, latency, state)
	return status
}

// SelfSuspend implements API.
func (c *Client) SelfSuspend(node, latency, state, address uint32) Status {
	status, _ := c.call(SelfSuspend, node, latency, state, address)
	return status
}

// ForcePowerdown implements API.
func (c *Client) ForcePowerdown(target, ack uint32) Status {
	status, _ := c.call(ForcePowerdown, target, ack)
	return status
}

// AbortSuspend implements API.
func (c *Client) AbortSuspend(reason uint32) Status {
	status, _ := c.call(AbortSuspend, reason)
	return status
}

// RequestWakeup implements API.
func (c *Client) RequestWakeup(target, addressLow, addressHigh, ack uint32) Status {
	status, _ := c.call(RequestWakeup, target, addressLow, addressHigh, ack)
	return status
}

// SetWakeupSource implements API.
func (c *Client) SetWakeupSource(target, source, enable uint32) Status {
	status, _ := c.call(SetWakeupSource, target, source, enable)
	return status
}

// SystemShutdown implements API.
func (c *Client) SystemShutdown(kind uint32) Status {
	status, _ := c.call(SystemShutdown, kind)
	return status
}

// RequestNode implements API.
func (c *Client) RequestNode(node, capabilities, qos, ack uint32) Status {
	status, _ := c.call(RequestNode, node, capabilities, qos, ack)
	return status
}

// ReleaseNode implements API.
func (c *Client) ReleaseNode(node uint32) Status {
	status, _ := c.call(ReleaseNode, node)
	return status
}

// SetRequirement implements API.
func (c *Client) SetRequirement(node, capabilities, qos, ack uint32) Status {
	status, _ := c.call(SetRequirement, node, capabilities, qos, ack)
	return status
}

// SetMaxLatency implements API.
func (c *Client) SetMaxLatency(node, latency uint32) Status {
	status, _ := c.call(SetMaxLatency, node, latency)
	return status
}

// ResetAssert implements API.
func (c *Client) ResetAssert(reset, assert uint32) Status {
	status, _ := c.call(ResetAssert, reset, assert)
	return status
}

// ResetGetStatus implements API.
func (c *Client) ResetGetStatus(reset uint32) (uint32, Status) {
	status, value := c.call(ResetGetStatus, reset)
	return value, status
}

// MMIOWrite implements API.
func (c *Client) MMIOWrite(addr, mask, value uint32) Status {
	status, _ := c.call(MMIOWrite, addr, mask, value)
	return status
}

// MMIORead implements API.
func (c *Client) MMIORead(addr uint32) (uint32, Status) {
	status, value := c.call(MMIORead, addr)
	return value, status
}

var _ API = (*Client)(nil)
