package pmufw

import (
	"testing"

	"github.com/hvkit/pmbridge/internal/ipi"
	"github.com/hvkit/pmbridge/internal/pmapi"
)

func request(t *testing.T, f *Firmware, id pmapi.FunctionID, args ...uint32) (pmapi.Status, uint32) {
	t.Helper()
	req := ipi.Payload{uint32(id)}
	copy(req[1:], args)
	resp, err := f.HandleRequest(req)
	if err != nil {
		t.Fatalf("HandleRequest(%v): %v", id, err)
	}
	return pmapi.Status(resp[0]), resp[1]
}

func TestVersionQuery(t *testing.T) {
	f := New(WithVersion(pmapi.Version{Major: 1, Minor: 0}))
	status, packed := request(t, f, pmapi.GetAPIVersion)
	if status != pmapi.StatusSuccess || packed != 0x00010000 {
		t.Fatalf("version query = (%v, %#x)", status, packed)
	}
}

func TestNodeInventory(t *testing.T) {
	f := New(WithNodes([]uint32{6, 7}))

	if status, _ := request(t, f, pmapi.GetNodeStatus, 6); status != pmapi.StatusSuccess {
		t.Fatalf("known node status = %v", status)
	}
	if status, _ := request(t, f, pmapi.GetNodeStatus, 99); status != pmapi.StatusInvalidArgs {
		t.Fatalf("unknown node status = %v, want invalid arguments", status)
	}
}

func TestRequestReleaseNode(t *testing.T) {
	f := New()

	if status, _ := request(t, f, pmapi.RequestNode, 13, 0x7, 100, AckNone); status != pmapi.StatusSuccess {
		t.Fatalf("request-node = %v", status)
	}
	if status, _ := request(t, f, pmapi.RequestNode, 13, 0x7, 100, AckNone); status != pmapi.StatusDoubleRequest {
		t.Fatalf("second request-node = %v, want double request", status)
	}
	if status, _ := request(t, f, pmapi.SetRequirement, 13, 0x3, 50, AckNone); status != pmapi.StatusSuccess {
		t.Fatalf("set-requirement on held node = %v", status)
	}
	if status, _ := request(t, f, pmapi.ReleaseNode, 13); status != pmapi.StatusSuccess {
		t.Fatalf("release-node = %v", status)
	}
	if status, _ := request(t, f, pmapi.SetRequirement, 13, 0x3, 50, AckNone); status != pmapi.StatusNoAccess {
		t.Fatalf("set-requirement on released node = %v, want access denied", status)
	}
}

func TestMMIOProxy(t *testing.T) {
	f := New(WithRegister(0xff5e0200, 0xffff0000))

	if status, _ := request(t, f, pmapi.MMIOWrite, 0xff5e0200, 0x0000ffff, 0x00001234); status != pmapi.StatusSuccess {
		t.Fatalf("mmio-write = %v", status)
	}
	status, value := request(t, f, pmapi.MMIORead, 0xff5e0200)
	if status != pmapi.StatusSuccess || value != 0xffff1234 {
		t.Fatalf("mmio-read = (%v, %#x), want masked merge 0xffff1234", status, value)
	}
}

func TestResetLines(t *testing.T) {
	f := New()

	if status, _ := request(t, f, pmapi.ResetAssert, 5, 1); status != pmapi.StatusSuccess {
		t.Fatalf("reset-assert = %v", status)
	}
	status, value := request(t, f, pmapi.ResetGetStatus, 5)
	if status != pmapi.StatusSuccess || value != 1 {
		t.Fatalf("reset-get-status = (%v, %d), want asserted", status, value)
	}
}

func TestAcknowledgeCallbackOnNonBlockingSuspend(t *testing.T) {
	f := New()
	var callbacks []ipi.Payload
	f.SetCallbackSink(func(p ipi.Payload) { callbacks = append(callbacks, p) })

	if status, _ := request(t, f, pmapi.RequestSuspend, 6, AckNonBlocking, 100, 1); status != pmapi.StatusSuccess {
		t.Fatalf("request-suspend = %v", status)
	}
	if len(callbacks) != 1 {
		t.Fatalf("callbacks = %v, want one acknowledge", callbacks)
	}
	if got := pmapi.FunctionID(callbacks[0][0]); got != pmapi.AcknowledgeCallback {
		t.Fatalf("callback id = %v, want acknowledge-callback", got)
	}
}

func TestRaiseEventRespectsNotifierRegistration(t *testing.T) {
	f := New()
	var callbacks []ipi.Payload
	f.SetCallbackSink(func(p ipi.Payload) { callbacks = append(callbacks, p) })

	f.RaiseEvent(9, 1, 0)
	if len(callbacks) != 0 {
		t.Fatalf("event delivered without registration: %v", callbacks)
	}

	if status, _ := request(t, f, pmapi.RegisterNotifier, 9, 1, 0, 1); status != pmapi.StatusSuccess {
		t.Fatalf("register-notifier = %v", status)
	}
	f.RaiseEvent(9, 1, 0xabcd)
	if len(callbacks) != 1 || pmapi.FunctionID(callbacks[0][0]) != pmapi.NotifyCallback {
		t.Fatalf("callbacks after registration = %v", callbacks)
	}
}

func TestSystemShutdown(t *testing.T) {
	f := New()
	if status, _ := request(t, f, pmapi.SystemShutdown, 1); status != pmapi.StatusSuccess {
		t.Fatalf("system-shutdown = %v", status)
	}
	shutdown, restart := f.ShutdownRequested()
	if !shutdown || !restart {
		t.Fatalf("ShutdownRequested = (%v, %v), want restart requested", shutdown, restart)
	}
}

func TestUnknownFunction(t *testing.T) {
	f := New()
	if status, _ := request(t, f, pmapi.FunctionID(0x7fff)); status != pmapi.StatusInvalidAPIID {
		t.Fatalf("unknown function = %v, want invalid api id", status)
	}
}
