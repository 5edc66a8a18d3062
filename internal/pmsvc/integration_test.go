package pmsvc_test

import (
	"log/slog"
	"testing"

	"github.com/hvkit/pmbridge/internal/gic"
	"github.com/hvkit/pmbridge/internal/ipi"
	"github.com/hvkit/pmbridge/internal/pmapi"
	"github.com/hvkit/pmbridge/internal/pmsvc"
	"github.com/hvkit/pmbridge/internal/pmufw"
	"github.com/hvkit/pmbridge/internal/sip"
	"github.com/hvkit/pmbridge/internal/smc"
)

// buildStack wires the full loop the demo daemon runs: peer model,
// loopback mailbox, typed client, bridge, and the outer router.
func buildStack(t *testing.T) (*sip.Router, *pmufw.Firmware, *gic.Distributor) {
	t.Helper()

	firmware := pmufw.New(pmufw.WithRegister(0xff5e0200, 0x01000000))
	transport := ipi.NewLoopback(firmware)
	firmware.SetCallbackSink(transport.Deliver)

	distributor := gic.NewDistributor(nil)
	service := pmsvc.New(pmapi.NewClient(transport, nil), transport, distributor)
	if _, err := service.Setup(); err != nil {
		t.Fatalf("Setup: %v", err)
	}

	builder := sip.NewBuilder()
	if err := builder.Register("pm", sip.Range{First: 1, Last: 20}, service); err != nil {
		t.Fatalf("Register pm: %v", err)
	}
	if err := builder.Register("pm-internal", sip.Range{First: pmsvc.FuncInitCallback, Last: pmsvc.FuncGetCallbackData}, service); err != nil {
		t.Fatalf("Register pm-internal: %v", err)
	}
	router, err := builder.Build(slog.Default())
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	return router, firmware, distributor
}

func TestEndToEndVersionAndMMIO(t *testing.T) {
	router, _, _ := buildStack(t)

	regs := router.Route(smc.Call{ID: uint32(pmapi.GetAPIVersion)}).Registers()
	want := smc.PackStatusValue(uint32(pmapi.StatusSuccess), pmapi.CurrentVersion.Packed())
	if regs[0] != want {
		t.Fatalf("get-api-version = %#x, want %#x", regs[0], want)
	}

	regs = router.Route(smc.Call{ID: uint32(pmapi.MMIORead), Args: [4]uint64{0xff5e0200}}).Registers()
	want = smc.PackStatusValue(uint32(pmapi.StatusSuccess), 0x01000000)
	if regs[0] != want {
		t.Fatalf("mmio-read = %#x, want %#x", regs[0], want)
	}
}

func TestEndToEndSuspendCallback(t *testing.T) {
	router, firmware, distributor := buildStack(t)

	const irq = 146
	regs := router.Route(smc.Call{ID: pmsvc.FuncInitCallback, Args: [4]uint64{irq}}).Registers()
	if regs[0] != uint64(pmapi.StatusSuccess) {
		t.Fatalf("init-callback = %#x", regs[0])
	}
	if !distributor.Line(irq).Enabled {
		t.Fatalf("callback line not enabled at the distributor")
	}

	firmware.RaiseSuspendRequest(0, 100, 2, 1000)

	line := distributor.Line(irq)
	if !line.Pending || !line.Active {
		t.Fatalf("callback interrupt not injected: %+v", line)
	}

	regs = router.Route(smc.Call{ID: pmsvc.FuncGetCallbackData}).Registers()
	if len(regs) != 3 {
		t.Fatalf("get-callback-data returned %d registers", len(regs))
	}
	if uint32(regs[0]) != uint32(pmapi.InitSuspendCallback) {
		t.Fatalf("callback payload word 0 = %#x, want init-suspend-callback", uint32(regs[0]))
	}
	if uint32(regs[0]>>32) != 0 || uint32(regs[1]) != 100 || uint32(regs[1]>>32) != 2 || uint32(regs[2]) != 1000 {
		t.Fatalf("callback payload mispacked: %#x", regs)
	}
}

func TestEndToEndNodeLifecycle(t *testing.T) {
	router, _, _ := buildStack(t)

	call := func(id pmapi.FunctionID, x1, x2 uint64) uint64 {
		regs := router.Route(smc.Call{ID: uint32(id), Args: [4]uint64{x1, x2}}).Registers()
		return regs[0]
	}

	if got := call(pmapi.RequestNode, 13|0x7<<32, 100); got != uint64(pmapi.StatusSuccess) {
		t.Fatalf("request-node = %#x", got)
	}
	if got := call(pmapi.RequestNode, 13|0x7<<32, 100); got != uint64(pmapi.StatusDoubleRequest) {
		t.Fatalf("second request-node = %#x, want double-request", got)
	}
	if got := call(pmapi.SetRequirement, 13|0x3<<32, 50); got != uint64(pmapi.StatusSuccess) {
		t.Fatalf("set-requirement = %#x", got)
	}
	if got := call(pmapi.ReleaseNode, 13, 0); got != uint64(pmapi.StatusSuccess) {
		t.Fatalf("release-node = %#x", got)
	}
}

func TestEndToEndUnknownRange(t *testing.T) {
	router, _, _ := buildStack(t)

	regs := router.Route(smc.Call{ID: 0x900}).Registers()
	if regs[0] != smc.UnknownFunction {
		t.Fatalf("call outside registered ranges = %#x, want sentinel", regs[0])
	}
}
