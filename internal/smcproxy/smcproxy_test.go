package smcproxy

import (
	"path/filepath"
	"testing"

	"github.com/hvkit/pmbridge/internal/smc"
)

type stubRouter struct {
	calls []smc.Call
}

func (s *stubRouter) Route(call smc.Call) smc.Result {
	s.calls = append(s.calls, call)
	if call.Function() == 0xa02 {
		return smc.Return3(1, 2, 3)
	}
	return smc.Return1(uint64(call.Args[0]) + 100)
}

func startServer(t *testing.T, router Router) *Server {
	t.Helper()
	socketPath := filepath.Join(t.TempDir(), "pmsvc.sock")
	server, err := NewServer(socketPath, router, nil)
	if err != nil {
		t.Fatalf("NewServer: %v", err)
	}
	go server.Serve()
	t.Cleanup(func() { server.Close() })
	return server
}

func TestCallRoundTrip(t *testing.T) {
	router := &stubRouter{}
	server := startServer(t, router)

	client, err := Dial(server.SocketPath())
	if err != nil {
		t.Fatalf("Dial: %v", err)
	}
	defer client.Close()

	regs, err := client.Call(7, [4]uint64{5, 0, 0, 0})
	if err != nil {
		t.Fatalf("Call: %v", err)
	}
	if len(regs) != 1 || regs[0] != 105 {
		t.Fatalf("response = %v, want [105]", regs)
	}
	if len(router.calls) != 1 || router.calls[0].ID != 7 || router.calls[0].Args[0] != 5 {
		t.Fatalf("router saw %+v", router.calls)
	}
}

func TestMultiRegisterResponse(t *testing.T) {
	server := startServer(t, &stubRouter{})

	client, err := Dial(server.SocketPath())
	if err != nil {
		t.Fatalf("Dial: %v", err)
	}
	defer client.Close()

	regs, err := client.Call(0xa02, [4]uint64{})
	if err != nil {
		t.Fatalf("Call: %v", err)
	}
	if len(regs) != 3 || regs[0] != 1 || regs[1] != 2 || regs[2] != 3 {
		t.Fatalf("response = %v, want [1 2 3]", regs)
	}
}

func TestMultipleCallsOnOneConnection(t *testing.T) {
	router := &stubRouter{}
	server := startServer(t, router)

	client, err := Dial(server.SocketPath())
	if err != nil {
		t.Fatalf("Dial: %v", err)
	}
	defer client.Close()

	for i := uint64(0); i < 5; i++ {
		regs, err := client.Call(1, [4]uint64{i, 0, 0, 0})
		if err != nil {
			t.Fatalf("Call %d: %v", i, err)
		}
		if regs[0] != i+100 {
			t.Fatalf("Call %d response = %v", i, regs)
		}
	}
	if len(router.calls) != 5 {
		t.Fatalf("router saw %d calls, want 5", len(router.calls))
	}
}

func TestNewServerRejectsNilRouter(t *testing.T) {
	if _, err := NewServer(filepath.Join(t.TempDir(), "x.sock"), nil, nil); err == nil {
		t.Fatalf("nil router accepted")
	}
}
