package notify

import (
	"testing"

	"github.com/hvkit/pmbridge/internal/gic"
	"github.com/hvkit/pmbridge/internal/ipi"
)

type recordingController struct {
	enabled  []uint32
	signaled []uint32
}

func (r *recordingController) Enable(irq uint32) { r.enabled = append(r.enabled, irq) }
func (r *recordingController) Signal(irq uint32) { r.signaled = append(r.signaled, irq) }

func TestPublishOverwrites(t *testing.T) {
	s := NewSlot(gic.Detached(), nil)

	s.Publish(ipi.Payload{1, 2, 3, 4, 5})
	s.Publish(ipi.Payload{9, 9, 9, 9, 9})

	if got := s.Pending(); got != (ipi.Payload{9, 9, 9, 9, 9}) {
		t.Fatalf("Pending = %v, want the latest payload", got)
	}
}

func TestPendingDoesNotClear(t *testing.T) {
	s := NewSlot(gic.Detached(), nil)
	s.Publish(ipi.Payload{1, 2, 3, 4, 5})

	first := s.Pending()
	second := s.Pending()
	if first != second {
		t.Fatalf("repeated Pending reads differ: %v then %v", first, second)
	}
}

func TestPublishBeforeRegistrationStoresWithoutSignal(t *testing.T) {
	ctrl := &recordingController{}
	s := NewSlot(ctrl, nil)

	s.Publish(ipi.Payload{5, 4, 3, 2, 1})
	if len(ctrl.signaled) != 0 {
		t.Fatalf("signal fired before registration: %v", ctrl.signaled)
	}
	if got := s.Pending(); got != (ipi.Payload{5, 4, 3, 2, 1}) {
		t.Fatalf("payload lost without registration: %v", got)
	}
}

func TestPublishSignalsOncePerPublish(t *testing.T) {
	ctrl := &recordingController{}
	s := NewSlot(ctrl, nil)

	s.RegisterChannel(146)
	if len(ctrl.enabled) != 1 || ctrl.enabled[0] != 146 {
		t.Fatalf("RegisterChannel did not arm the line: %v", ctrl.enabled)
	}

	s.Publish(ipi.Payload{1, 0, 0, 0, 0})
	s.Publish(ipi.Payload{2, 0, 0, 0, 0})
	if len(ctrl.signaled) != 2 || ctrl.signaled[0] != 146 || ctrl.signaled[1] != 146 {
		t.Fatalf("signaled = %v, want [146 146]", ctrl.signaled)
	}
}

func TestReRegistrationOverwritesChannel(t *testing.T) {
	ctrl := &recordingController{}
	s := NewSlot(ctrl, nil)

	s.RegisterChannel(100)
	s.RegisterChannel(101)
	s.Publish(ipi.Payload{})

	if got := ctrl.signaled; len(got) != 1 || got[0] != 101 {
		t.Fatalf("signaled = %v, want the re-registered line 101", got)
	}
}
