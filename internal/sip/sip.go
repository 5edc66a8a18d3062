// Package sip routes platform service calls to registered dispatchers.
// It plays the outer framework role: it strips the framework bits from
// the raw call number and hands the call to whichever service owns that
// function-number range.
package sip

import (
	"fmt"
	"log/slog"
	"sort"

	"github.com/hvkit/pmbridge/internal/smc"
)

// Dispatcher handles calls for one registered function-number range.
type Dispatcher interface {
	Dispatch(call smc.Call) smc.Result
}

// Range is an inclusive span of masked function numbers.
type Range struct {
	First uint32
	Last  uint32
}

func (r Range) contains(fn uint32) bool {
	return fn >= r.First && fn <= r.Last
}

func (r Range) overlaps(other Range) bool {
	return r.First <= other.Last && other.First <= r.Last
}

type binding struct {
	name       string
	fns        Range
	dispatcher Dispatcher
}

// Builder registers services before the router is built.
type Builder struct {
	bindings []binding
}

// NewBuilder returns an empty Builder.
func NewBuilder() *Builder {
	return &Builder{}
}

// Register adds a dispatcher for a function-number range.
func (b *Builder) Register(name string, fns Range, dispatcher Dispatcher) error {
	if name == "" {
		return fmt.Errorf("sip: service name is empty")
	}
	if dispatcher == nil {
		return fmt.Errorf("sip: service %q has nil dispatcher", name)
	}
	if fns.First > fns.Last {
		return fmt.Errorf("sip: service %q range %#x-%#x is inverted", name, fns.First, fns.Last)
	}
	if fns.Last > smc.FunctionNumberMask {
		return fmt.Errorf("sip: service %q range end %#x exceeds the function-number field", name, fns.Last)
	}
	for _, existing := range b.bindings {
		if fns.overlaps(existing.fns) {
			return fmt.Errorf("sip: service %q range %#x-%#x overlaps %q (%#x-%#x)",
				name, fns.First, fns.Last, existing.name, existing.fns.First, existing.fns.Last)
		}
	}
	b.bindings = append(b.bindings, binding{name: name, fns: fns, dispatcher: dispatcher})
	return nil
}

// Build finalizes the routing table.
func (b *Builder) Build(logger *slog.Logger) (*Router, error) {
	if logger == nil {
		logger = slog.Default()
	}
	bindings := make([]binding, len(b.bindings))
	copy(bindings, b.bindings)
	sort.Slice(bindings, func(i, j int) bool {
		return bindings[i].fns.First < bindings[j].fns.First
	})
	return &Router{bindings: bindings, logger: logger}, nil
}

// Router is the immutable routing table.
type Router struct {
	bindings []binding
	logger   *slog.Logger
}

// Route dispatches one call to the owning service. Calls whose masked
// function number belongs to no service get the canonical
// unknown-function response.
func (r *Router) Route(call smc.Call) smc.Result {
	fn := call.Function()
	for _, b := range r.bindings {
		if b.fns.contains(fn) {
			return b.dispatcher.Dispatch(call)
		}
	}
	r.logger.Warn("call to unregistered function range", "id", fmt.Sprintf("%#x", call.ID))
	return smc.Unknown()
}
