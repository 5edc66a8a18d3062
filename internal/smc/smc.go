// Package smc implements the calling-convention boundary for secure
// monitor calls: the call envelope, the argument/return register codec,
// and the canonical unknown-function response.
//
// The bit layouts here are the interoperability contract with the
// non-secure caller. They must not change independently of the calling
// convention on the other side of the boundary.
package smc

// FunctionNumberMask selects the function-number field of a raw call
// number. The upper bits carry owning-entity and convention flags that
// the outer dispatch framework consumes; dispatchers match on the masked
// value only.
const FunctionNumberMask uint32 = 0xffff

// UnknownFunction is the distinguished response for a call number no
// dispatcher recognizes. Returned in register 0 with no other effect.
const UnknownFunction uint64 = 0xffffffffffffffff

// ArgWords is the number of 32-bit parameters decoded from the two
// primary argument registers.
const ArgWords = 4

// Call is one synchronous invocation: the raw call number and up to four
// 64-bit argument registers. It is created at the boundary and owned
// exclusively by the handler for the duration of the call.
type Call struct {
	ID   uint32
	Args [4]uint64
}

// Function returns the masked function number used for table lookup.
func (c Call) Function() uint32 {
	return c.ID & FunctionNumberMask
}

// Result carries one to four 64-bit return registers.
type Result struct {
	regs  [4]uint64
	count int
}

// Return1 builds a single-register result.
func Return1(x0 uint64) Result {
	return Result{regs: [4]uint64{x0}, count: 1}
}

// Return3 builds a three-register result.
func Return3(x0, x1, x2 uint64) Result {
	return Result{regs: [4]uint64{x0, x1, x2}, count: 3}
}

// Unknown is the canonical response for unrecognized or gated calls.
func Unknown() Result {
	return Return1(UnknownFunction)
}

// Registers returns the populated return registers in order.
func (r Result) Registers() []uint64 {
	return r.regs[:r.count]
}

// SplitArgs decodes the two primary argument registers into four 32-bit
// parameters in the fixed order [x1.lo, x1.hi, x2.lo, x2.hi].
func SplitArgs(x1, x2 uint64) [ArgWords]uint32 {
	return [ArgWords]uint32{
		uint32(x1),
		uint32(x1 >> 32),
		uint32(x2),
		uint32(x2 >> 32),
	}
}

// PackStatus widens a status code into register 0.
func PackStatus(status uint32) uint64 {
	return uint64(status)
}

// PackStatusValue packs a status code and one scalar result:
// status in bits [31:0], value in bits [63:32].
func PackStatusValue(status, value uint32) uint64 {
	return uint64(status) | uint64(value)<<32
}

// PackWords packs five 32-bit words into three return registers:
// [w0 | w1<<32, w2 | w3<<32, w4]. Used to hand a buffered callback
// payload back to the caller.
func PackWords(words [5]uint32) [3]uint64 {
	return [3]uint64{
		uint64(words[0]) | uint64(words[1])<<32,
		uint64(words[2]) | uint64(words[3])<<32,
		uint64(words[4]),
	}
}
