// Package i2c reconstructs I2C bus transactions from sampled SCL/SDA line
// levels. The decoder is a port of the classic pigpio I2C sniffer state
// machine: feed it one (clock, data) sample at a time and it recognises
// START/STOP conditions, accumulates data bits on rising clock edges, and
// classifies the trailing acknowledgement bit of every byte.
package i2c

// Edge describes the instantaneous behaviour of one bus line between two
// consecutive samples.
type Edge int

const (
	EdgeSteady Edge = iota
	EdgeRising
	EdgeFalling
)

// classifyEdge derives the line behaviour from the previous and current
// level of a single line.
func classifyEdge(prev, curr bool) Edge {
	switch {
	case !prev && curr:
		return EdgeRising
	case prev && !curr:
		return EdgeFalling
	default:
		return EdgeSteady
	}
}

// State is the decode result for a single sample.
type State int

const (
	// Idle means no transaction is in progress.
	Idle State = iota
	// Pending means a START has been observed and the engine is
	// accumulating bytes while waiting for the matching STOP.
	Pending
	// Complete means a STOP was just observed. It is a one-sample
	// transient: the engine is back at Idle on the following call.
	Complete
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Pending:
		return "pending"
	case Complete:
		return "complete"
	}
	return "unknown"
}

// Engine decodes I2C transactions one line sample at a time. The zero value
// is not useful; use NewEngine, which assumes the idle-bus (both lines high)
// level for the sample preceding the first one.
//
// An Engine owns its state exclusively and must be driven by a single
// sequential caller per physical bus. It never fails: every state/input
// combination maps to one of the three States.
type Engine struct {
	prevSCL bool
	prevSDA bool
	partial uint8
	bits    uint8
	active  bool
	bytes   []Byte
}

// NewEngine returns an idle engine with both lines assumed high.
func NewEngine() *Engine {
	return &Engine{prevSCL: true, prevSDA: true}
}

// Step consumes one sample of the SCL and SDA line levels and returns the
// engine state after the sample. The returned transaction is non-nil only
// when the state is Complete.
//
// Samples must arrive in bus order and at a rate fast enough to observe
// every transition of both lines; transitions lost to undersampling are
// silently missed. Repeating the same levels across many samples is fine.
func (e *Engine) Step(scl, sda bool) (State, *Transaction) {
	sclEdge := classifyEdge(e.prevSCL, scl)
	sdaEdge := classifyEdge(e.prevSDA, sda)
	e.prevSCL = scl
	e.prevSDA = sda

	switch {
	case sclEdge == EdgeSteady && scl && sdaEdge == EdgeRising && e.active:
		// STOP: SDA released while SCL is held high. Any partially
		// captured byte is discarded, not reported.
		tx := &Transaction{Bytes: e.bytes}
		e.bytes = nil
		e.partial = 0
		e.bits = 0
		e.active = false
		return Complete, tx

	case sclEdge == EdgeSteady && scl && sdaEdge == EdgeFalling && !e.active:
		// START: SDA pulled low while SCL is held high. A repeated
		// START while already active matches no rule and is ignored.
		e.active = true

	case sclEdge == EdgeRising && e.active && e.bits < 8:
		// Data bit, MSB first, sampled on the rising clock edge.
		e.partial <<= 1
		if sda {
			e.partial |= 1
		}
		e.bits++

	case sclEdge == EdgeRising && e.active:
		// Ninth rising edge carries the acknowledgement: latch the
		// completed byte with its ACK/NAK status.
		status := Ack
		if sda {
			status = Nak
		}
		e.bytes = append(e.bytes, Byte{Value: e.partial, Status: status})
		e.partial = 0
		e.bits = 0
	}

	if e.active {
		return Pending, nil
	}
	return Idle, nil
}
