package i2c

import (
	"fmt"
	"strings"
)

// Status records whether a byte was acknowledged by the receiving device.
type Status int

const (
	// Ack means SDA was held low during the acknowledgement clock.
	Ack Status = iota
	// Nak means SDA stayed high during the acknowledgement clock.
	Nak
)

// String renders the status in the sniffer's compact notation: "+" for an
// acknowledged byte, "-" for an unacknowledged one.
func (s Status) String() string {
	if s == Ack {
		return "+"
	}
	return "-"
}

// Byte is one decoded bus byte together with its acknowledgement status.
// Immutable once latched by the engine.
type Byte struct {
	Value  uint8
	Status Status
}

// Transaction is the ordered byte sequence observed between a START
// condition and the following STOP.
type Transaction struct {
	Bytes []Byte
}

// Payload returns just the byte values in bus order, discarding the ACK/NAK
// statuses.
func (t *Transaction) Payload() []byte {
	out := make([]byte, 0, len(t.Bytes))
	for _, b := range t.Bytes {
		out = append(out, b.Value)
	}
	return out
}

// String renders the transaction as bracketed uppercase hex pairs, each
// immediately followed by "+" for ACK or "-" for NAK, e.g. "[01+02-03+]".
func (t *Transaction) String() string {
	var sb strings.Builder
	sb.WriteByte('[')
	for _, b := range t.Bytes {
		fmt.Fprintf(&sb, "%02X%s", b.Value, b.Status)
	}
	sb.WriteByte(']')
	return sb.String()
}
