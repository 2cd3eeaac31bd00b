// Package gpio reads pigpio-style GPIO level reports and resolves the two
// I2C probe lines out of them. A report is the 12-byte record the pigpiod
// notification pipe emits: every change on a watched line produces one
// record carrying a snapshot of all 32 GPIO levels.
package gpio

import (
	"encoding/binary"
	"fmt"
	"io"
)

// ReportSize is the wire size of one GPIO level report in bytes.
const ReportSize = 12

// Report is one pigpiod notification record.
type Report struct {
	Seqno uint16 // incremented per report, wraps at 65535
	Flags uint16 // pigpiod event flags, unused by the decoder
	Tick  uint32 // microseconds since boot, wraps roughly every 72 minutes
	Level uint32 // level of GPIO 0-31 at the time of the report
}

// ParseReport decodes one little-endian report record. buf must hold exactly
// ReportSize bytes.
func ParseReport(buf []byte) (Report, error) {
	if len(buf) != ReportSize {
		return Report{}, fmt.Errorf("gpio: report is %d bytes, want %d", len(buf), ReportSize)
	}
	return Report{
		Seqno: binary.LittleEndian.Uint16(buf[0:2]),
		Flags: binary.LittleEndian.Uint16(buf[2:4]),
		Tick:  binary.LittleEndian.Uint32(buf[4:8]),
		Level: binary.LittleEndian.Uint32(buf[8:12]),
	}, nil
}

// MarshalBinary encodes the report in the pigpiod wire format. Used by the
// mock sources and capture tooling; pigpiod itself only ever produces these.
func (r Report) MarshalBinary() ([]byte, error) {
	buf := make([]byte, ReportSize)
	binary.LittleEndian.PutUint16(buf[0:2], r.Seqno)
	binary.LittleEndian.PutUint16(buf[2:4], r.Flags)
	binary.LittleEndian.PutUint32(buf[4:8], r.Tick)
	binary.LittleEndian.PutUint32(buf[8:12], r.Level)
	return buf, nil
}

// Line reports the level of a single GPIO in the snapshot.
func (r Report) Line(bit uint8) bool {
	mask := uint32(1) << bit
	return r.Level&mask == mask
}

// Reader decodes consecutive reports from a byte stream (the pigpiod
// notification pipe, a capture file, or a serial port).
type Reader struct {
	r   io.Reader
	buf [ReportSize]byte
}

// NewReader returns a Reader consuming records from r.
func NewReader(r io.Reader) *Reader {
	return &Reader{r: r}
}

// Next reads one report. It returns io.EOF at a clean end of stream and
// io.ErrUnexpectedEOF if the stream ends inside a record; both are fatal for
// the surrounding capture, there is no resynchronisation.
func (r *Reader) Next() (Report, error) {
	if _, err := io.ReadFull(r.r, r.buf[:]); err != nil {
		return Report{}, err
	}
	return ParseReport(r.buf[:])
}
