package reportmux

import (
	"io"
	"time"

	"github.com/banshee-data/buswatch/internal/gpio"
	"github.com/banshee-data/buswatch/internal/timeutil"
)

// simulated microseconds of bus time between consecutive samples
const waveformTickStep = 5

// Waveform synthesizes the report stream an I2C exchange produces on a
// probe's pins. It emits every line state a well-behaved master would drive,
// so replaying the reports through the decoder reconstructs the original
// transactions exactly. Used by the mock sources, dev mode, and tests.
type Waveform struct {
	probe   gpio.Probe
	seqno   uint16
	tick    uint32
	reports []gpio.Report
}

// NewWaveform starts a waveform on an idle bus (both lines high).
func NewWaveform(probe gpio.Probe) *Waveform {
	w := &Waveform{probe: probe}
	w.sample(true, true)
	return w
}

func (w *Waveform) sample(scl, sda bool) {
	var level uint32
	if scl {
		level |= 1 << w.probe.SCL
	}
	if sda {
		level |= 1 << w.probe.SDA
	}
	w.reports = append(w.reports, gpio.Report{Seqno: w.seqno, Tick: w.tick, Level: level})
	w.seqno++
	w.tick += waveformTickStep
}

// Start drives a START condition: SDA falls while SCL is held high.
func (w *Waveform) Start() {
	w.sample(true, true)
	w.sample(true, false)
}

// Bit clocks one data bit: SDA set while SCL is low, then SCL pulsed high.
func (w *Waveform) Bit(bit bool) {
	w.sample(false, bit)
	w.sample(true, bit)
	w.sample(false, bit)
}

// Byte clocks 8 data bits MSB first followed by the acknowledgement clock,
// with SDA pulled low during the acknowledgement if ack is true.
func (w *Waveform) Byte(b byte, ack bool) {
	for i := 0; i < 8; i++ {
		w.Bit(b&0x80 == 0x80)
		b <<= 1
	}
	sda := !ack
	w.sample(true, sda)
	w.sample(false, sda)
}

// Stop drives a STOP condition: SDA rises while SCL is held high.
func (w *Waveform) Stop() {
	w.sample(false, false)
	w.sample(true, false)
	w.sample(true, true)
}

// Transaction drives a complete acknowledged transaction carrying the given
// payload.
func (w *Waveform) Transaction(payload []byte) {
	w.Start()
	for _, b := range payload {
		w.Byte(b, true)
	}
	w.Stop()
}

// Reports returns the synthesized reports in emission order.
func (w *Waveform) Reports() []gpio.Report {
	out := make([]gpio.Report, len(w.reports))
	copy(out, w.reports)
	return out
}

// Bytes returns the synthesized reports in the pigpiod wire format.
func (w *Waveform) Bytes() []byte {
	out := make([]byte, 0, len(w.reports)*gpio.ReportSize)
	for _, r := range w.reports {
		buf, _ := r.MarshalBinary()
		out = append(out, buf...)
	}
	return out
}

// MockSource is a ReportSource replaying canned report bytes through a pipe.
type MockSource struct {
	r *io.PipeReader
	w *io.PipeWriter
}

func (s *MockSource) Read(p []byte) (int, error) {
	return s.r.Read(p)
}

// Close shuts down the replay goroutine by breaking both ends of its pipe.
func (s *MockSource) Close() error {
	s.w.CloseWithError(io.ErrClosedPipe)
	return s.r.Close()
}

// NewMockReportMux creates a ReportMux that replays the given payloads as
// fully acknowledged transactions on the probe's pins, one full round per
// tick of the clock. Used by dev mode and tests; pass timeutil.RealClock{}
// outside tests.
func NewMockReportMux(probe gpio.Probe, payloads [][]byte, interval time.Duration, clock timeutil.Clock) *ReportMux[*MockSource] {
	pr, pw := io.Pipe()
	src := &MockSource{r: pr, w: pw}

	wf := NewWaveform(probe)
	for _, p := range payloads {
		wf.Transaction(p)
	}
	burst := wf.Bytes()

	// Create the ticker before the goroutine starts so callers driving a
	// mock clock can advance it immediately after this returns.
	ticker := clock.NewTicker(interval)
	go func() {
		defer ticker.Stop()
		for range ticker.C() {
			if _, err := pw.Write(burst); err != nil {
				return
			}
		}
	}()

	return NewReportMux(src)
}
