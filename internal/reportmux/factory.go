package reportmux

import (
	"fmt"
	"os"

	"go.bug.st/serial"
)

// NewPipeReportMux creates a ReportMux reading from a pigpiod notification
// pipe (/dev/pigpioN) or from a raw report capture file.
func NewPipeReportMux(path string) (*ReportMux[*os.File], error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open report pipe %q: %w", path, err)
	}
	return NewReportMux(f), nil
}

// NewSerialReportMux creates a ReportMux backed by a UART-attached sniffer
// board at the given path, streaming the same 12-byte report records over a
// serial line.
func NewSerialReportMux(path string, opts PortOptions) (*ReportMux[serial.Port], error) {
	mode, err := opts.SerialMode()
	if err != nil {
		return nil, err
	}

	port, err := serial.Open(path, mode)
	if err != nil {
		return nil, err
	}

	return NewReportMux(port), nil
}
