package reportmux

import (
	"io"
	"time"
)

// ReportSource is the minimal interface for a stream of GPIO level reports.
// It is satisfied by the pigpiod notification pipe, a capture file, a serial
// port, and the mock sources. The abstraction enables unit testing without a
// sniffer attached.
type ReportSource interface {
	io.Reader
	io.Closer
}

// TimeoutReportSource extends ReportSource with read timeout control. Serial
// ports implement it; pipes and files generally do not.
type TimeoutReportSource interface {
	ReportSource
	SetReadTimeout(timeout time.Duration) error
}
