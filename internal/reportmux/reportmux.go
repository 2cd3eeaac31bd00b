// Package reportmux provides an abstraction over a GPIO report source with
// the ability for multiple clients to subscribe to the report stream coming
// off a single sniffer attachment. The bus is passive: unlike a configurable
// sensor there is nothing to write back, so the mux is read-only.
package reportmux

import (
	"context"
	crand "crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"net/http"
	"sync"

	"tailscale.com/tsweb"

	"github.com/banshee-data/buswatch/internal/gpio"
	"github.com/banshee-data/buswatch/internal/monitoring"
)

// ReportMux fans a single source of GPIO reports out to any number of
// subscribers. Subscribers that cannot keep up miss reports rather than
// stalling the read loop.
type ReportMux[T ReportSource] struct {
	source       T
	subscribers  map[string]chan gpio.Report
	subscriberMu sync.Mutex
	closing      bool
	closingMu    sync.Mutex
}

// Mux is the interface the daemon and API layers consume.
type Mux interface {
	// Subscribe creates a new channel receiving every report read from
	// the source. The returned ID identifies the channel when
	// unsubscribing.
	Subscribe() (string, chan gpio.Report)
	// Unsubscribe removes and closes a subscriber channel.
	Unsubscribe(string)
	// Monitor reads reports from the source and fans them out until the
	// context is cancelled or the source ends.
	Monitor(context.Context) error
	// Close closes all subscriber channels and the underlying source.
	Close() error
	// AttachAdminRoutes attaches debugging endpoints under /debug/.
	// These are only reachable over localhost or the tailnet.
	AttachAdminRoutes(*http.ServeMux)
}

// NewReportMux creates a ReportMux reading from the given source.
func NewReportMux[T ReportSource](source T) *ReportMux[T] {
	return &ReportMux[T]{
		source:      source,
		subscribers: make(map[string]chan gpio.Report),
	}
}

// randomID generates a random channel ID (8 byte random hex encoded value).
func randomID() string {
	b := make([]byte, 8)
	crand.Read(b)
	return hex.EncodeToString(b)
}

func (m *ReportMux[T]) Subscribe() (string, chan gpio.Report) {
	id := randomID()
	ch := make(chan gpio.Report)
	m.subscriberMu.Lock()
	defer m.subscriberMu.Unlock()
	m.subscribers[id] = ch
	return id, ch
}

// Unsubscribe removes a subscriber from the mux.
func (m *ReportMux[T]) Unsubscribe(id string) {
	m.subscriberMu.Lock()
	defer m.subscriberMu.Unlock()
	if ch, ok := m.subscribers[id]; ok {
		close(ch)
		delete(m.subscribers, id)
	}
}

// Monitor reads fixed-size report records from the source and sends them to
// subscribers. It returns when the context is cancelled, the source reaches
// a clean end of stream (nil), or a read fails. A stream ending inside a
// record surfaces as io.ErrUnexpectedEOF; there is no resynchronisation.
func (m *ReportMux[T]) Monitor(ctx context.Context) error {
	reader := gpio.NewReader(m.source)

	reportChan := make(chan gpio.Report)
	readErrChan := make(chan error, 1)

	// Read records on a separate goroutine so the blocking read does not
	// interfere with the outer loop awaiting context cancellation.
	go func() {
		defer close(reportChan)
		for {
			report, err := reader.Next()
			if err != nil {
				select {
				case readErrChan <- err:
				case <-ctx.Done():
				}
				return
			}
			select {
			case reportChan <- report:
			case <-ctx.Done():
				return
			}
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case err := <-readErrChan:
			if errors.Is(err, io.EOF) {
				monitoring.Logf("report source reached end of stream")
				return nil
			}
			monitoring.Logf("report read failed: %v", err)
			return err

		case report, ok := <-reportChan:
			if !ok {
				return nil
			}

			m.closingMu.Lock()
			if m.closing {
				m.closingMu.Unlock()
				return nil
			}
			m.closingMu.Unlock()

			m.subscriberMu.Lock()
			for _, ch := range m.subscribers {
				select {
				case ch <- report:
				default:
					// skip subscribers that are not draining so
					// the read loop never blocks on them
				}
			}
			m.subscriberMu.Unlock()
		}
	}
}

func (m *ReportMux[T]) Close() error {
	m.closingMu.Lock()
	m.closing = true
	m.closingMu.Unlock()

	m.subscriberMu.Lock()
	defer m.subscriberMu.Unlock()
	for id, ch := range m.subscribers {
		close(ch)
		delete(m.subscribers, id)
	}
	return m.source.Close()
}

// AttachAdminRoutes mounts a live tail of the raw report stream for
// debugging probe wiring without restarting the daemon.
func (m *ReportMux[T]) AttachAdminRoutes(mux *http.ServeMux) {
	debug := tsweb.Debugger(mux)

	// Server-Sent Events stream of raw reports as they arrive.
	debug.HandleSilentFunc("tail", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}

		w.Header().Set("Content-Type", "text/event-stream")
		w.Header().Set("Cache-Control", "no-cache")
		w.Header().Set("Connection", "keep-alive")
		w.Header().Set("X-Accel-Buffering", "no") // Disable buffering for nginx

		id, c := m.Subscribe()
		defer m.Unsubscribe(id)

		// Send initial ping to establish connection
		w.Write([]byte(": ping\n\n"))
		w.(http.Flusher).Flush()

		for {
			select {
			case report, ok := <-c:
				if !ok {
					return
				}
				line := fmt.Sprintf("data: seq=%d tick=%d level=%08X\n\n",
					report.Seqno, report.Tick, report.Level)
				if _, err := w.Write([]byte(line)); err != nil {
					return
				}
				w.(http.Flusher).Flush()
			case <-r.Context().Done():
				return
			}
		}
	})
}
