package gpio

import "fmt"

// Probe names the two GPIO bit positions the sniffer is wired to. The
// decoder itself is mask-agnostic: the probe resolves a report down to the
// two booleans the engine consumes.
type Probe struct {
	SCL uint8 `json:"scl"`
	SDA uint8 `json:"sda"`
}

// Validate rejects bit positions outside the 32-bit level field and probes
// with both lines on the same pin. Called at startup; the decode path
// assumes a valid probe.
func (p Probe) Validate() error {
	if p.SCL > 31 {
		return fmt.Errorf("gpio: scl bit %d out of range 0-31", p.SCL)
	}
	if p.SDA > 31 {
		return fmt.Errorf("gpio: sda bit %d out of range 0-31", p.SDA)
	}
	if p.SCL == p.SDA {
		return fmt.Errorf("gpio: scl and sda both on bit %d", p.SCL)
	}
	return nil
}

// Sample resolves the clock and data line levels for this probe from a
// report.
func (p Probe) Sample(r Report) (scl, sda bool) {
	return r.Line(p.SCL), r.Line(p.SDA)
}

func (p Probe) String() string {
	return fmt.Sprintf("scl=%d sda=%d", p.SCL, p.SDA)
}
