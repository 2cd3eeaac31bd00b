// Command decode replays a raw GPIO report capture offline and prints one
// rendered transaction per line, prefixed with the tick at which its STOP
// condition was observed.
//
// Usage:
//
//	decode -scl 3 -sda 2 capture.bin
//	pigs ... | decode -scl 3 -sda 2
package main

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"os"

	"github.com/banshee-data/buswatch/internal/gpio"
	"github.com/banshee-data/buswatch/internal/i2c"
)

var (
	sclBit = flag.Int("scl", 3, "GPIO bit carrying SCL")
	sdaBit = flag.Int("sda", 2, "GPIO bit carrying SDA")
)

func main() {
	flag.Parse()

	probe := gpio.Probe{SCL: uint8(*sclBit), SDA: uint8(*sdaBit)}
	if err := probe.Validate(); err != nil {
		log.Fatalf("invalid probe: %v", err)
	}

	var in io.Reader = os.Stdin
	if flag.NArg() > 0 {
		f, err := os.Open(flag.Arg(0))
		if err != nil {
			log.Fatalf("failed to open capture: %v", err)
		}
		defer f.Close()
		in = f
	}

	if err := run(in, probe, os.Stdout); err != nil {
		log.Fatalf("decode failed: %v", err)
	}
}

func run(in io.Reader, probe gpio.Probe, out io.Writer) error {
	reader := gpio.NewReader(in)
	engine := i2c.NewEngine()

	var decoded int
	for {
		report, err := reader.Next()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return fmt.Errorf("reading report %d: %w", decoded, err)
		}

		scl, sda := probe.Sample(report)
		if state, tx := engine.Step(scl, sda); state == i2c.Complete {
			fmt.Fprintf(out, "%10d %s\n", report.Tick, tx)
			decoded++
		}
	}

	fmt.Fprintf(out, "%d transactions\n", decoded)
	return nil
}
