package monitoring

import (
	"fmt"
	"testing"
)

func TestSetLogger(t *testing.T) {
	orig := Logf
	defer SetLogger(orig)

	var got string
	SetLogger(func(format string, v ...interface{}) {
		got = fmt.Sprintf(format, v...)
	})
	Logf("decoded %d transactions", 3)
	if got != "decoded 3 transactions" {
		t.Errorf("captured log = %q", got)
	}

	// nil installs a no-op logger rather than panicking
	SetLogger(nil)
	Logf("dropped")
}
