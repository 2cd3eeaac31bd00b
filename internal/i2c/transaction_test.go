package i2c

import (
	"strconv"
	"strings"
	"testing"
)

func TestTransactionString(t *testing.T) {
	cases := []struct {
		name string
		tx   Transaction
		want string
	}{
		{"empty", Transaction{}, "[]"},
		{"single zero", Transaction{Bytes: []Byte{{0x00, Ack}}}, "[00+]"},
		{"two zeros", Transaction{Bytes: []Byte{{0x00, Ack}, {0x00, Ack}}}, "[00+00+]"},
		{"high nibble", Transaction{Bytes: []Byte{{0xF0, Ack}}}, "[F0+]"},
		{
			"mixed ack nak",
			Transaction{Bytes: []Byte{{0x01, Ack}, {0x02, Nak}, {0x03, Ack}}},
			"[01+02-03+]",
		},
		{
			"long run",
			Transaction{Bytes: []Byte{
				{0x01, Ack}, {0x02, Ack}, {0x03, Ack},
				{0xA0, Ack}, {0xB0, Ack}, {0xC0, Ack},
			}},
			"[01+02+03+A0+B0+C0+]",
		},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			if got := c.tx.String(); got != c.want {
				t.Errorf("String() = %q, want %q", got, c.want)
			}
		})
	}
}

// parseRendered is the inverse of Transaction.String, used to check that the
// rendering keeps every (value, status) pair recoverable.
func parseRendered(t *testing.T, s string) []Byte {
	t.Helper()
	if !strings.HasPrefix(s, "[") || !strings.HasSuffix(s, "]") {
		t.Fatalf("rendering %q not bracketed", s)
	}
	body := s[1 : len(s)-1]
	if len(body)%3 != 0 {
		t.Fatalf("rendering %q not a run of 3-char groups", s)
	}
	var out []Byte
	for i := 0; i < len(body); i += 3 {
		v, err := strconv.ParseUint(body[i:i+2], 16, 8)
		if err != nil {
			t.Fatalf("bad hex pair in %q: %v", s, err)
		}
		status := Ack
		if body[i+2] == '-' {
			status = Nak
		}
		out = append(out, Byte{Value: uint8(v), Status: status})
	}
	return out
}

func TestTransactionStringRoundTrip(t *testing.T) {
	tx := Transaction{Bytes: []Byte{
		{0x00, Ack}, {0x7F, Nak}, {0x80, Ack}, {0xFF, Nak},
	}}
	got := parseRendered(t, tx.String())
	if len(got) != len(tx.Bytes) {
		t.Fatalf("round trip length = %d, want %d", len(got), len(tx.Bytes))
	}
	for i := range got {
		if got[i] != tx.Bytes[i] {
			t.Errorf("byte %d: round trip = %+v, want %+v", i, got[i], tx.Bytes[i])
		}
	}
}

func TestTransactionPayload(t *testing.T) {
	tx := Transaction{Bytes: []Byte{{0x01, Ack}, {0x02, Nak}, {0x03, Ack}}}
	want := []byte{0x01, 0x02, 0x03}
	got := tx.Payload()
	if len(got) != len(want) {
		t.Fatalf("payload length = %d, want %d", len(got), len(want))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("payload[%d] = %#02x, want %#02x", i, got[i], want[i])
		}
	}
}
