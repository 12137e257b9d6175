package protocol

import (
	"errors"
	"net/netip"
	"reflect"
	"strings"
	"testing"
)

// feedAll feeds chunks in order and returns the status of the last call.
func feedAll(t *testing.T, r *Request, chunks ...string) (Status, error) {
	t.Helper()
	status := NeedMore
	for i, c := range chunks {
		var err error
		status, err = r.Feed([]byte(c))
		if err != nil {
			return status, err
		}
		if status == Complete && i != len(chunks)-1 {
			t.Fatalf("message completed early at chunk %d of %d", i+1, len(chunks))
		}
	}
	return status, nil
}

func TestRequestFeed(t *testing.T) {
	tests := []struct {
		name        string
		input       string
		wantStatus  Status
		wantErr     error
		wantAttrs   []Attr
		wantVersion uint32
	}{
		{
			name:        "command only",
			input:       "request=1\n\n",
			wantStatus:  Complete,
			wantVersion: 1,
		},
		{
			name:        "leasetime",
			input:       "request=1\nleasetime=120\n\n",
			wantStatus:  Complete,
			wantAttrs:   []Attr{Uint32Attr(KeyLeaseTime, 120)},
			wantVersion: 1,
		},
		{
			name:       "negative leasetime",
			input:      "request=1\nleasetime=-1\n",
			wantStatus: Failed,
			wantErr:    ErrInvalidValue,
		},
		{
			name:       "leasetime over 32 bits",
			input:      "request=1\nleasetime=99999999999\n",
			wantStatus: Failed,
			wantErr:    ErrInvalidValue,
		},
		{
			name:       "unsupported version",
			input:      "request=2\n",
			wantStatus: Failed,
			wantErr:    ErrUnsupportedVersion,
		},
		{
			name:       "version not a number",
			input:      "request=one\n",
			wantStatus: Failed,
			wantErr:    ErrInvalidInput,
		},
		{
			name:       "empty version",
			input:      "request=\n",
			wantStatus: Failed,
			wantErr:    ErrInvalidInput,
		},
		{
			name:       "empty leasetime",
			input:      "request=1\nleasetime=\n",
			wantStatus: Failed,
			wantErr:    ErrInvalidValue,
		},
		{
			name:       "unknown command",
			input:      "lease=1\n",
			wantStatus: Failed,
			wantErr:    ErrUnknownKey,
		},
		{
			name:       "unknown attribute",
			input:      "request=1\nipv5=1.2.3.4/32\n",
			wantStatus: Failed,
			wantErr:    ErrUnknownKey,
		},
		{
			name:       "attribute before command",
			input:      "ipv4=1.2.3.4/32\n",
			wantStatus: Failed,
			wantErr:    ErrProtocolOrder,
		},
		{
			name:       "command after command",
			input:      "request=1\nrequest=1\n",
			wantStatus: Failed,
			wantErr:    ErrProtocolOrder,
		},
		{
			name:       "missing equals",
			input:      "request=1\nleasetime\n",
			wantStatus: Failed,
			wantErr:    ErrInvalidInput,
		},
		{
			name:       "embedded NUL",
			input:      "request=1\nleasetime=1\x000\n\n",
			wantStatus: Failed,
			wantErr:    ErrInvalidInput,
		},
		{
			name:        "unterminated message needs more",
			input:       "request=1\nleasetime=5\n",
			wantStatus:  NeedMore,
			wantAttrs:   []Attr{Uint32Attr(KeyLeaseTime, 5)},
			wantVersion: 1,
		},
		{
			name:       "all attribute kinds",
			input:      "request=1\nipv4=10.0.0.2/32\nipv6=fd00::2/128\nleasestart=1700000000\nleasetime=3600\nerrno=0\nerrmsg=ok\n\n",
			wantStatus: Complete,
			wantAttrs: []Attr{
				CIDRAttr(netip.MustParsePrefix("10.0.0.2/32")),
				CIDRAttr(netip.MustParsePrefix("fd00::2/128")),
				Uint32Attr(KeyLeaseStart, 1700000000),
				Uint32Attr(KeyLeaseTime, 3600),
				Uint32Attr(KeyErrno, 0),
				ErrmsgAttr("ok"),
			},
			wantVersion: 1,
		},
		{
			name:        "bytes after terminator ignored",
			input:       "request=1\n\ngarbage without newline",
			wantStatus:  Complete,
			wantVersion: 1,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var r Request
			status, err := r.Feed([]byte(tt.input))

			if status != tt.wantStatus {
				t.Errorf("status = %v, want %v", status, tt.wantStatus)
			}
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("error = %v, want %v", err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if r.Command != KeyRequest {
				t.Errorf("command = %v, want request", r.Command)
			}
			if r.Version != tt.wantVersion {
				t.Errorf("version = %d, want %d", r.Version, tt.wantVersion)
			}
			if !reflect.DeepEqual(r.Attrs, tt.wantAttrs) {
				t.Errorf("attrs = %v, want %v", r.Attrs, tt.wantAttrs)
			}
		})
	}
}

func TestRequestFeed_TwoNewlinesEndMessage(t *testing.T) {
	var r Request
	status, err := feedAll(t, &r, "request=1\n", "\n\n")
	if err != nil || status != Complete {
		t.Fatalf("status = %v, err = %v", status, err)
	}
	if len(r.Attrs) != 0 {
		t.Errorf("attrs = %v, want none", r.Attrs)
	}
}

// Every way of cutting a message into pieces must parse the same as the
// whole message.
func TestRequestFeed_SplitIdempotent(t *testing.T) {
	msg := "request=1\nipv4=192.168.1.5/32\nipv6=fd00::5/128\nleasetime=3600\nerrmsg=hello world\n\n"

	var whole Request
	if status, err := whole.Feed([]byte(msg)); err != nil || status != Complete {
		t.Fatalf("whole message: status = %v, err = %v", status, err)
	}

	for i := 1; i < len(msg); i++ {
		for j := i; j < len(msg); j++ {
			chunks := []string{msg[:i], msg[i:j], msg[j:]}
			if i == j {
				chunks = []string{msg[:i], msg[j:]}
			}

			var r Request
			status, err := feedAll(t, &r, chunks...)
			if err != nil || status != Complete {
				t.Fatalf("split %d/%d: status = %v, err = %v", i, j, status, err)
			}
			if r.Command != whole.Command || r.Version != whole.Version || !reflect.DeepEqual(r.Attrs, whole.Attrs) {
				t.Fatalf("split %d/%d: got %v, want %v", i, j, r.Attrs, whole.Attrs)
			}
		}
	}

	var bytewise Request
	chunks := strings.Split(msg, "")
	status, err := feedAll(t, &bytewise, chunks...)
	if err != nil || status != Complete {
		t.Fatalf("byte by byte: status = %v, err = %v", status, err)
	}
	if !reflect.DeepEqual(bytewise.Attrs, whole.Attrs) {
		t.Fatalf("byte by byte: got %v, want %v", bytewise.Attrs, whole.Attrs)
	}
}

func TestRequestFeed_LineTooLongAnySplit(t *testing.T) {
	msg := "request=1\nerrmsg=" + strings.Repeat("x", MaxLineSize) + "\n\n"

	for _, cut := range []int{1, 10, 11, 17, 100, MaxLineSize / 2, MaxLineSize, MaxLineSize + 10, len(msg) - 2} {
		var r Request
		_, err := feedAll(t, &r, msg[:cut], msg[cut:])
		if !errors.Is(err, ErrLineTooLong) {
			t.Errorf("cut at %d: error = %v, want ErrLineTooLong", cut, err)
		}
	}

	var r Request
	if _, err := r.Feed([]byte(msg)); !errors.Is(err, ErrLineTooLong) {
		t.Errorf("single chunk: error = %v, want ErrLineTooLong", err)
	}
}

func TestRequestFeed_FragmentHeld(t *testing.T) {
	var r Request
	status, err := r.Feed([]byte("request=1\nipv4=192.16"))
	if err != nil || status != NeedMore {
		t.Fatalf("status = %v, err = %v", status, err)
	}
	if r.Pending() != len("ipv4=192.16") {
		t.Errorf("Pending() = %d, want %d", r.Pending(), len("ipv4=192.16"))
	}
	if len(r.Attrs) != 0 {
		t.Errorf("fragment leaked into attrs: %v", r.Attrs)
	}

	status, err = r.Feed([]byte("8.1.5/32\n\n"))
	if err != nil || status != Complete {
		t.Fatalf("status = %v, err = %v", status, err)
	}
	if r.Pending() != 0 {
		t.Errorf("Pending() = %d after completion", r.Pending())
	}
}

// The client from the wire example sends its request in two reads, cut in the
// middle of the ipv4 line.
func TestRequestFeed_EndToEndTwoChunks(t *testing.T) {
	msg := "request=1\nipv4=192.168.1.5/32\nleasetime=3600\n\n"
	cut := strings.Index(msg, "168")

	var r Request
	completions := 0
	for _, chunk := range []string{msg[:cut], msg[cut:]} {
		status, err := r.Feed([]byte(chunk))
		if err != nil {
			t.Fatalf("Feed() error = %v", err)
		}
		if status == Complete {
			completions++
		}
	}

	if completions != 1 {
		t.Fatalf("completions = %d, want 1", completions)
	}
	if r.Command != KeyRequest || r.Version != 1 {
		t.Errorf("command = %v version %d", r.Command, r.Version)
	}
	want := []Attr{
		{Key: KeyIPv4, Value: CIDR{Addr: netip.MustParseAddr("192.168.1.5"), Bits: 32}},
		{Key: KeyLeaseTime, Value: Uint32(3600)},
	}
	if !reflect.DeepEqual(r.Attrs, want) {
		t.Errorf("attrs = %v, want %v", r.Attrs, want)
	}
}

func TestRequestReset(t *testing.T) {
	var r Request
	if _, err := r.Feed([]byte("request=1\nleasetime=1\nleasestart=2\nipv4=")); err != nil {
		t.Fatalf("Feed() error = %v", err)
	}
	if len(r.Attrs) != 2 || r.Pending() == 0 {
		t.Fatalf("setup: attrs=%d pending=%d", len(r.Attrs), r.Pending())
	}

	r.Reset()

	if !reflect.DeepEqual(r, Request{}) {
		t.Errorf("Reset() left %+v, want zero Request", r)
	}

	// A reset request parses a fresh message from scratch.
	status, err := r.Feed([]byte("request=1\n\n"))
	if err != nil || status != Complete {
		t.Errorf("after reset: status = %v, err = %v", status, err)
	}
}

func TestRequestAttr(t *testing.T) {
	var r Request
	if _, err := r.Feed([]byte("request=1\nleasetime=10\nleasetime=20\n\n")); err != nil {
		t.Fatalf("Feed() error = %v", err)
	}
	a, ok := r.Attr(KeyLeaseTime)
	if !ok || a.Value != Uint32(10) {
		t.Errorf("Attr(leasetime) = %v, %v; want first value 10", a, ok)
	}
	if _, ok := r.Attr(KeyIPv6); ok {
		t.Errorf("Attr(ipv6) found on a message without one")
	}
}
