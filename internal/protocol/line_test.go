package protocol

import (
	"errors"
	"strings"
	"testing"
)

func TestNextLine(t *testing.T) {
	tests := []struct {
		name     string
		buf      string
		max      int
		wantLine string
		wantN    int
		wantKind lineKind
		wantErr  error
	}{
		{name: "terminator", buf: "\nipv4=", max: 16, wantN: 0, wantKind: lineEnd},
		{name: "full line", buf: "a=1\nb=2\n", max: 16, wantLine: "a=1", wantN: 4, wantKind: lineFull},
		{name: "fragment", buf: "leaset", max: 16, wantLine: "leaset", wantN: 6, wantKind: lineFragment},
		{name: "newline at last scanned byte", buf: "abc\n", max: 4, wantLine: "abc", wantN: 4, wantKind: lineFull},
		{name: "too long", buf: "abcd\n", max: 4, wantErr: ErrLineTooLong},
		{name: "too long without newline", buf: "abcdefgh", max: 4, wantErr: ErrLineTooLong},
		{name: "exactly max without newline", buf: "abcd", max: 4, wantErr: ErrLineTooLong},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			line, n, kind, err := nextLine([]byte(tt.buf), tt.max)
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("nextLine() error = %v, want %v", err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("nextLine() unexpected error: %v", err)
			}
			if string(line) != tt.wantLine {
				t.Errorf("line = %q, want %q", line, tt.wantLine)
			}
			if n != tt.wantN {
				t.Errorf("consumed = %d, want %d", n, tt.wantN)
			}
			if kind != tt.wantKind {
				t.Errorf("kind = %d, want %d", kind, tt.wantKind)
			}
		})
	}
}

func TestNextLine_DefaultLimit(t *testing.T) {
	long := strings.Repeat("x", MaxLineSize-1) + "\n"
	if _, n, kind, err := nextLine([]byte(long), MaxLineSize); err != nil || kind != lineFull || n != MaxLineSize {
		t.Fatalf("line of MaxLineSize bytes: n=%d kind=%d err=%v", n, kind, err)
	}

	tooLong := strings.Repeat("x", MaxLineSize) + "\n"
	if _, _, _, err := nextLine([]byte(tooLong), MaxLineSize); !errors.Is(err, ErrLineTooLong) {
		t.Fatalf("line over MaxLineSize: err=%v, want ErrLineTooLong", err)
	}
}
