package protocol

import "bytes"

const (
	// MaxLineSize bounds one record, newline included.
	MaxLineSize = 4096

	// RecvBufSize is the size of one read chunk handed to the accumulator.
	RecvBufSize = 8192
)

type lineKind int

const (
	// lineEnd is the empty record that terminates a message.
	lineEnd lineKind = iota
	// lineFull is a complete record; the newline is not part of the view.
	lineFull
	// lineFragment is a record whose newline has not arrived yet.
	lineFragment
)

// nextLine extracts one record from buf, looking at most max bytes ahead for
// the newline. It returns the record view, the number of bytes consumed and
// what kind of record it found.
//
// An empty record consumes nothing. A fragment consumes all of buf. A buffer
// of max bytes or more without a newline is ErrLineTooLong.
func nextLine(buf []byte, max int) ([]byte, int, lineKind, error) {
	i := bytes.IndexByte(buf[:min(len(buf), max)], '\n')
	switch {
	case i == 0:
		return nil, 0, lineEnd, nil
	case i > 0:
		return buf[:i], i + 1, lineFull, nil
	case len(buf) < max:
		return buf, len(buf), lineFragment, nil
	default:
		return nil, 0, 0, ErrLineTooLong
	}
}
