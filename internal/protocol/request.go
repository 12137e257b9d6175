package protocol

import (
	"bytes"
	"strconv"
)

// Version is the only protocol version this package speaks.
const Version = 1

// Status is the outcome of feeding one chunk to a Request.
type Status int

const (
	// NeedMore means the chunk was consumed without reaching the end of the
	// message. A trailing partial line, if any, is kept for the next Feed.
	NeedMore Status = iota
	// Complete means the blank terminator line was seen.
	Complete
	// Failed means the message is malformed; Feed also returns the error.
	Failed
)

func (s Status) String() string {
	switch s {
	case NeedMore:
		return "need-more"
	case Complete:
		return "complete"
	case Failed:
		return "failed"
	default:
		return "Status(" + strconv.Itoa(int(s)) + ")"
	}
}

// Request accumulates one message from a byte stream that may arrive in
// arbitrary pieces. The zero value is ready to use.
type Request struct {
	// Command is KeyUnknown until the command line has been parsed.
	Command Key
	Version uint32
	// Attrs holds the attribute lines in arrival order.
	Attrs []Attr

	// fragment is a line seen without its newline in an earlier chunk.
	fragment []byte
	// scratch joins fragment and the next chunk.
	scratch []byte
}

// Feed parses chunk, continuing any line left incomplete by the previous
// call. It stops at the message terminator, at the first error, or when the
// chunk runs out. Bytes after the terminator are ignored.
func (r *Request) Feed(chunk []byte) (Status, error) {
	if bytes.IndexByte(chunk, 0) >= 0 {
		return Failed, Errorf(CodeInvalidInput, "embedded NUL byte")
	}

	buf := chunk
	if len(r.fragment) > 0 {
		r.scratch = append(append(r.scratch[:0], r.fragment...), chunk...)
		r.fragment = r.fragment[:0]
		buf = r.scratch
	}

	for len(buf) > 0 {
		line, n, kind, err := nextLine(buf, MaxLineSize)
		if err != nil {
			return Failed, err
		}

		switch kind {
		case lineEnd:
			return Complete, nil
		case lineFragment:
			r.fragment = append(r.fragment[:0], line...)
		case lineFull:
			if r.Command == KeyUnknown {
				err = r.parseCommand(line)
			} else {
				err = r.parseAttr(line)
			}
			if err != nil {
				return Failed, err
			}
		}
		buf = buf[n:]
	}

	return NeedMore, nil
}

// Pending reports how many bytes of an unfinished line are being held.
func (r *Request) Pending() int {
	return len(r.fragment)
}

// Attr returns the first attribute with key k.
func (r *Request) Attr(k Key) (Attr, bool) {
	for _, a := range r.Attrs {
		if a.Key == k {
			return a, true
		}
	}
	return Attr{}, false
}

// Reset drops every attribute and any held fragment, returning r to its
// zero state.
func (r *Request) Reset() {
	clear(r.Attrs)
	*r = Request{}
}

// parseCommand handles "name=version", the first line of every message.
func (r *Request) parseCommand(line []byte) error {
	name, value, err := splitLine(line)
	if err != nil {
		return err
	}

	key := LookupKey(name)
	switch {
	case key == KeyUnknown:
		return Errorf(CodeUnknownKey, "unknown command %q", name)
	case !key.IsCommand():
		return Errorf(CodeProtocolOrder, "attribute %q before command", name)
	}

	version, err := parseUint32(value)
	if err != nil {
		return Errorf(CodeInvalidInput, "%s: bad version %q", name, value)
	}

	r.Command = key
	r.Version = version
	if version != Version {
		return Errorf(CodeUnsupportedVersion, "%s: version %d", name, version)
	}
	return nil
}

// parseAttr handles one "name=value" line after the command.
func (r *Request) parseAttr(line []byte) error {
	name, text, err := splitLine(line)
	if err != nil {
		return err
	}

	key := LookupKey(name)
	switch {
	case key == KeyUnknown:
		return Errorf(CodeUnknownKey, "unknown attribute %q", name)
	case !key.IsAttribute():
		return Errorf(CodeProtocolOrder, "command %q after command line", name)
	}

	v, err := decodeValue(key, text)
	if err != nil {
		return err
	}
	r.Attrs = append(r.Attrs, Attr{Key: key, Value: v})
	return nil
}

func splitLine(line []byte) (string, string, error) {
	name, value, ok := bytes.Cut(line, []byte{'='})
	if !ok {
		return "", "", Errorf(CodeInvalidInput, "missing '=' in %q", truncateText(string(line)))
	}
	return string(name), string(value), nil
}
