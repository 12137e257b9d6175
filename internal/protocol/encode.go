package protocol

import (
	"fmt"
	"strconv"
)

// MaxResponseSize fits the largest message a server sends: the command line,
// one attribute of every kind with maximal values, and the terminator.
const MaxResponseSize = 512

// MessageBuffer is an append-only, fixed-capacity output buffer for one
// message. Overflowing it is a programming error and panics; callers size it
// for the largest message they can produce.
type MessageBuffer struct {
	buf []byte
}

// NewMessageBuffer returns a MessageBuffer that holds at most size bytes.
func NewMessageBuffer(size int) *MessageBuffer {
	return &MessageBuffer{buf: make([]byte, 0, size)}
}

// Printf appends one formatted piece of text.
func (b *MessageBuffer) Printf(format string, args ...any) {
	b.append(fmt.Appendf(nil, format, args...))
}

// AppendCommand writes the command line "name=version\n".
func (b *MessageBuffer) AppendCommand(k Key, version uint32) {
	if !k.IsCommand() {
		panic(fmt.Sprintf("protocol: %v is not a command", k))
	}
	b.appendLine(k, strconv.FormatUint(uint64(version), 10))
}

// AppendAttr writes one attribute line "name=value\n".
func (b *MessageBuffer) AppendAttr(a Attr) {
	if !a.Key.IsAttribute() {
		panic(fmt.Sprintf("protocol: %v is not an attribute", a.Key))
	}
	text := ""
	if a.Value != nil {
		text = a.Value.Text()
	}
	b.appendLine(a.Key, text)
}

// End writes the blank line that terminates the message.
func (b *MessageBuffer) End() {
	b.append([]byte{'\n'})
}

// Bytes returns the message written so far. The slice aliases the buffer.
func (b *MessageBuffer) Bytes() []byte { return b.buf }

// Len is the number of bytes written so far.
func (b *MessageBuffer) Len() int { return len(b.buf) }

// Reset discards the contents but keeps the capacity.
func (b *MessageBuffer) Reset() { b.buf = b.buf[:0] }

func (b *MessageBuffer) appendLine(k Key, value string) {
	n := len(k.String()) + 1 + len(value) + 1
	b.reserve(n)
	b.buf = append(b.buf, k.String()...)
	b.buf = append(b.buf, '=')
	b.buf = append(b.buf, value...)
	b.buf = append(b.buf, '\n')
}

func (b *MessageBuffer) append(p []byte) {
	b.reserve(len(p))
	b.buf = append(b.buf, p...)
}

func (b *MessageBuffer) reserve(n int) {
	if len(b.buf)+n > cap(b.buf) {
		panic(fmt.Sprintf("protocol: message buffer too small: %d + %d > %d", len(b.buf), n, cap(b.buf)))
	}
}
