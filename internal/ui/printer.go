package ui

import (
	"fmt"
	"io"
	"os"
)

// Printer writes UI components to a writer. Output is plain when the writer
// is not a terminal or NO_COLOR is set.
type Printer struct {
	out   io.Writer
	width int
	plain bool
}

// NewPrinter creates a new Printer that writes to the given writer.
// If w is nil, os.Stdout is used.
func NewPrinter(w io.Writer) *Printer {
	if w == nil {
		w = os.Stdout
	}
	return &Printer{
		out:   w,
		width: GetTerminalWidth(),
		plain: !IsTerminal(w) || os.Getenv("NO_COLOR") != "",
	}
}

// SetPlain forces plain output on or off.
func (p *Printer) SetPlain(plain bool) *Printer {
	p.plain = plain
	return p
}

// Plain reports whether the printer writes plain output.
func (p *Printer) Plain() bool { return p.plain }

// Println writes content with a newline
func (p *Printer) Println(content string) {
	_, _ = fmt.Fprintln(p.out, content)
}

// PrintHeader prints a command header
func (p *Printer) PrintHeader(h *Header) {
	h.Width = p.width
	h.Plain = p.plain
	p.Println(h.Render())
}

// PrintResult prints a result box
func (p *Printer) PrintResult(r *Result) {
	r.Width = p.width
	r.Plain = p.plain
	p.Println(r.Render())
}
