// Package kicad writes KiCad footprint files.
package kicad

import (
	"bufio"
	"io"
)

// Writer emits S-expressions. The first write error is kept and every
// later call becomes a no-op; Flush reports it.
type Writer struct {
	bw  *bufio.Writer
	err error
}

// NewWriter wraps w in a buffered S-expression writer.
func NewWriter(w io.Writer) *Writer {
	return &Writer{bw: bufio.NewWriter(w)}
}

// Expr writes "(name ", runs body and closes with ")\n".
func (w *Writer) Expr(name string, body func(w *Writer)) {
	w.Raw("(")
	w.Raw(name)
	w.Raw(" ")
	if body != nil && w.err == nil {
		body(w)
	}
	w.Raw(")\n")
}

// Atom writes a complete expression whose body is a plain string.
func (w *Writer) Atom(name, body string) {
	w.Expr(name, func(w *Writer) { w.Raw(body) })
}

// Raw writes s unchanged.
func (w *Writer) Raw(s string) {
	if w.err != nil {
		return
	}
	_, w.err = w.bw.WriteString(s)
}

// Err returns the first write error.
func (w *Writer) Err() error { return w.err }

// Flush writes buffered data and returns the first error seen.
func (w *Writer) Flush() error {
	if w.err != nil {
		return w.err
	}
	w.err = w.bw.Flush()
	return w.err
}
