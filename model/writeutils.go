package model

import (
	"bytes"
	"fmt"
)

// Buffer is a thin wrapper used throughout the writer to shorten
// formatted-line emission.
type Buffer struct {
	*bytes.Buffer
}

func NewBuffer() Buffer { return Buffer{Buffer: &bytes.Buffer{}} }

func (b Buffer) Fmt(format string, arg ...interface{}) {
	fmt.Fprintf(b.Buffer, format, arg...)
}

func (b Buffer) Line(format string, arg ...interface{}) {
	b.Fmt(format, arg...)
	b.WriteByte('\n')
}
