// Package transport provides byte sources for the radar driver.
package transport

import (
	"errors"
	"io"
)

var (
	// ErrNoData is returned by ReadByte when no byte is available.
	ErrNoData = errors.New("no data available")
	// ErrClosed indicates the source is closed.
	ErrClosed = errors.New("source closed")
)

// ByteSource delivers bytes one at a time without blocking.
type ByteSource interface {
	// Available reports whether ReadByte returns immediately,
	// either with a byte or with an error.
	Available() bool
	// ReadByte reads the next byte.
	ReadByte() (byte, error)
}

// Buffer is an in-memory ByteSource.
type Buffer struct {
	data []byte
}

// NewBuffer creates a Buffer with initial content.
func NewBuffer(data []byte) *Buffer {
	return &Buffer{data: append([]byte(nil), data...)}
}

// Write appends bytes to be read. It implements io.Writer.
func (b *Buffer) Write(p []byte) (int, error) {
	b.data = append(b.data, p...)
	return len(p), nil
}

// Len returns the number of unread bytes.
func (b *Buffer) Len() int {
	return len(b.data)
}

// Available implements ByteSource.
func (b *Buffer) Available() bool {
	return len(b.data) > 0
}

// ReadByte implements ByteSource.
func (b *Buffer) ReadByte() (byte, error) {
	if len(b.data) == 0 {
		return 0, ErrNoData
	}
	c := b.data[0]
	b.data = b.data[1:]
	return c, nil
}

var _ io.ByteReader = (*Buffer)(nil)
