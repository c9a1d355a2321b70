// Package sink provides concrete byte-sink collaborators for ebml.Writer
// and mux.Muxer: an in-memory buffer for tests and in-process muxing, and
// a thin *os.File adapter that adds the Tell method the mux core expects.
package sink

import (
	"io"
	"os"

	"github.com/pkg/errors"
)

// Buffer is a growable, seekable in-memory sink. The zero value is ready
// to use.
type Buffer struct {
	buf []byte
	pos int64
}

// NewBuffer returns an empty Buffer.
func NewBuffer() *Buffer {
	return &Buffer{}
}

// Write implements io.Writer, overwriting in place when pos falls inside
// the existing buffer (as happens during back-patching) and appending
// otherwise.
func (b *Buffer) Write(p []byte) (int, error) {
	end := b.pos + int64(len(p))
	if end > int64(len(b.buf)) {
		grown := make([]byte, end)
		copy(grown, b.buf)
		b.buf = grown
	}
	copy(b.buf[b.pos:end], p)
	b.pos = end
	return len(p), nil
}

// Seek implements io.Seeker.
func (b *Buffer) Seek(offset int64, whence int) (int64, error) {
	var base int64
	switch whence {
	case io.SeekStart:
		base = 0
	case io.SeekCurrent:
		base = b.pos
	case io.SeekEnd:
		base = int64(len(b.buf))
	default:
		return 0, errors.Errorf("sink: invalid whence %d", whence)
	}
	next := base + offset
	if next < 0 {
		return 0, errors.Errorf("sink: negative seek position %d", next)
	}
	b.pos = next
	return b.pos, nil
}

// Tell reports the current write offset.
func (b *Buffer) Tell() (int64, error) {
	return b.pos, nil
}

// Bytes returns the buffer's full contents. The result aliases Buffer's
// internal storage and must not be mutated.
func (b *Buffer) Bytes() []byte {
	return b.buf
}

// File adapts an *os.File into the Tell-augmented sink the mux core
// expects.
type File struct {
	*os.File
}

// NewFile wraps f.
func NewFile(f *os.File) *File {
	return &File{File: f}
}

// Tell reports the current write offset.
func (f *File) Tell() (int64, error) {
	return f.Seek(0, io.SeekCurrent)
}
