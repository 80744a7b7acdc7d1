// Package stream provides the uniform byte source/sink that disk image
// backends read and write through. A Stream never interprets the bytes
// it carries; that is the job of the diskimage backends.
package stream

import "errors"

// ErrWriteProtected is returned by WriteAt when the underlying medium is
// read-only.
var ErrWriteProtected = errors.New("stream: write protected")

// Stream is a seekable byte source/sink for a disk image. Implementations
// must be safe to use from a single goroutine only; the Drive serialises
// all calls into a mounted Disk and its Stream.
type Stream interface {
	// Size returns the total number of bytes available.
	Size() int64

	// ReadAt copies len(dst) bytes starting at offset into dst. It
	// returns fewer bytes only at end of stream.
	ReadAt(dst []byte, offset int64) (int, error)

	// WriteAt writes src at offset. Returns ErrWriteProtected if the
	// stream is read-only.
	WriteAt(src []byte, offset int64) (int, error)

	// IsReadOnly reports whether WriteAt will always fail.
	IsReadOnly() bool

	// Path returns the filesystem path the stream was opened from, or
	// "" for an in-memory stream.
	Path() string

	// Name returns a short display name for the stream (base filename,
	// or a synthetic name for in-memory streams).
	Name() string

	// Close releases any underlying resources.
	Close() error
}
