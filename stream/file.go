package stream

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
)

// FileStream is a Stream backed by a file on disk.
type FileStream struct {
	file     *os.File
	path     string
	size     int64
	readOnly bool
}

// OpenFile opens path for a disk image. If readOnly is false, OpenFile
// still falls back to a read-only handle when the file can't be opened
// for writing (e.g. permission denied), trying the richer mode first and
// degrading gracefully.
func OpenFile(path string, readOnly bool) (*FileStream, error) {
	if !readOnly {
		f, err := os.OpenFile(path, os.O_RDWR, 0)
		if err == nil {
			return newFileStream(f, path, false)
		}
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open disk image %s: %w", path, err)
	}
	return newFileStream(f, path, true)
}

// CreateFile creates a new file-backed stream, truncating any existing
// content. The disk backends do not call it; their FormatTrack methods
// rewrite tracks inside an already open stream.
func CreateFile(path string, size int64) (*FileStream, error) {
	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("failed to create disk image %s: %w", path, err)
	}
	if size > 0 {
		if err := f.Truncate(size); err != nil {
			f.Close()
			return nil, fmt.Errorf("failed to size disk image %s: %w", path, err)
		}
	}
	return newFileStream(f, path, false)
}

func newFileStream(f *os.File, path string, readOnly bool) (*FileStream, error) {
	info, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("failed to stat disk image %s: %w", path, err)
	}
	return &FileStream{file: f, path: path, size: info.Size(), readOnly: readOnly}, nil
}

func (s *FileStream) Size() int64 { return s.size }

func (s *FileStream) ReadAt(dst []byte, offset int64) (int, error) {
	n, err := s.file.ReadAt(dst, offset)
	if err == io.EOF {
		err = nil
	}
	return n, err
}

func (s *FileStream) WriteAt(src []byte, offset int64) (int, error) {
	if s.readOnly {
		return 0, ErrWriteProtected
	}
	n, err := s.file.WriteAt(src, offset)
	if err != nil {
		return n, fmt.Errorf("failed to write disk image %s: %w", s.path, err)
	}
	if end := offset + int64(n); end > s.size {
		s.size = end
	}
	return n, nil
}

func (s *FileStream) IsReadOnly() bool { return s.readOnly }
func (s *FileStream) Path() string     { return s.path }
func (s *FileStream) Name() string     { return filepath.Base(s.path) }
func (s *FileStream) Close() error     { return s.file.Close() }
