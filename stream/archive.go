package stream

import (
	"archive/zip"
	"compress/gzip"
	"fmt"
	"io"
)

// ArchiveStream is a read-only Stream backed by one member of a zip
// archive, or by a whole gzip-compressed file. No third-party archive
// library appears anywhere in the retrieved example pack, so this stays
// on the standard library's archive/zip and compress/gzip (see
// DESIGN.md).
type ArchiveStream struct {
	data []byte
	name string
}

// OpenZipMember decompresses the first member of a zip archive into
// memory. Member names are not inspected: for an archive holding more
// than one file, only the first is exposed, and recognising its format
// is left to the format registry.
func OpenZipMember(path string) (*ArchiveStream, error) {
	r, err := zip.OpenReader(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open archive %s: %w", path, err)
	}
	defer r.Close()

	if len(r.File) == 0 {
		return nil, fmt.Errorf("archive %s contains no members", path)
	}
	member := r.File[0]

	rc, err := member.Open()
	if err != nil {
		return nil, fmt.Errorf("failed to open archive member %s: %w", member.Name, err)
	}
	defer rc.Close()

	data, err := io.ReadAll(rc)
	if err != nil {
		return nil, fmt.Errorf("failed to decompress archive member %s: %w", member.Name, err)
	}

	return &ArchiveStream{data: data, name: member.Name}, nil
}

// OpenGzip decompresses a whole .gz-wrapped disk image.
func OpenGzip(path string, f io.Reader, name string) (*ArchiveStream, error) {
	gz, err := gzip.NewReader(f)
	if err != nil {
		return nil, fmt.Errorf("failed to open gzip stream %s: %w", path, err)
	}
	defer gz.Close()

	data, err := io.ReadAll(gz)
	if err != nil {
		return nil, fmt.Errorf("failed to decompress %s: %w", path, err)
	}

	return &ArchiveStream{data: data, name: name}, nil
}

func (s *ArchiveStream) Size() int64 { return int64(len(s.data)) }

func (s *ArchiveStream) ReadAt(dst []byte, offset int64) (int, error) {
	if offset >= int64(len(s.data)) {
		return 0, nil
	}
	return copy(dst, s.data[offset:]), nil
}

func (s *ArchiveStream) WriteAt([]byte, int64) (int, error) { return 0, ErrWriteProtected }
func (s *ArchiveStream) IsReadOnly() bool                   { return true }
func (s *ArchiveStream) Path() string                       { return "" }
func (s *ArchiveStream) Name() string                       { return s.name }
func (s *ArchiveStream) Close() error                       { return nil }
