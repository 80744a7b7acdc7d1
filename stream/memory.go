package stream

// MemoryStream is a Stream backed by an in-memory byte slice. Used for the
// boot hook's built-in DOS image and for tests that don't want to touch
// the filesystem.
type MemoryStream struct {
	data     []byte
	name     string
	readOnly bool
}

// NewMemoryStream wraps data under the given display name. The stream
// takes ownership of data; callers should not mutate it afterwards
// unless they want those changes reflected in the stream.
func NewMemoryStream(data []byte, name string, readOnly bool) *MemoryStream {
	return &MemoryStream{data: data, name: name, readOnly: readOnly}
}

func (s *MemoryStream) Size() int64 { return int64(len(s.data)) }

func (s *MemoryStream) ReadAt(dst []byte, offset int64) (int, error) {
	if offset >= int64(len(s.data)) {
		return 0, nil
	}
	n := copy(dst, s.data[offset:])
	return n, nil
}

func (s *MemoryStream) WriteAt(src []byte, offset int64) (int, error) {
	if s.readOnly {
		return 0, ErrWriteProtected
	}
	end := offset + int64(len(src))
	if end > int64(len(s.data)) {
		grown := make([]byte, end)
		copy(grown, s.data)
		s.data = grown
	}
	return copy(s.data[offset:], src), nil
}

func (s *MemoryStream) IsReadOnly() bool { return s.readOnly }
func (s *MemoryStream) Path() string     { return "" }
func (s *MemoryStream) Name() string     { return s.name }
func (s *MemoryStream) Close() error     { return nil }
