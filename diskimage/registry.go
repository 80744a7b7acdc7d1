package diskimage

import (
	"fmt"

	"samfdc/stream"
)

// FormatInfo registers one backend's sniffing predicate and constructor,
// keeping a list of factory registrations consulted in order rather than
// a hardcoded switch statement.
type FormatInfo struct {
	Name      string
	Recognise func(s stream.Stream) bool
	Open      func(s stream.Stream) (Disk, error)
}

var formats []FormatInfo

// RegisterFormat adds a backend to the registry. Called from each
// backend's package init so the registry's contents are assembled at
// program startup, in source order.
func RegisterFormat(f FormatInfo) {
	formats = append(formats, f)
}

// Open sniffs s against every registered format in registration order
// and returns the first match's opened Disk. Only self-describing
// image formats (MGT, SAD, EDSK) are registered; FileDisk is built
// explicitly from raw bytes by its caller (the boot hook's built-in
// fallback image), not sniffed from an arbitrary stream.
func Open(s stream.Stream) (Disk, error) {
	for _, f := range formats {
		if f.Recognise(s) {
			return f.Open(s)
		}
	}
	return nil, fmt.Errorf("%w: %s matched no registered backend (known presets: %v)",
		ErrUnrecognisedFormat, s.Name(), geometryNames())
}

// RegisteredFormatNames returns the names of all registered backends, in
// registration order, for diagnostics and the devtool CLI.
func RegisteredFormatNames() []string {
	names := make([]string, len(formats))
	for i, f := range formats {
		names[i] = f.Name
	}
	return names
}
