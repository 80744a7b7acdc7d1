//go:build !nativefloppy

package nativefloppy

// Open always fails in builds without the nativefloppy tag. The stub
// keeps FloppyDisk's constructor linkable everywhere while making it
// clear at runtime, rather than at compile time for every consumer,
// that the feature was left out of this binary.
func Open(port string) (Drive, error) {
	return nil, ErrNativeFloppyUnsupported
}

// ListPorts always returns no candidates in builds without the
// nativefloppy tag.
func ListPorts() ([]string, error) {
	return nil, nil
}
