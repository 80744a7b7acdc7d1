package boothook

import (
	_ "embed"

	"samfdc/diskimage"
)

// builtinFallbackImage is a tiny placeholder boot loader (a single RET
// at offset zero) standing in for the real DOS ROM's built-in disk
// image. A production build would embed that image's actual bytes
// here; this repository doesn't carry third-party ROM data, so the
// wiring is kept real while the payload is a stub.
//
//go:embed builtin_fallback.bin
var builtinFallbackImage []byte

const builtinFallbackName = "mem:SAMDOS.sbt"

// FileOpener is the default DiskOpener: it tries path as a read-only
// disk image file, falling back to the built-in image embedded above.
type FileOpener struct{}

func (FileOpener) OpenBootDisk(path string) (diskimage.Disk, error) {
	if path != "" {
		if disk, err := diskimage.OpenPath(path, true); err == nil {
			return disk, nil
		}
	}
	return diskimage.NewFileDisk(builtinFallbackImage, builtinFallbackName, 0x8000, 1), nil
}

var _ DiskOpener = FileOpener{}
