package diskimage

import (
	"samfdc/stream"
)

// sbtDirectoryEntry mirrors the nine-byte SAM file header documented in
// the SAM Coupe technical manual: type, size, load offset, unused,
// page count and starting page. FileDisk writes exactly one of these,
// describing the whole wrapped file as a single CODE file.
type sbtDirectoryEntry struct {
	fileType   byte
	size       uint16
	loadOffset uint16
	pages      byte
	startPage  byte
}

const (
	sbtFileTypeCode = 19 // SAM DOS code file type
	sbtChainLinkLen = 2  // next track, next sector
	sbtPayloadLen   = NormalSectorSize - sbtChainLinkLen
)

// FileDisk wraps an arbitrary raw file (a boot loader, a memory
// snapshot fragment, anything with no disk structure of its own) as a
// single-entry synthetic SAM disk: one directory entry on track 0
// describing a CODE file, whose data occupies a chain of sectors
// linked the way SAM DOS links file sectors together, starting right
// after the reserved directory tracks.
//
// This is how the boot hook's built-in fallback image is presented to
// the drive: there's no real floppy behind it, just a byte slice that
// needs to look like one file worth of disk.
type FileDisk struct {
	baseDisk
	img   *MgtDisk
	inner stream.Stream // the backing synthetic MGT-shaped image
}

// NewFileDisk builds a synthetic single-file disk from raw file
// contents. name is cosmetic only (used for Path()); loadOffset and
// startPage describe where the SAM would load/run the code.
func NewFileDisk(data []byte, name string, loadOffset uint16, startPage byte) *FileDisk {
	img := make([]byte, MGTImageSize)
	entry := sbtDirectoryEntry{
		fileType:   sbtFileTypeCode,
		size:       uint16(len(data)),
		loadOffset: loadOffset,
		pages:      byte((len(data) + 16383) / 16384),
		startPage:  startPage,
	}
	writeDirectoryEntry(img, entry, name)
	writeFileChain(img, data)

	inner := stream.NewMemoryStream(img, name, false)
	return &FileDisk{
		img:   NewMgtDisk(inner, NormalDiskSectors),
		inner: inner,
	}
}

func sectorOffset(track, side, sector int) int64 {
	return int64(track*NormalDiskSides+side)*NormalDiskSectors*NormalSectorSize + int64(sector-1)*NormalSectorSize
}

func writeDirectoryEntry(img []byte, e sbtDirectoryEntry, name string) {
	off := sectorOffset(0, 0, 1)
	img[off] = e.fileType
	img[off+1] = byte(e.size)
	img[off+2] = byte(e.size >> 8)
	img[off+3] = byte(e.loadOffset)
	img[off+4] = byte(e.loadOffset >> 8)
	img[off+5] = 0
	img[off+6] = 0
	img[off+7] = e.pages
	img[off+8] = e.startPage
	copy(img[off+DiskFileHeaderSize:off+DiskFileHeaderSize+10], name)
}

// writeFileChain spreads data across sectors starting immediately
// after the reserved directory tracks, each sector prefixed with a
// two-byte (track, sector) link to the next one in the chain, the
// final sector linked to (0, 0).
func writeFileChain(img []byte, data []byte) {
	track, side, sector := NormalDirectoryTracks, 0, 1
	pos := 0
	for pos < len(data) || pos == 0 {
		off := sectorOffset(track, side, sector)
		n := copy(img[off+sbtChainLinkLen:off+NormalSectorSize], data[pos:])
		pos += n

		advance := func() {
			sector++
			if sector > NormalDiskSectors {
				sector = 1
				side++
				if side >= NormalDiskSides {
					side = 0
					track++
				}
			}
		}

		if pos >= len(data) {
			img[off] = 0
			img[off+1] = 0
			break
		}
		advance()
		img[off] = byte(track)
		img[off+1] = byte(sector)
	}
}

func (d *FileDisk) FindInit(side, track int) int { return d.img.FindInit(side, track) }
func (d *FileDisk) FindNext() (IdField, SectorStatus, bool) { return d.img.FindNext() }
func (d *FileDisk) FindSector(side, track, sector int) (IdField, SectorStatus, bool) {
	return d.img.FindSector(side, track, sector)
}
func (d *FileDisk) ReadData(dst []byte) (int, SectorStatus) { return d.img.ReadData(dst) }
func (d *FileDisk) CurrentSectorSize() int                  { return d.img.CurrentSectorSize() }

// WriteData is accepted but never persisted externally: the synthetic
// image only exists in memory, so edits are visible for the lifetime
// of this FileDisk and nothing else.
func (d *FileDisk) WriteData(src []byte) SectorStatus { return d.img.WriteData(src) }

func (d *FileDisk) FormatTrack(side, track int, ids []IdField) SectorStatus {
	return StatusWriteProtect
}
func (d *FileDisk) Save() bool               { return true }
func (d *FileDisk) SpinPos(advance bool) int { return d.img.SpinPos(advance) }
func (d *FileDisk) IsBusy() bool             { return d.img.IsBusy() }
func (d *FileDisk) IsReadOnly() bool         { return true }
func (d *FileDisk) IsModified() bool         { return false }
// Path reports the display name FileDisk was constructed with rather
// than a real filesystem path, since a FileDisk never has one.
func (d *FileDisk) Path() string { return d.inner.Name() }
func (d *FileDisk) Close() error             { return d.inner.Close() }

var _ Disk = (*FileDisk)(nil)
