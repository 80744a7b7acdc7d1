package diskimage

import (
	"fmt"

	"samfdc/stream"
)

// MgtDisk is the raw, fixed-geometry MGT image format: side-track-sector
// order, sector numbers starting at 1, no header.
type MgtDisk struct {
	baseDisk
	sectorsPerTrack int
}

// NewMgtDisk wraps stream as an MGT image with sectorsPerTrack sectors
// per track (10 for the native format, 9 for the MS-DOS-compatible
// variant).
func NewMgtDisk(s stream.Stream, sectorsPerTrack int) *MgtDisk {
	return &MgtDisk{baseDisk: baseDisk{stream: s}, sectorsPerTrack: sectorsPerTrack}
}

// IsMgtRecognised implements the format-registry predicate: an MGT image
// is recognised purely by its exact size.
func IsMgtRecognised(s stream.Stream) (sectorsPerTrack int, ok bool) {
	switch s.Size() {
	case int64(MGTImageSize):
		return NormalDiskSectors, true
	case int64(DOSImageSize):
		return DOSDiskSectors, true
	default:
		return 0, false
	}
}

func (d *MgtDisk) trackOffset(side, track int) int64 {
	// Side-track-sector order: head 0 then head 1 per track.
	return int64(track*NormalDiskSides+side) * int64(d.sectorsPerTrack) * NormalSectorSize
}

func (d *MgtDisk) buildTrack(side, track int) Track {
	if track >= NormalDiskTracks {
		return nil
	}
	t := make(Track, d.sectorsPerTrack)
	base := d.trackOffset(side, track)
	for i := 0; i < d.sectorsPerTrack; i++ {
		id := IdField{
			Track:    byte(track),
			Side:     byte(side),
			Sector:   byte(i + 1),
			SizeCode: 2,
		}
		id.CRC1, id.CRC2 = idFieldCRC(id)
		data := make([]byte, NormalSectorSize)
		d.stream.ReadAt(data, base+int64(i)*NormalSectorSize)
		t[i] = Sector{ID: id, Data: data}
	}
	return t
}

func (d *MgtDisk) FindInit(side, track int) int {
	d.markBusy()
	return d.findInitTrack(side, track, d.buildTrack(side, track))
}

func (d *MgtDisk) FindNext() (IdField, SectorStatus, bool) { return d.findNext() }

func (d *MgtDisk) SpinPos(advance bool) int { return d.spin(advance) }

func (d *MgtDisk) FindSector(side, track, sector int) (IdField, SectorStatus, bool) {
	if d.side != side || d.track != track || d.current == nil {
		d.FindInit(side, track)
	}
	return d.findSector(sector)
}

func (d *MgtDisk) ReadData(dst []byte) (int, SectorStatus) {
	if d.findPos == 0 || d.findPos > len(d.current) {
		return 0, StatusRecordNotFound
	}
	return readDataFromSector(d.current[d.findPos-1], dst)
}

func (d *MgtDisk) WriteData(src []byte) SectorStatus {
	if d.IsReadOnly() {
		return StatusWriteProtect
	}
	if d.findPos == 0 || d.findPos > len(d.current) {
		return StatusRecordNotFound
	}
	idx := d.findPos - 1
	sec := d.current[idx]
	if len(src) != len(sec.Data) {
		return StatusRecordNotFound
	}
	offset := d.trackOffset(d.side, d.track) + int64(idx)*NormalSectorSize
	if _, err := d.stream.WriteAt(src, offset); err != nil {
		return StatusWriteProtect
	}
	copy(sec.Data, src)
	d.modified = true
	return 0
}

// FormatTrack only accepts a layout identical to the fixed MGT geometry:
// sequential sector numbers 1..sectorsPerTrack, all at the default size
// code. Anything else can't be represented and is rejected.
func (d *MgtDisk) FormatTrack(side, track int, ids []IdField) SectorStatus {
	if d.IsReadOnly() {
		return StatusWriteProtect
	}
	if len(ids) != d.sectorsPerTrack {
		return StatusWriteProtect
	}
	for i, id := range ids {
		if int(id.Sector) != i+1 || id.SizeCode != 2 {
			return StatusWriteProtect
		}
	}
	zero := make([]byte, NormalSectorSize)
	base := d.trackOffset(side, track)
	for i := range ids {
		if _, err := d.stream.WriteAt(zero, base+int64(i)*NormalSectorSize); err != nil {
			return StatusWriteProtect
		}
	}
	d.modified = true
	return 0
}

func (d *MgtDisk) Save() bool {
	if !d.modified {
		return true
	}
	d.modified = false
	return true
}

var _ Disk = (*MgtDisk)(nil)

func init() {
	RegisterFormat(FormatInfo{
		Name: "MGT",
		Recognise: func(s stream.Stream) bool {
			_, ok := IsMgtRecognised(s)
			return ok
		},
		Open: func(s stream.Stream) (Disk, error) {
			sectors, ok := IsMgtRecognised(s)
			if !ok {
				return nil, fmt.Errorf("%w: not an MGT image", ErrUnrecognisedFormat)
			}
			return NewMgtDisk(s, sectors), nil
		},
	})
}
