package diskimage

import (
	"samfdc/nativefloppy"
	"samfdc/stream"
)

// nativeFloppyPathPrefix is the pseudo-path prefix that tells Open to
// route to a real drive instead of sniffing a file: "floppy:" followed
// by an optional serial port name, e.g. "floppy:" or "floppy:/dev/ttyACM0".
const nativeFloppyPathPrefix = "floppy:"

// FloppyDisk backs a Disk with a real drive reached over a
// Greaseweazle-family adapter. Tracks are cached one at a time, the
// way the floppy-backed CDisk subclass caches the last cylinder/head
// pair to avoid reseeking on every sector access.
type FloppyDisk struct {
	drive nativefloppy.Drive
	path  string

	cacheSide, cacheTrack int
	cacheValid            bool

	side, track int
	findPos     int
	current     Track
	busy        int
	modified    bool
}

// OpenFloppyDisk opens a real drive reached through port (empty string
// picks the first adapter found).
func OpenFloppyDisk(port string) (*FloppyDisk, error) {
	drive, err := nativefloppy.Open(port)
	if err != nil {
		return nil, err
	}
	if err := drive.SelectDrive(0); err != nil {
		drive.Close()
		return nil, err
	}
	if err := drive.SetMotor(0, true); err != nil {
		drive.Close()
		return nil, err
	}
	return &FloppyDisk{drive: drive, path: nativeFloppyPathPrefix + port, cacheTrack: -1}, nil
}

// IsNativeFloppyPath reports whether path names a real drive rather
// than an image file, so the registry can route it before any file
// sniffing is attempted.
func IsNativeFloppyPath(path string) bool {
	return len(path) >= len(nativeFloppyPathPrefix) && path[:len(nativeFloppyPathPrefix)] == nativeFloppyPathPrefix
}

func (d *FloppyDisk) loadTrack(side, track int) error {
	if d.cacheValid && d.cacheSide == side && d.cacheTrack == track {
		return nil
	}
	if err := d.drive.Seek(track); err != nil {
		return err
	}
	if err := d.drive.SetHead(side); err != nil {
		return err
	}
	raw, err := d.drive.ReadTrack(track, side)
	if err != nil {
		return err
	}
	t := make(Track, len(raw))
	for i, r := range raw {
		t[i] = Sector{
			ID: IdField{Track: r.Track, Side: r.Side, Sector: r.Sector, SizeCode: r.SizeCode},
			Data: r.Data,
			Status: SectorStatus(r.Status),
		}
	}
	d.current = t
	d.cacheSide, d.cacheTrack, d.cacheValid = side, track, true
	d.busy = LoadDelay
	return nil
}

func (d *FloppyDisk) FindInit(side, track int) int {
	if err := d.loadTrack(side, track); err != nil {
		d.current = nil
	}
	d.side, d.track, d.findPos = side, track, 0
	return len(d.current)
}

func (d *FloppyDisk) FindNext() (IdField, SectorStatus, bool) {
	if d.findPos >= len(d.current) {
		return IdField{}, StatusRecordNotFound, false
	}
	sec := d.current[d.findPos]
	d.findPos++
	return sec.ID, sec.Status, true
}

func (d *FloppyDisk) FindSector(side, track, sector int) (IdField, SectorStatus, bool) {
	if !d.cacheValid || d.cacheSide != side || d.cacheTrack != track {
		d.FindInit(side, track)
	}
	n := len(d.current)
	for i := 0; i < n; i++ {
		pos := (d.findPos + i) % n
		if int(d.current[pos].ID.Sector) == sector {
			d.findPos = (pos + 1) % n
			return d.current[pos].ID, d.current[pos].Status, true
		}
	}
	return IdField{}, StatusRecordNotFound, false
}

func (d *FloppyDisk) ReadData(dst []byte) (int, SectorStatus) {
	if d.findPos == 0 || d.findPos > len(d.current) {
		return 0, StatusRecordNotFound
	}
	return readDataFromSector(d.current[d.findPos-1], dst)
}

// CurrentSectorSize reports the stored length of the sector the last
// FindNext/FindSector call landed on.
func (d *FloppyDisk) CurrentSectorSize() int {
	if d.findPos == 0 || d.findPos > len(d.current) {
		return 0
	}
	return len(d.current[d.findPos-1].Data)
}

func (d *FloppyDisk) WriteData(src []byte) SectorStatus {
	if d.findPos == 0 || d.findPos > len(d.current) {
		return StatusRecordNotFound
	}
	idx := d.findPos - 1
	if len(src) != len(d.current[idx].Data) {
		return StatusRecordNotFound
	}
	copy(d.current[idx].Data, src)
	d.modified = true
	return 0
}

func (d *FloppyDisk) FormatTrack(side, track int, ids []IdField) SectorStatus {
	raw := make([]nativefloppy.RawSector, len(ids))
	for i, id := range ids {
		raw[i] = nativefloppy.RawSector{
			Track: byte(track), Side: byte(side), Sector: id.Sector, SizeCode: id.SizeCode,
			Data: make([]byte, id.Size()),
		}
	}
	if err := d.drive.WriteTrack(track, side, raw); err != nil {
		return StatusWriteProtect
	}
	d.cacheValid = false
	return 0
}

// Save flushes the cached track back to the real drive if it was
// modified since loading.
func (d *FloppyDisk) Save() bool {
	if !d.modified {
		return true
	}
	raw := make([]nativefloppy.RawSector, len(d.current))
	for i, s := range d.current {
		raw[i] = nativefloppy.RawSector{
			Track: s.ID.Track, Side: s.ID.Side, Sector: s.ID.Sector, SizeCode: s.ID.SizeCode,
			Data: s.Data, Status: byte(s.Status),
		}
	}
	if err := d.drive.WriteTrack(d.track, d.side, raw); err != nil {
		return false
	}
	d.modified = false
	return true
}

func (d *FloppyDisk) SpinPos(advance bool) int {
	n := len(d.current)
	if n == 0 {
		return 0
	}
	if advance {
		d.findPos = (d.findPos + 1) % n
	}
	return d.findPos % n
}

func (d *FloppyDisk) IsBusy() bool {
	if d.busy == 0 {
		return false
	}
	d.busy--
	return true
}

func (d *FloppyDisk) IsReadOnly() bool { return false }
func (d *FloppyDisk) IsModified() bool { return d.modified }
func (d *FloppyDisk) Path() string     { return d.path }

func (d *FloppyDisk) Close() error {
	d.drive.SetMotor(0, false)
	d.drive.Deselect()
	return d.drive.Close()
}

var _ Disk = (*FloppyDisk)(nil)

// OpenPath opens path as a native floppy if it carries the "floppy:"
// prefix, otherwise treats it as an image file and runs it through the
// format registry.
func OpenPath(path string, readOnly bool) (Disk, error) {
	if IsNativeFloppyPath(path) {
		return OpenFloppyDisk(path[len(nativeFloppyPathPrefix):])
	}
	s, err := stream.OpenFile(path, readOnly)
	if err != nil {
		return nil, err
	}
	d, err := Open(s)
	if err != nil {
		s.Close()
		return nil, err
	}
	return d, nil
}
