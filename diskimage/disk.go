package diskimage

import (
	"errors"

	"samfdc/stream"
)

// ErrUnrecognisedFormat is returned by Open when no registered format
// matches the stream.
var ErrUnrecognisedFormat = errors.New("diskimage: unrecognised disk image format")

// Disk is the polymorphic interface every image backend implements. The
// Drive serialises all calls into a single mounted Disk; concurrent use
// of the same Disk from two goroutines is undefined.
type Disk interface {
	// FindInit positions a virtual head over (side, track) and resets
	// the per-track iterator. Returns the sector count found, or 0 if
	// the geometry doesn't cover this track.
	FindInit(side, track int) int

	// FindNext returns the next sector on the current track, wrapping
	// once per rotation. ok is false after one full rotation with no
	// more sectors.
	FindNext() (id IdField, status SectorStatus, ok bool)

	// FindSector rotates until a sector whose ID field matches is
	// found, failing with RECORD_NOT_FOUND after one rotation.
	FindSector(side, track, sector int) (id IdField, status SectorStatus, ok bool)

	// ReadData copies the payload of the most recently found sector into
	// dst and returns the number of bytes written plus its status.
	ReadData(dst []byte) (int, SectorStatus)

	// CurrentSectorSize reports the actual stored byte length of the
	// sector last positioned by FindSector or FindNext. This can differ
	// from the ID field's size-code-implied length (128<<SizeCode) for
	// backends such as EDSK that declare their own per-sector data
	// length independent of the size code.
	CurrentSectorSize() int

	// WriteData overwrites the current sector's payload. Sets the
	// modified flag; fails WriteProtect if read-only.
	WriteData(src []byte) SectorStatus

	// FormatTrack replaces the track with the supplied sector layout.
	FormatTrack(side, track int, ids []IdField) SectorStatus

	// Save persists modifications; idempotent when unmodified.
	Save() bool

	// SpinPos returns the current virtual rotation index modulo the
	// current track's sector count, advancing it first if advance is
	// true.
	SpinPos(advance bool) int

	// IsBusy models a small artificial load delay. Called once per
	// status read while a command is settling.
	IsBusy() bool

	IsReadOnly() bool
	IsModified() bool
	Path() string
	Close() error
}

// baseDisk implements the bookkeeping shared by every backend: the
// current find position, spin counter, modified flag and busy countdown.
// Concrete backends embed it and implement FindInit/FindNext/ReadData/
// WriteData/FormatTrack/Save on top of a Track they own.
type baseDisk struct {
	stream   stream.Stream
	modified bool
	busy     int

	side, track int
	findPos     int // index into current track's sector list
	spinPos     int

	current Track // the track currently positioned over, via FindInit
}

func (d *baseDisk) IsReadOnly() bool { return d.stream.IsReadOnly() }
func (d *baseDisk) IsModified() bool { return d.modified }
func (d *baseDisk) Path() string     { return d.stream.Path() }
func (d *baseDisk) Close() error     { return d.stream.Close() }

// IsBusy reports true while an artificial load delay set by a subclass's
// LoadTrack-equivalent is still counting down.
func (d *baseDisk) IsBusy() bool {
	if d.busy == 0 {
		return false
	}
	d.busy--
	return true
}

func (d *baseDisk) markBusy() { d.busy = LoadDelay }

// findInitTrack resets the per-track iterator over track, returning its
// sector count.
func (d *baseDisk) findInitTrack(side, track int, t Track) int {
	d.side, d.track = side, track
	d.current = t
	d.findPos = 0
	return len(t)
}

// findNext returns the next sector in the currently positioned track,
// wrapping once. Mirrors CDisk::FindNext.
func (d *baseDisk) findNext() (IdField, SectorStatus, bool) {
	if len(d.current) == 0 {
		return IdField{}, StatusRecordNotFound, false
	}
	if d.findPos >= len(d.current) {
		return IdField{}, StatusRecordNotFound, false
	}
	sec := d.current[d.findPos]
	d.findPos++
	return sec.ID, sec.Status, true
}

// findSector rotates (wrapping once) until a sector whose ID matches is
// found.
func (d *baseDisk) findSector(sector int) (IdField, SectorStatus, bool) {
	n := len(d.current)
	if n == 0 {
		return IdField{}, StatusRecordNotFound, false
	}
	start := d.findPos
	for i := 0; i < n; i++ {
		pos := (start + i) % n
		sec := d.current[pos]
		if int(sec.ID.Sector) == sector {
			d.findPos = (pos + 1) % n
			return sec.ID, sec.Status, true
		}
	}
	return IdField{}, StatusRecordNotFound, false
}

// spin advances (if requested) and returns the virtual rotation index
// modulo the current track's sector count.
func (d *baseDisk) spin(advance bool) int {
	n := len(d.current)
	if n == 0 {
		return 0
	}
	if advance {
		d.spinPos = (d.spinPos + 1) % n
	}
	return d.spinPos % n
}

// CurrentSectorSize reports the stored length of the sector the last
// findNext/findSector call landed on.
func (d *baseDisk) CurrentSectorSize() int {
	if d.findPos == 0 || d.findPos > len(d.current) {
		return 0
	}
	return len(d.current[d.findPos-1].Data)
}

func readDataFromSector(sec Sector, dst []byte) (int, SectorStatus) {
	n := copy(dst, sec.Data)
	return n, sec.Status
}
