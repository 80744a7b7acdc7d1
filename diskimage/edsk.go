package diskimage

import (
	"fmt"

	"samfdc/stream"
)

const (
	edskSignature      = "EXTENDED CPC DSK File\r\nDisk-Info\r\n"
	edskTrackSignature = "Track-Info\r\n"
	edskHeaderSize     = 256
	edskTrackInfoSize  = 24
	edskSectorEntry    = 8
	edskMaxSectors     = (256 - edskTrackInfoSize) / edskSectorEntry // 29
)

// EdskDisk is the Extended CPC DSK format: a disk header giving a
// per-track size table (tracks vary in size, sides can differ), each
// track block starting with a 256-byte Track-Info header listing its
// sectors' IDs, 765-style status bytes and (for copy-protected images)
// explicit data lengths that needn't match the nominal size code.
type EdskDisk struct {
	baseDisk
	sides, tracks int
	trackOffset   [][]int64 // [track][side] -> byte offset of that track's Track-Info block, 0 if absent
}

// NewEdskDisk wraps a stream already confirmed to carry the EDSK header
// and indexes every track's offset for later lazy loading.
func NewEdskDisk(s stream.Stream, sides, tracks int, trackOffset [][]int64) *EdskDisk {
	return &EdskDisk{baseDisk: baseDisk{stream: s}, sides: sides, tracks: tracks, trackOffset: trackOffset}
}

// IsEdskRecognised checks the header signature and, if present, builds
// the track offset table from the size table that follows it.
func IsEdskRecognised(s stream.Stream) (sides, tracks int, trackOffset [][]int64, ok bool) {
	if s.Size() < edskHeaderSize {
		return 0, 0, nil, false
	}
	hdr := make([]byte, edskHeaderSize)
	if _, err := s.ReadAt(hdr, 0); err != nil {
		return 0, 0, nil, false
	}
	if string(hdr[:len(edskSignature)]) != edskSignature {
		return 0, 0, nil, false
	}
	tracks = int(hdr[48])
	sides = int(hdr[49])
	if tracks == 0 || sides == 0 || sides > 2 {
		return 0, 0, nil, false
	}
	trackOffset = make([][]int64, tracks)
	offset := int64(edskHeaderSize)
	sizeTable := hdr[52:edskHeaderSize]
	idx := 0
	for t := 0; t < tracks; t++ {
		trackOffset[t] = make([]int64, sides)
		for side := 0; side < sides; side++ {
			if idx >= len(sizeTable) {
				trackOffset[t][side] = 0
				continue
			}
			size := int64(sizeTable[idx]) * 256
			idx++
			if size == 0 {
				trackOffset[t][side] = 0
				continue
			}
			trackOffset[t][side] = offset
			offset += size
		}
	}
	return sides, tracks, trackOffset, true
}

func (d *EdskDisk) buildTrack(side, track int) Track {
	if track >= d.tracks || side >= d.sides {
		return nil
	}
	off := d.trackOffset[track][side]
	if off == 0 {
		return nil
	}
	info := make([]byte, edskTrackInfoSize)
	if _, err := d.stream.ReadAt(info, off); err != nil {
		return nil
	}
	if string(info[:len(edskTrackSignature)]) != edskTrackSignature {
		return nil
	}
	sectorCount := int(info[15])
	if sectorCount > edskMaxSectors {
		sectorCount = edskMaxSectors
	}
	entries := make([]byte, sectorCount*edskSectorEntry)
	if _, err := d.stream.ReadAt(entries, off+edskTrackInfoSize); err != nil {
		return nil
	}

	t := make(Track, sectorCount)
	dataOffset := off + edskHeaderSize
	for i := 0; i < sectorCount; i++ {
		e := entries[i*edskSectorEntry : (i+1)*edskSectorEntry]
		sizeCode := e[3]
		if err := ValidateSizeCode(sizeCode); err != nil {
			sizeCode = 3
		}
		id := IdField{Track: e[0], Side: e[1], Sector: e[2], SizeCode: sizeCode}
		id.CRC1, id.CRC2 = idFieldCRC(id)

		status1, status2 := e[4], e[5]
		length := int(e[6]) | int(e[7])<<8
		if length == 0 {
			length = id.Size()
		}

		data := make([]byte, length)
		d.stream.ReadAt(data, dataOffset)
		dataOffset += int64(length)

		t[i] = Sector{ID: id, Data: data, Status: edskStatusToSectorStatus(status1, status2)}
	}
	return t
}

// edskStatusToSectorStatus translates 765-style FDC status bytes
// (ST1/ST2, as stored per-sector in the Track-Info block) into the
// backend-neutral SectorStatus flags.
func edskStatusToSectorStatus(status1, status2 byte) SectorStatus {
	const (
		st1CRCError      = 0x20
		st2DataNotFound  = 0x01
		st2CRCError      = 0x20
		st2ControlMark   = 0x40
	)
	var s SectorStatus
	if status1&st1CRCError != 0 || status2&st2CRCError != 0 {
		s |= StatusCRCError
	}
	if status2&st2DataNotFound != 0 {
		s |= StatusRecordNotFound
	}
	if status2&st2ControlMark != 0 {
		s |= StatusDeletedData
	}
	return s
}

func (d *EdskDisk) FindInit(side, track int) int {
	d.markBusy()
	return d.findInitTrack(side, track, d.buildTrack(side, track))
}

func (d *EdskDisk) FindNext() (IdField, SectorStatus, bool) { return d.findNext() }

func (d *EdskDisk) FindSector(side, track, sector int) (IdField, SectorStatus, bool) {
	if d.side != side || d.track != track || d.current == nil {
		d.FindInit(side, track)
	}
	return d.findSector(sector)
}

func (d *EdskDisk) SpinPos(advance bool) int { return d.spin(advance) }

func (d *EdskDisk) ReadData(dst []byte) (int, SectorStatus) {
	if d.findPos == 0 || d.findPos > len(d.current) {
		return 0, StatusRecordNotFound
	}
	return readDataFromSector(d.current[d.findPos-1], dst)
}

// WriteData on an EDSK image requires the track to already carry a
// sector of the exact same byte length; EDSK can't grow a sector
// in-place once the Track-Info block has committed its layout.
func (d *EdskDisk) WriteData(src []byte) SectorStatus {
	if d.IsReadOnly() {
		return StatusWriteProtect
	}
	if d.findPos == 0 || d.findPos > len(d.current) {
		return StatusRecordNotFound
	}
	sec := &d.current[d.findPos-1]
	if len(src) != len(sec.Data) {
		return StatusRecordNotFound
	}
	copy(sec.Data, src)
	off := d.trackOffset[d.track][d.side]
	// Recompute this sector's file offset by walking the sectors before it.
	dataOffset := off + edskHeaderSize
	for i := 0; i < d.findPos-1; i++ {
		dataOffset += int64(len(d.current[i].Data))
	}
	if _, err := d.stream.WriteAt(src, dataOffset); err != nil {
		return StatusWriteProtect
	}
	sec.Status &^= StatusCRCError
	d.modified = true
	return 0
}

// FormatTrack rewrites the Track-Info block for (side, track), accepting
// any mix of per-sector size codes (unlike MGT's fixed geometry): each
// sector gets its own entry with its own declared length, so a track
// can legitimately carry a sector whose size differs from its
// neighbours. If the new block's size differs from what was there
// before, every later track is relocated within the stream.
func (d *EdskDisk) FormatTrack(side, track int, ids []IdField) SectorStatus {
	if d.IsReadOnly() {
		return StatusWriteProtect
	}
	if track >= d.tracks || side >= d.sides {
		return StatusWriteProtect
	}
	if len(ids) == 0 || len(ids) > edskMaxSectors {
		return StatusWriteProtect
	}
	for _, id := range ids {
		if err := ValidateSizeCode(id.SizeCode); err != nil {
			return StatusWriteProtect
		}
	}

	dataLen := 0
	for _, id := range ids {
		dataLen += id.Size()
	}
	blockLen := edskHeaderSize + dataLen
	if rem := blockLen % 256; rem != 0 {
		blockLen += 256 - rem
	}

	block := make([]byte, blockLen)
	copy(block, edskTrackSignature)
	block[15] = byte(len(ids))
	block[16] = byte(track)
	block[17] = byte(side)
	for i, id := range ids {
		e := block[edskTrackInfoSize+i*edskSectorEntry : edskTrackInfoSize+(i+1)*edskSectorEntry]
		e[0], e[1], e[2], e[3] = id.Track, id.Side, id.Sector, id.SizeCode
		size := id.Size()
		e[6], e[7] = byte(size), byte(size>>8)
	}

	return d.rewriteTrackBlock(track, side, block)
}

// rewriteTrackBlock replaces whatever occupies (track, side)'s slot with
// newBlock, relocating every later track's bytes (and d.trackOffset
// entry) by the size difference, and updating the disk header's
// per-track size-table byte to match. Shrinking never truncates the
// stream; it just leaves unused bytes at the end.
func (d *EdskDisk) rewriteTrackBlock(track, side int, newBlock []byte) SectorStatus {
	hdr := make([]byte, edskHeaderSize)
	if _, err := d.stream.ReadAt(hdr, 0); err != nil {
		return StatusWriteProtect
	}
	idx := track*d.sides + side
	if idx >= edskHeaderSize-52 {
		return StatusWriteProtect
	}

	oldOffset := d.trackOffset[track][side]
	var oldSize int64
	if oldOffset != 0 {
		oldSize = int64(hdr[52+idx]) * 256
	}
	newSize := int64(len(newBlock))

	insertAt := oldOffset
	if insertAt == 0 {
		insertAt = d.nextTrackOffset(track, side)
		if insertAt == 0 {
			insertAt = d.stream.Size()
		}
	}

	delta := newSize - oldSize
	if delta != 0 {
		tailStart := insertAt + oldSize
		tailLen := d.stream.Size() - tailStart
		if tailLen > 0 {
			tail := make([]byte, tailLen)
			if _, err := d.stream.ReadAt(tail, tailStart); err != nil {
				return StatusWriteProtect
			}
			if _, err := d.stream.WriteAt(tail, tailStart+delta); err != nil {
				return StatusWriteProtect
			}
		}
	}

	if _, err := d.stream.WriteAt(newBlock, insertAt); err != nil {
		return StatusWriteProtect
	}

	hdr[52+idx] = byte(newSize / 256)
	if _, err := d.stream.WriteAt(hdr, 0); err != nil {
		return StatusWriteProtect
	}

	if delta != 0 {
		for t := 0; t < d.tracks; t++ {
			for s := 0; s < d.sides; s++ {
				if t == track && s == side {
					continue
				}
				if d.trackOffset[t][s] >= insertAt {
					d.trackOffset[t][s] += delta
				}
			}
		}
	}
	d.trackOffset[track][side] = insertAt

	if d.side == side && d.track == track {
		d.current = nil
	}
	d.modified = true
	return 0
}

// nextTrackOffset returns the file offset of the first existing track
// after (track, side) in flattened (track, then side) order, or 0 if
// every later slot is empty.
func (d *EdskDisk) nextTrackOffset(track, side int) int64 {
	for t := track; t < d.tracks; t++ {
		startSide := 0
		if t == track {
			startSide = side + 1
		}
		for s := startSide; s < d.sides; s++ {
			if d.trackOffset[t][s] != 0 {
				return d.trackOffset[t][s]
			}
		}
	}
	return 0
}

func (d *EdskDisk) Save() bool {
	d.modified = false
	return true
}

var _ Disk = (*EdskDisk)(nil)

func init() {
	RegisterFormat(FormatInfo{
		Name: "EDSK",
		Recognise: func(s stream.Stream) bool {
			_, _, _, ok := IsEdskRecognised(s)
			return ok
		},
		Open: func(s stream.Stream) (Disk, error) {
			sides, tracks, offsets, ok := IsEdskRecognised(s)
			if !ok {
				return nil, fmt.Errorf("%w: not an EDSK image", ErrUnrecognisedFormat)
			}
			return NewEdskDisk(s, sides, tracks, offsets), nil
		},
	})
}
