// Package trackcodec renders a Disk's sector list as the raw byte
// stream the FDC's READ_TRACK command hands to the host, and parses
// the byte stream a host writes during WRITE_TRACK into a sector
// layout. The two forms differ: the host writes 0xf5 where READ_TRACK
// shows 0xa1 sync marks, and a single 0xf7 CRC marker after each ID
// field where READ_TRACK shows the two stored CRC bytes.
// This operates purely at the byte level: gap fill, address marks and
// sync bytes as literal bytes, not as MFM bit-cells. A real controller
// chip has to recover a clock from flux transitions; this one only
// ever needs the bytes a Z80 would see after the chip has already
// done that work, which is all the FDC package or any consumer of it
// ever asks for.
package trackcodec

// Gap and mark byte values, as the WD1772 lays a track out.
const (
	gapByte       = 0x4e
	syncZeroByte  = 0x00
	markByte      = 0xa1 // written as 0xf5, read back as 0xa1 after MFM decode
	writeMarkByte = 0xf5 // what the host writes in place of markByte during WRITE_TRACK
	idAddressMark = 0xfe
	dataAddressMark = 0xfb
	crcPlaceholder  = 0xf7 // stands in for the two real CRC bytes the FDC would append
)

const (
	gap1Len = 32
	gap2Len = 22
	gap3Len = 22
	gap4Len = 16
)

// Sector is the minimal shape trackcodec needs from a sector: its ID
// field bytes and its payload. diskimage.IdField and diskimage.Sector
// satisfy this by field order, but trackcodec doesn't import
// diskimage so the two packages can be tested independently.
type Sector struct {
	Track, Side, SectorID, SizeCode, CRC1, CRC2 byte
	Data                                        []byte
}

func putBlock(buf []byte, val byte, n int) []byte {
	for i := 0; i < n; i++ {
		buf = append(buf, val)
	}
	return buf
}

// Encode lays sectors out as a raw track byte stream, the same shape
// CDrive::ReadTrack builds: gap 1, then for each sector gap 2, its ID
// field framed by sync bytes and an address mark, gap 3, its data
// framed the same way, and gap 4.
func Encode(sectors []Sector) []byte {
	buf := make([]byte, 0, gap1Len+len(sectors)*64)
	buf = putBlock(buf, gapByte, gap1Len)

	for _, s := range sectors {
		buf = putBlock(buf, gapByte, gap2Len)
		buf = putBlock(buf, syncZeroByte, 12)
		buf = putBlock(buf, markByte, 3)
		buf = append(buf, idAddressMark, s.Track, s.Side, s.SectorID, s.SizeCode, s.CRC1, s.CRC2)

		buf = putBlock(buf, gapByte, gap3Len)
		buf = putBlock(buf, syncZeroByte, 8)
		buf = putBlock(buf, markByte, 3)
		buf = append(buf, dataAddressMark)
		buf = append(buf, s.Data...)
		buf = append(buf, crcPlaceholder)

		buf = putBlock(buf, gapByte, gap4Len)
	}

	return buf
}

// expectBlock advances pos past a run of val, returning the new
// position and whether the run's length was within [min, max]. max<0
// means unbounded, mirroring ExpectBlock's INT_MAX default.
func expectBlock(track []byte, pos int, val byte, min, max int) (int, bool) {
	start := pos
	for pos < len(track) && track[pos] == val && (max < 0 || pos-start < max) {
		pos++
	}
	n := pos - start
	return pos, n >= min && (max < 0 || n <= max)
}

// DecodedSector is one sector recovered from a raw track by Decode,
// with its data length taken from the size code rather than CRC bytes
// trackcodec doesn't try to verify.
type DecodedSector struct {
	Track, Side, SectorID, SizeCode byte
	Data                            []byte
	Valid                           bool
}

// Decode parses a raw WRITE_TRACK byte stream back into the sector
// list it describes, mirroring CDrive::WriteTrack. Any sector whose
// framing doesn't match the expected gap/mark layout is dropped from
// the result, the same way CDrive::WriteTrack only counts sectors it
// judged fValid.
func Decode(track []byte) []DecodedSector {
	pos := 0
	for pos < len(track) && track[pos] != gapByte {
		pos++
	}
	var ok bool
	pos, ok = expectBlock(track, pos, gapByte, gap1Len, -1)
	if !ok {
		return nil
	}

	var sectors []DecodedSector
	for pos < len(track) {
		valid := true
		start := pos

		pos, ok = expectBlock(track, pos, syncZeroByte, 12, 12)
		valid = valid && ok
		pos, ok = expectBlock(track, pos, writeMarkByte, 3, 3)
		valid = valid && ok
		if pos >= len(track) || track[pos] != idAddressMark {
			valid = false
		} else {
			pos++
		}

		var sec DecodedSector
		if pos+4 <= len(track) {
			sec.Track, sec.Side, sec.SectorID, sec.SizeCode = track[pos], track[pos+1], track[pos+2], track[pos+3]
			pos += 4
		} else {
			valid = false
		}

		pos, ok = expectBlock(track, pos, crcPlaceholder, 1, 1)
		valid = valid && ok

		pos, ok = expectBlock(track, pos, gapByte, gap3Len, -1)
		valid = valid && ok
		pos, ok = expectBlock(track, pos, syncZeroByte, 8, -1)
		valid = valid && ok
		pos, ok = expectBlock(track, pos, writeMarkByte, 3, 3)
		valid = valid && ok
		if pos >= len(track) || track[pos] != dataAddressMark {
			valid = false
		} else {
			pos++
		}

		dataLen := 128 << sec.SizeCode
		if pos+dataLen <= len(track) {
			sec.Data = append([]byte(nil), track[pos:pos+dataLen]...)
			pos += dataLen
		} else {
			valid = false
			break
		}

		pos, ok = expectBlock(track, pos, crcPlaceholder, 1, 1)
		valid = valid && ok
		pos, ok = expectBlock(track, pos, gapByte, gap4Len, -1)
		valid = valid && ok

		if pos == start {
			break // made no progress; avoid looping forever on garbage
		}

		sec.Valid = valid
		if valid {
			sectors = append(sectors, sec)
		}
	}

	return sectors
}
