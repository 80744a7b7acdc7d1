package trackcodec

import "testing"

func sampleSectors() []Sector {
	return []Sector{
		{Track: 1, Side: 0, SectorID: 1, SizeCode: 2, CRC1: 0xaa, CRC2: 0xbb, Data: make([]byte, 512)},
		{Track: 1, Side: 0, SectorID: 2, SizeCode: 2, CRC1: 0xcc, CRC2: 0xdd, Data: make([]byte, 512)},
	}
}

// writeTrackStream lays sectors out the way a host writes them during
// WRITE_TRACK: 0xf5 in place of each 0xa1 sync mark, and a single 0xf7
// CRC marker after the ID field instead of the two stored CRC bytes.
func writeTrackStream(sectors []Sector) []byte {
	buf := putBlock(nil, gapByte, gap1Len)
	for _, s := range sectors {
		buf = putBlock(buf, gapByte, gap2Len)
		buf = putBlock(buf, syncZeroByte, 12)
		buf = putBlock(buf, writeMarkByte, 3)
		buf = append(buf, idAddressMark, s.Track, s.Side, s.SectorID, s.SizeCode, crcPlaceholder)
		buf = putBlock(buf, gapByte, gap3Len)
		buf = putBlock(buf, syncZeroByte, 8)
		buf = putBlock(buf, writeMarkByte, 3)
		buf = append(buf, dataAddressMark)
		buf = append(buf, s.Data...)
		buf = append(buf, crcPlaceholder)
		buf = putBlock(buf, gapByte, gap4Len)
	}
	return buf
}

func TestEncodeStartsWithGap1(t *testing.T) {
	buf := Encode(sampleSectors())
	for i := 0; i < gap1Len; i++ {
		if buf[i] != gapByte {
			t.Fatalf("byte %d = %#x, want gap byte", i, buf[i])
		}
	}
}

func TestEncodeContainsAddressMarks(t *testing.T) {
	buf := Encode(sampleSectors())
	var idMarks, dataMarks int
	for _, b := range buf {
		switch b {
		case idAddressMark:
			idMarks++
		case dataAddressMark:
			dataMarks++
		}
	}
	if idMarks != 2 || dataMarks != 2 {
		t.Fatalf("got %d ID marks and %d data marks, want 2 and 2", idMarks, dataMarks)
	}
}

func TestDecodeRoundTrip(t *testing.T) {
	sectors := sampleSectors()
	for i := range sectors[0].Data {
		sectors[0].Data[i] = byte(i)
	}
	buf := writeTrackStream(sectors)
	got := Decode(buf)

	if len(got) != len(sectors) {
		t.Fatalf("decoded %d sectors, want %d", len(got), len(sectors))
	}
	for i, s := range got {
		if !s.Valid {
			t.Errorf("sector %d not marked valid", i)
		}
		if s.Track != sectors[i].Track || s.SectorID != sectors[i].SectorID {
			t.Errorf("sector %d id mismatch: got track=%d sector=%d", i, s.Track, s.SectorID)
		}
		if len(s.Data) != len(sectors[i].Data) {
			t.Errorf("sector %d data length %d, want %d", i, len(s.Data), len(sectors[i].Data))
		}
	}
	if got[0].Data[10] != 10 {
		t.Errorf("decoded sector 0 data corrupted")
	}
}

func TestDecodeRejectsGarbage(t *testing.T) {
	garbage := make([]byte, 64)
	for i := range garbage {
		garbage[i] = byte(i)
	}
	got := Decode(garbage)
	if len(got) != 0 {
		t.Errorf("decoded %d sectors from garbage, want 0", len(got))
	}
}

func TestDecodeEmptyTrack(t *testing.T) {
	if got := Decode(nil); got != nil {
		t.Errorf("Decode(nil) = %v, want nil", got)
	}
}
