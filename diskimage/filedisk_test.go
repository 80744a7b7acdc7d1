package diskimage

import (
	"bytes"
	"testing"
)

func TestNewFileDiskDirectoryEntry(t *testing.T) {
	data := bytes.Repeat([]byte{0x42}, 100)
	d := NewFileDisk(data, "TESTFILE", 0x8000, 1)

	id, _, ok := d.FindSector(0, 0, 1)
	if !ok {
		t.Fatal("expected the directory sector to be found")
	}
	if id.Track != 0 || id.Side != 0 || id.Sector != 1 {
		t.Errorf("unexpected directory sector ID: %+v", id)
	}

	entry := make([]byte, NormalSectorSize)
	n, _ := d.ReadData(entry)
	if n != NormalSectorSize {
		t.Fatalf("ReadData returned %d bytes, want %d", n, NormalSectorSize)
	}
	if entry[0] != sbtFileTypeCode {
		t.Errorf("file type = %d, want %d", entry[0], sbtFileTypeCode)
	}
	gotSize := int(entry[1]) | int(entry[2])<<8
	if gotSize != len(data) {
		t.Errorf("size field = %d, want %d", gotSize, len(data))
	}
	gotLoad := int(entry[3]) | int(entry[4])<<8
	if gotLoad != 0x8000 {
		t.Errorf("load offset = %#x, want %#x", gotLoad, 0x8000)
	}
	if entry[8] != 1 {
		t.Errorf("start page = %d, want 1", entry[8])
	}
	if !bytes.HasPrefix(entry[DiskFileHeaderSize:], []byte("TESTFILE")) {
		t.Errorf("name not found at expected offset: %q", entry[DiskFileHeaderSize:DiskFileHeaderSize+10])
	}
}

func TestNewFileDiskSingleSectorChain(t *testing.T) {
	data := bytes.Repeat([]byte{0x7e}, 100)
	d := NewFileDisk(data, "SMALL", 0, 0)

	id, _, ok := d.FindSector(0, NormalDirectoryTracks, 1)
	if !ok {
		t.Fatal("expected the first chain sector to be found")
	}
	if id.Track != NormalDirectoryTracks {
		t.Errorf("chain sector track = %d, want %d", id.Track, NormalDirectoryTracks)
	}

	sector := make([]byte, NormalSectorSize)
	d.ReadData(sector)
	if sector[0] != 0 || sector[1] != 0 {
		t.Errorf("expected chain terminator (0,0), got (%d,%d)", sector[0], sector[1])
	}
	if !bytes.Equal(sector[sbtChainLinkLen:sbtChainLinkLen+len(data)], data) {
		t.Error("payload doesn't match the original data")
	}
}

func TestFileDiskIsAlwaysReadOnlyAndUnmodified(t *testing.T) {
	d := NewFileDisk([]byte{1, 2, 3}, "X", 0, 0)
	if !d.IsReadOnly() {
		t.Error("expected FileDisk to always report read-only")
	}
	d.FindSector(0, 0, 1)
	d.WriteData(make([]byte, NormalSectorSize))
	if d.IsModified() {
		t.Error("expected FileDisk to never report modified")
	}
}

func TestFileDiskFormatTrackRejected(t *testing.T) {
	d := NewFileDisk([]byte{1, 2, 3}, "X", 0, 0)
	if status := d.FormatTrack(0, 0, nil); status != StatusWriteProtect {
		t.Errorf("expected FormatTrack to be rejected, got %v", status)
	}
}
