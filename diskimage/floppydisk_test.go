package diskimage

import (
	"bytes"
	"errors"
	"testing"

	"samfdc/nativefloppy"
)

type stubDrive struct {
	tracks  map[[2]int][]nativefloppy.RawSector
	written map[[2]int][]nativefloppy.RawSector
	closed  bool
}

func newStubDrive() *stubDrive {
	return &stubDrive{
		tracks:  map[[2]int][]nativefloppy.RawSector{},
		written: map[[2]int][]nativefloppy.RawSector{},
	}
}

func (s *stubDrive) SelectDrive(unit int) error   { return nil }
func (s *stubDrive) Deselect() error              { return nil }
func (s *stubDrive) SetMotor(unit int, on bool) error { return nil }
func (s *stubDrive) Seek(cylinder int) error      { return nil }
func (s *stubDrive) SetHead(head int) error       { return nil }

func (s *stubDrive) ReadTrack(cylinder, head int) ([]nativefloppy.RawSector, error) {
	t, ok := s.tracks[[2]int{cylinder, head}]
	if !ok {
		return nil, errors.New("no such track")
	}
	return t, nil
}

func (s *stubDrive) WriteTrack(cylinder, head int, sectors []nativefloppy.RawSector) error {
	s.written[[2]int{cylinder, head}] = sectors
	return nil
}

func (s *stubDrive) Close() error { s.closed = true; return nil }

var _ nativefloppy.Drive = (*stubDrive)(nil)

func newTestFloppyDisk(drive *stubDrive) *FloppyDisk {
	return &FloppyDisk{drive: drive, path: "floppy:test", cacheTrack: -1}
}

func TestFloppyDiskFindSectorLoadsTrack(t *testing.T) {
	drive := newStubDrive()
	payload := bytes.Repeat([]byte{0x11}, NormalSectorSize)
	drive.tracks[[2]int{3, 0}] = []nativefloppy.RawSector{
		{Track: 3, Side: 0, Sector: 1, SizeCode: 2, Data: payload},
	}
	d := newTestFloppyDisk(drive)

	id, _, ok := d.FindSector(0, 3, 1)
	if !ok {
		t.Fatal("expected to find sector 1")
	}
	if id.Track != 3 || id.Sector != 1 {
		t.Errorf("unexpected ID: %+v", id)
	}

	got := make([]byte, NormalSectorSize)
	n, _ := d.ReadData(got)
	if n != NormalSectorSize || !bytes.Equal(got, payload) {
		t.Error("read data doesn't match the track's stubbed sector")
	}
}

func TestFloppyDiskWriteDataMarksModifiedAndFlushesOnSave(t *testing.T) {
	drive := newStubDrive()
	drive.tracks[[2]int{0, 0}] = []nativefloppy.RawSector{
		{Track: 0, Side: 0, Sector: 1, SizeCode: 2, Data: make([]byte, NormalSectorSize)},
	}
	d := newTestFloppyDisk(drive)
	d.FindSector(0, 0, 1)

	payload := bytes.Repeat([]byte{0x22}, NormalSectorSize)
	if status := d.WriteData(payload); status != 0 {
		t.Fatalf("WriteData: %v", status)
	}
	if !d.IsModified() {
		t.Error("expected IsModified after a write")
	}
	if !d.Save() {
		t.Fatal("Save failed")
	}
	written, ok := drive.written[[2]int{0, 0}]
	if !ok {
		t.Fatal("expected Save to write the track back to the drive")
	}
	if !bytes.Equal(written[0].Data, payload) {
		t.Error("flushed data doesn't match what was written")
	}
}

func TestFloppyDiskCloseStopsMotorAndClosesDrive(t *testing.T) {
	drive := newStubDrive()
	d := newTestFloppyDisk(drive)
	if err := d.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if !drive.closed {
		t.Error("expected Close to close the underlying drive")
	}
}

func TestIsNativeFloppyPath(t *testing.T) {
	if !IsNativeFloppyPath("floppy:/dev/ttyACM0") {
		t.Error("expected floppy: prefix to be recognised")
	}
	if IsNativeFloppyPath("disk.mgt") {
		t.Error("expected a plain file path not to be recognised as a native floppy path")
	}
}
