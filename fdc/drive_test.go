package fdc

import (
	"bytes"
	"testing"

	"samfdc/diskimage"
	"samfdc/stream"
)

func freshMgtDrive(t *testing.T) *Drive {
	t.Helper()
	data := make([]byte, diskimage.MGTImageSize)
	// Mark sector (0,0,1) with a recognisable payload.
	copy(data[:diskimage.NormalSectorSize], []byte("HELLO, SAM DISK WORLD!"))
	s := stream.NewMemoryStream(data, "test.mgt", false)
	disk := diskimage.NewMgtDisk(s, diskimage.NormalDiskSectors)

	d := &Drive{}
	d.Insert(disk)
	return d
}

func TestRestoreSetsTrack00(t *testing.T) {
	d := freshMgtDrive(t)
	d.Out(RegStatus, 0, byte(CmdRestore))
	if d.Regs.Status&Track00 == 0 {
		t.Errorf("status = %#02x, want TRACK00 set", d.Regs.Status)
	}
	if d.Regs.Track != 0 {
		t.Errorf("track register = %d, want 0", d.Regs.Track)
	}
}

func TestReadSectorRoundTrip(t *testing.T) {
	d := freshMgtDrive(t)
	d.Regs.Track = 0
	d.Regs.Sector = 1

	d.Out(RegStatus, 0, byte(CmdReadSector))
	if d.Regs.Status&Busy == 0 || d.Regs.Status&DRQ == 0 {
		t.Fatalf("status = %#02x after READ_SECTOR, want BUSY|DRQ", d.Regs.Status)
	}

	got := make([]byte, diskimage.NormalSectorSize)
	for i := range got {
		got[i] = d.In(RegData)
	}
	if string(got[:22]) != "HELLO, SAM DISK WORLD!" {
		t.Errorf("got %q, want HELLO, SAM DISK WORLD!", got[:22])
	}
	if d.Regs.Status&Busy != 0 || d.Regs.Status&DRQ != 0 {
		t.Errorf("status = %#02x after drain, want BUSY=0 DRQ=0", d.Regs.Status)
	}
}

func TestReadSectorNotFound(t *testing.T) {
	d := freshMgtDrive(t)
	d.Regs.Track = 0
	d.Regs.Sector = 99

	d.Out(RegStatus, 0, byte(CmdReadSector))
	if d.Regs.Status&RecordNotFound == 0 {
		t.Errorf("status = %#02x, want RECORD_NOT_FOUND", d.Regs.Status)
	}
	if d.Regs.Status&Busy != 0 {
		t.Errorf("status = %#02x, want BUSY clear on failure", d.Regs.Status)
	}
}

func TestWriteSectorRoundTrip(t *testing.T) {
	d := freshMgtDrive(t)
	d.Regs.Track, d.Regs.Sector = 0, 2

	d.Out(RegStatus, 0, byte(CmdWriteSector))
	if d.Regs.Status&DRQ == 0 {
		t.Fatalf("status = %#02x after WRITE_SECTOR, want DRQ set", d.Regs.Status)
	}

	payload := make([]byte, diskimage.NormalSectorSize)
	copy(payload, []byte("written back"))
	for _, b := range payload {
		d.Out(RegData, 0, b)
	}
	if d.Regs.Status&Busy != 0 || d.Regs.Status&DRQ != 0 {
		t.Fatalf("status = %#02x after write drain, want BUSY=0 DRQ=0", d.Regs.Status)
	}

	d.Regs.Sector = 2
	d.Out(RegStatus, 0, byte(CmdReadSector))
	got := make([]byte, diskimage.NormalSectorSize)
	for i := range got {
		got[i] = d.In(RegData)
	}
	if string(got[:12]) != "written back" {
		t.Errorf("readback = %q, want written back", got[:12])
	}
}

func TestReadAddressDoesNotSetBusy(t *testing.T) {
	d := freshMgtDrive(t)
	d.Regs.Track = 0

	d.Out(RegStatus, 0, byte(CmdReadAddress))
	if d.Regs.Status&Busy != 0 {
		t.Errorf("status = %#02x after READ_ADDRESS, want BUSY clear", d.Regs.Status)
	}
	if d.Regs.Status&DRQ == 0 {
		t.Errorf("status = %#02x after READ_ADDRESS, want DRQ set", d.Regs.Status)
	}

	var idBytes [6]byte
	for i := range idBytes {
		idBytes[i] = d.In(RegData)
	}
	if idBytes[0] != 0 {
		t.Errorf("id track = %d, want 0", idBytes[0])
	}
}

func TestForceInterruptAbortsTransfer(t *testing.T) {
	d := freshMgtDrive(t)
	d.Regs.Track, d.Regs.Sector = 0, 1
	d.Out(RegStatus, 0, byte(CmdReadSector))
	if d.buf.Residual() == 0 {
		t.Fatalf("expected an in-progress transfer before FORCE_INTERRUPT")
	}

	d.Out(RegStatus, 0, byte(CmdForceInterrupt))
	if d.buf.Residual() != 0 {
		t.Errorf("residual = %d after FORCE_INTERRUPT, want 0", d.buf.Residual())
	}
	if d.Regs.Status&^MotorOn != 0 {
		t.Errorf("status = %#02x after FORCE_INTERRUPT, want only MOTOR_ON possibly set", d.Regs.Status)
	}
}

func TestMotorTurnsOffAfterInactivity(t *testing.T) {
	d := freshMgtDrive(t)
	d.Out(RegStatus, 0, byte(CmdRestore))
	if !d.Motor.On() {
		t.Fatalf("motor should be on immediately after a command")
	}
	for i := 0; i < MotorActiveFrames+1; i++ {
		d.FrameEnd()
	}
	if d.Motor.On() {
		t.Errorf("motor still on after %d frames", MotorActiveFrames+1)
	}
	if d.Regs.Status&MotorOn != 0 {
		t.Errorf("status MOTOR_ON bit still set after motor timeout")
	}
}

// buildEdskDrive assembles a one-track EDSK image whose single sector
// declares a size code of 2 (512 bytes) but an explicit data length of
// 256 bytes, the mismatch READ_SECTOR/WRITE_SECTOR must honour instead
// of trusting the size code alone.
func buildEdskDrive(t *testing.T, declaredLen int) *Drive {
	t.Helper()
	const (
		headerSize    = 256
		trackInfoSize = 24
		sectorEntry   = 8
	)
	header := make([]byte, headerSize)
	copy(header, "EXTENDED CPC DSK File\r\nDisk-Info\r\n")
	header[48] = 1 // one track
	header[49] = 1 // one side

	track := make([]byte, headerSize+declaredLen)
	copy(track, "Track-Info\r\n")
	track[15] = 1 // one sector
	entry := track[trackInfoSize : trackInfoSize+sectorEntry]
	entry[0], entry[1], entry[2], entry[3] = 0, 0, 1, 2 // size code 2 -> 512 bytes nominally
	entry[6] = byte(declaredLen)
	entry[7] = byte(declaredLen >> 8)
	header[52] = byte(len(track) / 256)

	data := append(header, track...)
	s := stream.NewMemoryStream(data, "t.dsk", false)
	sides, tracks, offsets, ok := diskimage.IsEdskRecognised(s)
	if !ok {
		t.Fatal("setup: IsEdskRecognised failed")
	}
	disk := diskimage.NewEdskDisk(s, sides, tracks, offsets)
	d := &Drive{}
	d.Insert(disk)
	return d
}

func TestReadSectorHonoursDeclaredLengthOverSizeCode(t *testing.T) {
	d := buildEdskDrive(t, 256)
	d.Regs.Track, d.Regs.Sector = 0, 1

	d.Out(RegStatus, 0, byte(CmdReadSector))
	if d.Regs.Status&DRQ == 0 {
		t.Fatalf("status = %#02x after READ_SECTOR, want DRQ set", d.Regs.Status)
	}
	if d.buf.Residual() != 256 {
		t.Errorf("residual = %d, want 256 (the declared length, not the size-code-implied 512)", d.buf.Residual())
	}
}

func TestWriteSectorHonoursDeclaredLengthOverSizeCode(t *testing.T) {
	d := buildEdskDrive(t, 256)
	d.Regs.Track, d.Regs.Sector = 0, 1

	d.Out(RegStatus, 0, byte(CmdWriteSector))
	if d.Regs.Status&DRQ == 0 {
		t.Fatalf("status = %#02x after WRITE_SECTOR, want DRQ set", d.Regs.Status)
	}
	if d.buf.Residual() != 256 {
		t.Fatalf("residual = %d, want 256 (the declared length, not the size-code-implied 512)", d.buf.Residual())
	}

	payload := bytes.Repeat([]byte{0x42}, 256)
	for _, b := range payload {
		d.Out(RegData, 0, b)
	}
	if d.Regs.Status&RecordNotFound != 0 {
		t.Fatalf("status = %#02x after write drain, want RECORD_NOT_FOUND clear", d.Regs.Status)
	}

	d.Regs.Sector = 1
	d.Out(RegStatus, 0, byte(CmdReadSector))
	got := make([]byte, 256)
	for i := range got {
		got[i] = d.In(RegData)
	}
	if !bytes.Equal(got, payload) {
		t.Errorf("readback = %v, want %v", got, payload)
	}
}

func TestWriteProtectedDiskRejectsWrite(t *testing.T) {
	data := make([]byte, diskimage.MGTImageSize)
	s := stream.NewMemoryStream(data, "ro.mgt", true)
	disk := diskimage.NewMgtDisk(s, diskimage.NormalDiskSectors)
	d := &Drive{}
	d.Insert(disk)
	d.Regs.Track, d.Regs.Sector = 0, 1

	d.Out(RegStatus, 0, byte(CmdWriteSector))
	if d.Regs.Status&WriteProtect == 0 {
		t.Errorf("status = %#02x, want WRITE_PROTECT set", d.Regs.Status)
	}
}
