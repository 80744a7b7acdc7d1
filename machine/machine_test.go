package machine

import (
	"log"
	"testing"

	"samfdc/diskimage"
	"samfdc/fdc"
	"samfdc/stream"
)

func testDisk() diskimage.Disk {
	s := stream.NewMemoryStream(make([]byte, diskimage.MGTImageSize), "t.mgt", false)
	return diskimage.NewMgtDisk(s, diskimage.NormalDiskSectors)
}

// romCPU is a minimal boothook.Z80 that always reports executing ROM
// and always reads the "no DOS" error code (0x35) at PC.
type romCPU struct{ pc uint16 }

func (c *romCPU) ReadByte(addr uint16) byte   { return 0x35 }
func (c *romCPU) PC() uint16                  { return c.pc }
func (c *romCPU) SetPC(addr uint16)           { c.pc = addr }
func (c *romCPU) ExecutingROM(pc uint16) bool { return true }

func TestInsertAndEject(t *testing.T) {
	m := New(log.Default())
	if err := m.Insert(0, testDisk()); err != nil {
		t.Fatalf("Insert: %v", err)
	}
	if err := m.Eject(0); err != nil {
		t.Fatalf("Eject: %v", err)
	}
}

func TestInsertRejectsBadUnit(t *testing.T) {
	m := New(log.Default())
	if err := m.Insert(5, testDisk()); err == nil {
		t.Error("expected an error for an out-of-range drive unit")
	}
}

func TestInOutRoundTrip(t *testing.T) {
	m := New(log.Default())
	m.Insert(0, testDisk())

	if err := m.Out(0, 0, byte(fdc.CmdRestore)); err != nil {
		t.Fatalf("Out: %v", err)
	}
	status, err := m.In(0, 0)
	if err != nil {
		t.Fatalf("In: %v", err)
	}
	if fdc.Status(status)&fdc.Track00 == 0 {
		t.Errorf("status = %#02x, want TRACK00 set", status)
	}
}

func TestResetTearsDownBootHook(t *testing.T) {
	m := New(log.Default())
	m.Insert(1, testDisk())
	if !m.Boot.OnRst8(&romCPU{pc: 0x0008}) || !m.Boot.Active() {
		t.Fatal("setup: expected the boot hook to mount its disk")
	}
	m.Reset()
	if m.Boot.Active() {
		t.Error("expected boot hook inactive after Reset")
	}
}

func TestFrameEndDoesNotPanicWithNoDrives(t *testing.T) {
	m := New(log.Default())
	m.FrameEnd()
}
