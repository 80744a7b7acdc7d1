// Package machine assembles the disk subsystem's pieces — two FDC
// drives, the boot hook, logging — into a single value a host emulator
// owns and calls into, replacing the file-scope globals (pBootDrive,
// a bare array of CDrive pointers) kept at translation unit scope in
// the C++ source this module replaces.
package machine

import (
	"fmt"
	"log"

	"samfdc/boothook"
	"samfdc/diskimage"
	"samfdc/fdc"
)

// DriveCount is the number of floppy ports a SAM exposes.
const DriveCount = 2

// Machine owns every piece of state this module needs: both drives,
// the boot hook wired to drive 1, and a single injected *log.Logger
// that Machine writes its own insert/eject messages through. The
// drives and the boot hook do no logging of their own.
type Machine struct {
	Drives [DriveCount]fdc.Drive
	Boot   *boothook.Hook
	Logger *log.Logger
}

// New builds a Machine with its boot hook wired to drive 1 (index 1),
// matching where Rst8Hook mounts its temporary drive.
func New(logger *log.Logger) *Machine {
	if logger == nil {
		logger = log.Default()
	}
	m := &Machine{Logger: logger}
	m.Boot = boothook.NewHook(boothook.FileOpener{}, &m.Drives[1])
	return m
}

// Insert mounts disk into drive `unit` (0 or 1), replacing whatever
// was there.
func (m *Machine) Insert(unit int, disk diskimage.Disk) error {
	if unit < 0 || unit >= DriveCount {
		return fmt.Errorf("machine: drive unit %d out of range", unit)
	}
	m.Drives[unit].Insert(disk)
	m.Logger.Printf("drive %d: inserted %s", unit, disk.Path())
	return nil
}

// Eject unmounts whatever is in drive `unit`, flushing any unsaved
// changes first.
func (m *Machine) Eject(unit int) error {
	if unit < 0 || unit >= DriveCount {
		return fmt.Errorf("machine: drive unit %d out of range", unit)
	}
	if !m.Drives[unit].Flush() {
		m.Logger.Printf("drive %d: save failed, modified flag retained", unit)
	}
	m.Drives[unit].Eject()
	return nil
}

// In dispatches a port read to the drive selected by the port's base
// address. portBase identifies which of DriveCount drives owns this
// port; reg is derived from the low bits of port.
func (m *Machine) In(portBase, port int) (byte, error) {
	if portBase < 0 || portBase >= DriveCount {
		return 0, fmt.Errorf("machine: port base %d out of range", portBase)
	}
	return m.Drives[portBase].In(fdc.PortRegister(port)), nil
}

// Out dispatches a port write the same way In dispatches a read.
func (m *Machine) Out(portBase, port int, val byte) error {
	if portBase < 0 || portBase >= DriveCount {
		return fmt.Errorf("machine: port base %d out of range", portBase)
	}
	m.Drives[portBase].Out(fdc.PortRegister(port), fdc.PortSide(port), val)
	return nil
}

// FrameEnd advances every drive's motor timer by one emulated frame.
func (m *Machine) FrameEnd() {
	for i := range m.Drives {
		m.Drives[i].FrameEnd()
	}
}

// Reset tears down any boot-hook mount and flushes every drive,
// mirroring what a real power cycle would do to in-flight state.
func (m *Machine) Reset() {
	m.Boot.Teardown()
	for i := range m.Drives {
		m.Drives[i].Flush()
	}
}
