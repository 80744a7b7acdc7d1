// Package boothook implements the ROM RST trap SAM DOS booting relies
// on: when the ROM's "no DOS" error is about to fire, it's intercepted
// and redirected into loading a disk instead, the way a real SAM with
// a DOS ROM and a disk interface installed would never have hit that
// error in the first place.
package boothook

import (
	"samfdc/diskimage"
)

// noDosErrorCode is the ROM error code read from the byte following
// the RST 8 instruction when it's about to report "no DOS present".
const noDosErrorCode = 0x35

// bootexAddress is where the ROM's BOOTEX routine lives; redirecting
// PC here after mounting a disk makes the ROM retry the boot sequence
// as though DOS had been present all along.
const bootexAddress = 0xd8e5

// bootDriveSlot is the drive index the boot hook mounts its disk into,
// matching Rst8Hook's choice of the second drive rather than the
// first so a real floppy in drive 1 is left alone.
const bootDriveSlot = 1

// Z80 models the minimal CPU surface the hook needs: reading the byte
// the RST instruction is about to execute, and redirecting the
// program counter.
type Z80 interface {
	ReadByte(addr uint16) byte
	PC() uint16
	SetPC(addr uint16)
	// ExecutingROM reports whether the code at pc is currently running
	// from ROM, used to confirm the RST trap fired from inside ROM code
	// rather than a coincidentally identical address in RAM.
	ExecutingROM(pc uint16) bool
}

// DiskOpener abstracts mounting either a user-supplied boot disk path
// or the fallback built-in image, so Hook doesn't need to know how
// diskimage.Open or diskimage.NewFileDisk are wired up by the caller.
type DiskOpener interface {
	// OpenBootDisk tries path (read-only) if non-empty, and falls back
	// to the built-in image on failure or if path is empty.
	OpenBootDisk(path string) (diskimage.Disk, error)
}

// DriveSink is the subset of fdc.Drive boothook needs: somewhere to
// mount and later eject the temporary boot disk.
type DriveSink interface {
	Insert(disk diskimage.Disk)
	Eject()
}

// Hook holds the state that spans the mount (on RST 8) and the
// teardown (on the next RST, whatever its outcome).
type Hook struct {
	opener     DiskOpener
	drive      DriveSink
	bootActive bool

	// DosBootEnabled mirrors the dosboot option: when false,
	// the RST 8 trap never fires and the ROM's own "no DOS" error is
	// left to run its course.
	DosBootEnabled bool
	// CustomBootDiskPath mirrors dosdisk: a user-chosen disk to try
	// before falling back to the built-in image.
	CustomBootDiskPath string
}

// NewHook wires a Hook to the drive it will mount its boot disk into
// and the opener it uses to resolve a boot disk path (or the builtin
// fallback).
func NewHook(opener DiskOpener, drive DriveSink) *Hook {
	return &Hook{opener: opener, drive: drive, DosBootEnabled: true}
}

// OnRst8 should be called whenever the CPU executes RST 8 from ROM
// code. It returns true if it redirected execution (the caller must
// not run the RST normally in that case).
func (h *Hook) OnRst8(cpu Z80) bool {
	if !cpu.ExecutingROM(cpu.PC()) {
		return false
	}

	errCode := cpu.ReadByte(cpu.PC())

	// Clean up any previous boot attempt regardless of how this one
	// turns out — Rst8Hook drops its temporary drive on every RST 8,
	// not just a successful one.
	if h.bootActive {
		h.drive.Eject()
		h.bootActive = false
	}

	if errCode != noDosErrorCode || !h.DosBootEnabled {
		return false
	}

	disk, err := h.opener.OpenBootDisk(h.CustomBootDiskPath)
	if err != nil || disk == nil {
		return false
	}

	h.drive.Insert(disk)
	h.bootActive = true
	cpu.SetPC(bootexAddress)
	return true
}

// Teardown releases any still-mounted boot drive without waiting for
// another RST 8, for use when the machine resets or powers off.
func (h *Hook) Teardown() {
	if h.bootActive {
		h.drive.Eject()
		h.bootActive = false
	}
}

// Active reports whether a boot disk is currently mounted through this
// hook.
func (h *Hook) Active() bool {
	return h.bootActive
}
