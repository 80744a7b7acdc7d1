// Package fdc emulates a WD1772-compatible floppy disk controller: two
// drives' worth of registers, a data transfer buffer, and the command
// dispatch that turns a Z80 OUT to the command register into calls
// against a mounted diskimage.Disk.
package fdc

// Status is the FDC status register. Several bits carry a different
// meaning depending on whether the last command was Type I (seek
// family) or Type II/III (data family); both readings are named here
// since In() picks the interpretation that matches the active command.
type Status byte

const (
	Busy       Status = 1 << 0
	DRQ        Status = 1 << 1 // Type II/III: data request
	IndexPulse Status = 1 << 1 // Type I: index hole seen
	LostData   Status = 1 << 2 // Type II/III: unused here, always clear
	Track00    Status = 1 << 2 // Type I: head over track 0
	CRCError   Status = 1 << 3
	// RecordNotFound (Type II/III) and SeekError (Type I) share this bit;
	// this emulation only ever produces the record-not-found meaning.
	RecordNotFound Status = 1 << 4
	// DeletedData (Type II/III) and SpinUp/HeadLoaded (Type I) share this
	// bit, matching the real 1772's overloaded status byte.
	DeletedData Status = 1 << 5
	SpinUp      Status = 1 << 5
	WriteProtect Status = 1 << 6
	MotorOn      Status = 1 << 7
)

// type23ErrorMask is the set of bits that represent a genuine error on
// a Type II/III command, as opposed to informational bits like DRQ.
const type23ErrorMask = CRCError | RecordNotFound | WriteProtect

// Command is the top nibble of a value written to the command
// register; the bottom nibble carries per-command flag bits.
type Command byte

const (
	CmdRestore       Command = 0x00
	CmdSeek          Command = 0x10
	CmdStepNoUpdate  Command = 0x20
	CmdStepUpdate    Command = 0x30
	CmdStepInNoUpdate  Command = 0x40
	CmdStepInUpdate    Command = 0x50
	CmdStepOutNoUpdate Command = 0x60
	CmdStepOutUpdate   Command = 0x70
	CmdReadSector      Command = 0x80
	CmdReadMultiSector Command = 0x90
	CmdWriteSector      Command = 0xa0
	CmdWriteMultiSector Command = 0xb0
	CmdReadAddress      Command = 0xc0
	CmdReadTrack        Command = 0xe0
	CmdWriteTrack        Command = 0xf0
	CmdForceInterrupt    Command = 0xd0
)

// flagSpinUp is bit 3 of a Type I command byte: when set, the drive
// skips the spin-up delay status bit.
const flagSpinUp = 1 << 3

// Register selects one of the four per-drive I/O ports (bottom two
// bits of the port address).
type Register int

const (
	RegStatus Register = iota
	RegTrack
	RegSector
	RegData
)

// PortRegister extracts the register selected by a port address (the
// bottom two bits); bit 2 of the same address selects the disk side
// and is read by the caller, not by this package.
func PortRegister(port int) Register {
	return Register(port & 0x03)
}

// PortSide extracts the side bit (bit 2) of a port address.
func PortSide(port int) int {
	return (port >> 2) & 1
}
