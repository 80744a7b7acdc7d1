package fdc

import (
	"samfdc/diskimage"
	"samfdc/trackcodec"
)

// DriveRegs holds one drive's visible register set. Direction is kept
// as a bool (in=false, out=true) rather than a bit inside Status,
// matching how CDrive keeps it as a private flag alongside the status
// byte rather than exposing it to the host.
type DriveRegs struct {
	Status  Status
	Track   byte
	Sector  byte
	Data    byte
	Command byte
	Dir     bool // false = step in, true = step out
}

// Drive is one physical SAM floppy port: registers, motor state, a
// transfer buffer, and whichever Disk is currently mounted. Two of
// these exist per machine, at separate port bases; the side to use
// within a double-sided Disk is the side argument the caller passes to
// Out, taken from bit 2 of the port address (see PortSide).
type Drive struct {
	Regs  DriveRegs
	Motor MotorState
	buf   TransferBuffer

	disk       diskimage.Disk
	headPos    int
	dataStatus Status // CRC bit pending from the last data read, reported when the transfer drains
	indexTick  int
}

// Insert mounts disk, replacing (and closing) any previously mounted
// one.
func (d *Drive) Insert(disk diskimage.Disk) {
	if d.disk != nil {
		d.disk.Close()
	}
	d.disk = disk
}

// Eject unmounts the current disk, if any.
func (d *Drive) Eject() {
	if d.disk != nil {
		d.disk.Close()
		d.disk = nil
	}
}

// Flush saves the mounted disk if it has unsaved changes.
func (d *Drive) Flush() bool {
	if d.disk == nil {
		return true
	}
	if !d.disk.IsModified() {
		return true
	}
	return d.disk.Save()
}

// FrameEnd ticks the motor timer down once per emulated frame and
// clears MOTOR_ON when it reaches zero.
func (d *Drive) FrameEnd() {
	wasOn := d.Motor.On()
	d.Motor.FrameEnd()
	if wasOn && !d.Motor.On() {
		d.Regs.Status &^= MotorOn
	}
}

func (d *Drive) modifyStatus(set, reset Status) {
	d.Regs.Status &^= reset
	d.Regs.Status |= set
	if set&MotorOn != 0 {
		d.Motor.Refresh()
	}
}

// isType1 reports whether the last issued command belongs to the Type
// I (seek) family, identified by a clear high bit in the command
// register's stored nibble.
func (d *Drive) isType1() bool {
	return d.Regs.Command&0x80 == 0
}

// In services a read of one of the four per-drive registers. side is
// the side bit already extracted from the port address (ignored by
// register reads other than through the mounted disk).
func (d *Drive) In(reg Register) byte {
	switch reg {
	case RegStatus:
		ret := d.Regs.Status
		if d.disk != nil && d.isType1() {
			if d.disk.IsReadOnly() {
				d.modifyStatus(WriteProtect, 0)
				ret = d.Regs.Status
			}
			if d.Motor.On() {
				d.indexTick++
				if d.indexTick&0x7 == 0 {
					ret |= IndexPulse
				}
			}
		}
		return byte(ret)

	case RegTrack:
		return d.Regs.Track

	case RegSector:
		return d.Regs.Sector

	case RegData:
		if d.buf.Residual() > 0 {
			d.Regs.Data = d.buf.PullByte()
			if d.buf.Residual() == 0 {
				d.modifyStatus(0, Busy|DRQ)
				d.onReadDrained()
			}
		}
		return d.Regs.Data
	}
	return 0
}

// onReadDrained runs once a read transfer's last byte has been
// collected, mirroring CDrive's per-command tail handling in its
// data-register read path.
func (d *Drive) onReadDrained() {
	switch Command(d.Regs.Command) {
	case CmdReadAddress, CmdReadTrack:
		// nothing further to do

	case CmdReadSector:
		d.modifyStatus(d.dataStatus, 0)

	case CmdReadMultiSector:
		d.modifyStatus(d.dataStatus, 0)
		if d.dataStatus == 0 {
			id, status, ok := d.disk.FindNext()
			if !ok {
				d.modifyStatus(RecordNotFound, Busy)
				return
			}
			if status != 0 {
				d.modifyStatus(Status(status), Busy)
				return
			}
			size := d.disk.CurrentSectorSize()
			if size == 0 {
				size = id.Size()
			}
			data := make([]byte, size)
			n, rstatus := d.disk.ReadData(data)
			d.dataStatus = Status(rstatus)
			if d.dataStatus&^CRCError != 0 {
				d.modifyStatus(d.dataStatus, Busy)
				return
			}
			d.buf.Reset(n)
			copy(d.buf.Bytes(n), data[:n])
			d.modifyStatus(DRQ, 0)
		}
	}
}

// Out services a write to one of the four per-drive registers. side is
// the side bit extracted from the port address, used by commands that
// address the mounted disk.
func (d *Drive) Out(reg Register, side int, val byte) {
	switch reg {
	case RegTrack:
		d.Regs.Track = val
	case RegSector:
		d.Regs.Sector = val
	case RegData:
		d.outData(side, val)
	case RegStatus:
		d.outCommand(side, val)
	}
}

func (d *Drive) outCommand(side int, val byte) {
	d.Regs.Status = 0
	d.modifyStatus(MotorOn, 0)

	if d.disk != nil && d.isType1WithCommandByte(val) && val&flagSpinUp == 0 {
		d.modifyStatus(SpinUp, 0)
	}

	d.Regs.Command = val & 0xf0
	switch Command(d.Regs.Command) {

	case CmdRestore:
		d.modifyStatus(Track00, SpinUp)
		d.Regs.Track = 0
		d.headPos = 0

	case CmdSeek:
		d.Regs.Dir = d.Regs.Data < d.Regs.Track
		d.Regs.Track = d.Regs.Data
		d.headPos = int(d.Regs.Data)
		if d.headPos == 0 {
			d.modifyStatus(Track00, 0)
		}

	case CmdStepNoUpdate:
		if !d.Regs.Dir {
			d.headPos++
		} else if d.headPos > 0 {
			d.headPos--
		}
		if d.headPos == 0 {
			d.modifyStatus(Track00, 0)
			d.Regs.Track = 0
		}

	case CmdStepUpdate:
		if !d.Regs.Dir {
			d.headPos++
			d.Regs.Track = byte(d.headPos)
		} else if d.headPos > 0 {
			d.headPos--
			d.Regs.Track = byte(d.headPos)
		}
		if d.headPos == 0 {
			d.modifyStatus(Track00, 0)
		}

	case CmdStepInNoUpdate:
		d.headPos++
		d.Regs.Dir = false

	case CmdStepInUpdate:
		d.headPos++
		d.Regs.Track = byte(d.headPos)
		d.Regs.Dir = false

	case CmdStepOutNoUpdate:
		if d.headPos > 0 {
			d.headPos--
		}
		if d.headPos == 0 {
			d.Regs.Track = 0
			d.modifyStatus(Track00, 0)
		}
		d.Regs.Dir = true

	case CmdStepOutUpdate:
		if d.headPos > 0 {
			d.headPos--
			d.Regs.Track = byte(d.headPos)
		}
		if d.headPos == 0 {
			d.modifyStatus(Track00, 0)
		} else {
			d.modifyStatus(0, Track00)
		}
		d.Regs.Dir = true

	case CmdReadSector, CmdReadMultiSector:
		d.modifyStatus(Busy, Track00|DeletedData)
		if d.disk == nil {
			d.modifyStatus(RecordNotFound, Busy)
			break
		}
		id, status, ok := d.disk.FindSector(side, int(d.Regs.Track), int(d.Regs.Sector))
		if !ok {
			d.modifyStatus(RecordNotFound, Busy)
			break
		}
		size := d.disk.CurrentSectorSize()
		if size == 0 {
			size = id.Size()
		}
		data := make([]byte, size)
		n, rstatus := d.disk.ReadData(data)
		d.dataStatus = Status(rstatus | status)
		if d.dataStatus&^CRCError != 0 {
			d.modifyStatus(d.dataStatus, Busy)
		} else {
			d.buf.Reset(n)
			copy(d.buf.Bytes(n), data[:n])
			d.modifyStatus(DRQ, 0)
		}

	case CmdWriteSector, CmdWriteMultiSector:
		d.modifyStatus(Busy, Track00|DeletedData)
		if d.disk == nil {
			d.modifyStatus(RecordNotFound, Busy)
			break
		}
		id, _, ok := d.disk.FindSector(side, int(d.Regs.Track), int(d.Regs.Sector))
		if !ok {
			d.modifyStatus(RecordNotFound, Busy)
			break
		}
		if d.disk.IsReadOnly() {
			d.modifyStatus(WriteProtect, Busy)
			break
		}
		size := d.disk.CurrentSectorSize()
		if size == 0 {
			size = id.Size()
		}
		d.buf.Reset(0)
		d.buf.residual = size
		d.modifyStatus(DRQ, 0)

	case CmdReadAddress:
		// The 1772 datasheet says BUSY should be set here, but at least
		// one disk utility relies on it not being set; preserved as
		// observed rather than as documented.
		d.modifyStatus(0, Track00|DeletedData)
		idBytes, status := d.readAddress(side)
		if status&type23ErrorMask == 0 {
			d.buf.Reset(len(idBytes))
			copy(d.buf.Bytes(len(idBytes)), idBytes)
			d.modifyStatus(status|DRQ, 0)
		} else {
			d.modifyStatus(status, Busy)
			d.buf.Abort()
		}

	case CmdReadTrack:
		d.modifyStatus(Busy, Track00|DeletedData)
		raw := d.readTrack(side)
		if raw == nil {
			d.modifyStatus(RecordNotFound, Busy)
			d.buf.Abort()
			break
		}
		d.buf.Reset(len(raw))
		copy(d.buf.Bytes(len(raw)), raw)
		d.modifyStatus(DRQ, 0)

	case CmdWriteTrack:
		d.modifyStatus(Busy|DRQ, Track00|DeletedData)
		d.buf.Reset(0)
		d.buf.residual = maxTrackBytes
		if d.disk != nil && d.disk.IsReadOnly() {
			d.modifyStatus(WriteProtect, Busy|DRQ)
			d.buf.Abort()
		} else {
			d.modifyStatus(DRQ, 0)
		}

	case CmdForceInterrupt:
		d.Regs.Status &= MotorOn
		d.Regs.Command = 0
		d.buf.Abort()
	}
}

// isType1WithCommandByte peeks at the about-to-be-stored command byte
// rather than the one already in Regs, since CDrive checks the OLD
// command register before overwriting it but the spin-up flag
// check in the real hardware and in this port looks at the incoming
// byte's type. Kept distinct from isType1 to make that explicit.
func (d *Drive) isType1WithCommandByte(val byte) bool {
	return val&0x80 == 0
}

func (d *Drive) readAddress(side int) ([]byte, Status) {
	if d.disk == nil {
		return nil, RecordNotFound
	}
	if d.disk.FindInit(side, int(d.Regs.Track)) == 0 {
		return nil, RecordNotFound
	}
	spinPos := d.disk.SpinPos(true)
	var id diskimage.IdField
	var status diskimage.SectorStatus
	found := false
	for i := 0; i <= spinPos; i++ {
		var ok bool
		id, status, ok = d.disk.FindNext()
		if !ok {
			break
		}
		found = true
	}
	if !found {
		return nil, RecordNotFound
	}
	return []byte{id.Track, id.Side, id.Sector, id.SizeCode, id.CRC1, id.CRC2}, Status(status)
}

func (d *Drive) readTrack(side int) []byte {
	if d.disk == nil || d.disk.FindInit(side, int(d.Regs.Track)) == 0 {
		return nil
	}
	var sectors []trackcodec.Sector
	for {
		id, _, ok := d.disk.FindNext()
		if !ok {
			break
		}
		size := d.disk.CurrentSectorSize()
		if size == 0 {
			size = id.Size()
		}
		data := make([]byte, size)
		d.disk.ReadData(data)
		sectors = append(sectors, trackcodec.Sector{
			Track: id.Track, Side: id.Side, SectorID: id.Sector, SizeCode: id.SizeCode,
			CRC1: id.CRC1, CRC2: id.CRC2, Data: data,
		})
	}
	return trackcodec.Encode(sectors)
}

func (d *Drive) outData(side int, val byte) {
	d.Regs.Data = val
	if d.buf.Residual() == 0 {
		return
	}
	d.buf.PushByte(val)
	if d.buf.Residual() != 0 {
		return
	}
	d.modifyStatus(0, Busy|DRQ)

	switch Command(d.Regs.Command) {
	case CmdWriteSector, CmdWriteMultiSector:
		status := d.disk.WriteData(d.buf.Written())
		d.modifyStatus(Status(status), Busy|DRQ)

	case CmdWriteTrack:
		decoded := trackcodec.Decode(d.buf.Written())
		ids := make([]diskimage.IdField, 0, len(decoded))
		for _, s := range decoded {
			ids = append(ids, diskimage.IdField{Track: s.Track, Side: s.Side, Sector: s.SectorID, SizeCode: s.SizeCode})
		}
		status := d.disk.FormatTrack(side, int(d.Regs.Track), ids)
		d.modifyStatus(Status(status), Busy|DRQ)
	}
}
