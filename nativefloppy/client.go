//go:build nativefloppy

package nativefloppy

import (
	"encoding/binary"
	"fmt"
	"io"

	"go.bug.st/serial"
	"go.bug.st/serial/enumerator"
)

// Client is a serial connection to a Greaseweazle-family adapter,
// speaking the trimmed command subset declared in nativefloppy.go.
// Adapted from the full flux-capture client: this one only ever asks
// the adapter firmware for already-decoded sectors, never raw flux.
type Client struct {
	port serial.Port
}

// Open finds the first adapter on the system (if port is empty) or
// opens the named serial port directly, and returns a ready Drive.
func Open(port string) (Drive, error) {
	name := port
	if name == "" {
		found, err := firstAdapterPort()
		if err != nil {
			return nil, err
		}
		name = found
	}

	p, err := serial.Open(name, &serial.Mode{BaudRate: 9600})
	if err != nil {
		return nil, fmt.Errorf("nativefloppy: opening %s: %w", name, err)
	}
	return &Client{port: p}, nil
}

// ListPorts enumerates USB serial ports that look like a Greaseweazle
// family adapter, for the devtool CLI's list-ports subcommand.
func ListPorts() ([]string, error) {
	ports, err := enumerator.GetDetailedPortsList()
	if err != nil {
		return nil, fmt.Errorf("nativefloppy: enumerating ports: %w", err)
	}
	var names []string
	for _, p := range ports {
		if p.IsUSB {
			names = append(names, p.Name)
		}
	}
	return names, nil
}

func firstAdapterPort() (string, error) {
	names, err := ListPorts()
	if err != nil {
		return "", err
	}
	if len(names) == 0 {
		return "", fmt.Errorf("nativefloppy: no USB serial adapter found")
	}
	return names[0], nil
}

func (c *Client) doCommand(cmd []byte) error {
	if _, err := c.port.Write(cmd); err != nil {
		return fmt.Errorf("nativefloppy: writing command: %w", err)
	}
	ack := make([]byte, 2)
	if _, err := io.ReadFull(c.port, ack); err != nil {
		return fmt.Errorf("nativefloppy: reading ack: %w", err)
	}
	if ack[0] != cmd[0] {
		return fmt.Errorf("nativefloppy: command echo mismatch (sent 0x%02x, got 0x%02x)", cmd[0], ack[0])
	}
	if ack[1] != ackOkay {
		return ackError(ack[1])
	}
	return nil
}

func (c *Client) SelectDrive(unit int) error {
	return c.doCommand([]byte{cmdSelect, 3, byte(unit)})
}

func (c *Client) Deselect() error {
	return c.doCommand([]byte{cmdDeselect, 2})
}

func (c *Client) SetMotor(unit int, on bool) error {
	var v byte
	if on {
		v = 1
	}
	return c.doCommand([]byte{cmdMotor, 4, byte(unit), v})
}

func (c *Client) Seek(cylinder int) error {
	return c.doCommand([]byte{cmdSeek, 3, byte(cylinder)})
}

func (c *Client) SetHead(head int) error {
	return c.doCommand([]byte{cmdHead, 3, byte(head)})
}

// ReadTrack asks the adapter to decode and return every sector on the
// given cylinder/head. Wire format: [cmdReadTrack, 4, cyl, head] then,
// on ack, a one-byte sector count followed by that many sectors each
// framed as [track, side, sector, sizeCode, status, lenLo, lenHi,
// data...].
func (c *Client) ReadTrack(cylinder, head int) ([]RawSector, error) {
	if err := c.doCommand([]byte{cmdReadTrack, 4, byte(cylinder), byte(head)}); err != nil {
		return nil, err
	}
	countBuf := make([]byte, 1)
	if _, err := io.ReadFull(c.port, countBuf); err != nil {
		return nil, fmt.Errorf("nativefloppy: reading sector count: %w", err)
	}
	sectors := make([]RawSector, countBuf[0])
	for i := range sectors {
		hdr := make([]byte, 7)
		if _, err := io.ReadFull(c.port, hdr); err != nil {
			return nil, fmt.Errorf("nativefloppy: reading sector header: %w", err)
		}
		length := binary.LittleEndian.Uint16(hdr[5:7])
		data := make([]byte, length)
		if _, err := io.ReadFull(c.port, data); err != nil {
			return nil, fmt.Errorf("nativefloppy: reading sector data: %w", err)
		}
		sectors[i] = RawSector{
			Track: hdr[0], Side: hdr[1], Sector: hdr[2], SizeCode: hdr[3],
			Status: hdr[4], Data: data,
		}
	}
	return sectors, nil
}

// WriteTrack sends a full track's worth of decoded sectors back to the
// adapter for re-encoding onto the physical disk, in the same framing
// ReadTrack uses.
func (c *Client) WriteTrack(cylinder, head int, sectors []RawSector) error {
	cmd := []byte{cmdWriteTrack, 4, byte(cylinder), byte(head)}
	if err := c.doCommand(cmd); err != nil {
		return err
	}
	if _, err := c.port.Write([]byte{byte(len(sectors))}); err != nil {
		return fmt.Errorf("nativefloppy: writing sector count: %w", err)
	}
	for _, s := range sectors {
		hdr := make([]byte, 7)
		hdr[0], hdr[1], hdr[2], hdr[3], hdr[4] = s.Track, s.Side, s.Sector, s.SizeCode, s.Status
		binary.LittleEndian.PutUint16(hdr[5:7], uint16(len(s.Data)))
		if _, err := c.port.Write(hdr); err != nil {
			return fmt.Errorf("nativefloppy: writing sector header: %w", err)
		}
		if _, err := c.port.Write(s.Data); err != nil {
			return fmt.Errorf("nativefloppy: writing sector data: %w", err)
		}
	}
	syncByte := make([]byte, 1)
	if _, err := io.ReadFull(c.port, syncByte); err != nil {
		return fmt.Errorf("nativefloppy: reading write confirmation: %w", err)
	}
	if syncByte[0] != ackOkay {
		return ackError(syncByte[0])
	}
	return nil
}

func (c *Client) Close() error {
	return c.port.Close()
}

var _ Drive = (*Client)(nil)
