// Command diskutil is a small developer tool for poking at disk images
// outside a running emulator: sniffing which backend would claim a
// file, dumping a sector's bytes, and rendering a track the way
// READ_TRACK would hand it to the host.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"samfdc/diskimage"
	"samfdc/nativefloppy"
	"samfdc/trackcodec"
)

var rootCmd = &cobra.Command{
	Use:   "diskutil",
	Short: "Inspect SAM Coupe disk images",
	Long:  "diskutil is a developer tool for inspecting disk images supported by the disk subsystem.",
	CompletionOptions: cobra.CompletionOptions{
		HiddenDefaultCmd: true,
	},
}

var sniffCmd = &cobra.Command{
	Use:   "sniff FILE",
	Short: "Report which backend format recognises a disk image",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		disk, err := diskimage.OpenPath(args[0], true)
		if err != nil {
			return err
		}
		defer disk.Close()
		fmt.Printf("%s: opened as %T, read-only=%v\n", args[0], disk, disk.IsReadOnly())
		return nil
	},
}

var formatsCmd = &cobra.Command{
	Use:   "formats",
	Short: "List registered disk image formats",
	RunE: func(cmd *cobra.Command, args []string) error {
		for _, name := range diskimage.RegisteredFormatNames() {
			fmt.Println(name)
		}
		return nil
	},
}

var dumpCmd = &cobra.Command{
	Use:   "dump FILE SIDE TRACK SECTOR",
	Short: "Dump one sector's bytes as hex",
	Args:  cobra.ExactArgs(4),
	RunE: func(cmd *cobra.Command, args []string) error {
		disk, err := diskimage.OpenPath(args[0], true)
		if err != nil {
			return err
		}
		defer disk.Close()

		side, track, sector, err := parseCHS(args[1], args[2], args[3])
		if err != nil {
			return err
		}

		id, status, ok := disk.FindSector(side, track, sector)
		if !ok {
			return fmt.Errorf("sector %d not found on side %d track %d", sector, side, track)
		}
		data := make([]byte, id.Size())
		n, readStatus := disk.ReadData(data)
		fmt.Printf("id=%+v findStatus=%s readStatus=%s\n", id, status, readStatus)
		fmt.Printf("%x\n", data[:n])
		return nil
	},
}

var trackCmd = &cobra.Command{
	Use:   "track FILE SIDE TRACK",
	Short: "Render a track as the raw READ_TRACK byte stream",
	Args:  cobra.ExactArgs(3),
	RunE: func(cmd *cobra.Command, args []string) error {
		disk, err := diskimage.OpenPath(args[0], true)
		if err != nil {
			return err
		}
		defer disk.Close()

		side, track, _, err := parseCHS(args[1], args[2], "1")
		if err != nil {
			return err
		}

		if disk.FindInit(side, track) == 0 {
			return fmt.Errorf("no sectors on side %d track %d", side, track)
		}
		var sectors []trackcodec.Sector
		for {
			id, _, ok := disk.FindNext()
			if !ok {
				break
			}
			data := make([]byte, id.Size())
			disk.ReadData(data)
			sectors = append(sectors, trackcodec.Sector{
				Track: id.Track, Side: id.Side, SectorID: id.Sector, SizeCode: id.SizeCode,
				CRC1: id.CRC1, CRC2: id.CRC2, Data: data,
			})
		}
		fmt.Printf("%x\n", trackcodec.Encode(sectors))
		return nil
	},
}

var listPortsCmd = &cobra.Command{
	Use:   "list-ports",
	Short: "List USB serial ports that might be a native floppy adapter",
	RunE: func(cmd *cobra.Command, args []string) error {
		ports, err := nativefloppy.ListPorts()
		if err != nil {
			return err
		}
		if len(ports) == 0 {
			fmt.Println("no adapters found (binary may not have been built with -tags nativefloppy)")
		}
		for _, p := range ports {
			fmt.Println(p)
		}
		return nil
	},
}

func parseCHS(sideArg, trackArg, sectorArg string) (side, track, sector int, err error) {
	if _, err = fmt.Sscanf(sideArg, "%d", &side); err != nil {
		return 0, 0, 0, fmt.Errorf("invalid side %q: %w", sideArg, err)
	}
	if _, err = fmt.Sscanf(trackArg, "%d", &track); err != nil {
		return 0, 0, 0, fmt.Errorf("invalid track %q: %w", trackArg, err)
	}
	if _, err = fmt.Sscanf(sectorArg, "%d", &sector); err != nil {
		return 0, 0, 0, fmt.Errorf("invalid sector %q: %w", sectorArg, err)
	}
	return side, track, sector, nil
}

func main() {
	rootCmd.AddCommand(sniffCmd, formatsCmd, dumpCmd, trackCmd, listPortsCmd)
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
