package main

import (
	"fmt"
	"os"

	"github.com/gentam/iceburn"
	"github.com/spf13/cobra"
)

var (
	bulkErase bool
	imageFile string
	speedFlag string
)

func init() {
	rootCmd.Flags().BoolVarP(&bulkErase, "erase", "e", false, "bulk erase entire flash")
	rootCmd.Flags().StringVarP(&imageFile, "write", "w", "", "image to write (raw bitstream or Intel HEX)")
	rootCmd.PersistentFlags().StringVar(&speedFlag, "speed", iceburn.DefaultSPISpeed.String(), "requested SPI clock")
}

func writeCommand(cmd *cobra.Command, args []string) error {
	var image []byte
	if imageFile != "" {
		var err error
		if image, err = iceburn.LoadImage(imageFile); err != nil {
			return err
		}
	}
	speed, err := parseSpeed(speedFlag)
	if err != nil {
		return err
	}

	var report *iceburn.Report
	err = openBoard(func(b *iceburn.Board) error {
		return withFlash(b, speed, func(f *iceburn.Flash) error {
			if !bulkErase && image == nil {
				return nil
			}
			opts := []iceburn.ProgramOption{iceburn.WithProgress(printProgress)}
			if bulkErase {
				opts = append(opts, iceburn.WithErase())
			}
			var err error
			report, err = iceburn.Program(f, image, opts...)
			return err
		})
	})
	if err != nil || report == nil {
		return err
	}

	for _, m := range report.Details {
		fmt.Println(m)
	}
	if more := report.Mismatches - len(report.Details); more > 0 {
		fmt.Printf("... %d more\n", more)
	}
	if !report.OK() {
		return fmt.Errorf("%w: %d of %d bytes differ", iceburn.ErrVerifyFailed, report.Mismatches, len(image))
	}
	if image != nil {
		fmt.Printf("wrote and verified %d bytes (%d pages)\n", report.Verified, report.Pages)
	}
	return nil
}

func printProgress(p iceburn.Progress) {
	fmt.Fprintf(os.Stderr, "\r%-6s %d/%d", p.Stage, p.Done, p.Total)
	if p.Done == p.Total {
		fmt.Fprintln(os.Stderr)
	}
}
