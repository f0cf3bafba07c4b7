package main

import (
	"fmt"

	"github.com/gentam/iceburn"
	"github.com/spf13/cobra"
)

var infoCmd = &cobra.Command{
	Use:   "info",
	Short: "Print board and flash information",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		speed, err := parseSpeed(speedFlag)
		if err != nil {
			return err
		}
		return openBoard(func(b *iceburn.Board) error {
			serial, err := b.Serial()
			if err != nil {
				return err
			}
			fmt.Printf("Board type:      %s\n", b.BoardType())
			fmt.Printf("Serial:          %s\n", serial)

			return withFlash(b, speed, func(f *iceburn.Flash) error {
				id, name, err := f.ReadID()
				if err != nil {
					return err
				}
				sr, err := f.ReadStatusRegister()
				if err != nil {
					return err
				}
				fmt.Printf("Flash ID:        %X\n", id)
				fmt.Printf("Flash:           %s\n", name)
				fmt.Printf("Flash size:      %d bytes\n", f.Size())
				fmt.Printf("Status register: %s\n", sr)
				return nil
			})
		})
	},
}

func init() {
	rootCmd.AddCommand(infoCmd)
}
