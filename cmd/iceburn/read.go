package main

import (
	"encoding/hex"
	"fmt"
	"os"

	"github.com/gentam/iceburn"
	"github.com/spf13/cobra"
)

var readCmd = &cobra.Command{
	Use:   "read",
	Short: "Read flash memory",
	Long:  `Read flash memory and print a hexdump, or save it with -o.`,
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		nread, _ := cmd.Flags().GetInt("n")
		addr, _ := cmd.Flags().GetInt("addr")
		statusOnly, _ := cmd.Flags().GetBool("status")
		outFile, _ := cmd.Flags().GetString("output")

		speed, err := parseSpeed(speedFlag)
		if err != nil {
			return err
		}

		var data []byte
		err = openBoard(func(b *iceburn.Board) error {
			return withFlash(b, speed, func(f *iceburn.Flash) error {
				if statusOnly {
					sr, err := f.ReadStatusRegister()
					if err != nil {
						return fmt.Errorf("read flash status register failed: %w", err)
					}
					fmt.Println(sr)
					return nil
				}
				var err error
				if data, err = f.Read(addr, nread); err != nil {
					return fmt.Errorf("read flash failed: %w", err)
				}
				return nil
			})
		})
		if err != nil || statusOnly {
			return err
		}

		if outFile == "" {
			fmt.Print(hex.Dump(data))
			return nil
		}
		return os.WriteFile(outFile, data, 0644)
	},
}

func init() {
	rootCmd.AddCommand(readCmd)
	readCmd.Flags().IntP("n", "n", 256, "number of bytes to read")
	readCmd.Flags().IntP("addr", "a", 0, "start address, e.g. 0x100")
	readCmd.Flags().BoolP("status", "s", false, "just print flash status register")
	readCmd.Flags().StringP("output", "o", "", "output file (default: hexdump)")
}
