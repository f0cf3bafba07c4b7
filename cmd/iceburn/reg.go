package main

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/gentam/iceburn"
	"github.com/spf13/cobra"
)

var regCmd = &cobra.Command{
	Use:   "reg",
	Short: "Read and write FPGA registers",
	Long: `Access the byte registers of the design loaded in the FPGA.

Writes are applied before reads. Registers and values are hex:
	iceburn reg -w 10:ab -r 10 -r 11`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		reads, _ := cmd.Flags().GetStringArray("read")
		writes, _ := cmd.Flags().GetStringArray("write")
		if len(reads) == 0 && len(writes) == 0 {
			return errors.New("nothing to do, use -r or -w")
		}

		type regWrite struct{ reg, val byte }
		var ws []regWrite
		for _, w := range writes {
			r, v, ok := strings.Cut(w, ":")
			if !ok {
				return fmt.Errorf("write %q: want REG:VALUE", w)
			}
			reg, err := parseHexByte(r)
			if err != nil {
				return err
			}
			val, err := parseHexByte(v)
			if err != nil {
				return err
			}
			ws = append(ws, regWrite{reg, val})
		}
		var rs []byte
		for _, r := range reads {
			reg, err := parseHexByte(r)
			if err != nil {
				return err
			}
			rs = append(rs, reg)
		}

		return openBoard(func(b *iceburn.Board) error {
			return b.WithComm(func(c *iceburn.Comm) error {
				for _, w := range ws {
					if err := c.WriteReg(w.reg, w.val); err != nil {
						return err
					}
				}
				for _, reg := range rs {
					v, err := c.ReadReg(reg)
					if err != nil {
						return err
					}
					fmt.Printf("%02x: %02x\n", reg, v)
				}
				return nil
			})
		})
	},
}

func init() {
	rootCmd.AddCommand(regCmd)
	regCmd.Flags().StringArrayP("read", "r", nil, "register to read")
	regCmd.Flags().StringArrayP("write", "w", nil, "register write as REG:VALUE")
}

func parseHexByte(s string) (byte, error) {
	v, err := strconv.ParseUint(strings.TrimPrefix(s, "0x"), 16, 8)
	if err != nil {
		return 0, fmt.Errorf("invalid hex byte %q", s)
	}
	return byte(v), nil
}
