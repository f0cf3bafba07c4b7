package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/golang/glog"
	"github.com/spf13/cobra"
)

var verbose bool

var rootCmd = &cobra.Command{
	Use:   "iceburn",
	Short: "iCEblink40 flash programmer",
	Long: `Program the SPI configuration flash of a Lattice iCEblink40 board.

Without flags the FPGA is held in reset and the flash is identified.
With -e the flash is erased; with -w the image is written from address 0
and read back for verification.`,
	Args:          cobra.NoArgs,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		flag.Set("logtostderr", "true")
		if verbose && !cmd.Flags().Changed("v") {
			flag.Set("v", "1")
		}
	},
	RunE: writeCommand,
}

func init() {
	rootCmd.PersistentFlags().BoolVar(&verbose, "verbose", false, "log board and flash operations")
	rootCmd.PersistentFlags().AddGoFlagSet(flag.CommandLine)
}

func main() {
	// glog expects the standard flag set to have been parsed; cobra parses
	// its flags into it instead.
	flag.CommandLine.Parse(nil)

	err := rootCmd.Execute()
	glog.Flush()
	if err != nil {
		fmt.Fprintln(os.Stderr, "iceburn:", err)
		os.Exit(1)
	}
}
