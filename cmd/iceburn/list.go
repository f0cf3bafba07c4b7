package main

import (
	"fmt"

	"github.com/gentam/iceburn"
	"github.com/spf13/cobra"
)

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List attached boards",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		boards, err := iceburn.ListBoards()
		if err != nil {
			return err
		}
		if len(boards) == 0 {
			return iceburn.ErrDeviceNotFound
		}
		for _, b := range boards {
			fmt.Println(b)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(listCmd)
}
