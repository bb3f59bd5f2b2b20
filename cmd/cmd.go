package cmd

import (
	"github.com/spf13/cobra"
)

var RootCmd = &cobra.Command{
	Use:   "tripsplit",
	Short: "split shared trip expenses",
	Long:  `tripsplit tracks the expenses of a group trip and splits the bill evenly among the participants`,
}

func init() {
	RootCmd.AddCommand(serverCommand())
	RootCmd.AddCommand(migrateCommand())
	RootCmd.AddCommand(splitCommand())
}
