package cmd

import (
	"github.com/spf13/cobra"
)

var ccCmd = &cobra.Command{
	Use:   "custodyctl",
	Short: "Custody CLI",
}

func Execute() {
	ccCmd.AddCommand(cmdRecord)
	ccCmd.AddCommand(cmdList)
	ccCmd.AddCommand(cmdMovements)
	ccCmd.AddCommand(cmdParticipant)
	ccCmd.AddCommand(cmdOutstanding)
	ccCmd.Execute()
}
