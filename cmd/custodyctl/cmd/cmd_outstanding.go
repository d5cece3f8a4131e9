package cmd

import (
	"fmt"

	"github.com/Vandelay-Technologies/vandelay-smart-contracts/cmd/custodyd/bootstrap"

	"github.com/spf13/cobra"
)

var cmdOutstanding = &cobra.Command{
	Use:   "outstanding",
	Short: "Print the total value owed across all open records.",
	Long: "Print the total value owed across all open records. The custody pool " +
		"must hold at least this much for the books to balance.",
	RunE: func(c *cobra.Command, args []string) error {
		ctx := bootstrap.NewContextWithDevelopmentLogger()
		cfg := bootstrap.NewConfigFromEnv(ctx)
		reg := bootstrap.NewRegistry(ctx, cfg)

		total, err := reg.OutstandingTotal(ctx)
		if err != nil {
			return err
		}

		fmt.Printf("%d\n", total)
		return nil
	},
}
