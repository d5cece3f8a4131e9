package cmd

import (
	"fmt"

	"github.com/Vandelay-Technologies/vandelay-smart-contracts/cmd/custodyd/bootstrap"

	"github.com/spf13/cobra"
)

var cmdList = &cobra.Command{
	Use:   "list",
	Short: "List all custody records.",
	Long:  "List all custody records with their kind, status and held amount.",
	RunE: func(c *cobra.Command, args []string) error {
		ctx := bootstrap.NewContextWithDevelopmentLogger()
		cfg := bootstrap.NewConfigFromEnv(ctx)
		reg := bootstrap.NewRegistry(ctx, cfg)

		records, err := reg.List(ctx)
		if err != nil {
			return err
		}

		for _, rec := range records {
			fmt.Printf("%d\t%s\t%s\t%d\n", rec.ID, rec.Kind, rec.Status, rec.Amount)
		}

		return nil
	},
}
