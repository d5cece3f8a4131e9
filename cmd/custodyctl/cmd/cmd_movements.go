package cmd

import (
	"fmt"
	"strconv"

	"github.com/Vandelay-Technologies/vandelay-smart-contracts/cmd/custodyd/bootstrap"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"
)

var cmdMovements = &cobra.Command{
	Use:     "movements <id>",
	Short:   "Print the value movement history of a record.",
	Long:    "Print the value movement history of a record.",
	Example: "custodyctl movements 12",
	RunE: func(c *cobra.Command, args []string) error {
		if len(args) == 0 {
			return errors.New("Missing record id")
		}

		id, err := strconv.ParseUint(args[0], 10, 64)
		if err != nil {
			return errors.Wrap(err, "Invalid record id")
		}

		ctx := bootstrap.NewContextWithDevelopmentLogger()
		cfg := bootstrap.NewConfigFromEnv(ctx)
		reg := bootstrap.NewRegistry(ctx, cfg)

		movements, err := reg.Movements(ctx, id)
		if err != nil {
			return err
		}

		fmt.Printf("# Movements for record %d\n\n", id)
		return dumpJSON(movements)
	},
}
