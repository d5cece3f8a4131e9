package cmd

import (
	"fmt"

	"github.com/Vandelay-Technologies/vandelay-smart-contracts/cmd/custodyd/bootstrap"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"
)

var cmdParticipant = &cobra.Command{
	Use:     "participant <address>",
	Short:   "List the records an address participates in.",
	Long:    "List the records an address participates in, as a party, bidder or ticket holder.",
	Example: "custodyctl participant alice",
	RunE: func(c *cobra.Command, args []string) error {
		if len(args) == 0 {
			return errors.New("Missing address")
		}

		ctx := bootstrap.NewContextWithDevelopmentLogger()
		cfg := bootstrap.NewConfigFromEnv(ctx)
		reg := bootstrap.NewRegistry(ctx, cfg)

		ids, err := reg.ByParticipant(ctx, args[0])
		if err != nil {
			return err
		}

		for _, id := range ids {
			fmt.Printf("%d\n", id)
		}

		return nil
	},
}
