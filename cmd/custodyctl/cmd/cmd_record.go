package cmd

import (
	"fmt"
	"strconv"

	"github.com/Vandelay-Technologies/vandelay-smart-contracts/cmd/custodyd/bootstrap"

	"github.com/davecgh/go-spew/spew"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
)

var cmdRecord = &cobra.Command{
	Use:     "record <id>",
	Short:   "Load and print a custody record.",
	Long:    "Load and print a custody record.",
	Example: "custodyctl record 12",
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

		rec, err := reg.Fetch(ctx, id)
		if err != nil {
			return err
		}

		deep, _ := c.Flags().GetBool("deep")
		if deep {
			fmt.Printf("%s", spew.Sdump(rec))
			return nil
		}

		fmt.Printf("# Record %d\n\n", rec.ID)
		return dumpJSON(rec)
	},
}

func init() {
	cmdRecord.Flags().Bool("deep", false, "Dump the full record structure")
}
