package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newSeedCmd(c *cli) *cobra.Command {
	var migrate bool

	cmd := &cobra.Command{
		Use:   "seed FILE",
		Short: "Load a YAML fixture into the database",
		Long: `Load a YAML fixture into the configured database in one transaction.

The fixture lists tables in insertion order:

  tables:
    - name: courses
      rows:
        - {id: 2, fullname: Biology 101, shortname: BIO101}
    - name: modules
      rows:
        - {id: 1, name: forum, visible: 1}`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			store, err := openStore(ctx, c.cfg.Storage, migrate)
			if err != nil {
				return err
			}
			defer store.Close()

			n, err := seedStore(ctx, store, args[0])
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "inserted %d row(s)\n", n)
			return nil
		},
	}

	cmd.Flags().BoolVar(&migrate, "migrate", false, "apply pending migrations first")
	return cmd
}
