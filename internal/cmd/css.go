package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/yacchi/sitetheme"
	"github.com/yacchi/sitetheme/internal/log"
	"github.com/yacchi/sitetheme/theme"
)

func newCSSCommand(opts *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "css",
		Short: "Print the custom properties of the current theme",
		Long: `Loads the persisted theme and prints it as a ":root" style block.
When nothing has been persisted yet, the colors of the site configuration are
used instead.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			st, err := opts.openStorage(ctx)
			if err != nil {
				return err
			}
			defer st.Close()

			engine := sitetheme.NewEngine(theme.NewState(), st, sitetheme.WithLogger(log.WithComponent("engine")))
			if !engine.LoadAndApply(ctx) {
				store, err := opts.loadStore(ctx)
				if err != nil {
					return err
				}
				engine.ApplyConfiguration(store.Config())
			}

			_, err = fmt.Fprint(cmd.OutOrStdout(), engine.State().CSS())
			return err
		},
	}
}
