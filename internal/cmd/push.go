package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/yacchi/sitetheme"
	"github.com/yacchi/sitetheme/format"
	"github.com/yacchi/sitetheme/internal/log"
	"github.com/yacchi/sitetheme/theme"
)

func newPushCommand(opts *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "push <file>",
		Short: "Persist a configuration file as the current theme",
		Long: `Reads a configuration file (YAML, TOML, JSON or JSONC) and saves it as the
current theme. Every running "sitetheme watch" on the same store applies it.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			logger := log.WithComponent("cli")

			data, err := os.ReadFile(args[0])
			if err != nil {
				return fmt.Errorf("failed to read file %q: %w", args[0], err)
			}
			tree, err := format.DecodeFile(args[0], data)
			if err != nil {
				return err
			}

			st, err := opts.openStorage(ctx)
			if err != nil {
				return err
			}
			defer st.Close()

			engine := sitetheme.NewEngine(theme.NewState(), st, sitetheme.WithLogger(log.WithComponent("engine")))
			if err := engine.Save(ctx, sitetheme.Config(tree)); err != nil {
				return err
			}

			logger.Info().
				Str("event", "config.pushed").
				Str("file", args[0]).
				Str("storage", string(st.Type())).
				Int("properties", engine.State().Len()).
				Msg("configuration saved")
			return nil
		},
	}
}
