package cmd

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"
)

func newGetCommand(opts *globalOptions) *cobra.Command {
	var defaultValue string

	cmd := &cobra.Command{
		Use:   "get <path>",
		Short: "Print the configuration value at a dotted path",
		Long: `Prints the value at a dotted path such as "colors.primary" or "text.guestTitle".
Strings are printed as is, objects and other values as JSON. When the path does
not resolve, the --default value is printed instead.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := opts.loadStore(cmd.Context())
			if err != nil {
				return err
			}

			value := store.Get(args[0], nil)
			if value == nil {
				if !cmd.Flags().Changed("default") {
					return fmt.Errorf("no value at %q", args[0])
				}
				value = defaultValue
			}

			if s, ok := value.(string); ok {
				_, err = fmt.Fprintln(cmd.OutOrStdout(), s)
				return err
			}
			data, err := json.MarshalIndent(value, "", "  ")
			if err != nil {
				return fmt.Errorf("encode value: %w", err)
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), string(data))
			return err
		},
	}

	cmd.Flags().StringVar(&defaultValue, "default", "", "value printed when the path does not resolve")
	return cmd
}
