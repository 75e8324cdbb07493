package commands

import (
	"fmt"

	json "github.com/goccy/go-json"
	"github.com/spf13/cobra"

	"github.com/satishbabariya/bear/internal/ui"
	"github.com/satishbabariya/bear/internal/version"
)

func newVersionCommand() *cobra.Command {
	var (
		asJSON  bool
		require string
	)

	cmd := &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			info := version.Get()
			if require != "" {
				ok, err := info.AtLeast(require)
				if err != nil {
					return err
				}
				if !ok {
					ui.PrintWarning("bear %s does not satisfy %q", info.Version, require)
				}
			}
			if asJSON {
				return json.NewEncoder(cmd.OutOrStdout()).Encode(info)
			}
			fmt.Fprintln(cmd.OutOrStdout(), info.FullString())
			return nil
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "print as JSON")
	cmd.Flags().StringVar(&require, "require", "", `warn unless the version satisfies a constraint such as ">= 0.2"`)
	return cmd
}
