package commands

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newGlobCommand(opts *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "glob PATTERN",
		Short: "Expand a path pattern",
		Long: `Expand PATTERN against the backend that owns it.

Local patterns support ** for recursive matches. Remote sftp:// patterns are
returned unchanged.

Examples:
  sftpfs glob './data/**/*.csv'`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, err := loadRuntime(cmd.Context(), opts)
			if err != nil {
				return err
			}
			defer rt.Close()

			matches, err := rt.Registry.Glob(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			for _, match := range matches {
				fmt.Fprintln(cmd.OutOrStdout(), match)
			}
			return nil
		},
	}
}
