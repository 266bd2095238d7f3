package commands

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"
)

// ErrNotExist is returned by exists with --quiet when the file is missing.
var ErrNotExist = errors.New("file does not exist")

func newExistsCommand(opts *globalOptions) *cobra.Command {
	var quiet bool

	cmd := &cobra.Command{
		Use:   "exists PATH",
		Short: "Report whether a file exists and holds data",
		Long: `Report whether PATH can be opened and is non-empty.

Any failure to connect, authenticate or open the file counts as missing.
With --quiet nothing is printed and a missing file exits non-zero.

Examples:
  sftpfs exists sftp://example.com/data/report.csv
  sftpfs exists --quiet sftp://example.com/data/report.csv && echo present`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, err := loadRuntime(cmd.Context(), opts)
			if err != nil {
				return err
			}
			defer rt.Close()

			exists := rt.Registry.Exists(cmd.Context(), args[0])
			if quiet {
				if !exists {
					return ErrNotExist
				}
				return nil
			}
			fmt.Fprintln(cmd.OutOrStdout(), exists)
			return nil
		},
	}

	cmd.Flags().BoolVarP(&quiet, "quiet", "q", false, "print nothing, signal with the exit status")
	return cmd
}
