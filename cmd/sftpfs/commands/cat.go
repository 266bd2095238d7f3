package commands

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
)

func newCatCommand(opts *globalOptions) *cobra.Command {
	var (
		offset int64
		length int64
	)

	cmd := &cobra.Command{
		Use:   "cat PATH",
		Short: "Write a file to stdout",
		Long: `Write the contents of a remote or local file to stdout.

Use --offset and --length to print a section of the file. Sections are read
with positional reads, so the rest of the file is never transferred.

Examples:
  # Print a whole remote file
  sftpfs cat sftp://deploy@example.com/var/log/app.log

  # Print 512 bytes starting at byte 1024
  sftpfs cat --offset 1024 --length 512 sftp://example.com:2222/data/blob.bin`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if offset < 0 {
				return fmt.Errorf("--offset must not be negative")
			}

			rt, err := loadRuntime(cmd.Context(), opts)
			if err != nil {
				return err
			}
			defer rt.Close()

			f, err := rt.Registry.Open(cmd.Context(), args[0], os.O_RDONLY)
			if err != nil {
				return err
			}
			defer f.Close()

			remaining := f.Size() - offset
			if remaining < 0 {
				remaining = 0
			}
			if length >= 0 && length < remaining {
				remaining = length
			}

			_, err = io.Copy(cmd.OutOrStdout(), io.NewSectionReader(f, offset, remaining))
			return err
		},
	}

	cmd.Flags().Int64Var(&offset, "offset", 0, "start printing at byte N")
	cmd.Flags().Int64Var(&length, "length", -1, "print at most N bytes (-1 for the rest of the file)")
	return cmd
}
