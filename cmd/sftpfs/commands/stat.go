package commands

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
)

type statOutput struct {
	Path       string    `json:"path"`
	Backend    string    `json:"backend"`
	Size       int64     `json:"size"`
	ModifiedAt time.Time `json:"modified_at"`
}

func newStatCommand(opts *globalOptions) *cobra.Command {
	var output string

	cmd := &cobra.Command{
		Use:   "stat PATH",
		Short: "Show size and modification time of a file",
		Long: `Open a file and report its size and modification time.

Examples:
  # Show attributes as text
  sftpfs stat sftp://example.com/data/report.csv

  # Show as JSON
  sftpfs stat -o json sftp://example.com/data/report.csv`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if output != "text" && output != "json" {
				return fmt.Errorf("unsupported output format %q (text|json)", output)
			}

			rt, err := loadRuntime(cmd.Context(), opts)
			if err != nil {
				return err
			}
			defer rt.Close()

			backend, err := rt.Registry.ForPath(args[0])
			if err != nil {
				return err
			}
			f, err := backend.Open(cmd.Context(), args[0], os.O_RDONLY)
			if err != nil {
				return err
			}
			defer f.Close()

			out := statOutput{
				Path:       f.Path(),
				Backend:    backend.Name(),
				Size:       f.Size(),
				ModifiedAt: f.ModTime().UTC(),
			}

			w := cmd.OutOrStdout()
			if output == "json" {
				enc := json.NewEncoder(w)
				enc.SetIndent("", "  ")
				return enc.Encode(out)
			}
			fmt.Fprintf(w, "Path:     %s\n", out.Path)
			fmt.Fprintf(w, "Backend:  %s\n", out.Backend)
			fmt.Fprintf(w, "Size:     %d\n", out.Size)
			fmt.Fprintf(w, "Modified: %s\n", out.ModifiedAt.Format(time.RFC3339))
			return nil
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", "text", "output format (text|json)")
	return cmd
}
