// Package commands implements the sftpfs command line.
package commands

import (
	"github.com/spf13/cobra"
)

var (
	// Version information injected at build time.
	Version = "dev"
	Commit  = "none"
	Date    = "unknown"
)

// globalOptions holds the persistent flags shared by every subcommand.
type globalOptions struct {
	configPath         string
	logLevel           string
	username           string
	password           string
	identityFile       string
	privateKeyPassword string
}

// NewRootCommand builds the command tree. Each call returns independent flag
// state so tests can run commands side by side.
func NewRootCommand() *cobra.Command {
	opts := &globalOptions{}

	rootCmd := &cobra.Command{
		Use:   "sftpfs",
		Short: "Read remote files over SFTP",
		Long: `sftpfs opens sftp://[user[:password]@]host[:port]/path endpoints as
read-only seekable files. Plain paths and file:// URLs are read from the
local disk.

Credentials missing from an endpoint are taken from the command line, the
persisted settings store and the sftp section of the configuration file,
in that order.

Use "sftpfs [command] --help" for more information about a command.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	flags := rootCmd.PersistentFlags()
	flags.StringVar(&opts.configPath, "config", "", "config file or directory (default: ./config)")
	flags.StringVar(&opts.logLevel, "log-level", "", "log level (debug|info|warn|error)")
	flags.StringVar(&opts.username, "username", "", "fallback SSH username")
	flags.StringVar(&opts.password, "password", "", "fallback SSH password")
	flags.StringVar(&opts.identityFile, "identity-file", "", "fallback private key file")
	flags.StringVar(&opts.privateKeyPassword, "private-key-password", "", "passphrase for the private key")

	rootCmd.AddCommand(newCatCommand(opts))
	rootCmd.AddCommand(newStatCommand(opts))
	rootCmd.AddCommand(newExistsCommand(opts))
	rootCmd.AddCommand(newGlobCommand(opts))
	rootCmd.AddCommand(newSettingsCommand(opts))
	rootCmd.AddCommand(newVersionCommand())

	rootCmd.CompletionOptions.DisableDefaultCmd = true
	return rootCmd
}
