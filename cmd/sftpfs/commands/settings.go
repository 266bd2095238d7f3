package commands

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/charlesng35/sftpfs/internal/settings"
)

var errNoStore = errors.New("settings store is disabled (settings.driver is none)")

func newSettingsCommand(opts *globalOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "settings",
		Short: "Manage persisted sftp settings",
		Long: `Manage the fallback credentials kept in the settings store.

Recognised keys: identity_file, private_key, private_key_password, username,
password. The legacy sftp_ prefix is accepted. Secret keys are encrypted when
settings.encryption_key is configured.

Subcommands:
  set    Store a value
  get    Print a value
  unset  Remove a value
  list   List stored values`,
	}

	cmd.AddCommand(newSettingsSetCommand(opts))
	cmd.AddCommand(newSettingsGetCommand(opts))
	cmd.AddCommand(newSettingsUnsetCommand(opts))
	cmd.AddCommand(newSettingsListCommand(opts))
	return cmd
}

func withStore(ctx context.Context, opts *globalOptions, fn func(*settings.Store) error) error {
	rt, err := loadRuntime(ctx, opts)
	if err != nil {
		return err
	}
	defer rt.Close()

	if rt.Store == nil {
		return errNoStore
	}
	return fn(rt.Store)
}

func newSettingsSetCommand(opts *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "set KEY VALUE",
		Short: "Store a setting",
		Long: `Store a setting.

Examples:
  sftpfs settings set username deploy
  sftpfs settings set identity_file ~/.ssh/id_ed25519`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withStore(cmd.Context(), opts, func(store *settings.Store) error {
				if err := store.Set(cmd.Context(), args[0], args[1]); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Setting %s stored\n", settings.Normalize(args[0]))
				return nil
			})
		},
	}
}

func newSettingsGetCommand(opts *globalOptions) *cobra.Command {
	var reveal bool

	cmd := &cobra.Command{
		Use:   "get KEY",
		Short: "Print a setting",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withStore(cmd.Context(), opts, func(store *settings.Store) error {
				value, found, err := store.Setting(cmd.Context(), args[0])
				if err != nil {
					return err
				}
				if !found {
					return fmt.Errorf("setting %s is not set", settings.Normalize(args[0]))
				}
				if settings.IsSecret(args[0]) && !reveal {
					value = "***"
				}
				fmt.Fprintln(cmd.OutOrStdout(), value)
				return nil
			})
		},
	}

	cmd.Flags().BoolVar(&reveal, "reveal", false, "print secret values in clear text")
	return cmd
}

func newSettingsUnsetCommand(opts *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "unset KEY",
		Short: "Remove a setting",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withStore(cmd.Context(), opts, func(store *settings.Store) error {
				deleted, err := store.Unset(cmd.Context(), args[0])
				if err != nil {
					return err
				}
				if !deleted {
					fmt.Fprintf(cmd.OutOrStdout(), "Setting %s was not set\n", settings.Normalize(args[0]))
					return nil
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Setting %s removed\n", settings.Normalize(args[0]))
				return nil
			})
		},
	}
}

func newSettingsListCommand(opts *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List stored settings",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withStore(cmd.Context(), opts, func(store *settings.Store) error {
				entries, err := store.List(cmd.Context())
				if err != nil {
					return err
				}
				if len(entries) == 0 {
					fmt.Fprintln(cmd.OutOrStdout(), "No settings stored.")
					return nil
				}

				printTable(cmd.OutOrStdout(), SettingList(entries))
				return nil
			})
		},
	}
}

