package commands

import (
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/diogo/chatbridge/internal/config"
	"github.com/diogo/chatbridge/internal/render"
)

// NewConfigCmd creates a new config command
func NewConfigCmd(deps *Dependencies) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Show or change settings",
		Long: `Show or change chatbridge settings.

Settings are stored in ~/.chatbridge/config.json. CHATBRIDGE_* environment
variables (also read from a .env file in the working directory) override
the file, and command-line flags override both.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return showConfig(cmd, deps.Config)
		},
	}

	cmd.AddCommand(
		&cobra.Command{
			Use:   "show",
			Short: "Show the effective settings",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				return showConfig(cmd, deps.Config)
			},
		},
		&cobra.Command{
			Use:   "get <key>",
			Short: "Print one effective setting",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				value, err := deps.Config.Get(args[0])
				if err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), value)
				return nil
			},
		},
		&cobra.Command{
			Use:   "set <key> <value>",
			Short: "Change a setting in the config file",
			Long: `Change a setting in the config file.

Keys: ` + strings.Join(config.Keys(), ", "),
			Args: cobra.ExactArgs(2),
			RunE: func(cmd *cobra.Command, args []string) error {
				return setConfig(cmd, args[0], args[1])
			},
		},
		&cobra.Command{
			Use:   "path",
			Short: "Print the config file path",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				path, err := config.GetConfigPath()
				if err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), path)
				return nil
			},
		},
	)

	return cmd
}

func showConfig(cmd *cobra.Command, cfg config.Config) error {
	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
	for _, key := range config.Keys() {
		value, err := cfg.Get(key)
		if err != nil {
			return err
		}
		if key == "identity_api_key" {
			value = maskSecret(value)
		}
		if value == "" {
			value = dimStyle.Render("(unset)")
		}
		_, _ = fmt.Fprintf(w, "%s\t%s\n", keyStyle.Render(key), value)
	}
	return w.Flush()
}

// setConfig changes the file configuration only, so environment
// overrides are never written back to disk.
func setConfig(cmd *cobra.Command, key, value string) error {
	cfg, err := config.LoadConfig()
	if err != nil {
		return err
	}

	if strings.EqualFold(key, "markdown.style") {
		if err := render.ValidateStyle(value); err != nil {
			return err
		}
	}

	if err := cfg.Set(key, value); err != nil {
		return err
	}
	if err := config.SaveConfig(cfg); err != nil {
		return err
	}

	stored, _ := cfg.Get(key)
	printSuccess(cmd.ErrOrStderr(), "%s = %s", strings.ToLower(key), stored)
	return nil
}

func maskSecret(s string) string {
	if len(s) <= 8 {
		return strings.Repeat("*", len(s))
	}
	return s[:4] + strings.Repeat("*", len(s)-8) + s[len(s)-4:]
}
