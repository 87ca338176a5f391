// Package commands provides CLI commands for chatbridge.
package commands

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/diogo/chatbridge/internal/config"
	"github.com/diogo/chatbridge/internal/logging"
	"github.com/diogo/chatbridge/internal/render"
	"github.com/diogo/chatbridge/internal/tui"
)

var (
	// Version info (set at build time)
	Version   = "0.1.0"
	BuildTime = "unknown"
)

// globalFlags are the persistent flags shared by every command
type globalFlags struct {
	backend  string
	logLevel string
	logFile  string
}

// NewRootCmd creates the command tree
func NewRootCmd(deps *Dependencies) *cobra.Command {
	if deps == nil {
		deps = NewDependencies()
	}

	var flags globalFlags
	ask := &askOptions{}

	rootCmd := &cobra.Command{
		Use:   "chatbridge [prompt]",
		Short: "Terminal client for the chat backend",
		Long: `chatbridge talks to the chat backend from the terminal. It sends prompts
with the conversation so far, keeps the backend session bound, speaks replies
and stores conversations locally.

Examples:
  chatbridge login                      Sign in with email and password
  chatbridge chat                       Start interactive chat
  chatbridge "What is Go?"              Send a single prompt
  chatbridge -f prompt.md               Read prompt from file
  cat prompt.md | chatbridge            Read prompt from stdin
  chatbridge "More" --session @last     Continue the last saved session
  chatbridge talk question.webm         Ask with a voice recording
  chatbridge history list               List saved sessions`,
		Args:          cobra.MaximumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: false,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return setup(deps, flags)
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			_ = logging.Close()
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			if v, _ := cmd.Flags().GetBool("version"); v {
				fmt.Fprintf(cmd.OutOrStdout(), "chatbridge %s (built %s)\n", Version, BuildTime)
				return nil
			}

			prompt, err := readPrompt(cmd, ask.file, args)
			if err != nil {
				return err
			}
			if prompt == "" {
				return cmd.Help()
			}
			return sendPrompt(cmd, deps, ask, prompt)
		},
	}

	rootCmd.PersistentFlags().StringVar(&flags.backend, "backend", "", "Backend base URL (overrides config and CHATBRIDGE_BACKEND_URL)")
	rootCmd.PersistentFlags().StringVar(&flags.logLevel, "log-level", "", "Log level: debug, info, warn, error")
	rootCmd.PersistentFlags().StringVar(&flags.logFile, "log-file", "", "Append logs to this file instead of stderr")
	rootCmd.Flags().BoolP("version", "v", false, "Show version and exit")
	addAskFlags(rootCmd, ask)

	rootCmd.AddCommand(
		NewAskCmd(deps),
		NewChatCmd(deps),
		NewTalkCmd(deps),
		NewSpeakCmd(deps),
		NewLoginCmd(deps),
		NewSignupCmd(deps),
		NewLogoutCmd(deps),
		NewWhoamiCmd(deps),
		NewHistoryCmd(deps),
		NewConfigCmd(deps),
	)

	return rootCmd
}

// setup loads the configuration, applies flag overrides and configures
// logging and the TUI palette. Flags win over the environment, which wins
// over the config file.
func setup(deps *Dependencies, flags globalFlags) error {
	load := deps.LoadConfig
	if load == nil {
		load = func() (config.Config, error) { return config.Load(".env") }
	}

	cfg, err := load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	if flags.backend != "" {
		if err := cfg.Set("backend_url", flags.backend); err != nil {
			return fmt.Errorf("invalid --backend: %w", err)
		}
	}
	if flags.logLevel != "" {
		cfg.LogLevel = strings.ToLower(flags.logLevel)
	}
	deps.Config = cfg

	if err := logging.Configure(cfg.LogLevel, flags.logFile); err != nil {
		return fmt.Errorf("failed to open log file: %w", err)
	}

	tui.ApplyPalette(render.PaletteFor(cfg.Markdown.Style))
	return nil
}

// Execute runs the root command
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := NewRootCmd(NewDependencies()).ExecuteContext(ctx); err != nil {
		stop()
		os.Exit(1)
	}
}
