package commands

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/diogo/chatbridge/internal/chat"
	"github.com/diogo/chatbridge/internal/history"
	"github.com/diogo/chatbridge/internal/logging"
	"github.com/diogo/chatbridge/internal/render"
	"github.com/diogo/chatbridge/internal/tui"
)

// NewChatCmd creates the chat command
func NewChatCmd(deps *Dependencies) *cobra.Command {
	var sessionRef string
	var isComplex bool

	cmd := &cobra.Command{
		Use:   "chat",
		Short: "Start an interactive chat session",
		Long: `Start an interactive chat session.

The chat keeps the conversation and the backend session across messages.
Type /help for commands, and 'exit', '/exit' or Ctrl+C to leave.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runChat(cmd, deps, sessionRef, isComplex)
		},
	}

	cmd.Flags().StringVarP(&sessionRef, "session", "s", "", "Resume a saved session (@last, index, ID or title)")
	cmd.Flags().BoolVar(&isComplex, "complex", false, "Start in the slower, more thorough answer mode")
	return cmd
}

func runChat(cmd *cobra.Command, deps *Dependencies, sessionRef string, isComplex bool) error {
	// The alt-screen owns the terminal; logs only go to --log-file.
	if logFile, _ := cmd.Flags().GetString("log-file"); logFile == "" {
		logging.SetOutput(io.Discard)
	}

	var chatOpts []chat.Option
	if deps.Config.EnableTTS {
		speaker, _, err := deps.speaker()
		if err != nil {
			return fmt.Errorf("failed to set up speech: %w", err)
		}
		chatOpts = append(chatOpts, chat.WithNotifier(speaker))
	}

	coord, err := deps.newCoordinator(isComplex || deps.Config.IsComplex, chatOpts...)
	if err != nil {
		return err
	}

	opts := []tui.ModelOption{
		tui.WithContext(cmd.Context()),
		tui.WithRenderOptions(render.FromConfig(deps.Config.Markdown)),
	}

	store, err := deps.sessions()
	if err != nil {
		printWarning(cmd.ErrOrStderr(), "Session history disabled: %v", err)
	} else {
		opts = append(opts, tui.WithSessionStore(store, deps.Config.AutoSave))
	}

	if sessionRef != "" {
		if store == nil {
			return fmt.Errorf("cannot resume %q without session history", sessionRef)
		}
		sess, err := history.NewResolver(store).ResolveSession(sessionRef)
		if err != nil {
			return fmt.Errorf("failed to resolve session: %w", err)
		}
		opts = append(opts, tui.WithSession(sess))
	}

	return deps.TUI.RunChat(coord, opts...)
}
