package commands

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/diogo/chatbridge/internal/history"
	"github.com/diogo/chatbridge/internal/models"
	"github.com/diogo/chatbridge/internal/render"
)

// NewHistoryCmd creates the history command and its subcommands
func NewHistoryCmd(deps *Dependencies) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "history",
		Short: "Manage saved sessions",
		Long: `View and manage your locally saved sessions.

Sessions can be referenced as:
` + history.ListAliases(),
	}

	cmd.AddCommand(
		newHistoryListCmd(deps),
		newHistoryShowCmd(deps),
		newHistoryDeleteCmd(deps),
		newHistoryClearCmd(deps),
		newHistoryRenameCmd(deps),
		newHistoryFavoriteCmd(deps),
		newHistoryExportCmd(deps),
		newHistorySearchCmd(deps),
	)
	return cmd
}

// resolveSession opens the store and resolves ref to a session
func resolveSession(deps *Dependencies, ref string) (*history.Store, *history.Session, error) {
	store, err := deps.sessions()
	if err != nil {
		return nil, nil, err
	}
	sess, err := history.NewResolver(store).ResolveSession(ref)
	if err != nil {
		return nil, nil, err
	}
	return store, sess, nil
}

func newHistoryListCmd(deps *Dependencies) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List saved sessions",
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := deps.sessions()
			if err != nil {
				return err
			}

			sessions, err := store.List()
			if err != nil {
				return fmt.Errorf("failed to list sessions: %w", err)
			}

			out := cmd.OutOrStdout()
			if len(sessions) == 0 {
				fmt.Fprintln(out, "No saved sessions.")
				return nil
			}

			favorites, err := store.Favorites()
			if err != nil {
				return err
			}

			now := time.Now()
			w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
			_, _ = fmt.Fprintln(w, "#\tID\tTITLE\tTURNS\tUPDATED")
			_, _ = fmt.Fprintln(w, "-\t--\t-----\t-----\t-------")

			for i, sess := range sessions {
				title := truncate(sess.Title, 40)
				if favorites[sess.ID] {
					title = "★ " + title
				}
				_, _ = fmt.Fprintf(w, "%d\t%s\t%s\t%d\t%s\n",
					i+1, sess.ID, title, sess.Turns(), history.FormatRelativeTime(sess.UpdatedAt, now))
			}

			return w.Flush()
		},
	}
}

func newHistoryShowCmd(deps *Dependencies) *cobra.Command {
	var full, markdown bool

	cmd := &cobra.Command{
		Use:   "show <ref>",
		Short: "Show a saved session",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			_, sess, err := resolveSession(deps, args[0])
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "ID: %s\n", sess.ID)
			fmt.Fprintf(out, "Title: %s\n", sess.Title)
			if sess.SessionRef != "" {
				fmt.Fprintf(out, "Backend session: %s\n", sess.SessionRef)
			}
			fmt.Fprintf(out, "Created: %s\n", sess.CreatedAt.Format("2006-01-02 15:04:05"))
			fmt.Fprintf(out, "Updated: %s\n", sess.UpdatedAt.Format("2006-01-02 15:04:05"))
			fmt.Fprintf(out, "Turns: %d\n", sess.Turns())
			fmt.Fprintln(out)

			opts := render.FromConfig(deps.Config.Markdown)
			if !isTerminal(out) {
				opts = opts.WithStyle(render.StyleNoTTY)
			}
			for i, entry := range sess.History {
				role := "You"
				if entry.Role != models.RoleUser {
					role = "Assistant"
				}
				fmt.Fprintf(out, "[%d] %s:\n", i+1, role)

				if markdown && entry.Role != models.RoleUser {
					msg := models.Message{Content: entry.Text(), Suggestions: entry.Videos}
					if rendered, err := render.Reply(msg, opts.WithWidth(terminalWidth(out)-4)); err == nil {
						fmt.Fprintln(out, strings.TrimRight(rendered, "\n"))
						fmt.Fprintln(out)
						continue
					}
				}

				content := entry.Text()
				if !full {
					content = truncate(content, 500)
				}
				fmt.Fprintf(out, "  %s\n", strings.ReplaceAll(content, "\n", "\n  "))
				for _, v := range entry.Videos {
					fmt.Fprintf(out, "  ▸ %s %s\n", v.Title, dimStyle.Render(v.URL))
				}
				fmt.Fprintln(out)
			}

			return nil
		},
	}

	cmd.Flags().BoolVar(&full, "full", false, "Do not truncate long turns")
	cmd.Flags().BoolVar(&markdown, "render", false, "Render assistant turns as markdown")
	return cmd
}

func newHistoryDeleteCmd(deps *Dependencies) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <ref>",
		Short: "Delete a saved session",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, sess, err := resolveSession(deps, args[0])
			if err != nil {
				return err
			}

			if err := store.Delete(sess.ID); err != nil {
				return fmt.Errorf("failed to delete: %w", err)
			}

			fmt.Fprintf(cmd.OutOrStdout(), "Deleted session: %s (%s)\n", sess.Title, sess.ID)
			return nil
		},
	}
}

func newHistoryClearCmd(deps *Dependencies) *cobra.Command {
	return &cobra.Command{
		Use:   "clear",
		Short: "Delete all saved sessions",
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := deps.sessions()
			if err != nil {
				return err
			}

			if err := store.ClearAll(); err != nil {
				return fmt.Errorf("failed to clear history: %w", err)
			}

			fmt.Fprintln(cmd.OutOrStdout(), "All sessions deleted.")
			return nil
		},
	}
}

func newHistoryRenameCmd(deps *Dependencies) *cobra.Command {
	return &cobra.Command{
		Use:   "rename <ref> <title...>",
		Short: "Rename a saved session",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, sess, err := resolveSession(deps, args[0])
			if err != nil {
				return err
			}

			title := strings.Join(args[1:], " ")
			if err := store.Rename(sess.ID, title); err != nil {
				return fmt.Errorf("failed to rename: %w", err)
			}

			fmt.Fprintf(cmd.OutOrStdout(), "Renamed %q to %q\n", sess.Title, strings.TrimSpace(title))
			return nil
		},
	}
}

func newHistoryFavoriteCmd(deps *Dependencies) *cobra.Command {
	return &cobra.Command{
		Use:   "favorite <ref>",
		Short: "Toggle a session's favorite mark",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, sess, err := resolveSession(deps, args[0])
			if err != nil {
				return err
			}

			isFav, err := store.ToggleFavorite(sess.ID)
			if err != nil {
				return err
			}

			state := "removed from favorites"
			if isFav {
				state = "marked as favorite"
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s %s\n", sess.Title, state)
			return nil
		},
	}
}

func newHistoryExportCmd(deps *Dependencies) *cobra.Command {
	var format, output string
	var includeRef, noSuggestions bool

	cmd := &cobra.Command{
		Use:   "export <ref>",
		Short: "Export a saved session as markdown or JSON",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, sess, err := resolveSession(deps, args[0])
			if err != nil {
				return err
			}

			if format == "" && strings.EqualFold(filepath.Ext(output), ".json") {
				format = "json"
			}
			exportFormat, err := history.ParseExportFormat(format)
			if err != nil {
				return err
			}

			opts := history.DefaultExportOptions()
			opts.Format = exportFormat
			opts.IncludeSessionRef = includeRef
			opts.IncludeSuggestions = !noSuggestions

			data, err := store.Export(sess.ID, opts)
			if err != nil {
				return fmt.Errorf("failed to export: %w", err)
			}

			if output == "" {
				_, err := cmd.OutOrStdout().Write(data)
				return err
			}

			if err := os.WriteFile(output, data, 0o644); err != nil {
				return fmt.Errorf("failed to write %s: %w", output, err)
			}
			printSuccess(cmd.ErrOrStderr(), "Exported %q to %s", sess.Title, output)
			return nil
		},
	}

	cmd.Flags().StringVar(&format, "format", "", "Export format: markdown or json (default from --output extension, else markdown)")
	cmd.Flags().StringVarP(&output, "output", "o", "", "Write to file instead of stdout")
	cmd.Flags().BoolVar(&includeRef, "include-ref", false, "Include the backend session reference")
	cmd.Flags().BoolVar(&noSuggestions, "no-suggestions", false, "Leave out suggested videos")
	return cmd
}

func newHistorySearchCmd(deps *Dependencies) *cobra.Command {
	var content bool

	cmd := &cobra.Command{
		Use:   "search <term...>",
		Short: "Search saved sessions by title",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := deps.sessions()
			if err != nil {
				return err
			}

			results, err := store.Search(strings.Join(args, " "), content)
			if err != nil {
				return fmt.Errorf("failed to search: %w", err)
			}

			out := cmd.OutOrStdout()
			if len(results) == 0 {
				fmt.Fprintln(out, "No matching sessions.")
				return nil
			}

			for _, r := range results {
				fmt.Fprintf(out, "%s  %s\n", keyStyle.Render(r.Session.ID), r.Session.Title)
				if r.MatchField == "content" {
					fmt.Fprintf(out, "    %s\n", dimStyle.Render(r.MatchSnippet))
				}
			}
			return nil
		},
	}

	cmd.Flags().BoolVarP(&content, "content", "c", false, "Also search the text of each turn")
	return cmd
}

// truncate shortens s to limit runes, adding "..." when cut
func truncate(s string, limit int) string {
	runes := []rune(s)
	if len(runes) <= limit {
		return s
	}
	return string(runes[:limit]) + "..."
}
