package commands

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/diogo/chatbridge/internal/history"
	"github.com/diogo/chatbridge/internal/render"
)

// askOptions are the flags of a one-shot send
type askOptions struct {
	file    string
	output  string
	session string
	copy    bool
	complex bool
	save    bool
}

func addAskFlags(cmd *cobra.Command, o *askOptions) {
	cmd.Flags().StringVarP(&o.file, "file", "f", "", "Read prompt from file")
	cmd.Flags().StringVarP(&o.output, "output", "o", "", "Save response to file")
	cmd.Flags().StringVarP(&o.session, "session", "s", "", "Continue a saved session (@last, index, ID or title)")
	cmd.Flags().BoolVar(&o.copy, "copy", false, "Copy the response to the clipboard")
	cmd.Flags().BoolVar(&o.complex, "complex", false, "Use the slower, more thorough answer mode")
	cmd.Flags().BoolVar(&o.save, "save", false, "Save the exchange as a new session")
}

// NewAskCmd creates the ask command
func NewAskCmd(deps *Dependencies) *cobra.Command {
	o := &askOptions{}

	cmd := &cobra.Command{
		Use:   "ask [prompt...]",
		Short: "Send a single prompt and print the reply",
		Long: `Send a single prompt and print the reply.

The prompt is taken from --file, then stdin, then the arguments.
With --session the saved conversation is sent along and the session is
updated with the new exchange.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			prompt, err := readPrompt(cmd, o.file, args)
			if err != nil {
				return err
			}
			if prompt == "" {
				return fmt.Errorf("prompt cannot be empty")
			}
			return sendPrompt(cmd, deps, o, prompt)
		},
	}

	addAskFlags(cmd, o)
	return cmd
}

// readPrompt returns the prompt from the file flag, piped stdin or args
func readPrompt(cmd *cobra.Command, file string, args []string) (string, error) {
	if file != "" {
		data, err := os.ReadFile(file)
		if err != nil {
			return "", fmt.Errorf("failed to read file: %w", err)
		}
		return strings.TrimSpace(string(data)), nil
	}

	if in := cmd.InOrStdin(); hasPipedInput(in) {
		data, err := io.ReadAll(in)
		if err != nil {
			return "", fmt.Errorf("failed to read stdin: %w", err)
		}
		if text := strings.TrimSpace(string(data)); text != "" {
			return text, nil
		}
	}

	return strings.TrimSpace(strings.Join(args, " ")), nil
}

// hasPipedInput reports whether in carries data rather than a terminal
func hasPipedInput(in io.Reader) bool {
	f, ok := in.(*os.File)
	if !ok {
		return in != nil
	}
	stat, err := f.Stat()
	if err != nil {
		return false
	}
	return stat.Mode()&os.ModeCharDevice == 0
}

// sendPrompt sends prompt through a coordinator and prints the reply
func sendPrompt(cmd *cobra.Command, deps *Dependencies, o *askOptions, prompt string) error {
	ctx := cmd.Context()
	out := cmd.OutOrStdout()
	errOut := cmd.ErrOrStderr()

	coord, err := deps.newCoordinator(o.complex || deps.Config.IsComplex)
	if err != nil {
		return err
	}

	var store *history.Store
	var sess *history.Session
	if o.session != "" || o.save {
		store, err = deps.sessions()
		if err != nil {
			return err
		}
	}
	if o.session != "" {
		sess, err = history.NewResolver(store).ResolveSession(o.session)
		if err != nil {
			return fmt.Errorf("failed to resolve session: %w", err)
		}
		coord.LoadSession(sess.ToSaved())
	}

	spin := newSpinner(errOut, "Waiting for the assistant")
	spin.start()

	coord.Send(ctx, prompt)
	if err := coord.Err(); err != nil {
		spin.stopWithError()
		fmt.Fprintln(errOut, formatErrorMessage(err, "Chat failed"))
		return fmt.Errorf("chat failed: %w", err)
	}
	spin.stopWithSuccess("Done")

	reply, _ := coord.Last()

	switch {
	case sess != nil:
		if _, err := store.Update(sess.ID, coord.Saved()); err != nil {
			printWarning(errOut, "Failed to update session: %v", err)
		}
	case o.save:
		saved, err := store.Save("", coord.Saved())
		if err != nil {
			printWarning(errOut, "Failed to save session: %v", err)
		} else {
			printSuccess(errOut, "Saved session %q", saved.Title)
		}
	}

	if o.copy || deps.Config.CopyToClipboard {
		if err := deps.copyText(reply.Content); err != nil {
			printWarning(errOut, "Failed to copy to clipboard: %v", err)
		} else {
			printSuccess(errOut, "Copied to clipboard")
		}
	}

	if deps.Config.EnableTTS {
		if speaker, _, err := deps.speaker(); err != nil {
			printWarning(errOut, "Speech unavailable: %v", err)
		} else if err := speaker.NotifyResponse(ctx, reply.Content); err != nil {
			printWarning(errOut, "Failed to speak the reply: %v", err)
		}
	}

	if o.output != "" {
		if err := os.WriteFile(o.output, []byte(plainReply(reply)), 0o644); err != nil {
			return fmt.Errorf("failed to write output file: %w", err)
		}
		printSuccess(errOut, "Response saved to %s", o.output)
		return nil
	}

	printReply(out, reply, render.FromConfig(deps.Config.Markdown))
	return nil
}
