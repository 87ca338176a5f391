package commands

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/diogo/chatbridge/internal/api"
)

// NewTalkCmd creates the talk command
func NewTalkCmd(deps *Dependencies) *cobra.Command {
	o := &askOptions{}
	var transcribeOnly bool

	cmd := &cobra.Command{
		Use:   "talk <audio-file>",
		Short: "Transcribe a voice recording and send it as a prompt",
		Long: fmt.Sprintf(`Upload a voice recording for transcription and send the recognized
text as a prompt, exactly as if it had been typed.

Supported types: %s`, strings.Join(api.SupportedAudioTypes(), ", ")),
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTalk(cmd, deps, o, args[0], transcribeOnly)
		},
	}

	cmd.Flags().BoolVar(&transcribeOnly, "transcribe-only", false, "Print the transcription without sending it")
	cmd.Flags().StringVarP(&o.output, "output", "o", "", "Save response to file")
	cmd.Flags().StringVarP(&o.session, "session", "s", "", "Continue a saved session (@last, index, ID or title)")
	cmd.Flags().BoolVar(&o.copy, "copy", false, "Copy the response to the clipboard")
	cmd.Flags().BoolVar(&o.complex, "complex", false, "Use the slower, more thorough answer mode")
	cmd.Flags().BoolVar(&o.save, "save", false, "Save the exchange as a new session")
	return cmd
}

func runTalk(cmd *cobra.Command, deps *Dependencies, o *askOptions, path string, transcribeOnly bool) error {
	ctx := cmd.Context()
	errOut := cmd.ErrOrStderr()

	backend, err := deps.backend()
	if err != nil {
		return err
	}
	tokens, err := deps.tokens()
	if err != nil {
		return err
	}

	spin := newSpinner(errOut, "Transcribing audio")
	spin.start()

	token, err := tokens.IDToken(ctx)
	if err != nil {
		spin.stopWithError()
		fmt.Fprintln(errOut, formatErrorMessage(err, "Transcription failed"))
		return fmt.Errorf("transcription failed: %w", err)
	}

	transcription, err := backend.TranscribeFile(ctx, token, path)
	if err != nil {
		spin.stopWithError()
		fmt.Fprintln(errOut, formatErrorMessage(err, "Transcription failed"))
		return fmt.Errorf("transcription failed: %w", err)
	}
	spin.stopWithSuccess("Transcribed")

	prompt := strings.TrimSpace(transcription.Prompt)
	if prompt == "" {
		return fmt.Errorf("no speech recognized in %s", path)
	}

	if transcribeOnly {
		fmt.Fprintln(cmd.OutOrStdout(), prompt)
		return nil
	}

	fmt.Fprintf(errOut, "%s %s\n", keyStyle.Render("You said:"), prompt)
	return sendPrompt(cmd, deps, o, prompt)
}
