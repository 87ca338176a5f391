package commands

import (
	"fmt"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"
)

// NewSpeakCmd creates the speak command
func NewSpeakCmd(deps *Dependencies) *cobra.Command {
	var file, output string
	var play bool

	cmd := &cobra.Command{
		Use:   "speak [text...]",
		Short: "Convert text to speech",
		Long: `Convert text to speech with the backend and save the audio.

Without --output the file is written to the configured audio directory.
With --play the configured audio_player is run on the result.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			text, err := readPrompt(cmd, file, args)
			if err != nil {
				return err
			}
			if text == "" {
				return fmt.Errorf("text cannot be empty")
			}
			return runSpeak(cmd, deps, text, output, play)
		},
	}

	cmd.Flags().StringVarP(&file, "file", "f", "", "Read text from file")
	cmd.Flags().StringVarP(&output, "output", "o", "", "Audio file path (extension added when missing)")
	cmd.Flags().BoolVar(&play, "play", false, "Play the audio after saving it")
	return cmd
}

func runSpeak(cmd *cobra.Command, deps *Dependencies, text, output string, play bool) error {
	ctx := cmd.Context()
	errOut := cmd.ErrOrStderr()

	speaker, dir, err := deps.speaker()
	if err != nil {
		return err
	}

	if output == "" {
		output = filepath.Join(dir, "speech-"+time.Now().Format("20060102-150405"))
	}

	spin := newSpinner(errOut, "Synthesizing speech")
	spin.start()

	path, err := speaker.SpeakToFile(ctx, text, output)
	if err != nil {
		spin.stopWithError()
		fmt.Fprintln(errOut, formatErrorMessage(err, "Speech failed"))
		return fmt.Errorf("speech failed: %w", err)
	}
	spin.stopWithSuccess("Done")

	printSuccess(errOut, "Audio saved to %s", path)
	fmt.Fprintln(cmd.OutOrStdout(), path)

	if play {
		if deps.Config.AudioPlayer == "" {
			printWarning(errOut, "No audio_player configured; run 'chatbridge config set audio_player <command>'")
			return nil
		}
		if err := speaker.Play(ctx, path); err != nil {
			return err
		}
	}
	return nil
}
