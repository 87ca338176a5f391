// Package speech turns assistant replies into audio files and plays them.
package speech

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"github.com/charmbracelet/log"

	"github.com/diogo/chatbridge/internal/logging"
	"github.com/diogo/chatbridge/internal/models"
)

// Synthesizer converts text to audio
type Synthesizer interface {
	Speak(ctx context.Context, text string) (*models.SpeechAudio, error)
}

// Runner executes the audio player
type Runner func(ctx context.Context, name string, args ...string) error

// Speaker writes synthesized replies to disk and optionally plays them.
// It implements chat.ResponseNotifier.
type Speaker struct {
	synth  Synthesizer
	dir    string
	player []string
	run    Runner
	now    func() time.Time
	logger *log.Logger
}

// Option configures a Speaker
type Option func(*Speaker)

// WithPlayer sets the command used to play each file, e.g. "mpv --no-video".
// The file path is appended as the last argument.
func WithPlayer(command string) Option {
	return func(s *Speaker) {
		s.player = strings.Fields(command)
	}
}

// WithRunner replaces how the player is executed
func WithRunner(run Runner) Option {
	return func(s *Speaker) {
		s.run = run
	}
}

// WithClock overrides the clock used to name files
func WithClock(now func() time.Time) Option {
	return func(s *Speaker) {
		s.now = now
	}
}

// WithLogger sets the logger
func WithLogger(l *log.Logger) Option {
	return func(s *Speaker) {
		s.logger = l
	}
}

// NewSpeaker creates a speaker that stores audio under dir
func NewSpeaker(synth Synthesizer, dir string, opts ...Option) *Speaker {
	s := &Speaker{
		synth: synth,
		dir:   dir,
		run:   runCommand,
		now:   time.Now,
	}

	for _, opt := range opts {
		opt(s)
	}

	if s.logger == nil {
		s.logger = logging.WithPrefix("speech")
	}

	return s
}

// NotifyResponse synthesizes text into <dir>/response-<timestamp><ext> and
// plays it when a player is configured.
func (s *Speaker) NotifyResponse(ctx context.Context, text string) error {
	if strings.TrimSpace(text) == "" {
		return nil
	}

	audio, err := s.synth.Speak(ctx, text)
	if err != nil {
		return err
	}

	name := fmt.Sprintf("response-%s%s", s.now().Format("20060102-150405.000"), audio.Extension())
	path := filepath.Join(s.dir, name)
	if err := writeAudio(path, audio); err != nil {
		return err
	}

	s.logger.Debug("speech saved", "path", path, "bytes", len(audio.Data))

	return s.Play(ctx, path)
}

// SpeakToFile synthesizes text into path. When path has no extension the
// one matching the returned audio is added. It returns the written path.
func (s *Speaker) SpeakToFile(ctx context.Context, text, path string) (string, error) {
	audio, err := s.synth.Speak(ctx, text)
	if err != nil {
		return "", err
	}

	if filepath.Ext(path) == "" {
		path += audio.Extension()
	}

	if err := writeAudio(path, audio); err != nil {
		return "", err
	}
	return path, nil
}

// Play runs the configured player on path. Without a player it does nothing.
func (s *Speaker) Play(ctx context.Context, path string) error {
	if len(s.player) == 0 {
		return nil
	}

	args := append(append([]string{}, s.player[1:]...), path)
	if err := s.run(ctx, s.player[0], args...); err != nil {
		return fmt.Errorf("audio player %s: %w", s.player[0], err)
	}
	return nil
}

func writeAudio(path string, audio *models.SpeechAudio) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return fmt.Errorf("failed to create audio directory: %w", err)
	}
	if err := os.WriteFile(path, audio.Data, 0o600); err != nil {
		return fmt.Errorf("failed to write audio file: %w", err)
	}
	return nil
}

func runCommand(ctx context.Context, name string, args ...string) error {
	cmd := exec.CommandContext(ctx, name, args...)
	out, err := cmd.CombinedOutput()
	if err != nil {
		if msg := strings.TrimSpace(string(out)); msg != "" {
			return fmt.Errorf("%w: %s", err, msg)
		}
		return err
	}
	return nil
}
