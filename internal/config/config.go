// Package config handles configuration and credential storage for chatbridge.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"

	"github.com/diogo/chatbridge/internal/models"
)

// MarkdownConfig configures markdown rendering options
type MarkdownConfig struct {
	Style            string `json:"style" env:"CHATBRIDGE_MARKDOWN_STYLE"` // "dark", "light", "notty", "auto" or path to JSON style
	EnableEmoji      bool   `json:"enable_emoji"`                          // Convert :emoji: to unicode
	PreserveNewLines bool   `json:"preserve_newlines"`                     // Preserve original line breaks
	TableWrap        bool   `json:"table_wrap"`                            // Enable word wrap in table cells
	InlineTableLinks bool   `json:"inline_table_links"`                    // Render links inline in tables
}

// Config represents the user configuration
type Config struct {
	BackendURL string `json:"backend_url" env:"CHATBRIDGE_BACKEND_URL"`
	// IdentityAPIKey is the web API key of the identity provider project
	IdentityAPIKey string `json:"identity_api_key,omitempty" env:"CHATBRIDGE_IDENTITY_API_KEY"`
	// IsComplex selects the backend's slower, more thorough answer mode
	IsComplex bool `json:"is_complex" env:"CHATBRIDGE_COMPLEX"`
	// EnableTTS speaks each assistant reply through /api/speak
	EnableTTS   bool   `json:"enable_tts" env:"CHATBRIDGE_TTS"`
	AudioDir    string `json:"audio_dir,omitempty" env:"CHATBRIDGE_AUDIO_DIR"`
	AudioPlayer string `json:"audio_player,omitempty" env:"CHATBRIDGE_AUDIO_PLAYER"` // e.g. "afplay", "mpv --no-video"
	// TimeoutSeconds bounds every backend request
	TimeoutSeconds  int            `json:"timeout_seconds" env:"CHATBRIDGE_TIMEOUT"`
	CopyToClipboard bool           `json:"copy_to_clipboard"`
	AutoSave        bool           `json:"auto_save" env:"CHATBRIDGE_AUTO_SAVE"`
	LogLevel        string         `json:"log_level,omitempty" env:"CHATBRIDGE_LOG_LEVEL"`
	Markdown        MarkdownConfig `json:"markdown"`
}

// DefaultMarkdownConfig returns the default markdown configuration
func DefaultMarkdownConfig() MarkdownConfig {
	return MarkdownConfig{
		Style:            "dark",
		EnableEmoji:      true,
		PreserveNewLines: true,
		TableWrap:        true,
		InlineTableLinks: false,
	}
}

// DefaultConfig returns the default configuration
func DefaultConfig() Config {
	homeDir, _ := os.UserHomeDir()
	return Config{
		BackendURL:      models.DefaultBackendURL,
		IsComplex:       false,
		EnableTTS:       false,
		AudioDir:        filepath.Join(homeDir, ".chatbridge", "audio"),
		TimeoutSeconds:  300,
		CopyToClipboard: false,
		AutoSave:        true,
		LogLevel:        "warn",
		Markdown:        DefaultMarkdownConfig(),
	}
}

// Timeout returns the request timeout as a duration
func (c Config) Timeout() time.Duration {
	if c.TimeoutSeconds <= 0 {
		return 300 * time.Second
	}
	return time.Duration(c.TimeoutSeconds) * time.Second
}

// Mode returns the answer mode selected by IsComplex
func (c Config) Mode() models.Mode {
	return models.ModeFromComplex(c.IsComplex)
}

// GetConfigDir returns the configuration directory path
func GetConfigDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get home directory: %w", err)
	}

	configDir := filepath.Join(home, ".chatbridge")
	return configDir, nil
}

// EnsureConfigDir creates the configuration directory if it doesn't exist
func EnsureConfigDir() (string, error) {
	configDir, err := GetConfigDir()
	if err != nil {
		return "", err
	}

	// 0o700: holds credentials
	if err := os.MkdirAll(configDir, 0o700); err != nil {
		return "", fmt.Errorf("failed to create config directory: %w", err)
	}

	return configDir, nil
}

// GetConfigPath returns the path to the config file
func GetConfigPath() (string, error) {
	configDir, err := GetConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(configDir, "config.json"), nil
}

// GetCredentialsPath returns the path to the stored sign-in credentials
func GetCredentialsPath() (string, error) {
	configDir, err := GetConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(configDir, "credentials.json"), nil
}

// GetSessionsDir returns the directory of locally saved sessions
func GetSessionsDir() (string, error) {
	configDir, err := GetConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(configDir, "sessions"), nil
}

// GetAudioDir returns the audio output directory from config, creating it if necessary
func GetAudioDir(cfg Config) (string, error) {
	dir := cfg.AudioDir
	if dir == "" {
		configDir, err := GetConfigDir()
		if err != nil {
			return "", err
		}
		dir = filepath.Join(configDir, "audio")
	}

	if err := os.MkdirAll(dir, 0o700); err != nil {
		return "", fmt.Errorf("failed to create audio directory: %w", err)
	}

	return dir, nil
}

// LoadConfig loads the configuration file only, without environment overrides
func LoadConfig() (Config, error) {
	cfg := DefaultConfig()

	configPath, err := GetConfigPath()
	if err != nil {
		return cfg, err
	}

	data, err := os.ReadFile(configPath)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return cfg, fmt.Errorf("failed to read config file: %w", err)
	}

	if err := json.Unmarshal(data, &cfg); err != nil {
		return DefaultConfig(), fmt.Errorf("failed to parse config file: %w", err)
	}

	return cfg, nil
}

// Load returns the effective configuration: defaults, then the config
// file, then variables from dotenvPath (if it exists), then the process
// environment. Process variables win over the .env file.
func Load(dotenvPath string) (Config, error) {
	cfg, err := LoadConfig()
	if err != nil {
		return cfg, err
	}

	environ, err := environment(dotenvPath)
	if err != nil {
		return cfg, err
	}

	if err := ApplyEnv(&cfg, environ); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// ApplyEnv overlays the CHATBRIDGE_* variables found in environ onto cfg.
// Fields whose variable is absent keep their current value.
func ApplyEnv(cfg *Config, environ map[string]string) error {
	if err := env.ParseWithOptions(cfg, env.Options{Environment: environ}); err != nil {
		return fmt.Errorf("parse environment: %w", err)
	}
	return nil
}

func environment(dotenvPath string) (map[string]string, error) {
	merged := map[string]string{}

	if dotenvPath != "" {
		fileVars, err := godotenv.Read(dotenvPath)
		if err != nil && !os.IsNotExist(err) {
			return nil, fmt.Errorf("failed to read %s: %w", dotenvPath, err)
		}
		for k, v := range fileVars {
			merged[k] = v
		}
	}

	for k, v := range env.ToMap(os.Environ()) {
		merged[k] = v
	}
	return merged, nil
}

// SaveConfig saves the configuration to disk
func SaveConfig(cfg Config) error {
	configDir, err := EnsureConfigDir()
	if err != nil {
		return err
	}

	configPath := filepath.Join(configDir, "config.json")

	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(configPath, data, 0o600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

type setter func(cfg *Config, value string) error

func boolSetter(field func(*Config) *bool) setter {
	return func(cfg *Config, value string) error {
		b, err := strconv.ParseBool(value)
		if err != nil {
			return fmt.Errorf("expected true or false, got %q", value)
		}
		*field(cfg) = b
		return nil
	}
}

func stringSetter(field func(*Config) *string) setter {
	return func(cfg *Config, value string) error {
		*field(cfg) = value
		return nil
	}
}

var setters = map[string]setter{
	"backend_url": func(cfg *Config, value string) error {
		if !strings.HasPrefix(value, "http://") && !strings.HasPrefix(value, "https://") {
			return fmt.Errorf("backend_url must start with http:// or https://")
		}
		cfg.BackendURL = strings.TrimRight(value, "/")
		return nil
	},
	"identity_api_key":  stringSetter(func(c *Config) *string { return &c.IdentityAPIKey }),
	"is_complex":        boolSetter(func(c *Config) *bool { return &c.IsComplex }),
	"enable_tts":        boolSetter(func(c *Config) *bool { return &c.EnableTTS }),
	"audio_dir":         stringSetter(func(c *Config) *string { return &c.AudioDir }),
	"audio_player":      stringSetter(func(c *Config) *string { return &c.AudioPlayer }),
	"copy_to_clipboard": boolSetter(func(c *Config) *bool { return &c.CopyToClipboard }),
	"auto_save":         boolSetter(func(c *Config) *bool { return &c.AutoSave }),
	"log_level": func(cfg *Config, value string) error {
		switch strings.ToLower(value) {
		case "debug", "info", "warn", "warning", "error", "fatal":
			cfg.LogLevel = strings.ToLower(value)
			return nil
		}
		return fmt.Errorf("unknown log level %q", value)
	},
	"timeout_seconds": func(cfg *Config, value string) error {
		n, err := strconv.Atoi(value)
		if err != nil || n <= 0 {
			return fmt.Errorf("timeout_seconds must be a positive integer")
		}
		cfg.TimeoutSeconds = n
		return nil
	},
	"markdown.style":        stringSetter(func(c *Config) *string { return &c.Markdown.Style }),
	"markdown.enable_emoji": boolSetter(func(c *Config) *bool { return &c.Markdown.EnableEmoji }),
	"markdown.table_wrap":   boolSetter(func(c *Config) *bool { return &c.Markdown.TableWrap }),
}

// Keys returns the settable configuration keys in sorted order
func Keys() []string {
	keys := make([]string, 0, len(setters))
	for k := range setters {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Set assigns a value to the named key, validating it
func (c *Config) Set(key, value string) error {
	set, ok := setters[strings.ToLower(key)]
	if !ok {
		return fmt.Errorf("unknown config key %q (valid keys: %s)", key, strings.Join(Keys(), ", "))
	}
	return set(c, strings.TrimSpace(value))
}

// Get returns the named key's current value as a string
func (c Config) Get(key string) (string, error) {
	switch strings.ToLower(key) {
	case "backend_url":
		return c.BackendURL, nil
	case "identity_api_key":
		return c.IdentityAPIKey, nil
	case "is_complex":
		return strconv.FormatBool(c.IsComplex), nil
	case "enable_tts":
		return strconv.FormatBool(c.EnableTTS), nil
	case "audio_dir":
		return c.AudioDir, nil
	case "audio_player":
		return c.AudioPlayer, nil
	case "copy_to_clipboard":
		return strconv.FormatBool(c.CopyToClipboard), nil
	case "auto_save":
		return strconv.FormatBool(c.AutoSave), nil
	case "log_level":
		return c.LogLevel, nil
	case "timeout_seconds":
		return strconv.Itoa(c.TimeoutSeconds), nil
	case "markdown.style":
		return c.Markdown.Style, nil
	case "markdown.enable_emoji":
		return strconv.FormatBool(c.Markdown.EnableEmoji), nil
	case "markdown.table_wrap":
		return strconv.FormatBool(c.Markdown.TableWrap), nil
	}
	return "", fmt.Errorf("unknown config key %q", key)
}
