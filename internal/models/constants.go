// Package models contains data types and constants for the chatbridge client.
package models

// Backend endpoint paths, relative to the configured backend URL
const (
	PathChat   = "/api/chat"
	PathTalk   = "/api/talk"
	PathSpeak  = "/api/speak"
	PathSignIn = "/api/signin"
	PathSignUp = "/api/signup"
)

// DefaultBackendURL is used when neither config nor environment provide one
const DefaultBackendURL = "http://localhost:4000"

// Mode selects the backend model tier. The backend only sees the isComplex flag.
type Mode struct {
	Name      string
	IsComplex bool
}

// Available modes
var (
	ModeFast = Mode{
		Name:      "fast",
		IsComplex: false,
	}

	ModeComplex = Mode{
		Name:      "complex",
		IsComplex: true,
	}

	// DefaultMode is the recommended default
	DefaultMode = ModeFast
)

// AllModes returns a list of all available modes
func AllModes() []Mode {
	return []Mode{ModeFast, ModeComplex}
}

// ModeFromName returns a Mode by its name
func ModeFromName(name string) Mode {
	switch name {
	case "complex", "pro", "thinking":
		return ModeComplex
	case "fast", "simple":
		return ModeFast
	default:
		return DefaultMode
	}
}

// ModeFromComplex maps the raw flag back to a Mode
func ModeFromComplex(isComplex bool) Mode {
	if isComplex {
		return ModeComplex
	}
	return ModeFast
}

// DefaultHeaders returns the default headers for backend JSON requests
func DefaultHeaders() map[string]string {
	return map[string]string{
		"Content-Type": "application/json",
		"Accept":       "application/json",
		"User-Agent":   "Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/133.0.0.0 Safari/537.36",
	}
}
