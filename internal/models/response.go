package models

import (
	"mime"
	"strings"
)

// ChatRequest is the body of POST /api/chat
type ChatRequest struct {
	Prompt     string            `json:"prompt"`
	IsComplex  bool              `json:"isComplex"`
	History    []TranscriptEntry `json:"history"`
	SessionRef *string           `json:"sessionRef"`
}

// NewChatRequest builds a request, encoding an empty session reference as null
func NewChatRequest(prompt string, isComplex bool, history []TranscriptEntry, sessionRef string) ChatRequest {
	req := ChatRequest{
		Prompt:    prompt,
		IsComplex: isComplex,
		History:   history,
	}
	if req.History == nil {
		req.History = []TranscriptEntry{}
	}
	if sessionRef != "" {
		ref := sessionRef
		req.SessionRef = &ref
	}
	return req
}

// ChatResponse is the parsed success body of POST /api/chat
type ChatResponse struct {
	Text       string
	Videos     []Suggestion
	SessionRef string
}

// HasSessionRef reports whether the backend supplied a session reference
func (r *ChatResponse) HasSessionRef() bool {
	return r.SessionRef != ""
}

// Transcription is the parsed success body of POST /api/talk
type Transcription struct {
	Prompt string
}

// SpeechAudio is the raw audio returned by POST /api/speak
type SpeechAudio struct {
	Data        []byte
	ContentType string
}

// Extension guesses a file extension from the content type, defaulting to .wav
func (a *SpeechAudio) Extension() string {
	mediaType, _, err := mime.ParseMediaType(a.ContentType)
	if err != nil {
		return ".wav"
	}
	switch strings.ToLower(mediaType) {
	case "audio/mpeg", "audio/mp3":
		return ".mp3"
	case "audio/ogg":
		return ".ogg"
	case "audio/webm":
		return ".webm"
	case "audio/wav", "audio/x-wav", "audio/wave":
		return ".wav"
	}
	if exts, err := mime.ExtensionsByType(mediaType); err == nil && len(exts) > 0 {
		return exts[0]
	}
	return ".wav"
}

// User is the account record returned by /api/signin and /api/signup
type User struct {
	UID           string `json:"uid"`
	Email         string `json:"email"`
	DisplayName   string `json:"displayName,omitempty"`
	EmailVerified bool   `json:"emailVerified"`
}
