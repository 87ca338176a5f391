package api

import (
	"strings"

	"github.com/tidwall/gjson"
)

// GJSON paths for extracting values from backend responses
const (
	PathText       = "text"
	PathVideos     = "videos"
	PathSessionRef = "sessionRef"
	PathPrompt     = "prompt"
	PathUser       = "user"

	PathError        = "error"
	PathErrorMessage = "error.message"
	PathDetails      = "details"

	// Suggestion paths (relative to a video object)
	PathVideoURL       = "url"
	PathVideoTitle     = "title"
	PathVideoThumbnail = "thumbnail"
)

// errorMessage extracts the human-readable message from an error envelope.
// Order: error, error.message, details, fallback.
func errorMessage(body []byte, fallback string) string {
	if !gjson.ValidBytes(body) {
		return fallback
	}

	parsed := gjson.ParseBytes(body)
	for _, path := range []string{PathError, PathErrorMessage, PathDetails} {
		v := parsed.Get(path)
		if v.Type == gjson.String && strings.TrimSpace(v.Str) != "" {
			return v.Str
		}
	}
	return fallback
}
