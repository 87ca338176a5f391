package models

// Role is the backend's name for the author of a transcript entry
type Role string

const (
	RoleUser  Role = "user"
	RoleModel Role = "model"
)

// Part is one text fragment of a transcript entry
type Part struct {
	Text string `json:"text"`
}

// TranscriptEntry is the wire form of one chat turn.
// Videos is only present on entries read back from saved sessions.
type TranscriptEntry struct {
	Role   Role         `json:"role"`
	Parts  []Part       `json:"parts"`
	Videos []Suggestion `json:"videos,omitempty"`
}

// NewTranscriptEntry builds an entry with a single text part
func NewTranscriptEntry(role Role, text string) TranscriptEntry {
	return TranscriptEntry{
		Role:  role,
		Parts: []Part{{Text: text}},
	}
}

// Text returns the first part's text, or "" when the entry has no parts
func (e TranscriptEntry) Text() string {
	if len(e.Parts) == 0 {
		return ""
	}
	return e.Parts[0].Text
}

// SavedSession is the persisted session format exchanged at the session-list boundary.
// An empty SessionRef means no server-side conversation exists.
type SavedSession struct {
	SessionRef string            `json:"sessionRef"`
	History    []TranscriptEntry `json:"history"`
}
