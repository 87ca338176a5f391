package history

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/diogo/chatbridge/internal/models"
)

// ExportFormat represents the format for exporting sessions
type ExportFormat string

const (
	ExportFormatMarkdown ExportFormat = "markdown"
	ExportFormatJSON     ExportFormat = "json"
)

// ParseExportFormat maps a format name or file extension to an ExportFormat
func ParseExportFormat(s string) (ExportFormat, error) {
	switch strings.ToLower(strings.TrimPrefix(s, ".")) {
	case "", "md", "markdown":
		return ExportFormatMarkdown, nil
	case "json":
		return ExportFormatJSON, nil
	}
	return "", fmt.Errorf("unknown export format %q (use markdown or json)", s)
}

// ExportOptions configures how sessions are exported
type ExportOptions struct {
	Format             ExportFormat
	IncludeSessionRef  bool // Include the backend session reference
	IncludeSuggestions bool // Include video suggestions under assistant turns
}

// DefaultExportOptions returns the defaults used by the history export command
func DefaultExportOptions() ExportOptions {
	return ExportOptions{
		Format:             ExportFormatMarkdown,
		IncludeSessionRef:  false,
		IncludeSuggestions: true,
	}
}

// Export renders the session in the format selected by opts
func (s *Store) Export(id string, opts ExportOptions) ([]byte, error) {
	sess, err := s.Get(id)
	if err != nil {
		return nil, err
	}

	switch opts.Format {
	case ExportFormatJSON:
		return ToJSON(sess, opts)
	case ExportFormatMarkdown, "":
		return []byte(ToMarkdown(sess, opts)), nil
	}
	return nil, fmt.Errorf("unknown export format %q", opts.Format)
}

// ToMarkdown renders a session as a Markdown document
func ToMarkdown(sess *Session, opts ExportOptions) string {
	var sb strings.Builder

	sb.WriteString("# ")
	sb.WriteString(sess.Title)
	sb.WriteString("\n\n")

	sb.WriteString("**Created:** ")
	sb.WriteString(sess.CreatedAt.Format("2006-01-02 15:04:05"))
	sb.WriteString("\n")
	sb.WriteString("**Updated:** ")
	sb.WriteString(sess.UpdatedAt.Format("2006-01-02 15:04:05"))
	sb.WriteString("\n")
	if opts.IncludeSessionRef && sess.SessionRef != "" {
		sb.WriteString("**Session:** ")
		sb.WriteString(sess.SessionRef)
		sb.WriteString("\n")
	}
	fmt.Fprintf(&sb, "**Messages:** %d\n\n---\n\n", len(sess.History))

	for i, entry := range sess.History {
		role := "User"
		if entry.Role != models.RoleUser {
			role = "Assistant"
		}

		sb.WriteString("## ")
		sb.WriteString(role)
		sb.WriteString("\n\n")
		sb.WriteString(entry.Text())
		sb.WriteString("\n")

		if opts.IncludeSuggestions && len(entry.Videos) > 0 {
			sb.WriteString("\n**Suggested videos:**\n\n")
			for _, v := range entry.Videos {
				title := v.Title
				if title == "" {
					title = v.URL
				}
				fmt.Fprintf(&sb, "- [%s](%s)\n", title, v.URL)
			}
		}

		if i < len(sess.History)-1 {
			sb.WriteString("\n---\n\n")
		}
	}

	return sb.String()
}

// ToJSON renders a session as indented JSON
func ToJSON(sess *Session, opts ExportOptions) ([]byte, error) {
	type exportMessage struct {
		Role        string              `json:"role"`
		Content     string              `json:"content"`
		Suggestions []models.Suggestion `json:"suggestions,omitempty"`
	}

	type exportSession struct {
		ID         string          `json:"id"`
		Title      string          `json:"title"`
		SessionRef string          `json:"session_ref,omitempty"`
		CreatedAt  time.Time       `json:"created_at"`
		UpdatedAt  time.Time       `json:"updated_at"`
		Messages   []exportMessage `json:"messages"`
	}

	export := exportSession{
		ID:        sess.ID,
		Title:     sess.Title,
		CreatedAt: sess.CreatedAt,
		UpdatedAt: sess.UpdatedAt,
		Messages:  make([]exportMessage, len(sess.History)),
	}

	if opts.IncludeSessionRef {
		export.SessionRef = sess.SessionRef
	}

	for i, entry := range sess.History {
		role := string(models.SenderUser)
		if entry.Role != models.RoleUser {
			role = string(models.SenderAssistant)
		}
		export.Messages[i] = exportMessage{
			Role:    role,
			Content: entry.Text(),
		}
		if opts.IncludeSuggestions {
			export.Messages[i].Suggestions = entry.Videos
		}
	}

	return json.MarshalIndent(export, "", "  ")
}

// SearchResult represents a search match in saved sessions
type SearchResult struct {
	Session      *Session
	MatchSnippet string // Snippet where the term was found
	MatchField   string // "title" or "content"
	MatchIndex   int    // Entry index if MatchField is "content", -1 for title
}

// Search finds sessions whose title contains term, case-insensitively.
// With searchContent, turn text is searched too when the title does not match.
func (s *Store) Search(term string, searchContent bool) ([]*SearchResult, error) {
	sessions, err := s.List()
	if err != nil {
		return nil, err
	}

	term = strings.TrimSpace(term)
	termLower := strings.ToLower(term)
	results := []*SearchResult{}

	for _, sess := range sessions {
		if strings.Contains(strings.ToLower(sess.Title), termLower) {
			results = append(results, &SearchResult{
				Session:      sess,
				MatchSnippet: sess.Title,
				MatchField:   "title",
				MatchIndex:   -1,
			})
			continue
		}

		if !searchContent || term == "" {
			continue
		}

		for i, entry := range sess.History {
			text := entry.Text()
			if strings.Contains(strings.ToLower(text), termLower) {
				results = append(results, &SearchResult{
					Session:      sess,
					MatchSnippet: extractSnippet(text, term, 100),
					MatchField:   "content",
					MatchIndex:   i,
				})
				break // One match per session
			}
		}
	}

	return results, nil
}

// extractSnippet extracts a snippet around the first occurrence of query
func extractSnippet(content, query string, maxLen int) string {
	idx := strings.Index(strings.ToLower(content), strings.ToLower(query))
	if idx == -1 {
		if len(content) > maxLen {
			return content[:maxLen] + "..."
		}
		return content
	}

	half := maxLen / 2
	start := idx - half
	end := idx + len(query) + half

	if start < 0 {
		start = 0
		end = maxLen
	}
	if end > len(content) {
		end = len(content)
		start = end - maxLen
		if start < 0 {
			start = 0
		}
	}

	snippet := content[start:end]
	if start > 0 {
		snippet = "..." + snippet
	}
	if end < len(content) {
		snippet = snippet + "..."
	}

	return snippet
}

// FormatRelativeTime formats t relative to now, like "2h ago" or "yesterday"
func FormatRelativeTime(t, now time.Time) string {
	diff := now.Sub(t)

	switch {
	case diff < time.Minute:
		return "just now"
	case diff < time.Hour:
		return fmt.Sprintf("%d min ago", int(diff.Minutes()))
	case diff < 24*time.Hour:
		return fmt.Sprintf("%dh ago", int(diff.Hours()))
	case diff < 48*time.Hour:
		return "yesterday"
	case diff < 7*24*time.Hour:
		return fmt.Sprintf("%d days ago", int(diff.Hours()/24))
	case diff < 30*24*time.Hour:
		weeks := int(diff.Hours() / 24 / 7)
		if weeks == 1 {
			return "1 week ago"
		}
		return fmt.Sprintf("%d weeks ago", weeks)
	default:
		months := int(diff.Hours() / 24 / 30)
		if months == 1 {
			return "1 month ago"
		}
		if months < 12 {
			return fmt.Sprintf("%d months ago", months)
		}
		return t.Format("2006-01-02")
	}
}
