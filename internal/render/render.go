package render

import (
	"fmt"
	"strings"

	"github.com/diogo/chatbridge/internal/models"
)

// Markdown renders markdown content for terminal display.
func Markdown(content string, opts Options) (string, error) {
	return renderers.render(content, opts)
}

// SuggestionsMarkdown formats suggestions as a markdown list of links.
// It returns "" when there are none.
func SuggestionsMarkdown(suggestions []models.Suggestion) string {
	if len(suggestions) == 0 {
		return ""
	}

	var sb strings.Builder
	sb.WriteString("**Related videos**\n\n")
	for _, s := range suggestions {
		title := strings.TrimSpace(s.Title)
		if title == "" {
			title = s.URL
		}
		fmt.Fprintf(&sb, "- [%s](%s)\n", escapeLinkText(title), s.URL)
	}
	return sb.String()
}

// Reply renders an assistant turn followed by its suggestions.
func Reply(msg models.Message, opts Options) (string, error) {
	content := msg.Content
	if list := SuggestionsMarkdown(msg.Suggestions); list != "" {
		content = strings.TrimRight(content, "\n") + "\n\n" + list
	}
	return Markdown(content, opts)
}

func escapeLinkText(s string) string {
	return strings.NewReplacer("[", `\[`, "]", `\]`).Replace(s)
}
