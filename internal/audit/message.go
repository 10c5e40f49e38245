package audit

import (
	"bytes"
	"embed"
	"fmt"
	"text/template"
)

//go:embed templates/*.md
var templateFS embed.FS

var summaryTemplate = template.Must(template.ParseFS(templateFS, "templates/team_summary.md"))

// Summary is the input of a team's notification message.
type Summary struct {
	Team           string
	Months         int
	Removed        []string
	Flagged        []string
	FailedRemovals []string
}

// ComposeMessage renders the notification for a team. It returns an empty
// message when there are neither removed nor flagged users.
func ComposeMessage(s Summary) (string, error) {
	if len(s.Removed) == 0 && len(s.Flagged) == 0 {
		return "", nil
	}

	var buf bytes.Buffer
	if err := summaryTemplate.Execute(&buf, s); err != nil {
		return "", fmt.Errorf("failed to execute message template: %w", err)
	}
	return buf.String(), nil
}
