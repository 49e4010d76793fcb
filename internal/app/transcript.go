package app

import (
	"fmt"
	"os"
	"strings"
	"time"

	"docqa/internal/assistant"
)

// SaveTranscript writes every answered question, with its displayed
// citations, to path as Markdown.
func (a *App) SaveTranscript(path string) error {
	return os.WriteFile(path, []byte(renderTranscript(a.Turns(), time.Now())), 0o644)
}

func renderTranscript(turns []Turn, at time.Time) string {
	var buf strings.Builder

	buf.WriteString("# Chat transcript\n\n")
	fmt.Fprintf(&buf, "**Saved:** %s\n\n", at.Format("2006-01-02 15:04:05"))
	fmt.Fprintf(&buf, "**Questions:** %d\n\n", len(turns))

	for i, t := range turns {
		fmt.Fprintf(&buf, "## Q%d: %s\n\n", i+1, t.Question)
		if t.FileName != "" {
			fmt.Fprintf(&buf, "**Document:** %s\n\n", t.FileName)
		}
		buf.WriteString(t.Answer.Text)
		buf.WriteString("\n\n")

		if t.Answer.ShowCitations && len(t.Answer.Citations) > 0 {
			buf.WriteString("### Citations\n\n")
			for j, c := range t.Answer.Citations {
				fmt.Fprintf(&buf, "**%s**\n\n", assistant.CitationTitle(j+1, t.FileName, c.Locator))
				for _, line := range strings.Split(strings.TrimSpace(c.Content), "\n") {
					fmt.Fprintf(&buf, "> %s\n", line)
				}
				buf.WriteString("\n")
			}
		}
		buf.WriteString("---\n\n")
	}
	return buf.String()
}
