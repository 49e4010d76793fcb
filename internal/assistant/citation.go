package assistant

import (
	"fmt"

	"docqa/internal/chunker"
	"docqa/internal/loader"
)

const sourceUnavailable = "Source unavailable"

// CitationTitle renders "Citation N - <file>" plus " - Page X" for paged
// formats or " - Row X" for tabular ones.
func CitationTitle(n int, fileName string, loc chunker.Locator) string {
	if fileName == "" {
		fileName = sourceUnavailable
	}
	title := fmt.Sprintf("Citation %d - %s", n, fileName)

	switch loader.FormatOf(fileName) {
	case loader.FormatPDF, loader.FormatPptx, loader.FormatPpt, loader.FormatDoc, loader.FormatDocx:
		title += fmt.Sprintf(" - Page %d", loc.Number)
	case loader.FormatXlsx, loader.FormatXls, loader.FormatCSV:
		title += fmt.Sprintf(" - Row %d", loc.Number)
		if loc.Label != "" {
			title += fmt.Sprintf(" (%s)", loc.Label)
		}
	case loader.FormatMarkdown:
		if loc.Label != "" {
			title += " - " + loc.Label
		}
	}
	return title
}
