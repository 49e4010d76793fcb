package loader

import (
	"fmt"
	"io"
	"strings"

	"github.com/xuri/excelize/v2"

	"docqa/internal/chunker"
)

// extractXlsx yields one page per non-empty row of every sheet. The locator
// is the 1-based row number labelled with the sheet name.
func extractXlsx(r io.ReaderAt, size int64) ([]chunker.Page, error) {
	f, err := excelize.OpenReader(io.NewSectionReader(r, 0, size))
	if err != nil {
		return nil, fmt.Errorf("failed to open workbook: %w", err)
	}
	defer f.Close()

	var pages []chunker.Page
	for _, sheet := range f.GetSheetList() {
		rows, err := f.GetRows(sheet)
		if err != nil {
			return nil, fmt.Errorf("failed to read sheet %q: %w", sheet, err)
		}
		for i, row := range rows {
			text := joinCells(row)
			if text == "" {
				continue
			}
			pages = append(pages, chunker.Page{
				Text:    text,
				Locator: chunker.Locator{Kind: chunker.KindRow, Number: i + 1, Label: sheet},
			})
		}
	}
	return pages, nil
}

func joinCells(cells []string) string {
	parts := make([]string, 0, len(cells))
	for _, c := range cells {
		if c = strings.TrimSpace(c); c != "" {
			parts = append(parts, c)
		}
	}
	return strings.Join(parts, " ")
}
