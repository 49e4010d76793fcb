package loader

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"

	"docqa/internal/chunker"
)

// extractCSV yields one page per record, header included, numbered from 1.
func extractCSV(r io.ReaderAt, size int64) ([]chunker.Page, error) {
	cr := csv.NewReader(io.NewSectionReader(r, 0, size))
	cr.FieldsPerRecord = -1
	cr.LazyQuotes = true

	var pages []chunker.Page
	for n := 1; ; n++ {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			return pages, nil
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read csv record %d: %w", n, err)
		}
		pages = append(pages, pageAt(chunker.KindRow, n, joinCells(rec)))
	}
}
