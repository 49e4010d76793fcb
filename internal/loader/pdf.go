package loader

import (
	"fmt"
	"io"

	"github.com/ledongthuc/pdf"

	"docqa/internal/chunker"
)

// extractPDF yields one page per PDF page, numbered from 1. The pdf reader
// panics on some malformed inputs, so panics are turned into errors.
func extractPDF(r io.ReaderAt, size int64) (pages []chunker.Page, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			pages, err = nil, fmt.Errorf("%w: malformed pdf: %v", ErrInvalidFile, rec)
		}
	}()

	doc, err := pdf.NewReader(r, size)
	if err != nil {
		return nil, fmt.Errorf("failed to open pdf: %w", err)
	}

	n := doc.NumPage()
	pages = make([]chunker.Page, 0, n)
	for i := 1; i <= n; i++ {
		p := doc.Page(i)
		if p.V.IsNull() {
			pages = append(pages, pageAt(chunker.KindPage, i, ""))
			continue
		}
		text, err := p.GetPlainText(nil)
		if err != nil {
			return nil, fmt.Errorf("failed to read page %d: %w", i, err)
		}
		pages = append(pages, pageAt(chunker.KindPage, i, text))
	}
	return pages, nil
}
