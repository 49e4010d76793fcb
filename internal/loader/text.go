package loader

import (
	"errors"
	"fmt"
	"io"
	"unicode/utf8"

	"docqa/internal/chunker"
)

// extractText yields the whole file as page 1. Content must be valid UTF-8.
func extractText(r io.ReaderAt, size int64) ([]chunker.Page, error) {
	data, err := io.ReadAll(io.NewSectionReader(r, 0, size))
	if err != nil {
		return nil, fmt.Errorf("failed to read text: %w", err)
	}
	if !utf8.Valid(data) {
		return nil, errors.New("text is not valid utf-8")
	}
	return []chunker.Page{pageAt(chunker.KindPage, 1, string(data))}, nil
}
