// Package loader turns an uploaded file into located pages of text. The
// extractor is picked by file extension.
package loader

import (
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"docqa/internal/chunker"
)

var (
	ErrUnsupportedFileType = errors.New("unsupported file type")
	ErrInvalidFile         = errors.New("invalid file")
)

// Format is a normalized file extension without the dot.
type Format string

const (
	FormatPDF      Format = "pdf"
	FormatText     Format = "txt"
	FormatDocx     Format = "docx"
	FormatDoc      Format = "doc"
	FormatPptx     Format = "pptx"
	FormatPpt      Format = "ppt"
	FormatXlsx     Format = "xlsx"
	FormatXls      Format = "xls"
	FormatCSV      Format = "csv"
	FormatMarkdown Format = "md"
)

type extractFunc func(r io.ReaderAt, size int64) ([]chunker.Page, error)

// Legacy doc/ppt/xls are only readable when they are OOXML containers under
// the old extension; anything else fails as an invalid file.
var extractors = map[Format]extractFunc{
	FormatPDF:      extractPDF,
	FormatText:     extractText,
	FormatDocx:     extractDocx,
	FormatDoc:      extractDocx,
	FormatPptx:     extractPptx,
	FormatPpt:      extractPptx,
	FormatXlsx:     extractXlsx,
	FormatXls:      extractXlsx,
	FormatCSV:      extractCSV,
	FormatMarkdown: extractMarkdown,
}

// FormatOf returns the normalized format of a file name.
func FormatOf(name string) Format {
	ext := strings.ToLower(strings.TrimPrefix(filepath.Ext(name), "."))
	if ext == "markdown" {
		return FormatMarkdown
	}
	return Format(ext)
}

// Supported reports whether a file name has an extension Load can handle.
func Supported(name string) bool {
	_, ok := extractors[FormatOf(name)]
	return ok
}

// Load extracts the pages of the named file. Unknown extensions yield
// ErrUnsupportedFileType; unreadable content yields an error wrapping
// ErrInvalidFile.
func Load(name string, r io.ReaderAt, size int64) ([]chunker.Page, error) {
	extract, ok := extractors[FormatOf(name)]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedFileType, filepath.Ext(name))
	}

	pages, err := extract(r, size)
	if err != nil {
		if errors.Is(err, ErrInvalidFile) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: %s: %w", ErrInvalidFile, name, err)
	}
	return pages, nil
}

func pageAt(kind chunker.LocatorKind, n int, text string) chunker.Page {
	return chunker.Page{Text: text, Locator: chunker.Locator{Kind: kind, Number: n}}
}
