package loader

import (
	"encoding/xml"
	"io"
	"strings"

	"docqa/internal/chunker"
)

// extractDocx splits word/document.xml into pages at explicit page breaks
// and at the page boundaries Word recorded on last render. Consecutive
// breaks with no text between them count once.
func extractDocx(r io.ReaderAt, size int64) ([]chunker.Page, error) {
	zr, err := openZip(r, size)
	if err != nil {
		return nil, err
	}

	var (
		pages   []chunker.Page
		para    paragraphText
		current strings.Builder
		broken  bool
	)
	newPage := func() {
		current.WriteString(para.flush())
		pages = append(pages, pageAt(chunker.KindPage, len(pages)+1, current.String()))
		current.Reset()
	}

	err = walkPart(zr, "word/document.xml", func(tok xml.Token) error {
		if se, ok := tok.(xml.StartElement); ok {
			pageBreak := se.Name.Local == "lastRenderedPageBreak" ||
				(se.Name.Local == "br" && attr(se, "type", true) == "page")
			if pageBreak {
				if !broken && strings.TrimSpace(current.String()+para.buf.String()) != "" {
					newPage()
				}
				broken = true
				return nil
			}
			if se.Name.Local == "br" {
				para.buf.WriteByte('\n')
			}
		}
		if cd, ok := tok.(xml.CharData); ok && para.inText && len(strings.TrimSpace(string(cd))) > 0 {
			broken = false
		}
		para.handle(tok)
		if ee, ok := tok.(xml.EndElement); ok && ee.Name.Local == "p" {
			current.WriteString(para.flush())
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	newPage()
	return pages, nil
}
