package loader

import (
	"archive/zip"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"strings"
)

var errMissingPart = errors.New("missing package part")

func openZip(r io.ReaderAt, size int64) (*zip.Reader, error) {
	zr, err := zip.NewReader(r, size)
	if err != nil {
		return nil, fmt.Errorf("not an office open xml package: %w", err)
	}
	return zr, nil
}

func findPart(zr *zip.Reader, name string) *zip.File {
	for _, f := range zr.File {
		if f.Name == name {
			return f
		}
	}
	return nil
}

// walkPart streams the tokens of one package part into fn.
func walkPart(zr *zip.Reader, name string, fn func(xml.Token) error) error {
	f := findPart(zr, name)
	if f == nil {
		return fmt.Errorf("%w: %s", errMissingPart, name)
	}
	rc, err := f.Open()
	if err != nil {
		return fmt.Errorf("failed to open %s: %w", name, err)
	}
	defer rc.Close()

	dec := xml.NewDecoder(rc)
	for {
		tok, err := dec.Token()
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("failed to parse %s: %w", name, err)
		}
		if err := fn(tok); err != nil {
			return err
		}
	}
}

func attr(se xml.StartElement, local string, namespaced bool) string {
	for _, a := range se.Attr {
		if a.Name.Local == local && (a.Name.Space != "") == namespaced {
			return a.Value
		}
	}
	return ""
}

// paragraphText accumulates runs of a:t / w:t text into paragraphs.
type paragraphText struct {
	buf    strings.Builder
	inText bool
}

func (p *paragraphText) handle(tok xml.Token) {
	switch t := tok.(type) {
	case xml.StartElement:
		switch t.Name.Local {
		case "t":
			p.inText = true
		case "tab":
			p.buf.WriteByte('\t')
		}
	case xml.EndElement:
		switch t.Name.Local {
		case "t":
			p.inText = false
		case "p":
			p.buf.WriteByte('\n')
		}
	case xml.CharData:
		if p.inText {
			p.buf.Write(t)
		}
	}
}

func (p *paragraphText) flush() string {
	s := p.buf.String()
	p.buf.Reset()
	return s
}
