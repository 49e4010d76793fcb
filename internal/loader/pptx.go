package loader

import (
	"archive/zip"
	"encoding/xml"
	"errors"
	"io"
	"path"
	"regexp"
	"sort"
	"strconv"

	"docqa/internal/chunker"
)

var slidePart = regexp.MustCompile(`^ppt/slides/slide(\d+)\.xml$`)

// extractPptx yields one page per slide in presentation order.
func extractPptx(r io.ReaderAt, size int64) ([]chunker.Page, error) {
	zr, err := openZip(r, size)
	if err != nil {
		return nil, err
	}

	parts, err := slideOrder(zr)
	if err != nil {
		return nil, err
	}

	pages := make([]chunker.Page, 0, len(parts))
	for i, name := range parts {
		var para paragraphText
		if err := walkPart(zr, name, func(tok xml.Token) error {
			para.handle(tok)
			return nil
		}); err != nil {
			return nil, err
		}
		pages = append(pages, pageAt(chunker.KindSlide, i+1, para.flush()))
	}
	return pages, nil
}

// slideOrder resolves the slide list of ppt/presentation.xml through its
// relationships. Packages without a presentation part fall back to slide
// file numbering.
func slideOrder(zr *zip.Reader) ([]string, error) {
	var ids []string
	err := walkPart(zr, "ppt/presentation.xml", func(tok xml.Token) error {
		if se, ok := tok.(xml.StartElement); ok && se.Name.Local == "sldId" {
			if id := attr(se, "id", true); id != "" {
				ids = append(ids, id)
			}
		}
		return nil
	})
	if errors.Is(err, errMissingPart) {
		return slidesByNumber(zr), nil
	}
	if err != nil {
		return nil, err
	}

	targets := map[string]string{}
	err = walkPart(zr, "ppt/_rels/presentation.xml.rels", func(tok xml.Token) error {
		if se, ok := tok.(xml.StartElement); ok && se.Name.Local == "Relationship" {
			targets[attr(se, "Id", false)] = attr(se, "Target", false)
		}
		return nil
	})
	if err != nil && !errors.Is(err, errMissingPart) {
		return nil, err
	}

	parts := make([]string, 0, len(ids))
	for _, id := range ids {
		target, ok := targets[id]
		if !ok {
			continue
		}
		name := path.Clean(path.Join("ppt", target))
		if findPart(zr, name) != nil {
			parts = append(parts, name)
		}
	}
	if len(parts) == 0 {
		return slidesByNumber(zr), nil
	}
	return parts, nil
}

func slidesByNumber(zr *zip.Reader) []string {
	type slide struct {
		name string
		n    int
	}
	var slides []slide
	for _, f := range zr.File {
		m := slidePart.FindStringSubmatch(f.Name)
		if m == nil {
			continue
		}
		n, _ := strconv.Atoi(m[1])
		slides = append(slides, slide{name: f.Name, n: n})
	}
	sort.Slice(slides, func(i, j int) bool { return slides[i].n < slides[j].n })

	out := make([]string, len(slides))
	for i, s := range slides {
		out[i] = s.name
	}
	return out
}
