package loader

import (
	"fmt"
	"io"
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/text"

	"docqa/internal/chunker"
)

// structure counts headings per level.
type structure struct {
	headings   map[int]int
	paragraphs int
}

// extractMarkdown yields one page per section. Sections start at headings
// of the split level or above; deeper headings stay inside their section.
// Text before the first heading becomes its own unlabelled section.
func extractMarkdown(r io.ReaderAt, size int64) ([]chunker.Page, error) {
	src, err := io.ReadAll(io.NewSectionReader(r, 0, size))
	if err != nil {
		return nil, fmt.Errorf("failed to read markdown: %w", err)
	}

	doc := goldmark.New().Parser().Parse(text.NewReader(src))
	level := splitLevel(analyzeStructure(doc))

	var (
		pages   []chunker.Page
		buf     strings.Builder
		heading string
	)
	flush := func() {
		if strings.TrimSpace(buf.String()) == "" && heading == "" {
			buf.Reset()
			return
		}
		pages = append(pages, chunker.Page{
			Text:    buf.String(),
			Locator: chunker.Locator{Kind: chunker.KindSection, Number: len(pages) + 1, Label: heading},
		})
		buf.Reset()
	}

	err = ast.Walk(doc, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			switch n.Kind() {
			case ast.KindParagraph, ast.KindListItem, ast.KindBlockquote:
				buf.WriteString("\n")
			}
			return ast.WalkContinue, nil
		}

		switch node := n.(type) {
		case *ast.Heading:
			title := nodeText(node, src)
			if node.Level <= level {
				flush()
				heading = title
			}
			buf.WriteString(title + "\n\n")
			return ast.WalkSkipChildren, nil
		case *ast.FencedCodeBlock, *ast.CodeBlock, *ast.HTMLBlock:
			lines := n.Lines()
			for i := 0; i < lines.Len(); i++ {
				seg := lines.At(i)
				buf.Write(seg.Value(src))
			}
			buf.WriteString("\n")
			return ast.WalkSkipChildren, nil
		case *ast.Text:
			buf.Write(node.Segment.Value(src))
			if node.SoftLineBreak() || node.HardLineBreak() {
				buf.WriteString("\n")
			}
		case *ast.String:
			buf.Write(node.Value)
		}
		return ast.WalkContinue, nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to walk markdown: %w", err)
	}
	flush()

	return pages, nil
}

func analyzeStructure(doc ast.Node) structure {
	s := structure{headings: make(map[int]int)}
	_ = ast.Walk(doc, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}
		switch node := n.(type) {
		case *ast.Heading:
			s.headings[node.Level]++
		case *ast.Paragraph:
			s.paragraphs++
		}
		return ast.WalkContinue, nil
	})
	return s
}

// splitLevel picks the first level from 2 to 4 with enough headings to
// structure the document, and otherwise the shallowest level present.
func splitLevel(s structure) int {
	minHeadings := map[int]int{2: 3, 3: 5, 4: 10}
	for level := 2; level <= 4; level++ {
		if s.headings[level] >= minHeadings[level] {
			return level
		}
	}
	for level := 1; level <= 6; level++ {
		if s.headings[level] > 0 {
			return level
		}
	}
	return 0
}

// nodeText collects the inline text below a node.
func nodeText(node ast.Node, src []byte) string {
	var buf strings.Builder
	_ = ast.Walk(node, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}
		switch t := n.(type) {
		case *ast.Text:
			buf.Write(t.Segment.Value(src))
		case *ast.String:
			buf.Write(t.Value)
		}
		return ast.WalkContinue, nil
	})
	return strings.TrimSpace(buf.String())
}
