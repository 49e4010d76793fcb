package assistant

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"docqa/internal/chunker"
)

func TestCitationTitle(t *testing.T) {
	page := chunker.Locator{Kind: chunker.KindPage, Number: 4}
	row := chunker.Locator{Kind: chunker.KindRow, Number: 7}

	tests := []struct {
		file string
		loc  chunker.Locator
		want string
	}{
		{"report.pdf", page, "Citation 1 - report.pdf - Page 4"},
		{"deck.pptx", chunker.Locator{Kind: chunker.KindSlide, Number: 2}, "Citation 1 - deck.pptx - Page 2"},
		{"memo.DOCX", page, "Citation 1 - memo.DOCX - Page 4"},
		{"data.csv", row, "Citation 1 - data.csv - Row 7"},
		{"book.xlsx", chunker.Locator{Kind: chunker.KindRow, Number: 3, Label: "Prices"}, "Citation 1 - book.xlsx - Row 3 (Prices)"},
		{"notes.txt", page, "Citation 1 - notes.txt"},
		{"guide.md", chunker.Locator{Kind: chunker.KindSection, Number: 2, Label: "Install"}, "Citation 1 - guide.md - Install"},
		{"", page, "Citation 1 - Source unavailable"},
	}
	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			assert.Equal(t, tt.want, CitationTitle(1, tt.file, tt.loc))
		})
	}
}
