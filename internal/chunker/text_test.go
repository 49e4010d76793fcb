package chunker

import (
	"fmt"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSplitter_EmptyInput(t *testing.T) {
	s := NewSplitter(DefaultConfig())

	assert.Empty(t, s.Split(""))
	assert.Empty(t, s.Split("\n\n  \n"))
}

func TestSplitter_ShortTextIsOneChunk(t *testing.T) {
	s := NewSplitter(DefaultConfig())

	got := s.Split("first line\nsecond line")
	require.Len(t, got, 1)
	assert.Equal(t, "first line\nsecond line", got[0])
}

func TestSplitter_OverlapCarriesTrailingPieces(t *testing.T) {
	s := NewSplitter(Config{Size: 10, Overlap: 4, Separator: "\n"})

	got := s.Split("aaa\nbbb\nccc\nddd")
	assert.Equal(t, []string{"aaa\nbbb", "bbb\nccc", "ccc\nddd"}, got)
}

func TestSplitter_OversizedPieceKeptWhole(t *testing.T) {
	s := NewSplitter(Config{Size: 10, Overlap: 4, Separator: "\n"})
	long := strings.Repeat("x", 15)

	got := s.Split("short\n" + long)
	assert.Equal(t, []string{"short", long}, got)
}

func TestSplitter_WindowsRespectSize(t *testing.T) {
	cfg := Config{Size: 50, Overlap: 10, Separator: "\n"}
	s := NewSplitter(cfg)

	var lines []string
	for i := 0; i < 100; i++ {
		lines = append(lines, fmt.Sprintf("line number %03d", i))
	}
	for _, w := range s.Split(strings.Join(lines, "\n")) {
		assert.LessOrEqual(t, utf8.RuneCountInString(w), cfg.Size)
	}
}

func TestSplitter_CountsRunesNotBytes(t *testing.T) {
	s := NewSplitter(Config{Size: 5, Overlap: 0, Separator: "\n"})

	got := s.Split("ééééé\nüüüüü")
	assert.Equal(t, []string{"ééééé", "üüüüü"}, got)
}

func TestSplitter_Coverage(t *testing.T) {
	s := NewSplitter(Config{Size: 100, Overlap: 20, Separator: "\n"})

	var lines []string
	for i := 0; i < 200; i++ {
		lines = append(lines, fmt.Sprintf("line-%03d", i))
	}

	// Dropping the overlapped lines must give back the original text.
	seen := make(map[string]bool)
	var rebuilt []string
	for _, w := range s.Split(strings.Join(lines, "\n")) {
		for _, l := range strings.Split(w, "\n") {
			if !seen[l] {
				seen[l] = true
				rebuilt = append(rebuilt, l)
			}
		}
	}
	assert.Equal(t, lines, rebuilt)
}

func TestChunker_LocatorFidelity(t *testing.T) {
	c := New(Config{Size: 30, Overlap: 5, Separator: "\n"}, nil)
	pages := []Page{
		{Text: "alpha one\nalpha two\nalpha three\nalpha four", Locator: Locator{Kind: KindPage, Number: 1}},
		{Text: "", Locator: Locator{Kind: KindPage, Number: 2}},
		{Text: "beta one\nbeta two", Locator: Locator{Kind: KindPage, Number: 3}},
	}

	chunks := c.Chunk(pages)
	require.NotEmpty(t, chunks)

	byNumber := map[int]string{1: pages[0].Text, 3: pages[2].Text}
	for _, ch := range chunks {
		src, ok := byNumber[ch.Locator.Number]
		require.True(t, ok, "unexpected locator %v", ch.Locator)
		assert.Contains(t, src, ch.Text)
	}
	assert.Equal(t, 3, chunks[len(chunks)-1].Locator.Number)
}

func TestChunker_EmptyDocument(t *testing.T) {
	c := New(DefaultConfig(), nil)

	assert.Empty(t, c.Chunk(nil))
	assert.Empty(t, c.Chunk([]Page{{Text: "", Locator: Locator{Kind: KindPage, Number: 1}}}))
}

func TestLocator_String(t *testing.T) {
	assert.Equal(t, "4", Locator{Kind: KindPage, Number: 4}.String())
	assert.Equal(t, "Sheet1:7", Locator{Kind: KindRow, Number: 7, Label: "Sheet1"}.String())
}
