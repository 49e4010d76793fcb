package chunker

import "strconv"

// LocatorKind tells what a locator number counts in the source document.
type LocatorKind string

const (
	KindPage    LocatorKind = "page"
	KindSlide   LocatorKind = "slide"
	KindRow     LocatorKind = "row"
	KindSection LocatorKind = "section"
)

// Locator identifies the page, slide, row or section a piece of text came from.
// It is comparable and is used as part of chunk identity.
type Locator struct {
	Kind   LocatorKind `json:"kind"`
	Number int         `json:"number"`          // 1-based page/slide/row/section number
	Label  string      `json:"label,omitempty"` // optional qualifier: sheet name, section heading
}

// String renders the locator the way citations display it.
func (l Locator) String() string {
	n := strconv.Itoa(l.Number)
	if l.Label == "" {
		return n
	}
	return l.Label + ":" + n
}

// Page is one extracted span of text with its locator.
type Page struct {
	Text    string
	Locator Locator
}

// Chunk is an immutable unit of retrievable text.
type Chunk struct {
	Text    string
	Locator Locator
}

// Identity is the dedup key used when merging rankings.
type Identity struct {
	Locator Locator
	Text    string
}

func (c Chunk) Identity() Identity {
	return Identity{Locator: c.Locator, Text: c.Text}
}

// Config holds splitting parameters.
type Config struct {
	Size      int    // max characters per chunk
	Overlap   int    // characters of trailing context repeated in the next chunk
	Separator string // split separator, "\n" by default
}

// DefaultConfig returns 1000-character chunks with 100 characters of overlap.
func DefaultConfig() Config {
	return Config{Size: 1000, Overlap: 100, Separator: "\n"}
}
