package chunker

import (
	"strings"
	"unicode/utf8"

	"go.uber.org/zap"
)

// Splitter packs separator-delimited pieces of text into windows of at most
// Size characters, carrying up to Overlap characters of trailing pieces into
// the next window.
type Splitter struct {
	config Config
}

// NewSplitter creates a splitter. Zero values fall back to DefaultConfig.
func NewSplitter(config Config) *Splitter {
	def := DefaultConfig()
	if config.Size <= 0 {
		config.Size = def.Size
	}
	if config.Overlap < 0 || config.Overlap >= config.Size {
		config.Overlap = 0
	}
	return &Splitter{config: config}
}

// Split returns the windows for a single span of text. Whitespace-only text
// yields no windows.
func (s *Splitter) Split(text string) []string {
	var pieces []string
	if s.config.Separator == "" {
		for _, r := range text {
			pieces = append(pieces, string(r))
		}
	} else {
		for _, p := range strings.Split(text, s.config.Separator) {
			if p != "" {
				pieces = append(pieces, p)
			}
		}
	}
	return s.merge(pieces)
}

func (s *Splitter) merge(pieces []string) []string {
	sep := s.config.Separator
	sepLen := utf8.RuneCountInString(sep)

	var windows []string
	var current []string
	total := 0

	joined := func(n int) int {
		if n > 0 {
			return sepLen
		}
		return 0
	}

	for _, p := range pieces {
		pLen := utf8.RuneCountInString(p)
		if total+pLen+joined(len(current)) > s.config.Size {
			if len(current) > 0 {
				if w := joinWindow(current, sep); w != "" {
					windows = append(windows, w)
				}
				// Drop leading pieces until only the overlap tail remains and
				// the next piece fits.
				for total > s.config.Overlap ||
					(total+pLen+joined(len(current)) > s.config.Size && total > 0) {
					drop := utf8.RuneCountInString(current[0])
					if len(current) > 1 {
						drop += sepLen
					}
					total -= drop
					current = current[1:]
				}
			}
		}
		current = append(current, p)
		total += pLen
		if len(current) > 1 {
			total += sepLen
		}
	}
	if w := joinWindow(current, sep); w != "" {
		windows = append(windows, w)
	}
	return windows
}

func joinWindow(pieces []string, sep string) string {
	return strings.TrimSpace(strings.Join(pieces, sep))
}

// Chunker turns extracted pages into chunks. A chunk never spans two pages.
type Chunker struct {
	splitter *Splitter
	logger   *zap.Logger
}

// New creates a chunker. A nil logger disables logging.
func New(config Config, logger *zap.Logger) *Chunker {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Chunker{splitter: NewSplitter(config), logger: logger}
}

func (c *Chunker) Name() string {
	return "character"
}

// Chunk splits every page and tags each window with the page's locator.
func (c *Chunker) Chunk(pages []Page) []Chunk {
	var chunks []Chunk
	for _, page := range pages {
		for _, text := range c.splitter.Split(page.Text) {
			chunks = append(chunks, Chunk{Text: text, Locator: page.Locator})
		}
	}
	c.logger.Debug("chunked document",
		zap.String("chunker", c.Name()),
		zap.Int("pages", len(pages)),
		zap.Int("chunks", len(chunks)),
	)
	return chunks
}
