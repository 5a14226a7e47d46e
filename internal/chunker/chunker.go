package chunker

import (
	"fmt"
	"strings"

	"github.com/seanblong/pdfchat/pkg/models"
)

const (
	DefaultMaxChunkSize = 4000
	DefaultOverlap      = 200

	// boundaryRatio is how far into a window a sentence end must sit before
	// the window is cut there instead of at its full length.
	boundaryRatio = 0.7
)

// Config holds the chunk size and overlap, both measured in characters.
type Config struct {
	MaxChunkSize int
	Overlap      int
}

func DefaultConfig() Config {
	return Config{MaxChunkSize: DefaultMaxChunkSize, Overlap: DefaultOverlap}
}

// Validate rejects configurations that could not make progress.
func (c Config) Validate() error {
	if c.MaxChunkSize <= 0 {
		return fmt.Errorf("max chunk size must be positive, got %d", c.MaxChunkSize)
	}
	if c.Overlap < 0 {
		return fmt.Errorf("chunk overlap must not be negative, got %d", c.Overlap)
	}
	if c.Overlap >= c.MaxChunkSize {
		return fmt.Errorf("chunk overlap (%d) must be smaller than max chunk size (%d)", c.Overlap, c.MaxChunkSize)
	}
	return nil
}

// Chunker splits document text into overlapping, sentence-aware chunks.
type Chunker struct {
	cfg Config
}

// New returns a Chunker for cfg, or an error if cfg is invalid.
func New(cfg Config) (*Chunker, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &Chunker{cfg: cfg}, nil
}

func (c *Chunker) Config() Config { return c.cfg }

// Chunk splits text into ordered chunks.
//
// Text no longer than MaxChunkSize comes back whole and untrimmed. Longer text
// is cut into windows of MaxChunkSize; a window that does not reach the end is
// shortened to its last '.', '!' or '?' when that terminator lies at or past
// 70% of the window. Windows start MaxChunkSize-Overlap apart until the start
// passes the end of the text; a shortened window moves the next start back to
// Overlap characters before the cut, so every character lands in at least one
// chunk.
func (c *Chunker) Chunk(text string) []models.Chunk {
	runes := []rune(text)
	n := len(runes)
	if n <= c.cfg.MaxChunkSize {
		return []models.Chunk{{Index: 0, Text: text}}
	}

	var out []models.Chunk
	start := 0
	for start < n {
		end := min(start+c.cfg.MaxChunkSize, n)
		cut := end
		next := start + c.cfg.MaxChunkSize - c.cfg.Overlap
		if end < n {
			if i := lastTerminator(runes[start:end]); i >= 0 && float64(i) >= boundaryRatio*float64(c.cfg.MaxChunkSize) {
				cut = start + i + 1
				next = max(cut-c.cfg.Overlap, start+1)
			}
		}

		if s := strings.TrimSpace(string(runes[start:cut])); s != "" {
			out = append(out, models.Chunk{Index: len(out), Text: s})
		}
		start = next
	}
	return out
}

func lastTerminator(window []rune) int {
	for i := len(window) - 1; i >= 0; i-- {
		switch window[i] {
		case '.', '!', '?':
			return i
		}
	}
	return -1
}
