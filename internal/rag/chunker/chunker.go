// Package chunker splits extracted document text into overlapping chunks.
package chunker

import (
	"context"
	"fmt"
	"unicode/utf8"

	"github.com/cloudwego/eino-ext/components/document/transformer/splitter/recursive"
	"github.com/cloudwego/eino/components/document"
	"github.com/cloudwego/eino/schema"
)

const (
	DefaultSize    = 1000
	DefaultOverlap = 200
)

// separators are tried in order; the empty separator splits into single characters
var separators = []string{"\n\n", "\n", ". ", " ", ""}

// Splitter cuts text into chunks of at most size runes, with neighbours sharing
// at most overlap runes. Separators stay at the end of the piece they close,
// so every chunk is a substring of the input.
type Splitter struct {
	size        int
	overlap     int
	transformer document.Transformer
}

func New(size, overlap int) (*Splitter, error) {
	if size <= 0 {
		return nil, fmt.Errorf("chunk size must be positive, got %d", size)
	}
	if overlap < 0 || overlap >= size {
		return nil, fmt.Errorf("chunk overlap must be in [0, %d), got %d", size, overlap)
	}

	transformer, err := recursive.NewSplitter(context.Background(), &recursive.Config{
		ChunkSize:   size,
		OverlapSize: overlap,
		Separators:  separators,
		LenFunc:     utf8.RuneCountInString,
		KeepType:    recursive.KeepTypeEnd,
	})
	if err != nil {
		return nil, fmt.Errorf("create recursive splitter: %w", err)
	}

	return &Splitter{size: size, overlap: overlap, transformer: transformer}, nil
}

// NewDefault returns a splitter with DefaultSize and DefaultOverlap
func NewDefault() (*Splitter, error) {
	return New(DefaultSize, DefaultOverlap)
}

// Split returns the chunks of text in document order. Text that fits in one
// chunk is returned whole.
func (s *Splitter) Split(ctx context.Context, text string) ([]string, error) {
	if text == "" {
		return nil, nil
	}
	if utf8.RuneCountInString(text) <= s.size {
		return []string{text}, nil
	}

	docs, err := s.transformer.Transform(ctx, []*schema.Document{{Content: text}})
	if err != nil {
		return nil, fmt.Errorf("split text: %w", err)
	}

	chunks := make([]string, 0, len(docs))
	for _, doc := range docs {
		if doc.Content != "" {
			chunks = append(chunks, doc.Content)
		}
	}
	return chunks, nil
}
