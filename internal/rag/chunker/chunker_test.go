package chunker

import (
	"context"
	"strings"
	"testing"
	"unicode"
	"unicode/utf8"
)

func newSplitter(t *testing.T, size, overlap int) *Splitter {
	t.Helper()
	s, err := New(size, overlap)
	if err != nil {
		t.Fatalf("New(%d, %d) error = %v", size, overlap, err)
	}
	return s
}

func split(t *testing.T, s *Splitter, text string) []string {
	t.Helper()
	chunks, err := s.Split(context.Background(), text)
	if err != nil {
		t.Fatalf("Split() error = %v", err)
	}
	return chunks
}

// indexRunes returns the first index >= from where sub occurs in runes, or -1
func indexRunes(runes, sub []rune, from int) int {
	for i := from; i+len(sub) <= len(runes); i++ {
		match := true
		for j, r := range sub {
			if runes[i+j] != r {
				match = false
				break
			}
		}
		if match {
			return i
		}
	}
	return -1
}

func onlySpace(runes []rune) bool {
	for _, r := range runes {
		if !unicode.IsSpace(r) {
			return false
		}
	}
	return true
}

// checkChunks places every chunk in the input, each one no earlier than the
// previous end minus the overlap. The placement must leave no gap other than
// whitespace and keep every chunk within the size limit.
func checkChunks(t *testing.T, s *Splitter, text string, chunks []string) {
	t.Helper()

	if len(chunks) == 0 {
		t.Fatal("expected at least one chunk")
	}

	runes := []rune(text)
	prevStart, prevEnd := -1, 0
	for i, c := range chunks {
		n := utf8.RuneCountInString(c)
		if n == 0 || n > s.size {
			t.Fatalf("chunk %d has %d runes, limit %d", i, n, s.size)
		}

		from := prevEnd - s.overlap
		if from <= prevStart {
			from = prevStart + 1
		}
		if from < 0 {
			from = 0
		}

		start := indexRunes(runes, []rune(c), from)
		if start < 0 {
			t.Fatalf("chunk %d %q is not a substring of the input after rune %d", i, c, from)
		}
		if start > prevEnd && !onlySpace(runes[prevEnd:start]) {
			t.Fatalf("text %q between chunk %d and %d is not covered", string(runes[prevEnd:start]), i-1, i)
		}
		if shared := prevEnd - start; i > 0 && shared > s.overlap {
			t.Fatalf("chunks %d and %d share %d runes, limit %d", i-1, i, shared, s.overlap)
		}

		prevStart, prevEnd = start, start+n
	}

	if !onlySpace(runes[prevEnd:]) {
		t.Fatalf("tail %q is not covered", string(runes[prevEnd:]))
	}
}

func TestSplitEmpty(t *testing.T) {
	s := newSplitter(t, DefaultSize, DefaultOverlap)
	if got := split(t, s, ""); len(got) != 0 {
		t.Errorf("Split(\"\") = %v, want no chunks", got)
	}
}

func TestSplitShortTextIsOneChunk(t *testing.T) {
	s := newSplitter(t, DefaultSize, DefaultOverlap)
	text := "  Ada Lovelace\n\nMathematician and writer.  "
	got := split(t, s, text)
	if len(got) != 1 || got[0] != text {
		t.Errorf("Split() = %q, want [%q]", got, text)
	}
}

func TestSplitPrefersParagraphBoundaries(t *testing.T) {
	s := newSplitter(t, 50, 10)

	para1 := strings.Repeat("a", 30)
	para2 := strings.Repeat("b", 30)
	text := para1 + "\n\n" + para2

	got := split(t, s, text)
	if len(got) != 2 {
		t.Fatalf("Split() returned %d chunks, want 2: %q", len(got), got)
	}
	if strings.TrimSpace(got[0]) != para1 || strings.TrimSpace(got[1]) != para2 {
		t.Errorf("Split() = %q", got)
	}
	checkChunks(t, s, text, got)
}

func TestSplitFallsBackToSingleCharacters(t *testing.T) {
	s := newSplitter(t, 10, 3)

	text := strings.Repeat("x", 25)
	got := split(t, s, text)
	checkChunks(t, s, text, got)
	for i, c := range got[:len(got)-1] {
		if len(c) != 10 {
			t.Errorf("chunk %d has length %d, want 10", i, len(c))
		}
	}
}

func TestSplitGuarantees(t *testing.T) {
	var sb strings.Builder
	for i := 0; i < 60; i++ {
		sb.WriteString("Ada worked on the Analytical Engine with Charles Babbage. ")
		if i%5 == 4 {
			sb.WriteString("\n")
		}
		if i%17 == 16 {
			sb.WriteString("\n\nПроекты и публикации, заметки о машине.\n\n")
		}
	}
	sb.WriteString(strings.Repeat("z", 1500))
	text := sb.String()

	s := newSplitter(t, DefaultSize, DefaultOverlap)
	got := split(t, s, text)
	if len(got) < 2 {
		t.Fatalf("Split() returned %d chunks, want several", len(got))
	}
	checkChunks(t, s, text, got)
}

func TestSplitDeterministic(t *testing.T) {
	s := newSplitter(t, DefaultSize, DefaultOverlap)
	text := strings.Repeat("Lorem ipsum dolor sit amet. ", 200)
	a, b := split(t, s, text), split(t, s, text)
	if len(a) != len(b) {
		t.Fatalf("Split() not deterministic: %d vs %d chunks", len(a), len(b))
	}
	for i := range a {
		if a[i] != b[i] {
			t.Fatalf("chunk %d differs between runs", i)
		}
	}
}

func TestNewValidates(t *testing.T) {
	tests := []struct {
		size, overlap int
		wantErr       bool
	}{
		{1000, 200, false},
		{10, 0, false},
		{0, 0, true},
		{10, 10, true},
		{10, -1, true},
	}
	for _, tt := range tests {
		_, err := New(tt.size, tt.overlap)
		if (err != nil) != tt.wantErr {
			t.Errorf("New(%d, %d) error = %v, wantErr %v", tt.size, tt.overlap, err, tt.wantErr)
		}
	}
}
