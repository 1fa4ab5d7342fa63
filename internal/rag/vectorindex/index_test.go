package vectorindex

import (
	"errors"
	"testing"

	"github.com/twinlyai/bot-backend/internal/entity"
)

func unit(dim, axis int) []float32 {
	v := make([]float32, dim)
	v[axis] = 1
	return v
}

func TestBuildValidates(t *testing.T) {
	tests := []struct {
		name    string
		chunks  []string
		vectors [][]float32
		wantErr error
	}{
		{name: "empty", wantErr: entity.ErrEmptyDocument},
		{name: "length mismatch", chunks: []string{"a", "b"}, vectors: [][]float32{unit(2, 0)}},
		{name: "dimension mismatch", chunks: []string{"a", "b"}, vectors: [][]float32{unit(2, 0), unit(3, 0)}, wantErr: ErrDimensionMismatch},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Build(tt.chunks, tt.vectors)
			if err == nil {
				t.Fatal("Build() expected error")
			}
			if tt.wantErr != nil && !errors.Is(err, tt.wantErr) {
				t.Errorf("Build() error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestSearchOrdersByScore(t *testing.T) {
	ix, err := Build(
		[]string{"education", "experience", "skills"},
		[][]float32{unit(3, 0), unit(3, 1), unit(3, 2)},
	)
	if err != nil {
		t.Fatalf("Build() error = %v", err)
	}

	results, err := ix.Search([]float32{0.1, 0.9, 0.4}, 2)
	if err != nil {
		t.Fatalf("Search() error = %v", err)
	}
	if len(results) != 2 {
		t.Fatalf("Search() returned %d results, want 2", len(results))
	}
	if results[0].Text != "experience" || results[1].Text != "skills" {
		t.Errorf("Search() = %+v", results)
	}
	if results[0].Seq != 1 {
		t.Errorf("Search()[0].Seq = %d, want 1", results[0].Seq)
	}
}

func TestSearchTiesKeepChunkOrder(t *testing.T) {
	ix, err := Build(
		[]string{"first", "second", "third", "other"},
		[][]float32{unit(2, 0), unit(2, 0), unit(2, 0), unit(2, 1)},
	)
	if err != nil {
		t.Fatalf("Build() error = %v", err)
	}

	results, err := ix.Search(unit(2, 0), 3)
	if err != nil {
		t.Fatalf("Search() error = %v", err)
	}
	for i, want := range []string{"first", "second", "third"} {
		if results[i].Text != want {
			t.Errorf("Search()[%d] = %q, want %q", i, results[i].Text, want)
		}
	}
}

func TestSearchK(t *testing.T) {
	chunks := []string{"a", "b", "c", "d", "e", "f"}
	vectors := make([][]float32, len(chunks))
	for i := range vectors {
		vectors[i] = unit(6, i)
	}
	ix, err := Build(chunks, vectors)
	if err != nil {
		t.Fatalf("Build() error = %v", err)
	}

	tests := []struct {
		k    int
		want int
	}{
		{k: 0, want: DefaultTopK},
		{k: -3, want: DefaultTopK},
		{k: 2, want: 2},
		{k: 100, want: len(chunks)},
	}
	for _, tt := range tests {
		results, err := ix.Search(unit(6, 0), tt.k)
		if err != nil {
			t.Fatalf("Search(k=%d) error = %v", tt.k, err)
		}
		if len(results) != tt.want {
			t.Errorf("Search(k=%d) returned %d results, want %d", tt.k, len(results), tt.want)
		}
	}
}

func TestSearchRejectsWrongDimension(t *testing.T) {
	ix, err := Build([]string{"a"}, [][]float32{unit(3, 0)})
	if err != nil {
		t.Fatalf("Build() error = %v", err)
	}
	if _, err := ix.Search(unit(4, 0), 1); !errors.Is(err, ErrDimensionMismatch) {
		t.Errorf("Search() error = %v, want ErrDimensionMismatch", err)
	}
}
