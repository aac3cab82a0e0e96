package perftest

import (
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
)

// columnMatrix is a FeatureMatrix over literal columns.
type columnMatrix struct {
	docs    int
	columns [][]float32
}

func (m *columnMatrix) ObjectCount() int { return m.docs }
func (m *columnMatrix) FeatureCount() int { return len(m.columns) }
func (m *columnMatrix) Column(feature int) []float32 { return m.columns[feature] }

// sequentialMatrix has docs documents whose feature f value for document k is
// k*100 + f.
func sequentialMatrix(docs, features int) *columnMatrix {
	m := &columnMatrix{docs: docs, columns: make([][]float32, features)}
	for f := range features {
		m.columns[f] = make([]float32, docs)
		for k := range docs {
			m.columns[f][k] = float32(k*100 + f)
		}
	}
	return m
}

func TestPartitionBlocks(t *testing.T) {
	testCases := []struct {
		desc          string
		docs          int
		blockSize     int
		keepRemainder bool
		wantSize      int
		wantSizes     []int
		wantDropped   int
	}{
		{
			desc:        "remainder dropped",
			docs:        10,
			blockSize:   3,
			wantSize:    3,
			wantSizes:   []int{3, 3, 3},
			wantDropped: 1,
		},
		{
			desc:          "remainder kept",
			docs:          10,
			blockSize:     3,
			keepRemainder: true,
			wantSize:      3,
			wantSizes:     []int{3, 3, 3, 1},
		},
		{
			desc:      "exact fit",
			docs:      9,
			blockSize: 3,
			wantSize:  3,
			wantSizes: []int{3, 3, 3},
		},
		{
			desc:      "zero means whole pool",
			docs:      10,
			blockSize: 0,
			wantSize:  10,
			wantSizes: []int{10},
		},
		{
			desc:      "larger than pool",
			docs:      10,
			blockSize: 1000,
			wantSize:  10,
			wantSizes: []int{10},
		},
	}
	for _, tc := range testCases {
		t.Run(tc.desc, func(t *testing.T) {
			p, err := PartitionBlocks(sequentialMatrix(tc.docs, 2), tc.blockSize, tc.keepRemainder)
			if err != nil {
				t.Fatalf("Unexpected error: %v", err)
			}
			if got := p.BlockSize; got != tc.wantSize {
				t.Errorf("BlockSize; got %d, want %d", got, tc.wantSize)
			}
			if got := p.Dropped; got != tc.wantDropped {
				t.Errorf("Dropped; got %d, want %d", got, tc.wantDropped)
			}
			var sizes []int
			for i, b := range p.Blocks {
				if b.ID != i {
					t.Errorf("block %d has ID %d", i, b.ID)
				}
				if b.Start != i*p.BlockSize {
					t.Errorf("block %d starts at %d, want %d", i, b.Start, i*p.BlockSize)
				}
				sizes = append(sizes, b.Size)
			}
			if diff := cmp.Diff(sizes, tc.wantSizes); diff != "" {
				t.Errorf("block sizes; (-got +want)\n%s", diff)
			}
		})
	}
}

func TestPartitionBlocksLayoutsAgree(t *testing.T) {
	p, err := PartitionBlocks(sequentialMatrix(10, 4), 3, true)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	for _, b := range p.Blocks {
		if got, want := len(b.ObjectsFirst), b.Size; got != want {
			t.Fatalf("block %d has %d rows, want %d", b.ID, got, want)
		}
		if got, want := len(b.FeaturesFirst), 4; got != want {
			t.Fatalf("block %d has %d columns, want %d", b.ID, got, want)
		}
		for d := range b.Size {
			for f := range 4 {
				want := float32((b.Start+d)*100 + f)
				if got := b.ObjectsFirst[d][f]; got != want {
					t.Errorf("block %d ObjectsFirst[%d][%d]; got %v, want %v", b.ID, d, f, got, want)
				}
				if got := b.FeaturesFirst[f][d]; got != want {
					t.Errorf("block %d FeaturesFirst[%d][%d]; got %v, want %v", b.ID, f, d, got, want)
				}
			}
		}
	}
}

func TestPartitionBlocksFeaturesFirstAliasesColumns(t *testing.T) {
	m := sequentialMatrix(6, 2)
	p, err := PartitionBlocks(m, 3, false)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	col := p.Blocks[1].FeaturesFirst[1]
	if &col[0] != &m.columns[1][3] {
		t.Errorf("FeaturesFirst view is a copy")
	}
	if got, want := cap(col), 3; got != want {
		t.Errorf("FeaturesFirst view capacity; got %d, want %d", got, want)
	}
}

func TestPartitionBlocksEmpty(t *testing.T) {
	_, err := PartitionBlocks(sequentialMatrix(0, 3), 5, false)
	if !errors.Is(err, ErrEmptyPool) {
		t.Errorf("got error %v, want %v", err, ErrEmptyPool)
	}
}

func TestBlockViewUnknownLayoutPanics(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Errorf("View did not panic")
		}
	}()
	(&Block{}).View(Layout(7))
}
