package perftest

import (
	"errors"
	"fmt"
)

// ErrEmptyPool is returned when there are no documents to benchmark.
var ErrEmptyPool = errors.New("empty pool")

// FeatureMatrix is a docs x features matrix stored column by column.  Column
// returns the storage itself; callers must not modify it.
type FeatureMatrix interface {
	ObjectCount() int
	FeatureCount() int
	Column(feature int) []float32
}

// Block is a contiguous range of documents, viewed in both layouts.
type Block struct {
	ID    int
	Start int
	Size  int

	// FeaturesFirst has one slice per feature, aliasing the matrix columns.
	FeaturesFirst [][]float32
	// ObjectsFirst has one row per document, copied out of the matrix.
	ObjectsFirst [][]float32
}

func (b *Block) View(layout Layout) [][]float32 {
	switch layout {
	case ObjectsFirst:
		return b.ObjectsFirst
	case FeaturesFirst:
		return b.FeaturesFirst
	default:
		panic(fmt.Sprintf("unknown layout %v", layout))
	}
}

// Partition is the set of blocks a run iterates over.
type Partition struct {
	BlockSize int
	Blocks    []*Block
	// Dropped counts trailing documents that belong to no block.
	Dropped int
}

// PartitionBlocks splits data into blocks of blockSize documents.  A
// non-positive blockSize, or one larger than the pool, means a single block
// holding every document.  Documents past the last full block are dropped
// unless keepRemainder is set, in which case they form one short final block.
func PartitionBlocks(data FeatureMatrix, blockSize int, keepRemainder bool) (*Partition, error) {
	docCount := data.ObjectCount()
	featureCount := data.FeatureCount()
	if blockSize <= 0 || blockSize > docCount {
		blockSize = docCount
	}
	if blockSize == 0 {
		return nil, ErrEmptyPool
	}

	blockCount := docCount / blockSize
	remainder := docCount - blockCount*blockSize
	if keepRemainder && remainder > 0 {
		blockCount++
		remainder = 0
	}

	columns := make([][]float32, featureCount)
	for f := range featureCount {
		columns[f] = data.Column(f)
		if len(columns[f]) != docCount {
			return nil, fmt.Errorf("feature %d has %d values, want %d", f, len(columns[f]), docCount)
		}
	}

	p := &Partition{
		BlockSize: blockSize,
		Blocks:    make([]*Block, blockCount),
		Dropped:   remainder,
	}
	for id := range blockCount {
		start := id * blockSize
		size := min(blockSize, docCount-start)
		b := &Block{
			ID:            id,
			Start:         start,
			Size:          size,
			FeaturesFirst: make([][]float32, featureCount),
			ObjectsFirst:  make([][]float32, size),
		}
		for f := range featureCount {
			b.FeaturesFirst[f] = columns[f][start : start+size : start+size]
		}

		// Rows share one allocation per block.
		rows := make([]float32, size*featureCount)
		for d := range size {
			row := rows[d*featureCount : (d+1)*featureCount : (d+1)*featureCount]
			for f := range featureCount {
				row[f] = columns[f][start+d]
			}
			b.ObjectsFirst[d] = row
		}
		p.Blocks[id] = b
	}
	return p, nil
}
