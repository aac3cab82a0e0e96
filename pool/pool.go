// Package pool holds feature matrices in column-major storage and loads them
// from DSV, npy and npz files.
package pool

import (
	"fmt"
)

// Pool is a docs x features matrix of float32 stored one column per feature.
// It implements perftest.FeatureMatrix.
type Pool struct {
	docs    int
	columns [][]float32
}

// New wraps columns, each of which must hold docs values.  The columns are
// not copied.
func New(docs int, columns [][]float32) (*Pool, error) {
	for f, col := range columns {
		if len(col) != docs {
			return nil, fmt.Errorf("feature %d has %d values, want %d", f, len(col), docs)
		}
	}
	return &Pool{docs: docs, columns: columns}, nil
}

// FromRows builds a pool by transposing rows, one per document.
func FromRows(rows [][]float32) (*Pool, error) {
	if len(rows) == 0 {
		return &Pool{}, nil
	}
	featureCount := len(rows[0])
	storage := make([]float32, len(rows)*featureCount)
	columns := make([][]float32, featureCount)
	for f := range columns {
		columns[f] = storage[f*len(rows) : (f+1)*len(rows)]
	}
	for k, row := range rows {
		if len(row) != featureCount {
			return nil, fmt.Errorf("document %d has %d features, want %d", k, len(row), featureCount)
		}
		for f, v := range row {
			columns[f][k] = v
		}
	}
	return &Pool{docs: len(rows), columns: columns}, nil
}

func (p *Pool) ObjectCount() int {
	return p.docs
}

func (p *Pool) FeatureCount() int {
	return len(p.columns)
}

func (p *Pool) Column(feature int) []float32 {
	return p.columns[feature]
}

// Row copies document k's feature values into a new slice.
func (p *Pool) Row(k int) []float32 {
	row := make([]float32, len(p.columns))
	for f, col := range p.columns {
		row[f] = col[k]
	}
	return row
}
