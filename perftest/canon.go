package perftest

import (
	"errors"
	"fmt"
	"math"
	"slices"
)

// DefaultCanonEpsilon is the largest absolute difference from the canon that
// is not reported.
const DefaultCanonEpsilon = 1e-6

// ErrCanonSizeMismatch is returned when a result and the canon for the same
// block differ in length, which means modules disagree on block boundaries.
var ErrCanonSizeMismatch = errors.New("result size does not match canon")

// Divergence is one element of a block result that strayed from the canon.
type Divergence struct {
	Block int
	Index int
	Got   float64
	Want  float64
	Delta float64
}

func (d Divergence) String() string {
	return fmt.Sprintf("block=%d index=%d got=%g want=%g delta=%g", d.Block, d.Index, d.Got, d.Want, d.Delta)
}

// Canon remembers, per block, the first result observed and checks every later
// result for the same block against it.
type Canon struct {
	epsilon float64
	results [][]float64
}

func NewCanon(blockCount int, epsilon float64) *Canon {
	return &Canon{
		epsilon: epsilon,
		results: make([][]float64, blockCount),
	}
}

// CheckOrSet stores result as the canon for blockID if there is none yet.
// Otherwise it returns one Divergence per element further than epsilon from
// the canon.
func (c *Canon) CheckOrSet(blockID int, result []float64) ([]Divergence, error) {
	if blockID < 0 || blockID >= len(c.results) {
		return nil, fmt.Errorf("block %d out of range [0, %d)", blockID, len(c.results))
	}
	ref := c.results[blockID]
	if len(ref) == 0 {
		c.results[blockID] = slices.Clone(result)
		return nil, nil
	}
	if len(result) != len(ref) {
		return nil, fmt.Errorf("%w: block %d has %d results, canon has %d", ErrCanonSizeMismatch, blockID, len(result), len(ref))
	}

	var divergences []Divergence
	for i := range result {
		delta := result[i] - ref[i]
		// NaN never compares greater, so check it explicitly.
		if math.Abs(delta) > c.epsilon || math.IsNaN(delta) {
			divergences = append(divergences, Divergence{
				Block: blockID,
				Index: i,
				Got:   result[i],
				Want:  ref[i],
				Delta: delta,
			})
		}
	}
	return divergences, nil
}

// Reference returns the canon for blockID, or nil if none is set.
func (c *Canon) Reference(blockID int) []float64 {
	return c.results[blockID]
}
