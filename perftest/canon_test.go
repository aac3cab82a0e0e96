package perftest

import (
	"errors"
	"math"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestCanonFirstResultIsStored(t *testing.T) {
	c := NewCanon(2, DefaultCanonEpsilon)

	result := []float64{1, 2, 3}
	divergences, err := c.CheckOrSet(1, result)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if len(divergences) != 0 {
		t.Errorf("first result reported divergences %v", divergences)
	}

	// The canon must not alias the caller's slice.
	result[0] = 100
	if diff := cmp.Diff(c.Reference(1), []float64{1, 2, 3}); diff != "" {
		t.Errorf("Reference(1); (-got +want)\n%s", diff)
	}
	if c.Reference(0) != nil {
		t.Errorf("Reference(0) set without a result")
	}
}

func TestCanonCheck(t *testing.T) {
	testCases := []struct {
		desc   string
		result []float64
		want   []Divergence
	}{
		{
			desc:   "identical",
			result: []float64{1, 2, 3},
		},
		{
			desc:   "within epsilon",
			result: []float64{1 + 1e-7, 2 - 1e-7, 3},
		},
		{
			desc:   "one element off",
			result: []float64{1, 2.5, 3},
			want:   []Divergence{{Block: 0, Index: 1, Got: 2.5, Want: 2, Delta: 0.5}},
		},
		{
			desc:   "two elements off",
			result: []float64{0, 2, 4},
			want: []Divergence{
				{Block: 0, Index: 0, Got: 0, Want: 1, Delta: -1},
				{Block: 0, Index: 2, Got: 4, Want: 3, Delta: 1},
			},
		},
	}
	for _, tc := range testCases {
		t.Run(tc.desc, func(t *testing.T) {
			c := NewCanon(1, DefaultCanonEpsilon)
			if _, err := c.CheckOrSet(0, []float64{1, 2, 3}); err != nil {
				t.Fatalf("Unexpected error: %v", err)
			}
			got, err := c.CheckOrSet(0, tc.result)
			if err != nil {
				t.Fatalf("Unexpected error: %v", err)
			}
			if diff := cmp.Diff(got, tc.want); diff != "" {
				t.Errorf("(-got +want)\n%s", diff)
			}
		})
	}
}

func TestCanonNaN(t *testing.T) {
	c := NewCanon(1, DefaultCanonEpsilon)
	if _, err := c.CheckOrSet(0, []float64{1, 2}); err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	got, err := c.CheckOrSet(0, []float64{1, math.NaN()})
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if len(got) != 1 || got[0].Index != 1 {
		t.Errorf("got divergences %v, want one at index 1", got)
	}
}

func TestCanonErrors(t *testing.T) {
	c := NewCanon(1, DefaultCanonEpsilon)
	if _, err := c.CheckOrSet(0, []float64{1, 2}); err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if _, err := c.CheckOrSet(0, []float64{1, 2, 3}); !errors.Is(err, ErrCanonSizeMismatch) {
		t.Errorf("size mismatch; got error %v, want %v", err, ErrCanonSizeMismatch)
	}
	if _, err := c.CheckOrSet(1, []float64{1}); err == nil {
		t.Errorf("out of range block; got nil error")
	}
}
