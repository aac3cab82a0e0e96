package perftest

import (
	"fmt"
	"io"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// Stats is the machine-readable summary of a Timing.  Values are seconds.
type Stats struct {
	Min  float64 `json:"min"`
	Max  float64 `json:"max"`
	Mean float64 `json:"mean"`
}

// Timing accumulates elapsed-time samples, in seconds, for one variant.
type Timing struct {
	samples []float64
}

func (t *Timing) Add(seconds float64) {
	if seconds < 0 {
		panic(fmt.Sprintf("negative timing sample %v", seconds))
	}
	t.samples = append(t.samples, seconds)
}

func (t *Timing) Len() int {
	return len(t.samples)
}

// Min, Max and Mean panic when no sample has been added.

func (t *Timing) Min() float64 {
	t.mustHaveSamples()
	return floats.Min(t.samples)
}

func (t *Timing) Max() float64 {
	t.mustHaveSamples()
	return floats.Max(t.samples)
}

func (t *Timing) Mean() float64 {
	t.mustHaveSamples()
	return stat.Mean(t.samples, nil)
}

func (t *Timing) Stats() Stats {
	return Stats{Min: t.Min(), Max: t.Max(), Mean: t.Mean()}
}

func (t *Timing) mustHaveSamples() {
	if len(t.samples) == 0 {
		panic("timing has no samples")
	}
}

// Output writes one line per statistic.  When ref is non-nil each line also
// carries the ratio of this timing's statistic to ref's.
func (t *Timing) Output(w io.Writer, ref *Timing) error {
	var refStats Stats
	if ref != nil {
		refStats = ref.Stats()
	}
	stats := t.Stats()

	lines := []struct {
		label    string
		mine     float64
		baseline float64
	}{
		{"min", stats.Min, refStats.Min},
		{"max", stats.Max, refStats.Max},
		{"mean", stats.Mean, refStats.Mean},
	}
	for _, l := range lines {
		var err error
		if ref != nil {
			_, err = fmt.Fprintf(w, "%s:\t%g\t%g\n", l.label, l.mine, l.mine/l.baseline)
		} else {
			_, err = fmt.Fprintf(w, "%s:\t%g\n", l.label, l.mine)
		}
		if err != nil {
			return fmt.Errorf("while writing %s: %w", l.label, err)
		}
	}
	return nil
}
