package perftest

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"slices"
)

// DefaultResultsPath is where OutputResults writes the JSON summary unless told
// otherwise.
const DefaultResultsPath = "results.json"

// ErrMissingBaseline is returned when the baseline variant never produced a
// timing sample.
var ErrMissingBaseline = errors.New("baseline variant has no results")

// Results holds one Timing per variant name, ordered by name.
type Results struct {
	// BaseResultName is the variant every other variant is compared against.
	// Empty means no comparison.
	BaseResultName string

	names   []string
	timings map[string]*Timing
}

func NewResults() *Results {
	return &Results{timings: map[string]*Timing{}}
}

// UpdateResult appends a sample to the named variant, creating it on first
// use.
func (r *Results) UpdateResult(name string, seconds float64) {
	t, ok := r.timings[name]
	if !ok {
		t = &Timing{}
		r.timings[name] = t
		idx, _ := slices.BinarySearch(r.names, name)
		r.names = slices.Insert(r.names, idx, name)
	}
	t.Add(seconds)
}

// Names returns the variant names in ascending order.
func (r *Results) Names() []string {
	return slices.Clone(r.names)
}

func (r *Results) Timing(name string) (*Timing, bool) {
	t, ok := r.timings[name]
	return t, ok
}

// Snapshot maps every variant name to its statistics.
func (r *Results) Snapshot() map[string]Stats {
	doc := make(map[string]Stats, len(r.names))
	for _, name := range r.names {
		doc[name] = r.timings[name].Stats()
	}
	return doc
}

// OutputResults renders the comparative report to w and writes the JSON
// summary to jsonPath (skipped when jsonPath is empty).  The baseline comes
// first, followed by every other variant in name order.
func (r *Results) OutputResults(w io.Writer, jsonPath string) error {
	var ref *Timing
	if r.BaseResultName != "" {
		var ok bool
		ref, ok = r.timings[r.BaseResultName]
		if !ok {
			return fmt.Errorf("%w: %s", ErrMissingBaseline, r.BaseResultName)
		}
	}

	if _, err := fmt.Fprintf(w, "name\tvalue\tdiff\n"); err != nil {
		return fmt.Errorf("while writing report header: %w", err)
	}

	order := make([]string, 0, len(r.names))
	if ref != nil {
		order = append(order, r.BaseResultName)
	}
	for _, name := range r.names {
		if name != r.BaseResultName {
			order = append(order, name)
		}
	}

	for _, name := range order {
		if _, err := fmt.Fprintf(w, "%s\t\n", name); err != nil {
			return fmt.Errorf("while writing report for %s: %w", name, err)
		}
		if err := r.timings[name].Output(w, ref); err != nil {
			return fmt.Errorf("while writing report for %s: %w", name, err)
		}
	}

	if jsonPath == "" {
		return nil
	}
	return writeJSON(jsonPath, r.Snapshot())
}

func writeJSON(path string, doc map[string]Stats) error {
	b, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return fmt.Errorf("while marshaling results: %w", err)
	}
	b = append(b, '\n')
	if err := os.WriteFile(path, b, 0o644); err != nil {
		return fmt.Errorf("while writing %s: %w", path, err)
	}
	return nil
}
