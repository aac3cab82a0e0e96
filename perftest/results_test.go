package perftest

import (
	"bytes"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestResultsNamesSorted(t *testing.T) {
	r := NewResults()
	for _, name := range []string{"vek-objects", "blas-features", "naive-objects", "blas-features", "asm-objects"} {
		r.UpdateResult(name, 1)
	}

	want := []string{"asm-objects", "blas-features", "naive-objects", "vek-objects"}
	if diff := cmp.Diff(r.Names(), want); diff != "" {
		t.Errorf("Names(); (-got +want)\n%s", diff)
	}

	timing, ok := r.Timing("blas-features")
	if !ok {
		t.Fatalf("blas-features missing")
	}
	if got, want := timing.Len(), 2; got != want {
		t.Errorf("blas-features samples; got %d, want %d", got, want)
	}
}

func TestOutputResults(t *testing.T) {
	r := NewResults()
	r.BaseResultName = "naive-objects"
	for _, s := range []float64{1, 2, 3} {
		r.UpdateResult("naive-objects", s)
		r.UpdateResult("blas-objects", s/2)
		r.UpdateResult("vek-objects", s)
	}

	jsonPath := filepath.Join(t.TempDir(), "results.json")
	buf := &bytes.Buffer{}
	if err := r.OutputResults(buf, jsonPath); err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}

	want := "name\tvalue\tdiff\n" +
		"naive-objects\t\n" +
		"min:\t1\t1\nmax:\t3\t1\nmean:\t2\t1\n" +
		"blas-objects\t\n" +
		"min:\t0.5\t0.5\nmax:\t1.5\t0.5\nmean:\t1\t0.5\n" +
		"vek-objects\t\n" +
		"min:\t1\t1\nmax:\t3\t1\nmean:\t2\t1\n"
	if diff := cmp.Diff(buf.String(), want); diff != "" {
		t.Errorf("Report; (-got +want)\n%s", diff)
	}

	b, err := os.ReadFile(jsonPath)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	got := map[string]Stats{}
	if err := json.Unmarshal(b, &got); err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	wantJSON := map[string]Stats{
		"naive-objects": {Min: 1, Max: 3, Mean: 2},
		"blas-objects":  {Min: 0.5, Max: 1.5, Mean: 1},
		"vek-objects":   {Min: 1, Max: 3, Mean: 2},
	}
	if diff := cmp.Diff(got, wantJSON); diff != "" {
		t.Errorf("JSON; (-got +want)\n%s", diff)
	}
}

func TestOutputResultsJSONKeys(t *testing.T) {
	r := NewResults()
	r.UpdateResult("naive-objects", 1)

	jsonPath := filepath.Join(t.TempDir(), "results.json")
	if err := r.OutputResults(&bytes.Buffer{}, jsonPath); err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	b, err := os.ReadFile(jsonPath)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	got := map[string]map[string]float64{}
	if err := json.Unmarshal(b, &got); err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	want := map[string]map[string]float64{
		"naive-objects": {"min": 1, "max": 1, "mean": 1},
	}
	if diff := cmp.Diff(got, want); diff != "" {
		t.Errorf("(-got +want)\n%s", diff)
	}
}

func TestOutputResultsMissingBaseline(t *testing.T) {
	r := NewResults()
	r.BaseResultName = "naive-objects"
	r.UpdateResult("blas-objects", 1)

	jsonPath := filepath.Join(t.TempDir(), "results.json")
	err := r.OutputResults(&bytes.Buffer{}, jsonPath)
	if !errors.Is(err, ErrMissingBaseline) {
		t.Fatalf("got error %v, want %v", err, ErrMissingBaseline)
	}
	if _, err := os.Stat(jsonPath); !os.IsNotExist(err) {
		t.Errorf("results file written despite error")
	}
}
