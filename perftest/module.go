package perftest

import (
	"fmt"
	"log/slog"
	"math"
	"slices"

	"github.com/ahmedtd/modelperf/toolbox"
)

// Module is one interchangeable implementation of model scoring.
//
// Do scores every document of a block.  For ObjectsFirst, view holds one row
// of feature values per document; for FeaturesFirst it holds one column per
// feature.  The result has one score per document.  Implementations may keep
// scratch buffers between calls but must not retain view or the result.
type Module interface {
	Name(layout Layout) string
	SupportsLayout(layout Layout) bool
	// ComparisonPriority is only used to choose the baseline for relative
	// reporting.  The highest priority wins.
	ComparisonPriority(layout Layout) int
	Do(layout Layout, view [][]float32) []float64
}

// Constructor binds a module to a loaded model.  It fails when the module
// cannot score that model.
type Constructor func(model *toolbox.Network) (Module, error)

// Registry maps registration keys to module constructors.  It is filled once
// at startup and read-only afterwards.
type Registry struct {
	ctors map[string]Constructor
}

func NewRegistry() *Registry {
	return &Registry{ctors: map[string]Constructor{}}
}

// Register adds a constructor under key.  Registering an empty or duplicate key
// is a programming error.
func (r *Registry) Register(key string, ctor Constructor) {
	if key == "" {
		panic("perftest: empty module key")
	}
	if ctor == nil {
		panic("perftest: nil constructor for module " + key)
	}
	if _, ok := r.ctors[key]; ok {
		panic("perftest: module " + key + " registered twice")
	}
	r.ctors[key] = ctor
}

// Keys returns the registered keys in ascending order.
func (r *Registry) Keys() []string {
	keys := make([]string, 0, len(r.ctors))
	for k := range r.ctors {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}

func (r *Registry) Has(key string) bool {
	_, ok := r.ctors[key]
	return ok
}

func (r *Registry) Construct(key string, model *toolbox.Network) (Module, error) {
	ctor, ok := r.ctors[key]
	if !ok {
		return nil, fmt.Errorf("no module registered as %q", key)
	}
	return ctor(model)
}

// Entry is a constructed module and the key it was registered under.
type Entry struct {
	Key    string
	Module Module
}

// ConstructAll builds the modules named by keys (every registered module if
// keys is empty) in ascending key order.  A module that fails to construct is
// logged and left out; its error is reported in the returned map.
func (r *Registry) ConstructAll(model *toolbox.Network, keys []string, logger *slog.Logger) ([]Entry, map[string]error) {
	if len(keys) == 0 {
		keys = r.Keys()
	} else {
		keys = slices.Clone(keys)
		slices.Sort(keys)
		keys = slices.Compact(keys)
	}

	var entries []Entry
	excluded := map[string]error{}
	for _, key := range keys {
		m, err := r.constructRecover(key, model)
		if err != nil {
			logger.Error("Failed to construct module", "key", key, "err", err)
			excluded[key] = err
			continue
		}
		logger.Debug("Constructed module", "key", key)
		entries = append(entries, Entry{Key: key, Module: m})
	}
	return entries, excluded
}

// constructRecover turns a panicking constructor into an ordinary
// construction failure.
func (r *Registry) constructRecover(key string, model *toolbox.Network) (m Module, err error) {
	defer func() {
		if p := recover(); p != nil {
			m, err = nil, fmt.Errorf("panic: %v", p)
		}
	}()
	return r.Construct(key, model)
}

// Baseline identifies the module/layout pair whose results are the
// denominator of relative reporting.
type Baseline struct {
	Index  int // into the entries passed to SelectBaseline
	Layout Layout
	Name   string
}

// SelectBaseline picks the supported (module, layout) pair with the strictly
// highest comparison priority.  Entries are visited in order and
// ObjectsFirst before FeaturesFirst, so the first one seen wins ties.
func SelectBaseline(entries []Entry) (Baseline, bool) {
	best := Baseline{Index: -1}
	bestPriority := math.MinInt
	for i, e := range entries {
		for _, layout := range Layouts {
			if !e.Module.SupportsLayout(layout) {
				continue
			}
			if p := e.Module.ComparisonPriority(layout); p > bestPriority {
				bestPriority = p
				best = Baseline{Index: i, Layout: layout, Name: e.Module.Name(layout)}
			}
		}
	}
	return best, best.Index >= 0
}
