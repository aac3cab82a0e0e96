package perftest

import "fmt"

// Layout is the physical arrangement of a block's feature values.
type Layout int

const (
	// ObjectsFirst holds one contiguous row of feature values per document.
	ObjectsFirst Layout = iota
	// FeaturesFirst holds one contiguous column of document values per feature.
	FeaturesFirst
)

// Layouts lists every layout in the order the driver runs them.
var Layouts = []Layout{ObjectsFirst, FeaturesFirst}

func (l Layout) String() string {
	switch l {
	case ObjectsFirst:
		return "objects-first"
	case FeaturesFirst:
		return "features-first"
	default:
		return fmt.Sprintf("Layout(%d)", int(l))
	}
}
