package pool

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"strings"

	"github.com/klauspost/compress/zstd"
	"github.com/sbinet/npyio"
	"github.com/sbinet/npyio/npz"
)

// Options controls how Load interprets a pool file.
type Options struct {
	// ColumnDescription lists non-feature columns.  Required for DSV pools.
	ColumnDescription ColumnDescription
	// Delimiter separates DSV fields.  Zero means tab.
	Delimiter rune
	// HasHeader skips the first DSV line.
	HasHeader bool
}

// ErrNeedColumnDescription is returned when a DSV pool is loaded without a
// column description.
var ErrNeedColumnDescription = errors.New("DSV pools need a column description")

// LoadColumnDescription reads a column description file.
func LoadColumnDescription(path string) (ColumnDescription, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("while opening column description: %w", err)
	}
	defer f.Close()
	return ReadColumnDescription(f)
}

// Load reads a pool from path.  The format follows the extension: ".npy",
// ".npz", anything else is DSV.  A trailing ".zst" means the file is zstd
// compressed.
func Load(path string, opts Options) (*Pool, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("while opening pool: %w", err)
	}
	defer f.Close()

	name := path
	var r io.Reader = f
	if strings.HasSuffix(name, ".zst") {
		dec, err := zstd.NewReader(f)
		if err != nil {
			return nil, fmt.Errorf("while opening zstd stream: %w", err)
		}
		defer dec.Close()
		r = dec
		name = strings.TrimSuffix(name, ".zst")
	}

	switch filepath.Ext(name) {
	case ".npy":
		return readNPY(r, opts.ColumnDescription)
	case ".npz":
		return readNPZ(r, opts.ColumnDescription)
	default:
		if opts.ColumnDescription == nil {
			return nil, ErrNeedColumnDescription
		}
		return ReadDSV(r, opts)
	}
}

// ReadDSV parses delimiter-separated values, one document per line, keeping
// the columns the description marks as features.
func ReadDSV(r io.Reader, opts Options) (*Pool, error) {
	cr := csv.NewReader(r)
	cr.Comma = opts.Delimiter
	if cr.Comma == 0 {
		cr.Comma = '\t'
	}
	cr.ReuseRecord = true
	cr.LazyQuotes = true

	if opts.HasHeader {
		if _, err := cr.Read(); err != nil {
			return nil, fmt.Errorf("while reading header: %w", err)
		}
	}

	var (
		featureColumns []int
		columns        [][]float32
		docs           int
	)
	for {
		record, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("while reading document %d: %w", docs, err)
		}
		if featureColumns == nil {
			for c := range record {
				if opts.ColumnDescription.Type(c).IsFeature() {
					featureColumns = append(featureColumns, c)
				}
			}
			columns = make([][]float32, len(featureColumns))
		}

		for f, c := range featureColumns {
			v, err := strconv.ParseFloat(strings.TrimSpace(record[c]), 32)
			if err != nil {
				return nil, fmt.Errorf("document %d column %d: %w", docs, c, err)
			}
			columns[f] = append(columns[f], float32(v))
		}
		docs++
	}

	return New(docs, columns)
}

func readNPY(r io.Reader, cd ColumnDescription) (*Pool, error) {
	nr, err := npyio.NewReader(r)
	if err != nil {
		return nil, fmt.Errorf("while reading npy header: %w", err)
	}
	data, err := readFloats(nr.Header.Descr.Type, nr.Read)
	if err != nil {
		return nil, err
	}
	return fromArray(nr.Header.Descr.Shape, nr.Header.Descr.Fortran, data, cd)
}

// npzArray is the array name read from npz pools that hold more than one.
const npzArray = "x.npy"

func readNPZ(r io.Reader, cd ColumnDescription) (*Pool, error) {
	var zr *npz.Reader
	if ra, ok := r.(*os.File); ok {
		st, err := ra.Stat()
		if err != nil {
			return nil, fmt.Errorf("while reading npz archive: %w", err)
		}
		zr, err = npz.NewReader(ra, st.Size())
		if err != nil {
			return nil, fmt.Errorf("while reading npz archive: %w", err)
		}
	} else {
		// Decompressed streams have no random access.
		b, err := io.ReadAll(r)
		if err != nil {
			return nil, fmt.Errorf("while reading npz archive: %w", err)
		}
		zr, err = npz.NewReader(bytes.NewReader(b), int64(len(b)))
		if err != nil {
			return nil, fmt.Errorf("while reading npz archive: %w", err)
		}
	}
	defer zr.Close()

	keys := zr.Keys()
	name := npzArray
	if !slices.Contains(keys, name) {
		if len(keys) != 1 {
			return nil, fmt.Errorf("npz archive has arrays %v; want %s or a single array", keys, npzArray)
		}
		name = keys[0]
	}

	header := zr.Header(name)
	data, err := readFloats(header.Descr.Type, func(ptr any) error {
		return zr.Read(name, ptr)
	})
	if err != nil {
		return nil, fmt.Errorf("while reading %s: %w", name, err)
	}
	return fromArray(header.Descr.Shape, header.Descr.Fortran, data, cd)
}

// readFloats reads an array of dtype into float32, narrowing float64.
func readFloats(dtype string, read func(ptr any) error) ([]float32, error) {
	switch dtype {
	case "<f4":
		var data []float32
		if err := read(&data); err != nil {
			return nil, fmt.Errorf("while reading float32 array: %w", err)
		}
		return data, nil
	case "<f8":
		var wide []float64
		if err := read(&wide); err != nil {
			return nil, fmt.Errorf("while reading float64 array: %w", err)
		}
		data := make([]float32, len(wide))
		for i, v := range wide {
			data[i] = float32(v)
		}
		return data, nil
	default:
		return nil, fmt.Errorf("unsupported dtype %s", dtype)
	}
}

// fromArray turns a (docs) or (docs, columns) array into a pool.  Fortran
// order arrays are already column-major and are sliced without copying.
func fromArray(shape []int, fortran bool, data []float32, cd ColumnDescription) (*Pool, error) {
	var docs, width int
	switch len(shape) {
	case 1:
		docs, width = shape[0], 1
	case 2:
		docs, width = shape[0], shape[1]
	default:
		return nil, fmt.Errorf("unsupported shape %v; want (docs, features)", shape)
	}
	if len(data) != docs*width {
		return nil, fmt.Errorf("array has %d values, shape %v needs %d", len(data), shape, docs*width)
	}

	var columns [][]float32
	for c := 0; c < width; c++ {
		if !cd.Type(c).IsFeature() {
			continue
		}
		if fortran || width == 1 {
			columns = append(columns, data[c*docs:(c+1)*docs])
			continue
		}
		col := make([]float32, docs)
		for k := range col {
			col[k] = data[k*width+c]
		}
		columns = append(columns, col)
	}
	return New(docs, columns)
}
