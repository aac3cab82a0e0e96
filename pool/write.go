package pool

import (
	"bufio"
	"fmt"
	"io"
	"strconv"

	"github.com/sbinet/npyio"
	"gonum.org/v1/gonum/mat"
)

// WriteNPY writes p as a row-major float64 (docs, features) array.
func WriteNPY(w io.Writer, p *Pool) error {
	if p.docs == 0 || len(p.columns) == 0 {
		return fmt.Errorf("cannot write an empty pool")
	}
	m := mat.NewDense(p.docs, len(p.columns), nil)
	for f, col := range p.columns {
		for k, v := range col {
			m.Set(k, f, float64(v))
		}
	}
	if err := npyio.Write(w, m); err != nil {
		return fmt.Errorf("while writing npy array: %w", err)
	}
	return nil
}

// WriteDSV writes p as tab-separated values with labels in column 0, which
// WriteColumnDescription marks as such.
func WriteDSV(w io.Writer, p *Pool, labels []float64) error {
	if len(labels) != p.docs {
		return fmt.Errorf("have %d labels for %d documents", len(labels), p.docs)
	}
	bw := bufio.NewWriter(w)
	var line []byte
	for k := 0; k < p.docs; k++ {
		line = strconv.AppendFloat(line[:0], labels[k], 'g', -1, 64)
		for _, col := range p.columns {
			line = append(line, '\t')
			line = strconv.AppendFloat(line, float64(col[k]), 'g', -1, 32)
		}
		line = append(line, '\n')
		if _, err := bw.Write(line); err != nil {
			return fmt.Errorf("while writing document %d: %w", k, err)
		}
	}
	return bw.Flush()
}

// WriteColumnDescription describes the layout produced by WriteDSV.
func WriteColumnDescription(w io.Writer) error {
	_, err := fmt.Fprintf(w, "0\tLabel\n")
	return err
}
