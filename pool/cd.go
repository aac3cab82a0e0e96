package pool

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"
)

// ColumnType is the role of a pool column, as listed in a column description
// file.
type ColumnType int

const (
	Num ColumnType = iota
	Label
	Weight
	Auxiliary
	DocID
	GroupID
	SubgroupID
	Timestamp
	Baseline
)

var columnTypeNames = map[string]ColumnType{
	"num":        Num,
	"label":      Label,
	"target":     Label,
	"weight":     Weight,
	"auxiliary":  Auxiliary,
	"docid":      DocID,
	"groupid":    GroupID,
	"queryid":    GroupID,
	"subgroupid": SubgroupID,
	"timestamp":  Timestamp,
	"baseline":   Baseline,
}

// IsFeature reports whether columns of this type are model inputs.
func (t ColumnType) IsFeature() bool {
	return t == Num
}

// ColumnDescription maps column indices to their types.  Columns it does not
// mention are numeric features.
type ColumnDescription map[int]ColumnType

func (cd ColumnDescription) Type(column int) ColumnType {
	if t, ok := cd[column]; ok {
		return t
	}
	return Num
}

// ReadColumnDescription parses lines of the form "<index>\t<type>[\t<name>]".
// Blank lines and lines starting with '#' are ignored.  Categorical and text
// columns are rejected since the scoring models only take numeric features.
func ReadColumnDescription(r io.Reader) (ColumnDescription, error) {
	cd := ColumnDescription{}
	s := bufio.NewScanner(r)
	lineNo := 0
	for s.Scan() {
		lineNo++
		line := strings.TrimSpace(s.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		fields := strings.Split(line, "\t")
		if len(fields) < 2 {
			return nil, fmt.Errorf("line %d: want <index>\\t<type>, got %q", lineNo, line)
		}
		idx, err := strconv.Atoi(strings.TrimSpace(fields[0]))
		if err != nil || idx < 0 {
			return nil, fmt.Errorf("line %d: bad column index %q", lineNo, fields[0])
		}
		typeName := strings.ToLower(strings.TrimSpace(fields[1]))
		t, ok := columnTypeNames[typeName]
		if !ok {
			return nil, fmt.Errorf("line %d: unsupported column type %q", lineNo, fields[1])
		}
		if _, dup := cd[idx]; dup {
			return nil, fmt.Errorf("line %d: column %d described twice", lineNo, idx)
		}
		cd[idx] = t
	}
	if err := s.Err(); err != nil {
		return nil, fmt.Errorf("while scanning column description: %w", err)
	}
	return cd, nil
}
