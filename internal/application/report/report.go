// Package report turns record sequences into the two output shapes of every
// read: a row-indexed table and a key -> column -> value mapping.
package report

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

var ErrUnknownFormat = errors.New("unknown report format")

type Format uint8

const (
	FormatTable Format = iota
	FormatMap
)

func (f Format) String() string {
	switch f {
	case FormatTable:
		return "table"
	case FormatMap:
		return "map"
	}
	return fmt.Sprintf("Format(%d)", uint8(f))
}

func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "table", "df":
		return FormatTable, nil
	case "map", "dict":
		return FormatMap, nil
	}
	return FormatTable, fmt.Errorf("%w: %q", ErrUnknownFormat, s)
}

// Record is one row of a read. An empty Key means the row is addressed by its
// index in the sequence.
type Record interface {
	Key() string
	Columns() []string
	Values() []string
}

// Table is the row-indexed shape. Columns is the union of record columns in
// first-seen order; cells of columns a record lacks are empty.
type Table struct {
	Columns []string
	Index   []string
	Rows    [][]string
}

// Mapping is the nested key -> column -> value shape.
type Mapping map[string]map[string]string

func key(r Record, i int) string {
	if k := r.Key(); k != "" {
		return k
	}
	return strconv.Itoa(i)
}

// BuildTable lays records out as rows.
func BuildTable[R Record](records []R) Table {
	t := Table{Columns: []string{}, Index: make([]string, 0, len(records)), Rows: make([][]string, 0, len(records))}
	pos := map[string]int{}
	for _, r := range records {
		for _, c := range r.Columns() {
			if _, ok := pos[c]; !ok {
				pos[c] = len(t.Columns)
				t.Columns = append(t.Columns, c)
			}
		}
	}
	for i, r := range records {
		row := make([]string, len(t.Columns))
		vals := r.Values()
		for j, c := range r.Columns() {
			if j < len(vals) {
				row[pos[c]] = vals[j]
			}
		}
		t.Index = append(t.Index, key(r, i))
		t.Rows = append(t.Rows, row)
	}
	return t
}

// BuildMapping keys records by Key (or index). A later record with the same
// key replaces an earlier one. Empty values are left out.
func BuildMapping[R Record](records []R) Mapping {
	m := make(Mapping, len(records))
	for i, r := range records {
		cols, vals := r.Columns(), r.Values()
		fields := make(map[string]string, len(cols))
		for j, c := range cols {
			if j < len(vals) && vals[j] != "" {
				fields[c] = vals[j]
			}
		}
		m[key(r, i)] = fields
	}
	return m
}

// Mapping re-shapes the table into the same form BuildMapping produces.
func (t Table) Mapping() Mapping {
	m := make(Mapping, len(t.Rows))
	for i, row := range t.Rows {
		fields := make(map[string]string, len(row))
		for j, v := range row {
			if v != "" {
				fields[t.Columns[j]] = v
			}
		}
		m[t.Index[i]] = fields
	}
	return m
}
