package service

import (
	"context"
	"fmt"

	"tzweb/internal/application/port"
)

// Table identifies a rendered table and the row attribute to read off each <tr>.
type Table struct {
	Locator port.Locator
	RowAttr string
}

func (t Table) String() string { return t.Locator.String() }

// ExtractOptions 表格抽取选项
type ExtractOptions struct {
	// DropColumns are raw cell indexes removed before binding.
	DropColumns []int
	// IncludeHeaderRows keeps rows that only contain <th> cells.
	IncludeHeaderRows bool
	// RequireAttribute keeps only rows that carry the table's RowAttr.
	RequireAttribute bool
}

// Row is one extracted table row in DOM order.
type Row struct {
	Cells   []string
	Attr    string
	HasAttr bool
}

type TableExtractor struct {
	src port.RowSource
}

func NewTableExtractor(src port.RowSource) *TableExtractor {
	return &TableExtractor{src: src}
}

// Extract reads the table's rows. A table with no data rows yields an empty
// slice and a nil error; a missing table is reported as port.ErrElementNotFound.
func (e *TableExtractor) Extract(ctx context.Context, t Table, opts ExtractOptions) ([]Row, error) {
	raw, err := e.src.TableRows(ctx, t.Locator, t.RowAttr)
	if err != nil {
		return nil, fmt.Errorf("extract %s: %w", t, err)
	}

	drop := make(map[int]struct{}, len(opts.DropColumns))
	for _, i := range opts.DropColumns {
		drop[i] = struct{}{}
	}

	rows := make([]Row, 0, len(raw))
	for _, r := range raw {
		if r.Header && !opts.IncludeHeaderRows {
			continue
		}
		if opts.RequireAttribute && !r.HasAttr {
			continue
		}
		cells := make([]string, 0, len(r.Cells))
		for i, c := range r.Cells {
			if _, ok := drop[i]; ok {
				continue
			}
			cells = append(cells, c)
		}
		if len(cells) == 0 {
			continue
		}
		rows = append(rows, Row{Cells: cells, Attr: r.Attr, HasAttr: r.HasAttr})
	}
	return rows, nil
}
