package service

import (
	"context"
	"errors"
	"testing"

	"tzweb/internal/application/port"
)

func TestExtractDropsActionColumnAndBlankRows(t *testing.T) {
	page := newFakePage()
	page.tables["inv"] = []port.RawRow{
		{Cells: []string{"Symbol", "Available", "Unavailable", "Pre-borrow", "Action"}, Header: true},
		{Cells: []string{"AAPL", "100", "0", "0", "Locate"}},
		{Cells: nil},
		{Cells: []string{"AMD", "200", "0", "0", "Locate"}},
		{Cells: []string{"GM", "300", "0", "0", "Locate"}},
	}
	ex := NewTableExtractor(page)

	rows, err := ex.Extract(context.Background(), Table{Locator: port.ByID("inv")}, ExtractOptions{DropColumns: []int{4}})
	if err != nil {
		t.Fatalf("Extract failed: %v", err)
	}
	if len(rows) != 3 {
		t.Fatalf("expected 3 rows, got %d", len(rows))
	}
	for i, r := range rows {
		if len(r.Cells) != 4 {
			t.Errorf("row %d: expected 4 cells, got %d", i, len(r.Cells))
		}
	}
	if rows[1].Cells[0] != "AMD" {
		t.Errorf("rows out of DOM order: %v", rows)
	}
}

func TestExtractHeaderRowsOnRequest(t *testing.T) {
	page := newFakePage()
	page.tables["t"] = []port.RawRow{
		{Cells: []string{"Symbol"}, Header: true},
		{Cells: []string{"AAPL"}},
	}
	ex := NewTableExtractor(page)

	rows, err := ex.Extract(context.Background(), Table{Locator: port.ByID("t")}, ExtractOptions{IncludeHeaderRows: true})
	if err != nil {
		t.Fatalf("Extract failed: %v", err)
	}
	if len(rows) != 2 {
		t.Errorf("expected header and data row, got %d", len(rows))
	}
}

func TestExtractRowAttribute(t *testing.T) {
	page := newFakePage()
	page.tables["ao"] = []port.RawRow{
		{Cells: []string{"CANCEL", "S.100"}, Attr: "7", HasAttr: true},
		{Cells: []string{"Total"}},
	}
	ex := NewTableExtractor(page)
	tbl := Table{Locator: port.ByID("ao"), RowAttr: "order-id"}

	rows, err := ex.Extract(context.Background(), tbl, ExtractOptions{DropColumns: []int{0}, RequireAttribute: true})
	if err != nil {
		t.Fatalf("Extract failed: %v", err)
	}
	if len(rows) != 1 || rows[0].Attr != "7" || rows[0].Cells[0] != "S.100" {
		t.Errorf("unexpected rows: %+v", rows)
	}
}

func TestExtractEmptyAndMissingTables(t *testing.T) {
	page := newFakePage()
	page.tables["empty"] = nil
	ex := NewTableExtractor(page)

	rows, err := ex.Extract(context.Background(), Table{Locator: port.ByID("empty")}, ExtractOptions{})
	if err != nil || rows == nil || len(rows) != 0 {
		t.Errorf("expected empty non-nil slice, got %v (%v)", rows, err)
	}

	_, err = ex.Extract(context.Background(), Table{Locator: port.ByID("missing")}, ExtractOptions{})
	if !errors.Is(err, port.ErrElementNotFound) {
		t.Errorf("expected ErrElementNotFound, got %v", err)
	}
}
