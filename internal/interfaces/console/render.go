package console

import (
	"sort"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"tzweb/internal/application/report"
	"tzweb/internal/domain/model"
)

var (
	colHeaderStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("245"))
	indexStyle     = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("12"))
	gainStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("10"))
	lossStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("9"))
	dimStyle       = lipgloss.NewStyle().Foreground(lipgloss.Color("245"))
)

// signed columns are coloured by sign
var signedColumns = map[string]bool{
	model.ColChange:    true,
	model.ColChangePct: true,
	model.ColDayPnL:    true,
	model.ColPnL:       true,
}

func cellStyle(col, v string) lipgloss.Style {
	if !signedColumns[col] || v == "" {
		return lipgloss.NewStyle()
	}
	d, err := model.ParseDecimal(v)
	switch {
	case err != nil:
		return lipgloss.NewStyle()
	case d.IsPositive():
		return gainStyle
	case d.IsNegative():
		return lossStyle
	}
	return dimStyle
}

func pad(s string, w int) string {
	if n := lipgloss.Width(s); n < w {
		return s + strings.Repeat(" ", w-n)
	}
	return s
}

// RenderTable 按列对齐输出，首列为 index
func RenderTable(t report.Table) string {
	if len(t.Rows) == 0 {
		return dimStyle.Render("(empty)")
	}
	widths := make([]int, len(t.Columns)+1)
	for i, k := range t.Index {
		widths[0] = max(widths[0], lipgloss.Width(k))
		for j, v := range t.Rows[i] {
			widths[j+1] = max(widths[j+1], lipgloss.Width(v))
		}
	}
	for j, c := range t.Columns {
		widths[j+1] = max(widths[j+1], lipgloss.Width(c))
	}

	var b strings.Builder
	header := []string{pad("", widths[0])}
	for j, c := range t.Columns {
		header = append(header, pad(colHeaderStyle.Render(c), widths[j+1]))
	}
	b.WriteString(strings.TrimRight(strings.Join(header, "  "), " "))
	for i, k := range t.Index {
		b.WriteByte('\n')
		line := []string{pad(indexStyle.Render(k), widths[0])}
		for j, v := range t.Rows[i] {
			line = append(line, pad(cellStyle(t.Columns[j], v).Render(v), widths[j+1]))
		}
		b.WriteString(strings.TrimRight(strings.Join(line, "  "), " "))
	}
	return b.String()
}

// RenderMapping 按 key 排序输出 key: col=value ...
func RenderMapping(m report.Mapping, columns []string) string {
	if len(m) == 0 {
		return dimStyle.Render("(empty)")
	}
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var b strings.Builder
	for i, k := range keys {
		if i > 0 {
			b.WriteByte('\n')
		}
		b.WriteString(indexStyle.Render(k))
		b.WriteByte(':')
		fields := m[k]
		for _, c := range columns {
			v, ok := fields[c]
			if !ok {
				continue
			}
			b.WriteString(" " + colHeaderStyle.Render(c) + "=" + cellStyle(c, v).Render(v))
		}
	}
	return b.String()
}
