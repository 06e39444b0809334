// Package report renders the outcome of a cleaning run for people: a console
// summary and an Excel workbook.
package report

import (
	"fmt"
	"io"
	"strconv"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"

	"github.com/David-Botos/vehicle-cleaner/pkg/converter"
	"github.com/David-Botos/vehicle-cleaner/pkg/model"
)

// DefaultHead is how many rows the summary shows
const DefaultHead = 5

var headingStyle = lipgloss.NewStyle().Bold(true)

// Summary is what PrintSummary renders
type Summary struct {
	Table       *model.Table
	Invalid     model.InvalidValueLog
	CleaningLog model.CleaningLog
	Head        int
}

// PrintSummary writes the head of the cleaned table, the column kinds,
// the invalid numeric values and the categorical cleaning log
func PrintSummary(w io.Writer, s Summary) error {
	t := s.Table
	if t == nil {
		t = model.NewTable()
	}
	head := s.Head
	if head <= 0 {
		head = DefaultHead
	}

	p := &printer{w: w}
	p.heading("Cleaned table:")
	p.line(RenderHead(t, head))

	p.heading("Data types:")
	width := 0
	for _, col := range t.Columns {
		if len(col.Name) > width {
			width = len(col.Name)
		}
	}
	for _, col := range t.Columns {
		p.printf("%-*s  %s\n", width, col.Name, col.Kind)
	}

	p.heading("Numeric invalid values:")
	for _, column := range s.Invalid.Columns() {
		entries := s.Invalid[column]
		parts := make([]string, len(entries))
		for i, e := range entries {
			parts[i] = e.String()
		}
		p.printf("%s: %v\n", column, parts)
	}

	p.heading("Categorical cleaning log:")
	for _, column := range s.CleaningLog.Columns() {
		p.printf("%s:\n", column)
		for _, action := range s.CleaningLog[column] {
			p.printf("  - %s\n", action)
		}
	}

	return p.err
}

// RenderHead renders the first n rows with their labels as a bordered table
func RenderHead(t *model.Table, n int) string {
	headers := append([]string{""}, t.ColumnNames()...)
	out := table.New().
		Border(lipgloss.NormalBorder()).
		Headers(headers...)

	head := t.Head(n)
	for i, row := range head.Rows {
		cells := make([]string, 0, len(headers))
		cells = append(cells, strconv.Itoa(head.Label(i)))
		for _, col := range head.Columns {
			cells = append(cells, formatCell(row[col.Name]))
		}
		out.Row(cells...)
	}
	return out.String()
}

func formatCell(v interface{}) string {
	if converter.IsNull(v) {
		return "NaN"
	}
	return converter.ToText(v)
}

// printer remembers the first write error
type printer struct {
	w   io.Writer
	err error
}

func (p *printer) printf(format string, args ...interface{}) {
	if p.err != nil {
		return
	}
	_, p.err = fmt.Fprintf(p.w, format, args...)
}

func (p *printer) heading(text string) {
	p.printf("\n%s\n", headingStyle.Render(text))
}

func (p *printer) line(text string) {
	p.printf("%s\n", text)
}
