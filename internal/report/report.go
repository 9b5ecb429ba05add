// Package report renders validation and batch results for the console and
// for report files.
package report

import (
	"fmt"
	"io"
	"strings"

	"github.com/gookit/color"
	"github.com/mattn/go-runewidth"

	"github.com/dbsmedya/sqlora/internal/validate"
)

// Printer writes human-readable reports. Color is applied only when enabled,
// so the same printer serves terminals and report files.
type Printer struct {
	w     io.Writer
	color bool
}

// NewPrinter creates a Printer. Enable color for terminal output only.
func NewPrinter(w io.Writer, colorize bool) *Printer {
	return &Printer{w: w, color: colorize}
}

func (p *Printer) paint(c color.Color, s string) string {
	if !p.color {
		return s
	}
	return c.Sprint(s)
}

func (p *Printer) outcome(o validate.Outcome) string {
	switch o {
	case validate.OutcomeSuccess:
		return p.paint(color.Green, o.String())
	case validate.OutcomeSuccessWithWarnings:
		return p.paint(color.Yellow, o.String())
	default:
		return p.paint(color.Red, o.String())
	}
}

// Validation renders one validation report.
func (p *Printer) Validation(r *validate.Report) {
	fmt.Fprintf(p.w, "Validation: %s\n", p.outcome(r.Outcome()))
	fmt.Fprintf(p.w, "  source:  %s\n", r.SourcePath)
	if r.Username != "" {
		fmt.Fprintf(p.w, "  user:    %s\n", r.Username)
	}
	fmt.Fprintf(p.w, "  tables:  %d checked\n", r.TablesChecked)
	fmt.Fprintf(p.w, "  rows:    %d checked\n", r.RowsChecked)

	if len(r.Findings) == 0 {
		return
	}

	fmt.Fprintf(p.w, "  findings (%d):\n", len(r.Findings))
	for _, f := range r.Findings {
		line := "    " + f.String()
		if f.Kind == validate.FindingMissingTable {
			line = p.paint(color.Red, line)
		} else {
			line = p.paint(color.Yellow, line)
		}
		fmt.Fprintln(p.w, line)
	}
}

// BatchRow is one migrated database in a batch summary.
type BatchRow struct {
	Source   string
	Username string
	Outcome  string
	Tables   int
	Rows     int64
	Err      error
}

// BatchSummary renders the per-file results of a batch run as an aligned
// table. Column widths follow display width, not byte length, so file names
// with wide runes stay aligned.
func (p *Printer) BatchSummary(rows []BatchRow) {
	if len(rows) == 0 {
		fmt.Fprintln(p.w, "No databases migrated.")
		return
	}

	headers := []string{"SOURCE", "USER", "OUTCOME", "TABLES", "ROWS"}
	widths := make([]int, len(headers))
	for i, h := range headers {
		widths[i] = runewidth.StringWidth(h)
	}

	cells := make([][]string, len(rows))
	for i, r := range rows {
		cells[i] = []string{
			r.Source,
			r.Username,
			r.Outcome,
			fmt.Sprintf("%d", r.Tables),
			fmt.Sprintf("%d", r.Rows),
		}
		for j, c := range cells[i] {
			if w := runewidth.StringWidth(c); w > widths[j] {
				widths[j] = w
			}
		}
	}

	p.row(headers, widths, nil)
	for i, r := range rows {
		var paint *color.Color
		switch {
		case r.Err != nil, r.Outcome == validate.OutcomeFailure.String():
			c := color.Red
			paint = &c
		case r.Outcome == validate.OutcomeSuccessWithWarnings.String():
			c := color.Yellow
			paint = &c
		default:
			c := color.Green
			paint = &c
		}
		p.row(cells[i], widths, paint)
		if r.Err != nil {
			fmt.Fprintf(p.w, "  %s\n", p.paint(color.Red, r.Err.Error()))
		}
	}

	failed := 0
	for _, r := range rows {
		if r.Err != nil || r.Outcome == validate.OutcomeFailure.String() {
			failed++
		}
	}
	fmt.Fprintf(p.w, "\n%d database(s), %d failed\n", len(rows), failed)
}

func (p *Printer) row(cells []string, widths []int, paint *color.Color) {
	parts := make([]string, len(cells))
	for i, c := range cells {
		parts[i] = runewidth.FillRight(c, widths[i])
	}
	line := strings.TrimRight(strings.Join(parts, "  "), " ")
	if paint != nil {
		line = p.paint(*paint, line)
	}
	fmt.Fprintln(p.w, line)
}
