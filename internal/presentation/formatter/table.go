package formatter

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/penwyp/go-optrace/internal/core/model"
	"github.com/penwyp/go-optrace/internal/core/report"
	"github.com/penwyp/go-optrace/internal/presentation/layout"
	"github.com/penwyp/go-optrace/internal/util"
)

// column describes one table column. Flexible columns give up width when the
// table would not fit.
type column struct {
	header     string
	rightAlign bool
	flexible   bool
	minWidth   int
}

type table struct {
	columns []column
	rows    [][]string
	sizer   *layout.Sizer
}

func newTable(sizer *layout.Sizer, columns ...column) *table {
	return &table{columns: columns, sizer: sizer}
}

func (t *table) addRow(values ...string) {
	for i := range values {
		values[i] = layout.Flatten(values[i])
	}
	t.rows = append(t.rows, values)
}

// widths sizes every column to its content, then shrinks flexible columns
// from the widest down until the table fits the sizer width.
func (t *table) widths() []int {
	widths := make([]int, len(t.columns))
	for i, c := range t.columns {
		widths[i] = t.sizer.DisplayWidth(c.header)
	}
	for _, row := range t.rows {
		for i, v := range row {
			if w := t.sizer.DisplayWidth(v); w > widths[i] {
				widths[i] = w
			}
		}
	}

	// Borders: one leading bar plus " value │" per column
	total := 1
	for _, w := range widths {
		total += w + 3
	}

	for total > t.sizer.Width {
		widest := -1
		for i, c := range t.columns {
			if c.flexible && widths[i] > c.minWidth && (widest == -1 || widths[i] > widths[widest]) {
				widest = i
			}
		}
		if widest == -1 {
			break
		}
		widths[widest]--
		total--
	}
	return widths
}

func (t *table) render(w io.Writer) error {
	widths := t.widths()
	var b strings.Builder

	t.border(&b, widths, "┌", "┬", "┐")
	headers := make([]string, len(t.columns))
	for i, c := range t.columns {
		headers[i] = c.header
	}
	t.row(&b, widths, headers)
	t.border(&b, widths, "├", "┼", "┤")
	for _, row := range t.rows {
		t.row(&b, widths, row)
	}
	t.border(&b, widths, "└", "┴", "┘")

	_, err := io.WriteString(w, b.String())
	return err
}

func (t *table) border(b *strings.Builder, widths []int, left, middle, right string) {
	b.WriteString(left)
	for i, width := range widths {
		b.WriteString(strings.Repeat("─", width+2))
		if i < len(widths)-1 {
			b.WriteString(middle)
		}
	}
	b.WriteString(right)
	b.WriteString("\n")
}

func (t *table) row(b *strings.Builder, widths []int, values []string) {
	b.WriteString("│")
	for i, width := range widths {
		var v string
		if i < len(values) {
			v = t.sizer.Truncate(values[i], width)
		}
		b.WriteString(" ")
		b.WriteString(t.sizer.PadString(v, width, !t.columns[i].rightAlign))
		b.WriteString(" │")
	}
	b.WriteString("\n")
}

// TableFormatter lists the deduplicated entries of a report
type TableFormatter struct {
	width int
}

func NewTableFormatter() *TableFormatter {
	return &TableFormatter{}
}

// WithWidth fixes the table width instead of sizing it to the terminal.
func (f *TableFormatter) WithWidth(width int) *TableFormatter {
	f.width = width
	return f
}

func (f *TableFormatter) sizer(w io.Writer) *layout.Sizer {
	if f.width > 0 {
		return layout.NewSizer(f.width)
	}
	return layout.ForWriter(w)
}

func (f *TableFormatter) Format(w io.Writer, r *report.Report) error {
	palette := util.PaletteFor(w)
	if _, err := fmt.Fprintf(w, "%s\n", palette.Title(report.Header(r.CaseID))); err != nil {
		return err
	}

	t := newTable(f.sizer(w),
		column{header: "#", rightAlign: true},
		column{header: "Type"},
		column{header: "Title / API", flexible: true, minWidth: 16},
		column{header: "Request", flexible: true, minWidth: 8},
		column{header: "Response", flexible: true, minWidth: 8},
	)
	for _, e := range r.Entries {
		switch e.Type {
		case model.EntryAction:
			t.addRow(strconv.Itoa(e.Seq), e.Type, e.Title, "", "")
		case model.EntryNetwork:
			t.addRow(strconv.Itoa(e.Seq), e.Type, e.Signature(), bodyCell(e.ReqBody), bodyCell(e.ResBody))
		}
	}
	if err := t.render(w); err != nil {
		return err
	}

	_, err := fmt.Fprintf(w, "%d entries (%d actions, %d APIs), %d duplicate calls removed\n",
		r.Stats.Kept(), r.Stats.Actions, r.Stats.Network, r.Stats.Duplicates)
	return err
}

func bodyCell(raw []byte) string {
	if len(raw) == 0 {
		return "-"
	}
	return string(raw)
}

// FormatTimeline writes the raw, undeduplicated timeline of trace.
func (f *TableFormatter) FormatTimeline(w io.Writer, trace *model.Trace, tp *util.TimeProvider) error {
	meta := trace.Meta
	caseID := meta.CaseID
	if caseID == "" {
		caseID = "-"
	}
	if _, err := fmt.Fprintf(w, "Case: %s  Result: %s  Session: %s  Recorded: %s\n",
		caseID, orDash(meta.Result), orDash(meta.SessionID), tp.FormatMillis(meta.Timestamp, "2006-01-02 15:04:05")); err != nil {
		return err
	}

	t := newTable(f.sizer(w),
		column{header: "Seq", rightAlign: true},
		column{header: "Offset", rightAlign: true},
		column{header: "Type"},
		column{header: "Title", flexible: true, minWidth: 16},
		column{header: "API", flexible: true, minWidth: 12},
	)
	for _, e := range trace.Timeline {
		api := ""
		if e.IsNetwork() {
			api = model.Signature(e.SystemAlias, e.Method, report.StripGatewaySegment(e.Path))
		}
		t.addRow(strconv.Itoa(e.Sequence), util.FormatOffset(e.Timestamp), e.Type, e.Title, api)
	}
	return t.render(w)
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
