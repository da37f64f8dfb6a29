package formatter

import (
	"fmt"
	"io"
	"strings"

	"github.com/penwyp/go-optrace/internal/core/report"
	"github.com/penwyp/go-optrace/internal/util"
)

// SummaryFormatter prints deduplication statistics of a report.
type SummaryFormatter struct{}

func NewSummaryFormatter() *SummaryFormatter {
	return &SummaryFormatter{}
}

func (f *SummaryFormatter) Format(w io.Writer, r *report.Report) error {
	palette := util.PaletteFor(w)
	caseID := r.CaseID
	if caseID == "" {
		caseID = "-"
	}

	calls := r.Stats.Network + r.Stats.Duplicates
	lines := []string{
		palette.Title("Case " + caseID),
		fmt.Sprintf("  Actions:          %s", palette.Action(util.FormatNumber(r.Stats.Actions))),
		fmt.Sprintf("  API calls:        %s", palette.Network(util.FormatNumber(calls))),
		fmt.Sprintf("  Unique APIs:      %s", util.FormatNumber(r.Stats.Network)),
		fmt.Sprintf("  Duplicates:       %s (%s of calls)", util.FormatNumber(r.Stats.Duplicates), util.FormatPercent(r.Stats.Duplicates, calls)),
		fmt.Sprintf("  Report size:      %s", util.FormatBytes(len(r.Text))),
	}
	if r.Stats.Skipped > 0 {
		lines = append(lines, palette.Warning(fmt.Sprintf("  Skipped entries:  %d", r.Stats.Skipped)))
	}

	_, err := io.WriteString(w, strings.Join(lines, "\n")+"\n")
	return err
}
