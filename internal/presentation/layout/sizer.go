package layout

import (
	"io"
	"os"
	"strings"

	"github.com/mattn/go-runewidth"
	"golang.org/x/term"
)

const (
	DefaultWidth = 120
	minWidth     = 60
	ellipsis     = "..."
)

// Sizer measures and fits text by terminal display width, so CJK report
// titles line up in tables.
type Sizer struct {
	Width int
}

func NewSizer(width int) *Sizer {
	return &Sizer{Width: width}
}

// ForWriter sizes output for w: the terminal width when w is a terminal,
// DefaultWidth otherwise.
func ForWriter(w io.Writer) *Sizer {
	return &Sizer{Width: GetMaxWidth(w)}
}

// DisplayWidth is the number of terminal cells s occupies.
func (s Sizer) DisplayWidth(text string) int {
	return runewidth.StringWidth(text)
}

// PadString pads text with spaces to width cells.
func (s Sizer) PadString(text string, width int, leftAlign bool) string {
	actualWidth := s.DisplayWidth(text)
	if actualWidth >= width {
		return text
	}

	padding := strings.Repeat(" ", width-actualWidth)
	if leftAlign {
		return text + padding
	}
	return padding + text
}

// Truncate shortens text to at most width cells, marking the cut with an
// ellipsis.
func (s Sizer) Truncate(text string, width int) string {
	if width <= 0 {
		return ""
	}
	return runewidth.Truncate(text, width, ellipsis)
}

// GetMaxWidth returns the usable width for tables written to w.
func GetMaxWidth(w io.Writer) int {
	f, ok := w.(*os.File)
	if !ok {
		return DefaultWidth
	}
	termWidth, _, err := term.GetSize(int(f.Fd()))
	if err != nil || termWidth <= 0 {
		return DefaultWidth
	}
	if termWidth < minWidth {
		return minWidth
	}
	return termWidth
}

// Flatten collapses whitespace runs, including newlines, to single spaces
// so multi-line values fit on one table row.
func Flatten(text string) string {
	return strings.Join(strings.Fields(text), " ")
}
