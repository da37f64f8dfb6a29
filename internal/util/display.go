package util

import (
	"io"
	"os"

	"github.com/mattn/go-isatty"
)

// Terminal colors
const (
	ColorReset  = "\033[0m"
	ColorCyan   = "\033[36m"
	ColorGreen  = "\033[32m"
	ColorYellow = "\033[33m"
	ColorRed    = "\033[31m"
	ColorBold   = "\033[1m"
)

// IsTerminal reports whether w is an interactive terminal.
func IsTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	fd := f.Fd()
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}

// Palette applies colors only when enabled
type Palette struct {
	Enabled bool
}

// PaletteFor enables colors when w is a terminal and NO_COLOR is unset.
func PaletteFor(w io.Writer) Palette {
	return Palette{Enabled: IsTerminal(w) && os.Getenv("NO_COLOR") == ""}
}

func (p Palette) paint(color, text string) string {
	if !p.Enabled {
		return text
	}
	return color + text + ColorReset
}

func (p Palette) Title(text string) string {
	return p.paint(ColorBold+ColorCyan, text)
}

func (p Palette) Action(text string) string {
	return p.paint(ColorGreen, text)
}

func (p Palette) Network(text string) string {
	return p.paint(ColorYellow, text)
}

func (p Palette) Warning(text string) string {
	return p.paint(ColorRed, text)
}
