package formatter

import (
	"fmt"
	"io"
	"sort"

	"github.com/penwyp/go-optrace/internal/core/report"
)

// Formatter renders a generated report.
type Formatter interface {
	Format(w io.Writer, r *report.Report) error
}

var registry = map[string]func() Formatter{
	"text":    func() Formatter { return NewTextFormatter() },
	"json":    func() Formatter { return NewJSONFormatter() },
	"table":   func() Formatter { return NewTableFormatter() },
	"summary": func() Formatter { return NewSummaryFormatter() },
	"upload":  func() Formatter { return NewUploadFormatter() },
}

// New returns the formatter registered under name.
func New(name string) (Formatter, error) {
	constructor, ok := registry[name]
	if !ok {
		return nil, fmt.Errorf("unknown output format %q (want one of %v)", name, Names())
	}
	return constructor(), nil
}

// Names lists the registered formats.
func Names() []string {
	names := make([]string, 0, len(registry))
	for name := range registry {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// TextFormatter writes the plain report text
type TextFormatter struct{}

func NewTextFormatter() *TextFormatter {
	return &TextFormatter{}
}

func (f *TextFormatter) Format(w io.Writer, r *report.Report) error {
	_, err := io.WriteString(w, r.Text+"\n")
	return err
}
