package formatter

import (
	"io"

	"github.com/bytedance/sonic"
	"github.com/penwyp/go-optrace/internal/core/report"
)

type JSONFormatter struct {
	indent string
}

func NewJSONFormatter() *JSONFormatter {
	return &JSONFormatter{indent: "  "}
}

func (f *JSONFormatter) Format(w io.Writer, r *report.Report) error {
	return writeJSON(w, r, f.indent)
}

// UploadFormatter writes the payload accepted by the upload endpoint
type UploadFormatter struct{}

func NewUploadFormatter() *UploadFormatter {
	return &UploadFormatter{}
}

func (f *UploadFormatter) Format(w io.Writer, r *report.Report) error {
	return writeJSON(w, r.Upload(), "")
}

func writeJSON(w io.Writer, v any, indent string) error {
	var (
		data []byte
		err  error
	)
	if indent == "" {
		data, err = sonic.Marshal(v)
	} else {
		data, err = sonic.MarshalIndent(v, "", indent)
	}
	if err != nil {
		return err
	}
	data = append(data, '\n')
	_, err = w.Write(data)
	return err
}
