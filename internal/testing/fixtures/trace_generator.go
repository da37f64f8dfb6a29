package fixtures

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/bytedance/sonic"
	"github.com/penwyp/go-optrace/internal/core/model"
)

// TraceBuilder assembles traces for tests
type TraceBuilder struct {
	trace model.Trace
	clock int64
}

func NewTrace(caseID string) *TraceBuilder {
	return &TraceBuilder{
		trace: model.Trace{
			Meta: model.Meta{
				CaseID:    caseID,
				SessionID: "session-" + caseID,
				Result:    model.ResultPass,
				Timestamp: 1700000000000,
			},
			Timeline: []model.TimelineEntry{},
		},
	}
}

func (b *TraceBuilder) next() (int64, int) {
	b.clock += 100
	return b.clock, len(b.trace.Timeline) + 1
}

// Action appends a click on a button labelled title.
func (b *TraceBuilder) Action(title string) *TraceBuilder {
	ts, seq := b.next()
	text := title
	b.trace.Timeline = append(b.trace.Timeline, model.TimelineEntry{
		Type:       model.EntryAction,
		Title:      title,
		Timestamp:  ts,
		Sequence:   seq,
		ActionType: model.ActionClick,
		Target:     &model.Fingerprint{TagName: "BUTTON", InnerText: &text},
	})
	return b
}

// Network appends a call. Empty bodies are left absent.
func (b *TraceBuilder) Network(alias, method, path, reqBody, resBody string) *TraceBuilder {
	ts, seq := b.next()
	entry := model.TimelineEntry{
		Type:        model.EntryNetwork,
		Title:       fmt.Sprintf("%s [%s] %s (200)", method, alias, path),
		Timestamp:   ts,
		Sequence:    seq,
		Method:      method,
		SystemAlias: alias,
		Path:        path,
	}
	if reqBody != "" {
		entry.ReqBody = json.RawMessage(reqBody)
	}
	if resBody != "" {
		entry.ResBody = json.RawMessage(resBody)
	}
	b.trace.Timeline = append(b.trace.Timeline, entry)
	return b
}

// Entry appends an arbitrary entry as given.
func (b *TraceBuilder) Entry(entry model.TimelineEntry) *TraceBuilder {
	b.trace.Timeline = append(b.trace.Timeline, entry)
	return b
}

func (b *TraceBuilder) Build() *model.Trace {
	trace := b.trace
	trace.Timeline = append([]model.TimelineEntry(nil), b.trace.Timeline...)
	return &trace
}

func (b *TraceBuilder) JSON() ([]byte, error) {
	return sonic.Marshal(b.Build())
}

// ListBody returns a JSON object holding a list of n records.
func ListBody(n int) string {
	items := make([]string, n)
	for i := range items {
		items[i] = fmt.Sprintf(`{"id":%d,"name":"item-%d"}`, i+1, i+1)
	}
	return `{"code":0,"data":{"total":` + fmt.Sprint(n) + `,"list":[` + strings.Join(items, ",") + `]}}`
}

// SampleTrace is the canonical deduplication case: an action, the same API
// called twice and another action.
func SampleTrace() *TraceBuilder {
	return NewTrace("TEST-001").
		Action("Click 1").
		Network("SysA", "GET", "/api/v1/resource", `{"id":1}`, ListBody(3)).
		Network("SysA", "GET", "/api/v1/resource", `{"id":2}`, ListBody(5)).
		Action("Click 2")
}

// TestDataGenerator writes trace files under a base directory
type TestDataGenerator struct {
	baseDir string
}

func NewTestDataGenerator(baseDir string) *TestDataGenerator {
	return &TestDataGenerator{baseDir: baseDir}
}

// WriteTrace stores b as <baseDir>/<name> and returns the path.
func (g *TestDataGenerator) WriteTrace(name string, b *TraceBuilder) (string, error) {
	data, err := b.JSON()
	if err != nil {
		return "", err
	}
	return g.WriteRaw(name, data)
}

// WriteRaw stores data as <baseDir>/<name>, creating parent directories.
func (g *TestDataGenerator) WriteRaw(name string, data []byte) (string, error) {
	path := filepath.Join(g.baseDir, name)
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return "", err
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return "", err
	}
	return path, nil
}
