// Package report deduplicates recorded timelines and renders them as the
// plain-text operation report consumed by the test platform.
package report

import (
	"strings"

	"github.com/penwyp/go-optrace/internal/core/model"
	"github.com/penwyp/go-optrace/internal/core/simplify"
)

// Report markers. Downstream consumers match on these literally.
const (
	ActionMarker   = "【用户操作】"
	APIMarker      = "【API接口】"
	RequestMarker  = "【请求内容】"
	ResponseMarker = "【请求结果】"

	Disclaimer = "注：已过滤重复的 API ，仅保留首次调用记录。"

	// absentBody is what the extension printed for a body that was never captured.
	absentBody = "undefined"
)

var (
	separator = strings.Repeat("-", 5)
	titleRule = strings.Repeat("=", 5)
)

// Stats counts what happened to the timeline during deduplication.
type Stats struct {
	Actions    int `json:"actions"`
	Network    int `json:"network"`
	Duplicates int `json:"duplicates"`
	Skipped    int `json:"skipped"`
}

// Kept is the number of entries in the report.
func (s Stats) Kept() int {
	return s.Actions + s.Network
}

// Report is the structured result of report generation. Entry bodies are
// already simplified.
type Report struct {
	CaseID  string               `json:"caseId"`
	Entries []model.CompactEntry `json:"entries"`
	Stats   Stats                `json:"stats"`
	Text    string               `json:"text"`
}

// ExtractCaseID returns the case id of trace, or "" when there is none.
func ExtractCaseID(trace *model.Trace) string {
	if trace == nil {
		return ""
	}
	return trace.Meta.CaseID
}

// StripGatewaySegment removes everything up to and including the first ':'
// of path. Paths without a colon are returned unchanged.
func StripGatewaySegment(path string) string {
	if idx := strings.IndexByte(path, ':'); idx != -1 {
		return path[idx+1:]
	}
	return path
}

// Deduplicate compacts timeline in a single forward pass. Actions are always
// kept; a NETWORK entry is dropped when an earlier one had the same API
// signature. Kept entries are numbered 1..n without gaps.
func Deduplicate(timeline []model.TimelineEntry) []model.CompactEntry {
	entries, _ := deduplicate(timeline)
	return entries
}

func deduplicate(timeline []model.TimelineEntry) ([]model.CompactEntry, Stats) {
	var stats Stats
	entries := make([]model.CompactEntry, 0, len(timeline))
	seen := make(map[string]struct{})
	seq := 1

	for _, item := range timeline {
		switch item.Type {
		case model.EntryAction:
			title := item.Title
			if title == "" {
				title = model.UnknownAction
			}
			entries = append(entries, model.CompactEntry{
				Seq:   seq,
				Type:  model.EntryAction,
				Title: title,
			})
			seq++
			stats.Actions++

		case model.EntryNetwork:
			path := StripGatewaySegment(item.Path)
			signature := model.Signature(item.SystemAlias, item.Method, path)
			if _, dup := seen[signature]; dup {
				stats.Duplicates++
				continue
			}
			seen[signature] = struct{}{}
			entries = append(entries, model.CompactEntry{
				Seq:         seq,
				Type:        model.EntryNetwork,
				Title:       item.Title,
				Method:      item.Method,
				SystemAlias: item.SystemAlias,
				Path:        path,
				ReqBody:     item.ReqBody,
				ResBody:     item.ResBody,
			})
			seq++
			stats.Network++

		default:
			stats.Skipped++
		}
	}
	return entries, stats
}

// Format renders entries as report text, simplifying NETWORK bodies with cfg.
func Format(entries []model.CompactEntry, cfg simplify.Config) string {
	return formatEntries(CompactBodies(entries, cfg))
}

func formatEntries(entries []model.CompactEntry) string {
	lines := make([]string, 0, len(entries)*4)
	for _, entry := range entries {
		switch entry.Type {
		case model.EntryAction:
			lines = append(lines, ActionMarker+" "+entry.Title, separator)
		case model.EntryNetwork:
			lines = append(lines,
				APIMarker+"  "+entry.Signature(),
				RequestMarker+" "+bodyText(entry.ReqBody),
				ResponseMarker+" "+bodyText(entry.ResBody),
				separator,
			)
		}
	}
	return strings.Join(lines, "\n")
}

func bodyText(raw []byte) string {
	if len(raw) == 0 {
		return absentBody
	}
	return string(raw)
}

// Header is the title bar of a report for caseID.
func Header(caseID string) string {
	return titleRule + " 操作过程信息 (Case: " + caseID + ") " + titleRule
}

// GenerateFullTextDedupReport renders the complete text report of trace:
// title bar, disclaimer, blank line and the deduplicated timeline.
func GenerateFullTextDedupReport(trace *model.Trace, cfg simplify.Config) string {
	return Generate(trace, cfg).Text
}

// Generate deduplicates trace and renders it, returning both the compacted
// entries and the report text.
func Generate(trace *model.Trace, cfg simplify.Config) *Report {
	var timeline []model.TimelineEntry
	if trace != nil {
		timeline = trace.Timeline
	}
	caseID := ExtractCaseID(trace)
	deduped, stats := deduplicate(timeline)
	entries := CompactBodies(deduped, cfg)

	text := strings.Join([]string{
		Header(caseID),
		Disclaimer + "\n",
		formatEntries(entries),
	}, "\n")

	return &Report{
		CaseID:  caseID,
		Entries: entries,
		Stats:   stats,
		Text:    text,
	}
}

// Upload is the upload payload for r.
func (r *Report) Upload() model.UploadPayload {
	return model.UploadPayload{CaseID: r.CaseID, Content: r.Text}
}

// BuildUpload wraps report text in the payload accepted by the upload endpoint.
func BuildUpload(trace *model.Trace, text string) model.UploadPayload {
	return model.UploadPayload{
		CaseID:  ExtractCaseID(trace),
		Content: text,
	}
}
