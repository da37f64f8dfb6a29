package model

import "encoding/json"

// CompactEntry is a timeline entry after deduplication. ACTION entries only
// carry Seq, Type and Title.
type CompactEntry struct {
	Seq         int             `json:"seq"`
	Type        string          `json:"type"`
	Title       string          `json:"title"`
	Method      string          `json:"method,omitempty"`
	SystemAlias string          `json:"systemAlias,omitempty"`
	Path        string          `json:"path,omitempty"`
	ReqBody     json.RawMessage `json:"reqBody,omitempty"`
	ResBody     json.RawMessage `json:"resBody,omitempty"`
}

// Signature returns the API signature of a NETWORK entry.
func (e CompactEntry) Signature() string {
	return Signature(e.SystemAlias, e.Method, e.Path)
}

// UploadPayload is the body accepted by the trace upload endpoint.
type UploadPayload struct {
	CaseID  string `json:"caseId"`
	Content string `json:"content"`
}

// FileEvent represents a file system event
type FileEvent struct {
	Path      string
	Operation string
}
