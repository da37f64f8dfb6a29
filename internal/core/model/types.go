package model

import (
	"encoding/json"
	"strings"

	"github.com/bytedance/sonic"
)

// Trace is a submitted recording: metadata plus the ordered timeline.
type Trace struct {
	Meta       Meta            `json:"meta"`
	Timeline   []TimelineEntry `json:"timeline"`
	DefectInfo *string         `json:"defectInfo"`
	Screenshot *string         `json:"screenshot"`
}

type Meta struct {
	CaseID    string           `json:"caseId"`
	SessionID string           `json:"sessionID,omitempty"`
	Result    string           `json:"result,omitempty"`
	Timestamp int64            `json:"timestamp,omitempty"`
	URL       string           `json:"url,omitempty"`
	UserAgent string           `json:"userAgent,omitempty"`
	Systems   []WhitelistEntry `json:"systems,omitempty"`
}

// WhitelistEntry maps a URL prefix to a system alias.
type WhitelistEntry struct {
	Alias         string `json:"alias"`
	Prefix        string `json:"prefix"`
	FilterGateway bool   `json:"filterGateway"`
}

// TimelineEntry is one recorded ACTION or NETWORK event. Fields that do not
// belong to the entry's Type stay zero and are omitted on encode.
type TimelineEntry struct {
	ID        string `json:"id,omitempty"`
	Type      string `json:"type"`
	Title     string `json:"title"`
	Timestamp int64  `json:"timestamp"`
	Sequence  int    `json:"sequence"`

	// ACTION
	ActionType string       `json:"actionType,omitempty"`
	Target     *Fingerprint `json:"target,omitempty"`
	Value      *string      `json:"value,omitempty"`

	// NETWORK
	Method      string          `json:"method,omitempty"`
	SystemAlias string          `json:"systemAlias,omitempty"`
	Path        string          `json:"path,omitempty"`
	URL         string          `json:"url,omitempty"`
	ReqBody     json.RawMessage `json:"reqBody,omitempty"`
	ResBody     json.RawMessage `json:"resBody,omitempty"`
}

func (e TimelineEntry) IsAction() bool {
	return e.Type == EntryAction
}

func (e TimelineEntry) IsNetwork() bool {
	return e.Type == EntryNetwork
}

// Fingerprint identifies the DOM element an action was performed on.
type Fingerprint struct {
	TagName   string  `json:"tagName"`
	ID        *string `json:"id"`
	ClassName any     `json:"className"` // SVG elements report an SVGAnimatedString object
	Name      *string `json:"name"`
	Type      *string `json:"type"`
	InnerText *string `json:"innerText"`
	// Placeholder, AriaLabel and Title mirror the element attributes of the same name.
	Placeholder *string   `json:"placeholder"`
	AriaLabel   *string   `json:"ariaLabel"`
	Title       *string   `json:"title"`
	Rect        Rect      `json:"rect"`
	Selectors   Selectors `json:"selectors"`
}

type Rect struct {
	X      int `json:"x"`
	Y      int `json:"y"`
	Width  int `json:"width"`
	Height int `json:"height"`
}

type Selectors struct {
	CSS      string `json:"css"`
	FullPath string `json:"fullPath"`
}

// Label returns the text shown for the element in action titles: its
// visible text when present, the tag name otherwise.
func (f *Fingerprint) Label() string {
	if f == nil {
		return ""
	}
	if f.InnerText != nil && *f.InnerText != "" {
		return *f.InnerText
	}
	return f.TagName
}

// ParseTrace decodes a submitted trace document.
func ParseTrace(data []byte) (*Trace, error) {
	var trace Trace
	if err := sonic.Unmarshal(data, &trace); err != nil {
		return nil, err
	}
	return &trace, nil
}

// Renumber re-densifies the sequence numbers of entries, starting at 1 and
// preserving order. It is applied whenever entries have been filtered out.
func Renumber(entries []TimelineEntry) {
	for i := range entries {
		entries[i].Sequence = i + 1
	}
}

// Signature is the key used to recognise repeated calls to one logical API.
func Signature(systemAlias, method, path string) string {
	var b strings.Builder
	b.Grow(len(systemAlias) + len(method) + len(path) + 2)
	b.WriteString(systemAlias)
	b.WriteByte('|')
	b.WriteString(method)
	b.WriteByte(':')
	b.WriteString(path)
	return b.String()
}
