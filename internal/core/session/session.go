// Package session records a test-case run: user actions and whitelisted
// network calls, reviewed and wrapped into a submittable trace.
package session

import (
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/penwyp/go-optrace/internal/core/model"
	"github.com/penwyp/go-optrace/internal/core/simplify"
)

// NetworkEvent is a completed request as seen by the page interceptor.
// Bodies may be JSON documents or arbitrary text.
type NetworkEvent struct {
	Method  string
	URL     string
	Status  int
	ReqBody []byte
	ResBody []byte
}

type Options struct {
	Compression simplify.Config
	Whitelist   []model.WhitelistEntry
	PageURL     string
	UserAgent   string
	// Clock defaults to time.Now.
	Clock func() time.Time
}

type Session struct {
	caseID  string
	opts    Options
	matcher *Matcher

	mu        sync.Mutex
	id        string
	recording bool
	startTime time.Time
	entries   []model.TimelineEntry
}

func New(caseID string, opts Options) *Session {
	if opts.Clock == nil {
		opts.Clock = time.Now
	}
	return &Session{
		caseID:  caseID,
		opts:    opts,
		matcher: NewMatcher(opts.Whitelist),
	}
}

// Start begins a new recording, discarding anything recorded before, and
// returns the new session ID.
func (s *Session) Start() string {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.id = uuid.NewString()
	s.recording = true
	s.startTime = s.opts.Clock()
	s.entries = nil
	return s.id
}

func (s *Session) Stop() {
	s.mu.Lock()
	s.recording = false
	s.mu.Unlock()
}

func (s *Session) ID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.id
}

func (s *Session) Recording() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.recording
}

// RecordAction appends an ACTION entry performed on target. It reports false
// when the session is not recording.
func (s *Session) RecordAction(actionType string, target *model.Fingerprint, value *string) (model.TimelineEntry, bool) {
	var title string
	switch actionType {
	case model.ActionClick:
		title = `click "` + target.Label() + `"`
	case model.ActionChange:
		var v string
		if value != nil {
			v = *value
		}
		tag := ""
		if target != nil {
			tag = target.TagName
		}
		title = `change "` + tag + `" value: ` + v
	default:
		title = actionType + ` "` + target.Label() + `"`
	}

	return s.add(model.TimelineEntry{
		Type:       model.EntryAction,
		Title:      title,
		ActionType: actionType,
		Target:     target,
		Value:      value,
	})
}

// RecordNetwork appends a NETWORK entry for ev when its URL is whitelisted.
// Bodies are simplified before they are stored.
func (s *Session) RecordNetwork(ev NetworkEvent) (model.TimelineEntry, bool) {
	match, ok := s.matcher.Match(ev.URL)
	if !ok {
		return model.TimelineEntry{}, false
	}

	return s.add(model.TimelineEntry{
		Type:        model.EntryNetwork,
		Title:       fmt.Sprintf("%s [%s] %s (%d)", ev.Method, match.Alias, match.Path, ev.Status),
		Method:      ev.Method,
		SystemAlias: match.Alias,
		Path:        match.Path,
		URL:         ev.URL,
		ReqBody:     captureBody(ev.ReqBody, s.opts.Compression),
		ResBody:     captureBody(ev.ResBody, s.opts.Compression),
	})
}

func (s *Session) add(entry model.TimelineEntry) (model.TimelineEntry, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.recording {
		return model.TimelineEntry{}, false
	}
	entry.ID = uuid.NewString()
	entry.Sequence = len(s.entries) + 1
	entry.Timestamp = s.opts.Clock().Sub(s.startTime).Milliseconds()
	s.entries = append(s.entries, entry)
	return entry, true
}

// captureBody stores JSON bodies simplified and any other text as a JSON
// string, which is simplified in turn when it holds an encoded document.
func captureBody(body []byte, cfg simplify.Config) json.RawMessage {
	if body == nil {
		return nil
	}
	out, err := simplify.SimplifyJSON(body, cfg)
	if err != nil {
		out, err = simplify.SimplifyString(string(body), cfg)
		if err != nil {
			return nil
		}
	}
	return out
}

// Remove deletes the entry with the given id. Sequence numbers are not
// reassigned until review.
func (s *Session) Remove(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i, entry := range s.entries {
		if entry.ID == id {
			s.entries = append(s.entries[:i], s.entries[i+1:]...)
			return true
		}
	}
	return false
}

// Entries returns a copy of everything recorded so far.
func (s *Session) Entries() []model.TimelineEntry {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]model.TimelineEntry, len(s.entries))
	copy(out, s.entries)
	return out
}

// Review returns the entries whose IDs are in selected, in recording order,
// ready for submission. A non-empty value in selected replaces the entry's
// title. IDs and URLs are stripped and sequence numbers re-densified.
func (s *Session) Review(selected map[string]string) []model.TimelineEntry {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]model.TimelineEntry, 0, len(selected))
	for _, entry := range s.entries {
		title, ok := selected[entry.ID]
		if !ok {
			continue
		}
		if title != "" {
			entry.Title = title
		}
		out = append(out, strip(entry))
	}
	model.Renumber(out)
	return out
}

func (s *Session) reviewAll() []model.TimelineEntry {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]model.TimelineEntry, len(s.entries))
	for i, entry := range s.entries {
		out[i] = strip(entry)
	}
	model.Renumber(out)
	return out
}

func strip(entry model.TimelineEntry) model.TimelineEntry {
	entry.ID = ""
	entry.URL = ""
	return entry
}

// Submit wraps a reviewed timeline into a trace. A nil timeline submits
// everything recorded. Cases without an id are submitted as model.UnknownCase.
func (s *Session) Submit(result string, defectInfo *string, timeline []model.TimelineEntry) *model.Trace {
	if timeline == nil {
		timeline = s.reviewAll()
	}

	caseID := s.caseID
	if caseID == "" {
		caseID = model.UnknownCase
	}
	if defectInfo != nil && *defectInfo == "" {
		defectInfo = nil
	}

	systems := make([]model.WhitelistEntry, len(s.opts.Whitelist))
	copy(systems, s.opts.Whitelist)

	return &model.Trace{
		Meta: model.Meta{
			CaseID:    caseID,
			SessionID: s.ID(),
			Result:    result,
			Timestamp: s.opts.Clock().UnixMilli(),
			URL:       s.opts.PageURL,
			UserAgent: s.opts.UserAgent,
			Systems:   systems,
		},
		Timeline:   timeline,
		DefectInfo: defectInfo,
	}
}
