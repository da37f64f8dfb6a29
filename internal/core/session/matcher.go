package session

import (
	"sort"
	"strings"

	"github.com/penwyp/go-optrace/internal/core/model"
	"github.com/penwyp/go-optrace/internal/core/report"
)

// Match is the system a request URL belongs to and the URL path relative to
// that system's prefix.
type Match struct {
	Alias string
	Path  string
}

// Matcher resolves request URLs against the URL whitelist using longest
// prefix match.
type Matcher struct {
	entries []model.WhitelistEntry
}

func NewMatcher(whitelist []model.WhitelistEntry) *Matcher {
	entries := make([]model.WhitelistEntry, len(whitelist))
	copy(entries, whitelist)

	// Longest prefix first; equal lengths keep their configured order
	sort.SliceStable(entries, func(i, j int) bool {
		return len(entries[i].Prefix) > len(entries[j].Prefix)
	})

	return &Matcher{entries: entries}
}

// Match returns the first whitelist entry whose prefix starts url. An empty
// whitelist matches nothing.
func (m *Matcher) Match(url string) (Match, bool) {
	for _, entry := range m.entries {
		if !strings.HasPrefix(url, entry.Prefix) {
			continue
		}
		path := url[len(entry.Prefix):]
		if entry.FilterGateway {
			path = report.StripGatewaySegment(path)
		}
		return Match{Alias: entry.Alias, Path: path}, true
	}
	return Match{}, false
}

// Entries returns the whitelist in match order.
func (m *Matcher) Entries() []model.WhitelistEntry {
	out := make([]model.WhitelistEntry, len(m.entries))
	copy(out, m.entries)
	return out
}
