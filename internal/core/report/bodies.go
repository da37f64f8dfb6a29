package report

import (
	"encoding/json"

	"github.com/penwyp/go-optrace/internal/core/model"
	"github.com/penwyp/go-optrace/internal/core/simplify"
)

// CompactBodies returns a copy of entries whose request and response bodies
// have been simplified with cfg. Absent bodies stay absent; bodies that are
// not valid JSON are kept verbatim.
func CompactBodies(entries []model.CompactEntry, cfg simplify.Config) []model.CompactEntry {
	out := make([]model.CompactEntry, len(entries))
	for i, entry := range entries {
		if entry.Type == model.EntryNetwork {
			entry.ReqBody = simplifyBody(entry.ReqBody, cfg)
			entry.ResBody = simplifyBody(entry.ResBody, cfg)
		}
		out[i] = entry
	}
	return out
}

func simplifyBody(raw json.RawMessage, cfg simplify.Config) json.RawMessage {
	if len(raw) == 0 {
		return nil
	}
	compact, err := simplify.SimplifyJSON(raw, cfg)
	if err != nil {
		return raw
	}
	return compact
}
