// Package simplify reduces arbitrary JSON values to bounded-size structural
// summaries. Values are handled as sonic AST nodes so that object keys keep
// their original order.
package simplify

import (
	"fmt"
	"unicode/utf16"

	"github.com/bytedance/sonic"
	"github.com/bytedance/sonic/ast"
)

// Mode selects how aggressively arrays are compacted.
type Mode string

const (
	// ModeStructure keeps only the first element of every array.
	ModeStructure Mode = "structure"
	// ModeLength chooses structure or none once, from the serialized length of
	// the value it is applied to.
	ModeLength Mode = "length"
	// ModeCount keeps the first Threshold elements of every array.
	ModeCount Mode = "count"
	// ModeNone keeps everything.
	ModeNone Mode = "none"
)

// DefaultThreshold is used when no threshold has been configured.
const DefaultThreshold = 1000

// Config is the compaction policy. Threshold is a character count in length
// mode and an element count in count mode; other modes ignore it.
type Config struct {
	Mode      Mode `json:"mode"`
	Threshold int  `json:"threshold"`
}

func DefaultConfig() Config {
	return Config{Mode: ModeStructure, Threshold: DefaultThreshold}
}

// Modes lists the recognised modes.
func Modes() []Mode {
	return []Mode{ModeStructure, ModeLength, ModeCount, ModeNone}
}

// Known reports whether m is one of the recognised modes.
func (m Mode) Known() bool {
	for _, known := range Modes() {
		if m == known {
			return true
		}
	}
	return false
}

// StructureOmission is the marker appended to arrays compacted in structure mode.
func StructureOmission(remaining int) string {
	return fmt.Sprintf("# ...省略后续%d个相同结构的数据", remaining)
}

// CountOmission is the marker appended to arrays truncated in count mode.
func CountOmission(remaining int) string {
	return fmt.Sprintf("# ...省略后续%d个数据", remaining)
}

// Simplify returns a compacted copy of node. It never fails: strings that are
// not JSON, and nodes that cannot be loaded, are passed through unchanged.
//
// Simplify may finish loading a lazily parsed node in place, so a node must
// not be simplified from several goroutines unless it was fully loaded first.
func Simplify(node ast.Node, cfg Config) ast.Node {
	if cfg.Mode == "" {
		cfg.Mode = ModeStructure
	}
	if cfg.Threshold < 0 {
		cfg.Threshold = 0
	}
	return simplify(node, cfg)
}

func simplify(node ast.Node, cfg Config) ast.Node {
	switch node.TypeSafe() {
	case ast.V_NONE, ast.V_ERROR, ast.V_NULL:
		return node
	case ast.V_STRING:
		return simplifyString(node, cfg)
	}

	// Length is decided here once; children inherit the resulting mode.
	if cfg.Mode == ModeLength {
		next := Config{Mode: ModeNone, Threshold: cfg.Threshold}
		if SerializedLength(node) > cfg.Threshold {
			next.Mode = ModeStructure
		}
		return simplify(node, next)
	}

	switch node.TypeSafe() {
	case ast.V_ARRAY:
		return simplifyArray(node, cfg)
	case ast.V_OBJECT:
		return simplifyObject(node, cfg)
	}
	return node
}

func simplifyString(node ast.Node, cfg Config) ast.Node {
	s, err := node.StrictString()
	if err != nil {
		return node
	}
	if parsed, ok := parseContainer(s); ok {
		return simplify(parsed, cfg)
	}
	return node
}

func simplifyArray(node ast.Node, cfg Config) ast.Node {
	items, err := node.ArrayUseNode()
	if err != nil {
		return node
	}
	if len(items) == 0 {
		return ast.NewArray([]ast.Node{})
	}

	switch cfg.Mode {
	case ModeStructure:
		out := make([]ast.Node, 0, 2)
		out = append(out, simplify(items[0], cfg))
		if len(items) > 1 {
			out = append(out, ast.NewString(StructureOmission(len(items)-1)))
		}
		return ast.NewArray(out)

	case ModeCount:
		keep := min(len(items), cfg.Threshold)
		out := make([]ast.Node, 0, keep+1)
		for i := 0; i < keep; i++ {
			out = append(out, simplify(items[i], cfg))
		}
		if len(items) > cfg.Threshold {
			out = append(out, ast.NewString(CountOmission(len(items)-cfg.Threshold)))
		}
		return ast.NewArray(out)
	}

	out := make([]ast.Node, len(items))
	for i := range items {
		out[i] = simplify(items[i], cfg)
	}
	return ast.NewArray(out)
}

func simplifyObject(node ast.Node, cfg Config) ast.Node {
	it, err := node.Properties()
	if err != nil {
		return node
	}
	pairs := make([]ast.Pair, 0)
	var p ast.Pair
	for it.Next(&p) {
		pairs = append(pairs, ast.Pair{Key: p.Key, Value: simplify(p.Value, cfg)})
	}
	return ast.NewObject(pairs)
}

// parseContainer parses s and reports whether it holds a JSON array or object.
func parseContainer(s string) (ast.Node, bool) {
	if !sonic.Valid([]byte(s)) {
		return ast.Node{}, false
	}
	parsed, err := sonic.GetFromString(s)
	if err != nil {
		return ast.Node{}, false
	}
	switch parsed.TypeSafe() {
	case ast.V_ARRAY, ast.V_OBJECT:
	default:
		return ast.Node{}, false
	}
	if err := parsed.LoadAll(); err != nil {
		return ast.Node{}, false
	}
	return parsed, true
}

// SerializedLength is the length of the compact JSON encoding of node,
// counted in UTF-16 code units. Unencodable nodes have length 0.
func SerializedLength(node ast.Node) int {
	canon := canonical(node)
	raw, err := canon.MarshalJSON()
	if err != nil {
		return 0
	}
	n := 0
	for _, r := range string(raw) {
		if l := len(utf16.Encode([]rune{r})); l > 0 {
			n += l
		} else {
			n++
		}
	}
	return n
}

// canonical rebuilds containers and strings so that encoding does not reuse
// the whitespace or escapes of the source text.
func canonical(node ast.Node) ast.Node {
	switch node.TypeSafe() {
	case ast.V_STRING:
		s, err := node.StrictString()
		if err != nil {
			return node
		}
		return ast.NewString(s)
	case ast.V_ARRAY:
		items, err := node.ArrayUseNode()
		if err != nil {
			return node
		}
		out := make([]ast.Node, len(items))
		for i := range items {
			out[i] = canonical(items[i])
		}
		return ast.NewArray(out)
	case ast.V_OBJECT:
		it, err := node.Properties()
		if err != nil {
			return node
		}
		pairs := make([]ast.Pair, 0)
		var p ast.Pair
		for it.Next(&p) {
			pairs = append(pairs, ast.Pair{Key: p.Key, Value: canonical(p.Value)})
		}
		return ast.NewObject(pairs)
	}
	return node
}
