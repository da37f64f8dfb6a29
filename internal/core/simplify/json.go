package simplify

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/bytedance/sonic"
	"github.com/bytedance/sonic/ast"
)

var ErrInvalidJSON = errors.New("invalid json")

// Parse decodes raw into a fully loaded node.
func Parse(raw []byte) (ast.Node, error) {
	if !sonic.Valid(raw) {
		return ast.Node{}, ErrInvalidJSON
	}
	node, err := sonic.Get(raw)
	if err != nil {
		return ast.Node{}, fmt.Errorf("failed to parse json: %w", err)
	}
	if err := node.LoadAll(); err != nil {
		return ast.Node{}, fmt.Errorf("failed to load json: %w", err)
	}
	return node, nil
}

// SimplifyJSON simplifies an encoded JSON document and returns the compact
// encoding of the result.
func SimplifyJSON(raw []byte, cfg Config) ([]byte, error) {
	node, err := Parse(raw)
	if err != nil {
		return nil, err
	}
	out := Simplify(node, cfg)
	return out.MarshalJSON()
}

// SimplifyString treats s as a JSON string value. JSON-encoded containers are
// unwrapped and simplified; anything else is returned as a quoted string.
func SimplifyString(s string, cfg Config) ([]byte, error) {
	out := Simplify(ast.NewString(s), cfg)
	return out.MarshalJSON()
}

// ParseThreshold parses a user supplied threshold. Empty, zero and
// unparsable values fall back to DefaultThreshold, as the settings form did.
func ParseThreshold(s string) int {
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil || n == 0 {
		return DefaultThreshold
	}
	return n
}
