package simplify

import (
	"strings"
	"testing"

	"github.com/bytedance/sonic/ast"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func parse(t *testing.T, s string) ast.Node {
	t.Helper()
	node, err := Parse([]byte(s))
	require.NoError(t, err)
	return node
}

func encode(t *testing.T, node ast.Node) string {
	t.Helper()
	raw, err := node.MarshalJSON()
	require.NoError(t, err)
	return string(raw)
}

func objectKeys(t *testing.T, node ast.Node) []string {
	t.Helper()
	it, err := node.Properties()
	require.NoError(t, err)
	var keys []string
	var p ast.Pair
	for it.Next(&p) {
		keys = append(keys, p.Key)
	}
	return keys
}

func TestSimplifyStructureMode(t *testing.T) {
	cfg := Config{Mode: ModeStructure, Threshold: DefaultThreshold}

	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{
			name:     "array truncated to first element",
			input:    `[{"id":1},{"id":2},{"id":3}]`,
			expected: `[{"id":1},"# ...省略后续2个相同结构的数据"]`,
		},
		{
			name:     "single element array kept",
			input:    `[{"id":1}]`,
			expected: `[{"id":1}]`,
		},
		{
			name:     "empty array",
			input:    `[]`,
			expected: `[]`,
		},
		{
			name:     "nested arrays compacted at every level",
			input:    `{"data":{"rows":[{"tags":["a","b","c"]},{"tags":[]}]}}`,
			expected: `{"data":{"rows":[{"tags":["a","# ...省略后续2个相同结构的数据"]},"# ...省略后续1个相同结构的数据"]}}`,
		},
		{
			name:     "heterogeneous array keeps only the first shape",
			input:    `[{"a":1},"x",3]`,
			expected: `[{"a":1},"# ...省略后续2个相同结构的数据"]`,
		},
		{
			name:     "object without arrays unchanged",
			input:    `{"code":0,"msg":"ok","ok":true,"extra":null}`,
			expected: `{"code":0,"msg":"ok","ok":true,"extra":null}`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := Simplify(parse(t, tt.input), cfg)
			assert.JSONEq(t, tt.expected, encode(t, result))
		})
	}
}

func TestSimplifyCountMode(t *testing.T) {
	tests := []struct {
		name      string
		threshold int
		input     string
		expected  string
	}{
		{
			name:      "truncated above threshold",
			threshold: 2,
			input:     `[1,2,3,4,5]`,
			expected:  `[1,2,"# ...省略后续3个数据"]`,
		},
		{
			name:      "kept at threshold",
			threshold: 5,
			input:     `[1,2,3,4,5]`,
			expected:  `[1,2,3,4,5]`,
		},
		{
			name:      "zero threshold keeps only the marker",
			threshold: 0,
			input:     `[1,2,3]`,
			expected:  `["# ...省略后续3个数据"]`,
		},
		{
			name:      "applied to nested arrays",
			threshold: 1,
			input:     `{"rows":[{"ids":[1,2]},{"ids":[3]}]}`,
			expected:  `{"rows":[{"ids":[1,"# ...省略后续1个数据"]},"# ...省略后续1个数据"]}`,
		},
		{
			name:      "negative threshold treated as zero",
			threshold: -4,
			input:     `[1,2]`,
			expected:  `["# ...省略后续2个数据"]`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := Simplify(parse(t, tt.input), Config{Mode: ModeCount, Threshold: tt.threshold})
			assert.JSONEq(t, tt.expected, encode(t, result))
		})
	}
}

func TestSimplifyLengthMode(t *testing.T) {
	input := `{"list":[1,2,3]}`

	t.Run("short value kept whole", func(t *testing.T) {
		result := Simplify(parse(t, input), Config{Mode: ModeLength, Threshold: 100})
		assert.JSONEq(t, input, encode(t, result))
	})

	t.Run("long value compacted by structure", func(t *testing.T) {
		result := Simplify(parse(t, input), Config{Mode: ModeLength, Threshold: 5})
		assert.JSONEq(t, `{"list":[1,"# ...省略后续2个相同结构的数据"]}`, encode(t, result))
	})

	t.Run("length equal to threshold is kept", func(t *testing.T) {
		result := Simplify(parse(t, input), Config{Mode: ModeLength, Threshold: len(input)})
		assert.JSONEq(t, input, encode(t, result))
	})

	t.Run("decision is made once for the whole value", func(t *testing.T) {
		// The small array is shorter than the threshold on its own, but the
		// enclosing value is not, so structure mode applies to it as well.
		doc := `{"small":[1,2],"big":["aaaaaaaaaa","bbbbbbbbbb","cccccccccc","dddddddddd"]}`
		result := Simplify(parse(t, doc), Config{Mode: ModeLength, Threshold: 20})
		assert.JSONEq(t,
			`{"small":[1,"# ...省略后续1个相同结构的数据"],"big":["aaaaaaaaaa","# ...省略后续3个相同结构的数据"]}`,
			encode(t, result))
	})
}

func TestSimplifyNoneAndUnknownModes(t *testing.T) {
	input := `{"rows":[{"id":1},{"id":2},{"id":3}],"total":3}`

	for _, mode := range []Mode{ModeNone, Mode("weird")} {
		t.Run(string(mode), func(t *testing.T) {
			result := Simplify(parse(t, input), Config{Mode: mode, Threshold: 1})
			assert.JSONEq(t, input, encode(t, result))
		})
	}
}

func TestSimplifyEmptyModeDefaultsToStructure(t *testing.T) {
	result := Simplify(parse(t, `[1,2]`), Config{})
	assert.JSONEq(t, `[1,"# ...省略后续1个相同结构的数据"]`, encode(t, result))
}

func TestSimplifyStrings(t *testing.T) {
	cfg := DefaultConfig()

	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{
			name:     "plain string unchanged",
			input:    "not json",
			expected: `"not json"`,
		},
		{
			name:     "scalar json string unchanged",
			input:    "123",
			expected: `"123"`,
		},
		{
			name:     "broken json unchanged",
			input:    `{"a":`,
			expected: `"{\"a\":"`,
		},
		{
			name:     "trailing garbage unchanged",
			input:    `[1] tail`,
			expected: `"[1] tail"`,
		},
		{
			name:     "encoded array unwrapped",
			input:    `[{"a":1},{"a":2}]`,
			expected: `[{"a":1},"# ...省略后续1个相同结构的数据"]`,
		},
		{
			name:     "encoded object unwrapped",
			input:    `{"page":1,"items":[1,2,3]}`,
			expected: `{"page":1,"items":[1,"# ...省略后续2个相同结构的数据"]}`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			raw, err := SimplifyString(tt.input, cfg)
			require.NoError(t, err)
			assert.JSONEq(t, tt.expected, string(raw))
		})
	}
}

func TestSimplifyNestedEncodedString(t *testing.T) {
	doc := `{"body":"{\"list\":[1,2,3]}"}`
	result := Simplify(parse(t, doc), DefaultConfig())
	assert.JSONEq(t, `{"body":{"list":[1,"# ...省略后续2个相同结构的数据"]}}`, encode(t, result))
}

func TestSimplifyNullAndMissing(t *testing.T) {
	null := parse(t, `null`)
	assert.Equal(t, "null", encode(t, Simplify(null, DefaultConfig())))

	var missing ast.Node
	result := Simplify(missing, DefaultConfig())
	assert.Equal(t, ast.V_NONE, result.TypeSafe())
}

func TestSimplifyPreservesKeyOrder(t *testing.T) {
	doc := `{"zeta":[1,2],"alpha":{"y":1,"x":2},"mid":"v"}`

	for _, mode := range Modes() {
		t.Run(string(mode), func(t *testing.T) {
			result := Simplify(parse(t, doc), Config{Mode: mode, Threshold: 1})
			assert.Equal(t, []string{"zeta", "alpha", "mid"}, objectKeys(t, result))
			assert.Equal(t, []string{"y", "x"}, objectKeys(t, *result.Get("alpha")))
		})
	}
}

func TestSimplifyDoesNotMutateInput(t *testing.T) {
	doc := `{"rows":[1,2,3]}`
	node := parse(t, doc)

	Simplify(node, DefaultConfig())

	assert.JSONEq(t, doc, encode(t, node))
}

func TestSerializedLength(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected int
	}{
		{name: "compact", input: `{"a":[1,2]}`, expected: 11},
		{name: "whitespace ignored", input: "{ \"a\" : [ 1, 2 ] }", expected: 11},
		{name: "cjk counted per character", input: `["中文"]`, expected: 6},
		{name: "escapes normalised", input: `["\u4e2d"]`, expected: 5},
		{name: "astral rune counts twice", input: `["😀"]`, expected: 6},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, SerializedLength(parse(t, tt.input)))
		})
	}
}

func TestSimplifyJSON(t *testing.T) {
	raw, err := SimplifyJSON([]byte(`{"list":[{"k":"v"},{"k":"w"}]}`), DefaultConfig())
	require.NoError(t, err)
	assert.JSONEq(t, `{"list":[{"k":"v"},"# ...省略后续1个相同结构的数据"]}`, string(raw))

	_, err = SimplifyJSON([]byte(`{broken`), DefaultConfig())
	assert.ErrorIs(t, err, ErrInvalidJSON)
}

func TestOmissionMarkers(t *testing.T) {
	assert.True(t, strings.Contains(StructureOmission(7), "7"))
	assert.True(t, strings.HasPrefix(CountOmission(3), "# ..."))
}

func TestParseThreshold(t *testing.T) {
	assert.Equal(t, 50, ParseThreshold("50"))
	assert.Equal(t, 50, ParseThreshold(" 50 "))
	assert.Equal(t, DefaultThreshold, ParseThreshold(""))
	assert.Equal(t, DefaultThreshold, ParseThreshold("0"))
	assert.Equal(t, DefaultThreshold, ParseThreshold("abc"))
}

func TestModeKnown(t *testing.T) {
	for _, mode := range Modes() {
		assert.True(t, mode.Known(), mode)
	}
	assert.False(t, Mode("fast").Known())
	assert.False(t, Mode("").Known())
}
