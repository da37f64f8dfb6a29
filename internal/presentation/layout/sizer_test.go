package layout

import (
	"bytes"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPadString(t *testing.T) {
	s := NewSizer(80)

	tests := []struct {
		name      string
		text      string
		width     int
		leftAlign bool
		expected  string
	}{
		{name: "left", text: "ab", width: 4, leftAlign: true, expected: "ab  "},
		{name: "right", text: "ab", width: 4, leftAlign: false, expected: "  ab"},
		{name: "wide runes", text: "中文", width: 6, leftAlign: true, expected: "中文  "},
		{name: "already wide enough", text: "abcdef", width: 3, leftAlign: true, expected: "abcdef"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, s.PadString(tt.text, tt.width, tt.leftAlign))
		})
	}
}

func TestTruncate(t *testing.T) {
	s := NewSizer(80)

	assert.Equal(t, "short", s.Truncate("short", 10))
	assert.Equal(t, "ab...", s.Truncate("abcdefgh", 5))
	assert.LessOrEqual(t, s.DisplayWidth(s.Truncate("用户操作用户操作", 5)), 5)
	assert.Equal(t, "", s.Truncate("abc", 0))
}

func TestDisplayWidth(t *testing.T) {
	s := Sizer{}
	assert.Equal(t, 3, s.DisplayWidth("abc"))
	assert.Equal(t, 4, s.DisplayWidth("中文"))
}

func TestGetMaxWidthNonTerminal(t *testing.T) {
	var buf bytes.Buffer
	assert.Equal(t, DefaultWidth, GetMaxWidth(&buf))

	f, err := os.CreateTemp(t.TempDir(), "out")
	require.NoError(t, err)
	defer f.Close()
	assert.Equal(t, DefaultWidth, GetMaxWidth(f))
	assert.Equal(t, DefaultWidth, ForWriter(f).Width)
}

func TestFlatten(t *testing.T) {
	assert.Equal(t, "a b c", Flatten("a\n  b\tc\n"))
	assert.Equal(t, "", Flatten("   "))
}
