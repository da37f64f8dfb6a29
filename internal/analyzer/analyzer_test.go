package analyzer

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/penwyp/go-optrace/internal/core/report"
	"github.com/penwyp/go-optrace/internal/core/simplify"
	"github.com/penwyp/go-optrace/internal/data/cache"
	"github.com/penwyp/go-optrace/internal/testing/fixtures"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type workspace struct {
	dir   string
	cache string
	gen   *fixtures.TestDataGenerator
}

func newWorkspace(t *testing.T) *workspace {
	t.Helper()
	dir := t.TempDir()
	return &workspace{
		dir:   filepath.Join(dir, "traces"),
		cache: filepath.Join(dir, "cache"),
		gen:   fixtures.NewTestDataGenerator(filepath.Join(dir, "traces")),
	}
}

func (w *workspace) config(format string) *Config {
	return &Config{
		Inputs:       []string{w.dir},
		CacheDir:     w.cache,
		Compression:  simplify.DefaultConfig(),
		OutputFormat: format,
		Concurrency:  2,
	}
}

func TestRunWritesReportsInOrder(t *testing.T) {
	w := newWorkspace(t)
	_, err := w.gen.WriteTrace("a.json", fixtures.SampleTrace())
	require.NoError(t, err)
	_, err = w.gen.WriteTrace("b.json", fixtures.NewTrace("TEST-002").Action("Open"))
	require.NoError(t, err)

	var out bytes.Buffer
	a, err := New(w.config("text"), &out)
	require.NoError(t, err)
	require.NoError(t, a.Run())

	first := report.GenerateFullTextDedupReport(fixtures.SampleTrace().Build(), simplify.DefaultConfig())
	second := report.GenerateFullTextDedupReport(fixtures.NewTrace("TEST-002").Action("Open").Build(), simplify.DefaultConfig())
	assert.Equal(t, first+"\n\n"+second+"\n", out.String())

	total, hits, misses, failures, _ := a.Stats().GetStats()
	assert.Equal(t, []int64{2, 0, 2, 0}, []int64{total, hits, misses, failures})
}

func TestRunUsesCacheOnSecondPass(t *testing.T) {
	w := newWorkspace(t)
	_, err := w.gen.WriteTrace("a.json", fixtures.SampleTrace())
	require.NoError(t, err)

	var first bytes.Buffer
	a, err := New(w.config("text"), &first)
	require.NoError(t, err)
	require.NoError(t, a.Run())

	var second bytes.Buffer
	b, err := New(w.config("text"), &second)
	require.NoError(t, err)
	require.NoError(t, b.Run())

	assert.Equal(t, first.String(), second.String())
	_, hits, misses, _, hitRate := b.Stats().GetStats()
	assert.Equal(t, int64(1), hits)
	assert.Equal(t, int64(0), misses)
	assert.Equal(t, 100.0, hitRate)
}

func TestRunCompressionIsPartOfCacheKey(t *testing.T) {
	w := newWorkspace(t)
	_, err := w.gen.WriteTrace("a.json", fixtures.SampleTrace())
	require.NoError(t, err)

	a, err := New(w.config("text"), &bytes.Buffer{})
	require.NoError(t, err)
	require.NoError(t, a.Run())

	cfg := w.config("text")
	cfg.Compression = simplify.Config{Mode: simplify.ModeNone}
	var out bytes.Buffer
	b, err := New(cfg, &out)
	require.NoError(t, err)
	require.NoError(t, b.Run())

	assert.Equal(t, map[cache.CacheMissReason]int{cache.MissReasonNotFound: 1}, b.Stats().MissReasons())
	assert.Contains(t, out.String(), `"item-3"`)
}

func TestRunReportsFailures(t *testing.T) {
	w := newWorkspace(t)
	_, err := w.gen.WriteTrace("good.json", fixtures.SampleTrace())
	require.NoError(t, err)
	_, err = w.gen.WriteRaw("bad.json", []byte(`{"meta":`))
	require.NoError(t, err)

	var out bytes.Buffer
	a, err := New(w.config("summary"), &out)
	require.NoError(t, err)

	err = a.Run()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to process 1 of 2 trace files")
	assert.Contains(t, out.String(), "Case TEST-001")

	_, _, _, failures, _ := a.Stats().GetStats()
	assert.Equal(t, int64(1), failures)
}

func TestRunNoTraces(t *testing.T) {
	w := newWorkspace(t)
	require.NoError(t, os.MkdirAll(w.dir, 0755))

	a, err := New(w.config("text"), &bytes.Buffer{})
	require.NoError(t, err)
	assert.ErrorIs(t, a.Run(), ErrNoTraces)
}

func TestRunOutDir(t *testing.T) {
	w := newWorkspace(t)
	trace, err := w.gen.WriteTrace("nested/a.json", fixtures.SampleTrace())
	require.NoError(t, err)

	cfg := w.config("json")
	cfg.OutDir = filepath.Join(t.TempDir(), "out")
	var out bytes.Buffer
	a, err := New(cfg, &out)
	require.NoError(t, err)
	require.NoError(t, a.Run())

	assert.Empty(t, out.String())
	data, err := os.ReadFile(ReportPath(cfg.OutDir, trace, "json"))
	require.NoError(t, err)
	assert.Contains(t, string(data), `"caseId": "TEST-001"`)
}

func TestProcessDuplicateInputs(t *testing.T) {
	w := newWorkspace(t)
	path, err := w.gen.WriteTrace("a.json", fixtures.SampleTrace())
	require.NoError(t, err)

	cfg := w.config("text")
	cfg.CacheDir = ""
	a, err := New(cfg, &bytes.Buffer{})
	require.NoError(t, err)

	results := a.Process([]string{path, path})
	require.Len(t, results, 2)
	for _, r := range results {
		require.NoError(t, r.Err)
		require.NotNil(t, r.Report)
		assert.Equal(t, "TEST-001", r.Report.CaseID)
	}
}

func TestProcessFileSeesChanges(t *testing.T) {
	w := newWorkspace(t)
	path, err := w.gen.WriteTrace("a.json", fixtures.SampleTrace())
	require.NoError(t, err)

	a, err := New(w.config("text"), &bytes.Buffer{})
	require.NoError(t, err)

	result := a.ProcessFile(path)
	require.NoError(t, result.Err)
	assert.Equal(t, 2, result.Report.Stats.Actions)

	_, err = w.gen.WriteTrace("a.json", fixtures.SampleTrace().Action("Click 3").Action("Click 4"))
	require.NoError(t, err)

	result = a.ProcessFile(path)
	require.NoError(t, result.Err)
	assert.False(t, result.Cached)
	assert.Equal(t, 4, result.Report.Stats.Actions)
}

func TestNewRejectsUnknownFormat(t *testing.T) {
	_, err := New(&Config{OutputFormat: "csv"}, &bytes.Buffer{})
	assert.Error(t, err)
}

func TestReportPath(t *testing.T) {
	tests := []struct {
		format   string
		expected string
	}{
		{format: "text", expected: "case-1.report.txt"},
		{format: "table", expected: "case-1.report.txt"},
		{format: "json", expected: "case-1.report.json"},
		{format: "upload", expected: "case-1.report.json"},
	}

	for _, tt := range tests {
		t.Run(tt.format, func(t *testing.T) {
			assert.Equal(t, filepath.Join("/out", tt.expected), ReportPath("/out", "/in/case-1.json", tt.format))
		})
	}
}

func TestDescribeMissReason(t *testing.T) {
	assert.Equal(t, "No cached report", describeMissReason(cache.MissReasonNotFound))
	assert.Equal(t, "Trace content changed", describeMissReason(cache.MissReasonFingerprint))
	assert.Equal(t, "Unknown reason", describeMissReason(cache.CacheMissReason(99)))
}

func TestCacheStatsConcurrent(t *testing.T) {
	stats := NewCacheStats()
	done := make(chan struct{})
	for i := 0; i < 10; i++ {
		go func(i int) {
			defer func() { done <- struct{}{} }()
			stats.IncrementTotal()
			if i%2 == 0 {
				stats.IncrementHit()
			} else {
				stats.IncrementMiss(strings.Repeat("x", i), cache.MissReasonSize)
			}
		}(i)
	}
	for i := 0; i < 10; i++ {
		<-done
	}

	total, hits, misses, _, hitRate := stats.GetStats()
	assert.Equal(t, int64(10), total)
	assert.Equal(t, int64(5), hits)
	assert.Equal(t, int64(5), misses)
	assert.Equal(t, 50.0, hitRate)
	assert.Equal(t, map[cache.CacheMissReason]int{cache.MissReasonSize: 5}, stats.MissReasons())
}

func TestRefreshWritesNextToTrace(t *testing.T) {
	w := newWorkspace(t)
	trace, err := w.gen.WriteTrace("a.json", fixtures.SampleTrace())
	require.NoError(t, err)

	a, err := New(w.config("text"), &bytes.Buffer{})
	require.NoError(t, err)

	path, err := a.Refresh(trace)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(w.dir, "a.report.txt"), path)
	assert.Equal(t, path, a.ReportFor(trace))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, report.GenerateFullTextDedupReport(fixtures.SampleTrace().Build(), simplify.DefaultConfig())+"\n", string(data))

	// No temporary files are left behind.
	entries, err := os.ReadDir(w.dir)
	require.NoError(t, err)
	assert.Len(t, entries, 2)
}

func TestRefreshInvalidTrace(t *testing.T) {
	w := newWorkspace(t)
	trace, err := w.gen.WriteRaw("a.json", []byte("not json"))
	require.NoError(t, err)

	a, err := New(w.config("text"), &bytes.Buffer{})
	require.NoError(t, err)

	_, err = a.Refresh(trace)
	assert.Error(t, err)
	_, statErr := os.Stat(a.ReportFor(trace))
	assert.True(t, os.IsNotExist(statErr))
}
