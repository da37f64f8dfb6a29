// Package analyzer runs report generation over a batch of trace files:
// cached reports are reused, the rest are parsed concurrently.
package analyzer

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"time"

	"github.com/penwyp/go-optrace/internal/core/report"
	"github.com/penwyp/go-optrace/internal/core/simplify"
	"github.com/penwyp/go-optrace/internal/data/cache"
	"github.com/penwyp/go-optrace/internal/data/parser"
	"github.com/penwyp/go-optrace/internal/data/scanner"
	"github.com/penwyp/go-optrace/internal/presentation/formatter"
	"github.com/penwyp/go-optrace/internal/util"
)

var ErrNoTraces = errors.New("no trace files found")

type Config struct {
	// Inputs are trace files or directories to scan.
	Inputs       []string
	CacheDir     string // empty disables the report cache
	Compression  simplify.Config
	OutputFormat string
	// OutDir receives one report file per trace instead of writing to the
	// analyzer's writer.
	OutDir      string
	Concurrency int
}

// Result is the outcome for one trace file.
type Result struct {
	File   string
	Report *report.Report
	Cached bool
	Err    error
}

type Analyzer struct {
	config    *Config
	cache     cache.Cache
	parser    *parser.Parser
	formatter formatter.Formatter
	out       io.Writer
	stats     *CacheStats
}

// New prepares an analyzer writing to out. A cache directory that cannot be
// created disables caching.
func New(config *Config, out io.Writer) (*Analyzer, error) {
	if config.Concurrency == 0 {
		config.Concurrency = runtime.NumCPU()
	}
	if config.OutputFormat == "" {
		config.OutputFormat = "text"
	}

	f, err := formatter.New(config.OutputFormat)
	if err != nil {
		return nil, err
	}

	a := &Analyzer{
		config:    config,
		parser:    parser.NewParser(config.Concurrency),
		formatter: f,
		out:       out,
		stats:     NewCacheStats(),
	}
	if config.CacheDir != "" {
		fileCache, err := cache.NewFileCache(config.CacheDir)
		if err != nil {
			util.LogWarnf("Report cache disabled: %v", err)
		} else {
			a.cache = fileCache
		}
	}
	return a, nil
}

func (a *Analyzer) Stats() *CacheStats {
	return a.stats
}

// Run generates and writes the report of every input trace. Traces that
// fail are logged and reported in the returned error; the others are still
// written.
func (a *Analyzer) Run() error {
	startTime := time.Now()

	files, err := scanner.Expand(a.config.Inputs)
	if err != nil {
		return fmt.Errorf("failed to scan inputs: %w", err)
	}
	if len(files) == 0 {
		return ErrNoTraces
	}
	util.LogDebugf("Found %d trace files", len(files))

	results := a.Process(files)

	var failed int
	for i, result := range results {
		if result.Err != nil {
			failed++
			continue
		}
		if err := a.write(result, i); err != nil {
			return fmt.Errorf("failed to write report for %s: %w", result.File, err)
		}
	}

	a.stats.PrintFinalStats()
	util.LogDebugf("Total duration: %v", time.Since(startTime))

	if failed > 0 {
		return fmt.Errorf("failed to process %d of %d trace files", failed, len(files))
	}
	return nil
}

// Process generates the reports of files, returned in the order of files.
func (a *Analyzer) Process(files []string) []Result {
	results := make([]Result, len(files))
	index := make(map[string]int, len(files))
	duplicates := make(map[int]int)
	var toParse []string
	missReasons := make(map[string]cache.CacheMissReason)

	for i, file := range files {
		results[i].File = file
		if first, seen := index[file]; seen {
			duplicates[i] = first
			continue
		}
		index[file] = i
		a.stats.IncrementTotal()

		if a.cache == nil {
			toParse = append(toParse, file)
			missReasons[file] = cache.MissReasonNotFound
			continue
		}
		cached := a.cache.Get(file, a.config.Compression)
		if cached.Found {
			a.stats.IncrementHit()
			results[i].Report = cached.Report
			results[i].Cached = true
			continue
		}
		toParse = append(toParse, file)
		missReasons[file] = cached.MissReason
	}

	util.LogDebugf("Cache hit for %d files, need to parse %d files", len(index)-len(toParse), len(toParse))

	for parsed := range a.parser.ParseFiles(toParse) {
		i := index[parsed.File]
		if parsed.Error != nil {
			a.stats.IncrementFailure()
			util.LogWarnf("Failed to parse file %s: %v", parsed.File, parsed.Error)
			results[i].Err = parsed.Error
			continue
		}

		a.stats.IncrementMiss(parsed.File, missReasons[parsed.File])
		r := report.Generate(parsed.Trace, a.config.Compression)
		if a.cache != nil {
			if err := a.cache.Set(parsed.File, a.config.Compression, r); err != nil {
				util.LogWarnf("Failed to save cache for %s: %v", parsed.File, err)
			}
		}
		results[i].Report = r
	}

	for i, first := range duplicates {
		results[i] = results[first]
	}
	return results
}

// ProcessFile generates the report of a single trace file, forgetting any
// previously parsed version of it.
func (a *Analyzer) ProcessFile(file string) Result {
	a.parser.Forget(file)
	return a.Process([]string{file})[0]
}

// ReportFor is where Refresh stores the report of file.
func (a *Analyzer) ReportFor(file string) string {
	dir := a.config.OutDir
	if dir == "" {
		dir = filepath.Dir(file)
	}
	return ReportPath(dir, file, a.config.OutputFormat)
}

// Refresh regenerates the report of file and stores it at ReportFor(file).
func (a *Analyzer) Refresh(file string) (string, error) {
	result := a.ProcessFile(file)
	if result.Err != nil {
		return "", result.Err
	}
	path := a.ReportFor(file)
	if err := WriteReport(path, a.formatter, result.Report); err != nil {
		return "", fmt.Errorf("failed to write report for %s: %w", file, err)
	}
	return path, nil
}

func (a *Analyzer) write(result Result, position int) error {
	if a.config.OutDir != "" {
		path := ReportPath(a.config.OutDir, result.File, a.config.OutputFormat)
		if err := WriteReport(path, a.formatter, result.Report); err != nil {
			return err
		}
		util.LogInfof("Report written: %s", path)
		return nil
	}

	if position > 0 {
		if _, err := io.WriteString(a.out, "\n"); err != nil {
			return err
		}
	}
	return a.formatter.Format(a.out, result.Report)
}

// ReportPath is where the report of trace is stored inside dir.
func ReportPath(dir, trace, format string) string {
	name := strings.TrimSuffix(filepath.Base(trace), filepath.Ext(trace))
	suffix := scanner.TextReportSuffix
	if format == "json" || format == "upload" {
		suffix = scanner.JSONReportSuffix
	}
	return filepath.Join(dir, name+suffix)
}

// WriteReport renders r with f into the file at path, replacing it
// atomically.
func WriteReport(path string, f formatter.Formatter, r *report.Report) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}
	tmp, err := os.CreateTemp(filepath.Dir(path), ".report-*")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())

	if err := f.Format(tmp, r); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), path)
}
