package parser

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/bytedance/sonic"
	"github.com/penwyp/go-optrace/internal/core/model"
	"github.com/penwyp/go-optrace/internal/util"
)

var ErrInvalidTrace = errors.New("invalid trace")

// Parser reads submitted trace files. Parsed traces are cached per path and
// reused while the file on disk is unchanged.
type Parser struct {
	concurrency int
	mu          sync.Mutex
	cache       map[string]cachedTrace
}

type cachedTrace struct {
	info  util.FileInfo
	trace *model.Trace
}

// ParseResult represents the result of parsing a single file.
type ParseResult struct {
	File  string
	Trace *model.Trace
	Error error
}

func NewParser(concurrency int) *Parser {
	if concurrency < 1 {
		concurrency = 1
	}
	return &Parser{
		concurrency: concurrency,
		cache:       make(map[string]cachedTrace),
	}
}

// Parse decodes a trace document. The document must be a JSON object.
func Parse(data []byte) (*model.Trace, error) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 || trimmed[0] != '{' {
		return nil, fmt.Errorf("%w: document is not an object", ErrInvalidTrace)
	}
	if !sonic.Valid(trimmed) {
		return nil, fmt.Errorf("%w: malformed json", ErrInvalidTrace)
	}

	trace, err := model.ParseTrace(trimmed)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidTrace, err)
	}
	return trace, nil
}

// ParseFile parses the trace file at path.
func (p *Parser) ParseFile(path string) (*model.Trace, error) {
	info, err := util.GetFileInfo(path)
	if err != nil {
		return nil, fmt.Errorf("failed to stat %s: %w", path, err)
	}

	p.mu.Lock()
	if cached, ok := p.cache[path]; ok && cached.info.Same(*info) {
		p.mu.Unlock()
		util.LogDebugf("Trace cache hit: %s", path)
		return cached.trace, nil
	}
	p.mu.Unlock()

	util.LogDebugf("Start parsing file: %s", path)

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}

	trace, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", path, err)
	}

	util.LogDebugf("Parsed %s: case %q, %d timeline entries", path, trace.Meta.CaseID, len(trace.Timeline))

	p.mu.Lock()
	p.cache[path] = cachedTrace{info: *info, trace: trace}
	p.mu.Unlock()

	return trace, nil
}

// Forget drops the cached trace for path.
func (p *Parser) Forget(path string) {
	p.mu.Lock()
	delete(p.cache, path)
	p.mu.Unlock()
}

// ParseFiles parses files concurrently. The channel is closed once every
// file has produced a result; results arrive in completion order.
func (p *Parser) ParseFiles(files []string) <-chan ParseResult {
	start := time.Now()
	results := make(chan ParseResult, len(files))
	var wg sync.WaitGroup

	util.LogDebugf("Start concurrent parsing of %d files, concurrency: %d", len(files), p.concurrency)

	semaphore := make(chan struct{}, p.concurrency)

	for _, file := range files {
		wg.Add(1)
		go func(f string) {
			defer wg.Done()

			semaphore <- struct{}{}
			defer func() { <-semaphore }()

			trace, err := p.ParseFile(f)
			if err != nil {
				util.LogDebugf("File parsing failed: %s - %v", f, err)
			}

			results <- ParseResult{
				File:  f,
				Trace: trace,
				Error: err,
			}
		}(file)
	}

	go func() {
		wg.Wait()
		close(results)
		util.LogDebugf("Concurrent parsing finished, total duration: %v", time.Since(start))
	}()

	return results
}
