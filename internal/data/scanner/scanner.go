package scanner

import (
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/penwyp/go-optrace/internal/util"
)

// Suffixes of reports written next to traces.
const (
	JSONReportSuffix = ".report.json"
	TextReportSuffix = ".report.txt"
)

// ReportSuffixes are never picked up as input.
var ReportSuffixes = []string{JSONReportSuffix, TextReportSuffix}

// FileScanner finds trace files under a directory
type FileScanner struct {
	baseDir string
}

func NewFileScanner(baseDir string) *FileScanner {
	return &FileScanner{baseDir: baseDir}
}

// IsTraceFile reports whether path looks like a submitted trace.
func IsTraceFile(path string) bool {
	lower := strings.ToLower(path)
	if !strings.HasSuffix(lower, ".json") {
		return false
	}
	for _, suffix := range ReportSuffixes {
		if strings.HasSuffix(lower, suffix) {
			return false
		}
	}
	return true
}

// Scan walks the directory and returns all trace files in lexical order.
// Unreadable entries are skipped.
func (s *FileScanner) Scan() ([]string, error) {
	start := time.Now()
	var files []string
	dirCount := 0
	totalCount := 0

	util.LogDebugf("Start scanning directory: %s", s.baseDir)

	err := filepath.Walk(s.baseDir, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			if path == s.baseDir {
				return err
			}
			util.LogDebugf("Skip file (error): %s - %v", path, err)
			return nil
		}

		if info.IsDir() {
			if path != s.baseDir && strings.HasPrefix(info.Name(), ".") {
				return filepath.SkipDir
			}
			dirCount++
			return nil
		}

		totalCount++
		if IsTraceFile(path) {
			files = append(files, path)
		}
		return nil
	})

	sort.Strings(files)

	util.LogDebugf("File scan completed: duration %v, scanned %d directories, %d files, found %d traces",
		time.Since(start), dirCount, totalCount, len(files))

	return files, err
}

// Expand resolves command line arguments into trace files. Directories are
// scanned; files are taken as given.
func Expand(args []string) ([]string, error) {
	var files []string
	for _, arg := range args {
		info, err := os.Stat(arg)
		if err != nil {
			return nil, err
		}
		if !info.IsDir() {
			files = append(files, arg)
			continue
		}
		found, err := NewFileScanner(arg).Scan()
		if err != nil {
			return nil, err
		}
		files = append(files, found...)
	}
	return files, nil
}
