package commands

import (
	"fmt"
	"runtime"
	"strings"

	"github.com/penwyp/go-optrace/internal/analyzer"
	"github.com/penwyp/go-optrace/internal/config"
	"github.com/penwyp/go-optrace/internal/data/cache"
	"github.com/penwyp/go-optrace/internal/presentation/formatter"
	"github.com/penwyp/go-optrace/internal/util"
	"github.com/spf13/cobra"
)

func newReportCmd(root *rootOptions) *cobra.Command {
	var (
		outputFormat string
		outDir       string
		cacheDir     string
		noCache      bool
		reset        bool
	)

	cmd := &cobra.Command{
		Use:   "report <trace.json|dir>...",
		Short: "Generate deduplicated reports for trace files",
		Long: `Generate the deduplicated operation report of each trace. Directories are
scanned for *.json traces; generated *.report.* files are skipped.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cacheDir = expandPath(cacheDir)
			if reset {
				fileCache, err := cache.NewFileCache(cacheDir)
				if err != nil {
					return fmt.Errorf("failed to open cache: %w", err)
				}
				if err := fileCache.Clear(); err != nil {
					return fmt.Errorf("failed to clear cache: %w", err)
				}
				util.LogInfo("Cache cleared")
			}
			if noCache {
				cacheDir = ""
			}

			a, err := analyzer.New(&analyzer.Config{
				Inputs:       args,
				CacheDir:     cacheDir,
				Compression:  root.cfg.Compression,
				OutputFormat: outputFormat,
				OutDir:       expandPath(outDir),
				Concurrency:  runtime.NumCPU(),
			}, cmd.OutOrStdout())
			if err != nil {
				return err
			}
			return a.Run()
		},
	}

	flags := cmd.Flags()
	flags.StringVarP(&outputFormat, "output", "o", "text",
		fmt.Sprintf("Output format (%s)", strings.Join(formatter.Names(), ", ")))
	flags.StringVar(&outDir, "out-dir", "",
		"Write one report file per trace into this directory")
	flags.StringVar(&cacheDir, "cache-dir", config.DefaultCacheDir(),
		"Report cache directory")
	flags.BoolVar(&noCache, "no-cache", false,
		"Regenerate every report without reading or writing the cache")
	flags.BoolVarP(&reset, "reset", "r", false,
		"Clear the report cache first")
	return cmd
}
