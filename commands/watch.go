package commands

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/penwyp/go-optrace/internal/analyzer"
	"github.com/penwyp/go-optrace/internal/data/scanner"
	"github.com/penwyp/go-optrace/internal/data/watcher"
	"github.com/penwyp/go-optrace/internal/util"
	"github.com/spf13/cobra"
)

func newWatchCmd(root *rootOptions) *cobra.Command {
	var (
		outputFormat string
		skipInitial  bool
	)

	cmd := &cobra.Command{
		Use:   "watch <dir>...",
		Short: "Regenerate reports whenever trace files change",
		Long: `Watch directories for trace files and keep a report next to each one
(<name>.report.txt, or <name>.report.json for json output). Reports of
removed traces are deleted.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := analyzer.New(&analyzer.Config{
				Inputs:       args,
				Compression:  root.cfg.Compression,
				OutputFormat: outputFormat,
			}, io.Discard)
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return runWatch(ctx, cmd.ErrOrStderr(), a, args, !skipInitial)
		},
	}

	cmd.Flags().StringVarP(&outputFormat, "output", "o", "text",
		"Report format written next to each trace")
	cmd.Flags().BoolVar(&skipInitial, "skip-initial", false,
		"Do not regenerate reports of existing traces on start")
	return cmd
}

// runWatch keeps reports current until ctx is cancelled.
func runWatch(ctx context.Context, w io.Writer, a *analyzer.Analyzer, dirs []string, initial bool) error {
	fw, err := watcher.NewFileWatcher(dirs)
	if err != nil {
		return fmt.Errorf("failed to watch %s: %w", strings.Join(dirs, ", "), err)
	}
	defer fw.Close()

	if initial {
		files, err := scanner.Expand(dirs)
		if err != nil {
			return err
		}
		for _, file := range files {
			refresh(w, a, file)
		}
	}
	fmt.Fprintf(w, "Watching %s for trace changes\n", strings.Join(dirs, ", "))

	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-fw.Events():
			if !ok {
				return nil
			}
			if watcher.IsRemoval(ev) {
				path := a.ReportFor(ev.Path)
				if err := os.Remove(path); err == nil {
					fmt.Fprintf(w, "removed %s\n", path)
				} else if !errors.Is(err, os.ErrNotExist) {
					util.LogWarnf("Failed to remove %s: %v", path, err)
				}
				continue
			}
			refresh(w, a, ev.Path)
		}
	}
}

func refresh(w io.Writer, a *analyzer.Analyzer, file string) {
	path, err := a.Refresh(file)
	if err != nil {
		// Files are often observed half written; the next write retries.
		util.LogDebugf("Skipping %s: %v", file, err)
		return
	}
	util.LogInfof("Report updated: %s", path)
	fmt.Fprintf(w, "updated %s\n", path)
}
