// Package commands wires the optrace command line.
package commands

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/penwyp/go-optrace/internal/config"
	"github.com/penwyp/go-optrace/internal/core/simplify"
	"github.com/penwyp/go-optrace/internal/util"
	"github.com/spf13/cobra"
)

// rootOptions holds the persistent flags and the configuration resolved
// from them before any subcommand runs.
type rootOptions struct {
	configPath string
	debug      bool
	mode       string
	threshold  string

	cfg *config.Config
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}

	cmd := &cobra.Command{
		Use:   "optrace",
		Short: "Compact recorded test-case traces into deduplicated reports",
		Long: `optrace turns traces recorded by the test recorder extension into compact
operation reports: repeated API calls are removed and large JSON bodies are
simplified.

Examples:
  optrace report case.json                     # Print the text report
  optrace report traces/ -o summary            # Summarise every trace in a directory
  optrace report case.json --mode count --threshold 3
  optrace simplify response.json               # Simplify an arbitrary JSON document
  optrace inspect case.json                    # Show the raw timeline
  optrace watch traces/                        # Keep <name>.report.txt up to date
  optrace serve --listen :8787                 # Serve reports over HTTP`,
		SilenceUsage:      true,
		SilenceErrors:     true,
		PersistentPreRunE: opts.setup,
	}

	flags := cmd.PersistentFlags()
	flags.StringVar(&opts.configPath, "config", "",
		"Config file (default ~/.optrace/config.json)")
	flags.BoolVar(&opts.debug, "debug", false,
		"Enable debug logging to stderr")
	flags.StringVar(&opts.mode, "mode", "",
		"Compression mode (structure, length, count, none)")
	flags.StringVar(&opts.threshold, "threshold", "",
		"Compression threshold: characters in length mode, elements in count mode")

	cmd.AddCommand(
		newReportCmd(opts),
		newSimplifyCmd(opts),
		newInspectCmd(),
		newWatchCmd(opts),
		newServeCmd(opts),
	)
	return cmd
}

// setup loads the configuration, applies flag overrides and starts logging.
func (o *rootOptions) setup(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(expandPath(o.configPath))
	if err != nil {
		return err
	}

	if o.mode != "" {
		mode, err := config.ParseMode(o.mode)
		if err != nil {
			return err
		}
		cfg.Compression.Mode = mode
	}
	if o.threshold != "" {
		cfg.Compression.Threshold = simplify.ParseThreshold(o.threshold)
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	logLevel := cfg.LogLevel
	if o.debug {
		logLevel = "debug"
	}
	if err := util.InitLogger(logLevel, config.DefaultLogFile(), o.debug); err != nil {
		return fmt.Errorf("failed to initialize logging: %w", err)
	}
	util.LogDebug("configuration loaded",
		util.F("mode", string(cfg.Compression.Mode)),
		util.F("threshold", cfg.Compression.Threshold),
		util.F("systems", len(cfg.Whitelist)),
	)

	o.cfg = cfg
	return nil
}

// Execute runs the command line and reports failures on stderr.
func Execute() error {
	cmd := newRootCmd()
	err := cmd.Execute()
	util.CloseLogger()
	if err != nil {
		fmt.Fprintf(os.Stderr, "optrace: %v\n", err)
	}
	return err
}

// Helper functions

func expandPath(path string) string {
	if path == "" {
		return ""
	}
	if strings.HasPrefix(path, "~/") {
		home, _ := os.UserHomeDir()
		path = filepath.Join(home, path[2:])
	}
	absPath, err := filepath.Abs(path)
	if err != nil {
		return path
	}
	return absPath
}
