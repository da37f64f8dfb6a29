package commands

import (
	"github.com/penwyp/go-optrace/internal/data/parser"
	"github.com/penwyp/go-optrace/internal/presentation/formatter"
	"github.com/penwyp/go-optrace/internal/util"
	"github.com/spf13/cobra"
)

func newInspectCmd() *cobra.Command {
	var (
		timezone string
		width    int
	)

	cmd := &cobra.Command{
		Use:   "inspect <trace.json>",
		Short: "Show the raw recorded timeline of a trace",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			tp, err := util.NewTimeProvider(timezone)
			if err != nil {
				return err
			}
			trace, err := parser.NewParser(1).ParseFile(args[0])
			if err != nil {
				return err
			}
			return formatter.NewTableFormatter().WithWidth(width).FormatTimeline(cmd.OutOrStdout(), trace, tp)
		},
	}

	cmd.Flags().StringVar(&timezone, "timezone", "Local",
		"Timezone setting (e.g., Asia/Shanghai, UTC)")
	cmd.Flags().IntVar(&width, "width", 0,
		"Table width (0 = terminal width)")
	return cmd
}
