package commands

import (
	"fmt"
	"io"
	"os"

	"github.com/penwyp/go-optrace/internal/core/simplify"
	"github.com/spf13/cobra"
)

func newSimplifyCmd(root *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "simplify [file|-]",
		Short: "Simplify a JSON document",
		Long: `Read a JSON document from a file or stdin and print its compacted form
using the configured compression mode.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := readInput(cmd, args)
			if err != nil {
				return err
			}
			out, err := simplify.SimplifyJSON(data, root.cfg.Compression)
			if err != nil {
				return err
			}
			_, err = fmt.Fprintf(cmd.OutOrStdout(), "%s\n", out)
			return err
		},
	}
}

func readInput(cmd *cobra.Command, args []string) ([]byte, error) {
	if len(args) == 0 || args[0] == "-" {
		data, err := io.ReadAll(cmd.InOrStdin())
		if err != nil {
			return nil, fmt.Errorf("failed to read stdin: %w", err)
		}
		return data, nil
	}
	data, err := os.ReadFile(args[0])
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", args[0], err)
	}
	return data, nil
}
