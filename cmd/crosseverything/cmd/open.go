package cmd

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/crosseverything/crosseverything/internal/explorer"
)

// newOpenCmd creates the open command.
func newOpenCmd() *cobra.Command {
	var reveal bool

	cmd := &cobra.Command{
		Use:   "open <path>",
		Short: "Open a file with its default application",
		Long: `Open the given file with the platform default application. With
--reveal, show the file in the platform file manager instead.`,
		Args: cobra.ExactArgs(1),
		RunE: func(_ *cobra.Command, args []string) error {
			path, err := filepath.Abs(args[0])
			if err != nil {
				return fmt.Errorf("failed to resolve path %s: %w", args[0], err)
			}
			if reveal {
				return explorer.Reveal(path)
			}
			return explorer.Open(path)
		},
	}

	cmd.Flags().BoolVar(&reveal, "reveal", false, "Reveal in the file manager instead of opening")

	return cmd
}
