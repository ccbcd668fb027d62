package cmd

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/crosseverything/crosseverything/internal/build"
	"github.com/crosseverything/crosseverything/internal/daemon"
	"github.com/crosseverything/crosseverything/internal/search"
	"github.com/crosseverything/crosseverything/internal/state"
)

// newSearchCmd creates the search command.
func newSearchCmd() *cobra.Command {
	var useRegex bool
	var limit int
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "search <query>",
		Short: "Search the index",
		Long: `Search indexed names and paths. Filename matches rank above
path-only matches. With --regex, the query is matched as a regular
expression against names only. When a daemon is running, the query is
delegated to it.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			query := strings.Join(args, " ")
			r := renderer(cmd)

			resp, err := runSearch(cmd, query, useRegex, limit)
			if err != nil {
				return err
			}

			if jsonOutput {
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(resp)
			}
			r.SearchResults(resp)
			return nil
		},
	}

	cmd.Flags().BoolVar(&useRegex, "regex", false, "Match the query as a regular expression")
	cmd.Flags().IntVar(&limit, "limit", 0, "Maximum results (default and cap: 1000)")
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output results as JSON")

	return cmd
}

// runSearch executes the query against the daemon when one is running,
// otherwise against the on-disk stores directly.
func runSearch(cmd *cobra.Command, query string, useRegex bool, limit int) (*search.Response, error) {
	client := daemon.NewClient(daemon.Config{SocketPath: socketPath()})
	if client.IsRunning() {
		raw, err := client.Search(cmd.Context(), daemon.SearchParams{
			Query:    query,
			UseRegex: useRegex,
			Limit:    limit,
		})
		if err != nil {
			return nil, err
		}
		var resp search.Response
		if err := json.Unmarshal(raw, &resp); err != nil {
			return nil, fmt.Errorf("failed to decode search response: %w", err)
		}
		return &resp, nil
	}

	st := state.New()
	coord := build.New(build.Config{DataDir: cfg.DataDir, State: st})
	if !coord.Load() {
		return nil, fmt.Errorf("index not built yet, run 'crosseverything build' first")
	}
	defer func() {
		meta, ft := st.DetachStores()
		if meta != nil {
			_ = meta.Close()
		}
		if ft != nil {
			_ = ft.Close()
		}
	}()

	return search.New(st).Search(cmd.Context(), query, useRegex, limit)
}
