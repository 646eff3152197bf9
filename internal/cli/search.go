package cli

import (
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/diachronicon/searchql/relational"
	"github.com/diachronicon/searchql/store"
)

// SearchOptions holds flags for the search command.
type SearchOptions struct {
	*RootOptions
	Query string
}

// SearchGroup is one construction of the json output.
type SearchGroup struct {
	ID   string           `json:"id"`
	Rows []relational.Row `json:"rows"`
}

// SearchOutput is the json output of search.
type SearchOutput struct {
	QueryID string        `json:"query_id"`
	Count   int           `json:"count"`
	Results []SearchGroup `json:"results"`
}

// NewSearchCommand creates the search command.
func NewSearchCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &SearchOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "search [form-file]",
		Short: "Run a search form against the configured database",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := ""
			if len(args) == 1 {
				path = args[0]
			}
			return runSearch(opts, path, cmd)
		},
	}

	cmd.Flags().StringVarP(&opts.Query, "query", "q", "", "url-encoded search submission")

	return cmd
}

func runSearch(opts *SearchOptions, path string, cmd *cobra.Command) error {
	cfg, log, err := opts.load(cmd.ErrOrStderr())
	if err != nil {
		return err
	}
	form, err := readForm(cmd.InOrStdin(), path, opts.Query)
	if err != nil {
		return err
	}

	ctx := cmd.Context()
	s, err := store.Open(ctx, cfg.Database.Driver, cfg.Database.DSN,
		store.WithLogger(log),
		store.WithQueryOptions(
			relational.WithStrictFields(cfg.Query.StrictFields),
			relational.WithTreeDump(cfg.Query.DumpTree),
		),
	)
	if err != nil {
		return err
	}
	defer s.Close()

	result, err := s.Search(ctx, form)
	if err != nil {
		return err
	}

	out := SearchOutput{QueryID: result.QueryID, Count: result.Groups.Len()}
	for _, id := range result.Groups.Keys() {
		out.Results = append(out.Results, SearchGroup{ID: id, Rows: result.Groups.Rows(id)})
	}
	if opts.Format == "json" {
		return writeJSON(cmd.OutOrStdout(), out)
	}
	return writeSearchText(cmd.OutOrStdout(), out)
}

func writeSearchText(w io.Writer, out SearchOutput) error {
	var b strings.Builder
	fmt.Fprintf(&b, "%d construction(s)\n", out.Count)
	for _, g := range out.Results {
		first := g.Rows[0]
		fmt.Fprintf(&b, "  %s  %v  %v  (%d row(s))\n", g.ID, first[relational.ColumnName], first[relational.ColumnFormula], len(g.Rows))
	}
	_, err := io.WriteString(w, b.String())
	return err
}
