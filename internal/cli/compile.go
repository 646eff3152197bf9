package cli

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/diachronicon/searchql"
	"github.com/diachronicon/searchql/relational"
	"github.com/diachronicon/searchql/store"
	"github.com/diachronicon/searchql/webform"
)

// CompileOptions holds flags for the compile command.
type CompileOptions struct {
	*RootOptions
	Query   string // url-encoded submission
	Dialect string
}

// CompileOutput is the json output of compile.
type CompileOutput struct {
	Tree    string                        `json:"tree"`
	SQL     string                        `json:"sql"`
	Params  []string                      `json:"params"`
	Args    map[string]any                `json:"args"`
	Skipped []relational.SkippedPredicate `json:"skipped,omitempty"`
}

// NewCompileCommand creates the compile command.
func NewCompileCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &CompileOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "compile [form-file]",
		Short: "Print the tree and SQL of a search form",
		Long: `Compile a search form without running it.

The form is read from a JSON or YAML file, from stdin when the file is "-"
or missing, or from --query as a url-encoded submission.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := ""
			if len(args) == 1 {
				path = args[0]
			}
			return runCompile(opts, path, cmd)
		},
	}

	cmd.Flags().StringVarP(&opts.Query, "query", "q", "", "url-encoded search submission")
	cmd.Flags().StringVarP(&opts.Dialect, "dialect", "d", "", "SQL dialect or driver (default: configured driver)")

	return cmd
}

func runCompile(opts *CompileOptions, path string, cmd *cobra.Command) error {
	cfg, log, err := opts.load(cmd.ErrOrStderr())
	if err != nil {
		return err
	}
	form, err := readForm(cmd.InOrStdin(), path, opts.Query)
	if err != nil {
		return err
	}

	dialect := opts.Dialect
	if dialect == "" {
		dialect = cfg.Database.Driver
	}
	renderer, err := store.RendererFor(dialect)
	if err != nil {
		return err
	}

	q := relational.NewQuery(nil,
		relational.WithLogger(log),
		relational.WithStrictFields(cfg.Query.StrictFields),
		relational.WithTreeDump(cfg.Query.DumpTree),
	)
	if _, err := q.ParseForm(form); err != nil {
		return err
	}
	compiled, err := q.Render(renderer)
	if err != nil {
		return err
	}

	out := CompileOutput{
		Tree:    q.Tree(),
		SQL:     compiled.SQL,
		Params:  compiled.Params,
		Args:    compiled.Args,
		Skipped: q.Skipped(),
	}
	if opts.Format == "json" {
		return writeJSON(cmd.OutOrStdout(), out)
	}
	return writeCompileText(cmd.OutOrStdout(), out)
}

// readForm loads a form from query, path or r, in that order.
func readForm(r io.Reader, path, query string) (*searchql.Form, error) {
	if query != "" {
		return webform.ParseQuery(query)
	}

	var (
		data []byte
		err  error
	)
	if path == "" || path == "-" {
		data, err = io.ReadAll(r)
	} else {
		data, err = os.ReadFile(path)
	}
	if err != nil {
		return nil, fmt.Errorf("reading form: %w", err)
	}

	form := searchql.NewForm()
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 {
		return form, nil
	}
	if strings.HasSuffix(path, ".json") || trimmed[0] == '{' {
		err = json.Unmarshal(trimmed, form)
	} else {
		err = yaml.Unmarshal(trimmed, form)
	}
	if err != nil {
		return nil, fmt.Errorf("decoding form: %w", err)
	}
	return form, nil
}

func writeCompileText(w io.Writer, out CompileOutput) error {
	var b strings.Builder
	b.WriteString("Tree:\n")
	b.WriteString(out.Tree)
	if !strings.HasSuffix(out.Tree, "\n") {
		b.WriteString("\n")
	}
	fmt.Fprintf(&b, "\nSQL:\n%s\n", out.SQL)

	if len(out.Args) > 0 {
		b.WriteString("\nArgs:\n")
		names := make([]string, 0, len(out.Args))
		for name := range out.Args {
			names = append(names, name)
		}
		sort.Strings(names)
		for _, name := range names {
			fmt.Fprintf(&b, "  %s = %v\n", name, out.Args[name])
		}
	}

	if len(out.Skipped) > 0 {
		b.WriteString("\nSkipped:\n")
		for _, s := range out.Skipped {
			fmt.Fprintf(&b, "  [%s] %s: %s\n", s.SubForm, s.Field, s.Reason)
		}
	}

	_, err := io.WriteString(w, b.String())
	return err
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
