package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/nimburion/docspec/pkg/observability/metrics"
	"github.com/nimburion/docspec/pkg/repository"
	"github.com/nimburion/docspec/pkg/specification"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"gopkg.in/yaml.v3"
)

// QueryFlags describes a specification on the command line. Conditions are combined with
// AND unless Any is set. Values are YAML scalars: 42 is a number, true a boolean, null the
// absent value and "42" a string.
type QueryFlags struct {
	Database   string
	Collection string

	IDs     []string
	Eq      []string
	NotEq   []string
	Match   []string
	Gt      []string
	Gte     []string
	Lt      []string
	Lte     []string
	Any     bool
	Trim    bool
	NoCase  bool
	Metrics bool
}

func (f *QueryFlags) register(fs *pflag.FlagSet) {
	fs.StringVar(&f.Database, "db", "", "database alias (defaults to the only registered database)")
	fs.StringVar(&f.Collection, "collection", "", "collection name")
	fs.StringArrayVar(&f.IDs, "id", nil, "match the document identity (24 hex digits select an ObjectID)")
	fs.StringArrayVar(&f.Eq, "eq", nil, "path=value equality")
	fs.StringArrayVar(&f.NotEq, "ne", nil, "path=value inequality")
	fs.StringArrayVar(&f.Match, "match", nil, "path=glob string match, ? is one character and * any sequence")
	fs.StringArrayVar(&f.Gt, "gt", nil, "path=value strictly greater")
	fs.StringArrayVar(&f.Gte, "gte", nil, "path=value greater or equal")
	fs.StringArrayVar(&f.Lt, "lt", nil, "path=value strictly lower")
	fs.StringArrayVar(&f.Lte, "lte", nil, "path=value lower or equal")
	fs.BoolVar(&f.Any, "any", false, "match documents satisfying any condition instead of all")
	fs.BoolVar(&f.Trim, "trim", false, "ignore surrounding whitespace in string comparisons")
	fs.BoolVar(&f.NoCase, "ignore-case", false, "compare strings case-insensitively")
	fs.BoolVar(&f.Metrics, "metrics", false, "print document store metrics to stderr when done")
}

// Specification builds the specification described by the flags. Without conditions it
// matches every document.
func (f QueryFlags) Specification() (specification.Specification, error) {
	var specs []specification.Specification

	for _, raw := range f.IDs {
		value, err := parseValue(raw)
		if err != nil {
			return nil, fmt.Errorf("--id %s: %w", raw, err)
		}
		if hex, ok := value.(string); ok {
			if oid, err := primitive.ObjectIDFromHex(hex); err == nil {
				value = oid
			}
		}
		specs = append(specs, specification.ID(value))
	}

	conditions := []struct {
		flag  string
		exprs []string
		build func(value any) specification.Specification
	}{
		{"eq", f.Eq, f.equal},
		{"ne", f.NotEq, func(v any) specification.Specification { return specification.NotOf(f.equal(v)) }},
		{"gt", f.Gt, specification.Gt},
		{"gte", f.Gte, specification.Gte},
		{"lt", f.Lt, specification.Lt},
		{"lte", f.Lte, specification.Lte},
	}
	for _, c := range conditions {
		for _, expr := range c.exprs {
			path, raw, err := splitCondition(c.flag, expr)
			if err != nil {
				return nil, err
			}
			value, err := parseValue(raw)
			if err != nil {
				return nil, fmt.Errorf("--%s %s: %w", c.flag, expr, err)
			}
			specs = append(specs, specification.Attr(path, c.build(value)))
		}
	}
	for _, expr := range f.Match {
		path, pattern, err := splitCondition("match", expr)
		if err != nil {
			return nil, err
		}
		specs = append(specs, specification.Attr(path, f.modifiers(specification.Matching(pattern))))
	}

	switch {
	case len(specs) == 0:
		return specification.Any(), nil
	case len(specs) == 1:
		return specs[0], nil
	case f.Any:
		return specification.AnyOf(specs...), nil
	default:
		return specification.AllOf(specs...), nil
	}
}

// equal compares strings through string matching so --trim and --ignore-case apply.
func (f QueryFlags) equal(value any) specification.Specification {
	if s, ok := value.(string); ok {
		return f.modifiers(specification.EqualString(s))
	}
	return specification.Eq(value)
}

func (f QueryFlags) modifiers(s specification.StringMatching) specification.StringMatching {
	if f.Trim {
		s = s.Trimming()
	}
	if f.NoCase {
		s = s.IgnoringCase()
	}
	return s
}

func splitCondition(flag, expr string) (string, string, error) {
	path, value, found := strings.Cut(expr, "=")
	path = strings.TrimSpace(path)
	if !found || path == "" {
		return "", "", fmt.Errorf("--%s %q must have the form path=value", flag, expr)
	}
	return path, value, nil
}

// parseValue resolves a YAML scalar. Text that is not valid YAML is taken verbatim.
func parseValue(raw string) (any, error) {
	var value any
	if err := yaml.Unmarshal([]byte(raw), &value); err != nil {
		return raw, nil
	}
	switch value.(type) {
	case map[string]any, []any:
		return nil, errors.New("only scalar values are supported")
	}
	if value == nil && strings.TrimSpace(raw) == "" {
		return "", nil
	}
	return value, nil
}

// parseSort turns "path[:asc|desc]" keys into a sort option.
func parseSort(keys []string) (repository.SortOption, error) {
	sort := repository.Sort()
	for _, key := range keys {
		path, dir, _ := strings.Cut(key, ":")
		path = strings.TrimSpace(path)
		if path == "" {
			return sort, fmt.Errorf("--sort %q has no attribute", key)
		}
		switch strings.ToLower(strings.TrimSpace(dir)) {
		case "", "asc":
			sort = sort.Add(path, repository.Ascending)
		case "desc":
			sort = sort.Add(path, repository.Descending)
		default:
			return sort, fmt.Errorf("--sort %q direction must be asc or desc", key)
		}
	}
	return sort, nil
}

func newCountCommand(flags *rootFlags) *cobra.Command {
	var query QueryFlags
	cmd := &cobra.Command{
		Use:   "count",
		Short: "Count the documents matching a specification",
		RunE: func(cmd *cobra.Command, args []string) error {
			spec, err := query.Specification()
			if err != nil {
				return err
			}
			return withDocuments(cmd, flags, query, func(ctx context.Context, repo documentRepository) error {
				n, err := repo.Count(ctx, spec)
				if err != nil {
					return err
				}
				_, err = fmt.Fprintln(cmd.OutOrStdout(), n)
				return err
			})
		},
	}
	query.register(cmd.Flags())
	return cmd
}

func newFindCommand(flags *rootFlags) *cobra.Command {
	var (
		query     QueryFlags
		sortKeys  []string
		offset    int64
		limit     int64
		canonical bool
	)
	cmd := &cobra.Command{
		Use:   "find",
		Short: "Print the documents matching a specification as JSON lines",
		RunE: func(cmd *cobra.Command, args []string) error {
			spec, err := query.Specification()
			if err != nil {
				return err
			}
			opts := []repository.Option{}
			if len(sortKeys) > 0 {
				sort, err := parseSort(sortKeys)
				if err != nil {
					return err
				}
				opts = append(opts, sort)
			}
			if cmd.Flags().Changed("offset") {
				opts = append(opts, repository.Offset(offset))
			}
			if cmd.Flags().Changed("limit") {
				opts = append(opts, repository.Limit(limit))
			}
			return withDocuments(cmd, flags, query, func(ctx context.Context, repo documentRepository) error {
				stream, err := repo.Get(ctx, spec, opts...)
				if err != nil {
					return err
				}
				return writeDocuments(ctx, cmd.OutOrStdout(), stream, canonical)
			})
		},
	}
	query.register(cmd.Flags())
	cmd.Flags().StringArrayVar(&sortKeys, "sort", nil, "sort key path[:asc|desc], repeatable")
	cmd.Flags().Int64Var(&offset, "offset", 0, "number of documents to skip")
	cmd.Flags().Int64Var(&limit, "limit", 0, "maximum number of documents")
	cmd.Flags().BoolVar(&canonical, "canonical", false, "print canonical instead of relaxed extended JSON")
	return cmd
}

type documentRepository = repository.Repository[bson.D, any]

func withDocuments(cmd *cobra.Command, flags *rootFlags, query QueryFlags, run func(context.Context, documentRepository) error) error {
	cfg, log, err := flags.loadConfig()
	if err != nil {
		return err
	}
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	rt, err := openRuntime(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer rt.close(context.WithoutCancel(ctx))

	repo, err := rt.documents(query.Database, query.Collection)
	if err != nil {
		return err
	}
	if err := run(ctx, repo); err != nil {
		return err
	}
	if query.Metrics {
		return metrics.NewRegistry().WriteText(cmd.ErrOrStderr(), "document_")
	}
	return nil
}

func writeDocuments(ctx context.Context, w io.Writer, stream *repository.Stream[bson.D], canonical bool) error {
	for doc, err := range stream.All(ctx) {
		if err != nil {
			return err
		}
		line, err := bson.MarshalExtJSON(doc, canonical, false)
		if err != nil {
			return fmt.Errorf("failed to render document: %w", err)
		}
		if _, err := fmt.Fprintf(w, "%s\n", line); err != nil {
			return err
		}
	}
	return nil
}
