package cli

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/roach88/infobase/internal/codec"
	"github.com/roach88/infobase/internal/ir"
	"github.com/roach88/infobase/internal/query"
	"github.com/roach88/infobase/internal/store"
	"github.com/roach88/infobase/internal/thing"
)

// GetOptions holds flags for the get command.
type GetOptions struct {
	*RootOptions
	Revision int
}

// NewGetCommand creates the get command.
func NewGetCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &GetOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "get <key>",
		Short: "Print a Thing in its wire form",
		Long: `Print the latest revision of a Thing, or an older one with --revision.

Examples:
  infobase get /book/test
  infobase get /book/test --revision 1 --format json`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return opts.withStore(cmd, func(ctx context.Context, s store.Store, f *OutputFormatter) error {
				return runGet(ctx, s, f, args[0], opts.Revision)
			})
		},
	}

	cmd.Flags().IntVar(&opts.Revision, "revision", 0, "revision to read (default latest)")

	return cmd
}

func runGet(ctx context.Context, s store.Store, f *OutputFormatter, key string, rev int) error {
	var (
		t   *thing.Thing
		err error
	)
	if rev > 0 {
		t, err = s.GetRevision(ctx, key, rev)
	} else {
		t, err = s.Get(ctx, key)
	}
	if err != nil {
		return f.Fail(fmt.Sprintf("get %s", key), err)
	}

	view, err := thingView(t)
	if err != nil {
		return f.Fail(fmt.Sprintf("encode %s", key), err)
	}
	text, err := ir.MarshalCanonical(view)
	if err != nil {
		return f.Fail(fmt.Sprintf("encode %s", key), err)
	}
	return f.Render(view, string(text))
}

// thingView is the wire form of t plus its revision metadata.
func thingView(t *thing.Thing) (map[string]any, error) {
	doc, err := codec.Encode(t)
	if err != nil {
		return nil, err
	}
	m := t.Metadata
	if m.Revision > 0 {
		doc[thing.MetaRevision] = m.Revision
	}
	if m.LatestRevision > 0 {
		doc[thing.MetaLatestRevision] = m.LatestRevision
	}
	if !m.Created.IsZero() {
		doc[thing.MetaCreated] = m.Created.UTC().Format(time.RFC3339Nano)
	}
	if !m.LastModified.IsZero() {
		doc[thing.MetaLastModified] = m.LastModified.UTC().Format(time.RFC3339Nano)
	}
	if m.LastAuthor != "" {
		doc[thing.MetaLastAuthor] = m.LastAuthor
	}
	return doc, nil
}

// ListOptions holds the listing flags shared by things and versions.
type ListOptions struct {
	*RootOptions
	Type   string
	Key    string
	Author string
	Name   string
	Value  string
	Limit  int
	Offset int
}

func (o *ListOptions) addPaging(cmd *cobra.Command) {
	cmd.Flags().IntVar(&o.Limit, "limit", query.DefaultLimit, "maximum results (negative for all)")
	cmd.Flags().IntVar(&o.Offset, "offset", 0, "results to skip")
}

func (o *ListOptions) query(cmd *cobra.Command) query.Query {
	q := query.Query{
		Type:   o.Type,
		Key:    o.Key,
		Author: o.Author,
		Name:   o.Name,
		Value:  o.Value,
		Offset: o.Offset,
	}
	if cmd.Flags().Changed("limit") {
		return q.WithLimit(o.Limit)
	}
	return o.Config.ApplyListing(q)
}

// NewThingsCommand creates the things command.
func NewThingsCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ListOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "things",
		Short: "List keys, most recently written first",
		Long: `List the keys of Things matching every given filter, most recently
written first.

Examples:
  infobase things --type /type/book
  infobase things --name author --value /author/test --limit 10`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			q := opts.query(cmd)
			return opts.withStore(cmd, func(ctx context.Context, s store.Store, f *OutputFormatter) error {
				keys, err := s.Things(ctx, q)
				if err != nil {
					return f.Fail("list things", err)
				}
				f.VerboseLog("%d key(s)", len(keys))
				return f.Render(keys, strings.Join(keys, "\n"))
			})
		},
	}

	cmd.Flags().StringVar(&opts.Type, "type", "", "filter by type key")
	cmd.Flags().StringVar(&opts.Key, "key", "", "filter by key")
	cmd.Flags().StringVar(&opts.Name, "name", "", "property name to filter on")
	cmd.Flags().StringVar(&opts.Value, "value", "", "property value to match (requires --name)")
	opts.addPaging(cmd)

	return cmd
}

// NewVersionsCommand creates the versions command.
func NewVersionsCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ListOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "versions",
		Short: "List revisions, newest first",
		Long: `List revision records, newest first, optionally for one key or author.

Examples:
  infobase versions --key /book/test
  infobase versions --author /user/admin --format json`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			q := opts.query(cmd)
			return opts.withStore(cmd, func(ctx context.Context, s store.Store, f *OutputFormatter) error {
				versions, err := s.Versions(ctx, q)
				if err != nil {
					return f.Fail("list versions", err)
				}
				lines := make([]string, len(versions))
				for i, v := range versions {
					lines[i] = fmt.Sprintf("%s\t%d\t%s\t%s\t%s",
						v.Key, v.Revision, orDash(v.Author), v.Created.UTC().Format(time.RFC3339), v.Comment)
				}
				return f.Render(versions, strings.Join(lines, "\n"))
			})
		},
	}

	cmd.Flags().StringVar(&opts.Key, "key", "", "filter by key")
	cmd.Flags().StringVar(&opts.Author, "author", "", "filter by author key")
	opts.addPaging(cmd)

	return cmd
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
