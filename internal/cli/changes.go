package cli

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/roach88/infobase/internal/query"
	"github.com/roach88/infobase/internal/store"
)

// ChangesOptions holds flags for the changes command.
type ChangesOptions struct {
	*RootOptions
	Key    string
	Author string
	Kind   string
	Limit  int
	Offset int
}

// NewChangesCommand creates the changes command.
func NewChangesCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ChangesOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "changes",
		Short: "Show the change feed, newest first",
		Long: `Show recorded changes, newest first.

Examples:
  infobase changes --limit 5
  infobase changes --kind create --author /user/admin --format json`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cq := store.ChangeQuery{
				Key:    opts.Key,
				Author: opts.Author,
				Kind:   opts.Kind,
				Offset: opts.Offset,
			}
			if cmd.Flags().Changed("limit") {
				cq.Limit = &opts.Limit
			} else {
				cq.Limit = opts.Config.ApplyListing(cq.Query()).Limit
			}
			return opts.withStore(cmd, func(ctx context.Context, s store.Store, f *OutputFormatter) error {
				changes, err := s.RecentChanges(ctx, cq)
				if err != nil {
					return f.Fail("list changes", err)
				}
				lines := make([]string, len(changes))
				for i, c := range changes {
					lines[i] = changeLine(c)
				}
				return f.Render(changes, strings.Join(lines, "\n"))
			})
		},
	}

	cmd.Flags().StringVar(&opts.Key, "key", "", "only changes touching this key")
	cmd.Flags().StringVar(&opts.Author, "author", "", "filter by author key")
	cmd.Flags().StringVar(&opts.Kind, "kind", "", "filter by change kind")
	cmd.Flags().IntVar(&opts.Limit, "limit", query.DefaultLimit, "maximum results (negative for all)")
	cmd.Flags().IntVar(&opts.Offset, "offset", 0, "results to skip")

	return cmd
}

// NewChangeCommand creates the change command.
func NewChangeCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "change <id>",
		Short: "Show one change",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return rootOpts.withStore(cmd, func(ctx context.Context, s store.Store, f *OutputFormatter) error {
				c, err := s.GetChange(ctx, args[0])
				if err != nil {
					return f.Fail(fmt.Sprintf("get change %s", args[0]), err)
				}
				text, err := c.MarshalJSON()
				if err != nil {
					return f.Fail("encode change", err)
				}
				return f.Render(c, string(text))
			})
		},
	}
	return cmd
}

func changeLine(c *store.Change) string {
	refs := make([]string, len(c.Changes))
	for i, r := range c.Changes {
		refs[i] = fmt.Sprintf("%s@%d", r.Key, r.Revision)
	}
	return fmt.Sprintf("%s\t%s\t%s\t%s\t%s\t%s",
		c.ID, c.Timestamp.UTC().Format(time.RFC3339), c.Kind, orDash(c.Author), strings.Join(refs, ","), c.Comment)
}
