package cli

import (
	"context"
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/roach88/infobase/internal/store"
)

// NewKeyOptions holds flags for the new-key command.
type NewKeyOptions struct {
	*RootOptions
	Name string
}

// NewNewKeyCommand creates the new-key command.
func NewNewKeyCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &NewKeyOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "new-key <type>",
		Short: "Issue an unused key for a new Thing",
		Long: `Issue a key that no Thing uses and that was never issued before. With
--name the key is a slug of the name under the type's prefix.

Examples:
  infobase new-key /type/book --name "The Left Hand of Darkness"`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var hints map[string]string
			if opts.Name != "" {
				hints = map[string]string{"name": opts.Name}
			}
			return opts.withStore(cmd, func(ctx context.Context, s store.Store, f *OutputFormatter) error {
				key, err := s.NewKey(ctx, args[0], hints)
				if err != nil {
					return f.Fail("new key", err)
				}
				return f.Render(key, key)
			})
		},
	}

	cmd.Flags().StringVar(&opts.Name, "name", "", "name to derive the key from")

	return cmd
}

// NewSeqCommand creates the seq command group.
func NewSeqCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "seq",
		Short: "Named sequence counters",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "next <name>",
		Short: "Advance a sequence and print its new value",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return rootOpts.withStore(cmd, func(ctx context.Context, s store.Store, f *OutputFormatter) error {
				v, err := s.NextValue(ctx, args[0])
				if err != nil {
					return f.Fail("next value", err)
				}
				return f.Render(v, strconv.FormatInt(v, 10))
			})
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "get <name>",
		Short: "Print a sequence's current value (0 if never advanced)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return rootOpts.withStore(cmd, func(ctx context.Context, s store.Store, f *OutputFormatter) error {
				v, err := s.CurrentValue(ctx, args[0])
				if err != nil {
					return f.Fail("current value", err)
				}
				return f.Render(v, strconv.FormatInt(v, 10))
			})
		},
	})

	return cmd
}

// NewUserCommand creates the user command group.
func NewUserCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "user",
		Short: "Account details attached to user keys",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "get <key>",
		Short: "Print a user's email and encrypted password",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return rootOpts.withStore(cmd, func(ctx context.Context, s store.Store, f *OutputFormatter) error {
				u, err := s.GetUserDetails(ctx, args[0])
				if err != nil {
					return f.Fail(fmt.Sprintf("get user %s", args[0]), err)
				}
				return f.Render(u, fmt.Sprintf("%s\t%s", u.Key, u.Email))
			})
		},
	})

	var email, password string
	set := &cobra.Command{
		Use:   "set <key>",
		Short: "Create or replace a user's details",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return rootOpts.withStore(cmd, func(ctx context.Context, s store.Store, f *OutputFormatter) error {
				if err := s.UpdateUserDetails(ctx, args[0], email, password); err != nil {
					return f.Fail(fmt.Sprintf("set user %s", args[0]), err)
				}
				return f.Render(map[string]string{"key": args[0], "email": email}, "Updated "+args[0])
			})
		},
	}
	set.Flags().StringVar(&email, "email", "", "email address")
	set.Flags().StringVar(&password, "enc-password", "", "already-encrypted password")
	cmd.AddCommand(set)

	cmd.AddCommand(&cobra.Command{
		Use:   "find <email>",
		Short: "Print the key of the user with this email",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return rootOpts.withStore(cmd, func(ctx context.Context, s store.Store, f *OutputFormatter) error {
				key, err := s.FindUser(ctx, args[0])
				if err != nil {
					return f.Fail(fmt.Sprintf("find user %s", args[0]), err)
				}
				return f.Render(key, key)
			})
		},
	})

	return cmd
}
