package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/infobase/internal/codec"
	"github.com/roach88/infobase/internal/fixture"
	"github.com/roach88/infobase/internal/store"
)

// WriteOptions holds flags for the write command.
type WriteOptions struct {
	*RootOptions
	Comment string
	Author  string
	IP      string
	Kind    string
}

// NewWriteCommand creates the write command.
func NewWriteCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &WriteOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "write <file>",
		Short: "Write Things from a JSON file as one change",
		Long: `Write one Thing (a JSON object) or several (a JSON array of objects) in
the tagged wire form. Every object needs a "key". All Things are written
atomically as a single change. Use "-" to read from stdin.

Examples:
  infobase write book.json --comment "fix title" --author /user/admin
  echo '{"key":"/a","type":{"key":"/type/page"}}' | infobase write -`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := readInput(cmd, args[0])
			if err != nil {
				return err
			}
			return opts.withStore(cmd, func(ctx context.Context, s store.Store, f *OutputFormatter) error {
				req, err := writeRequest(data)
				if err != nil {
					return f.Fail("decode input", err)
				}
				req.Comment = opts.Comment
				req.Author = opts.Author
				req.IP = opts.IP
				req.Kind = opts.Kind

				f.VerboseLog("Writing %d thing(s)", len(req.Mutations))
				change, err := s.Write(ctx, req)
				if err != nil {
					return f.Fail("write", err)
				}
				return f.Render(change, changeLine(change))
			})
		},
	}

	cmd.Flags().StringVar(&opts.Comment, "comment", "", "change comment")
	cmd.Flags().StringVar(&opts.Author, "author", "", "author key")
	cmd.Flags().StringVar(&opts.IP, "ip", "", "client address recorded on the change")
	cmd.Flags().StringVar(&opts.Kind, "kind", "", "change kind (default update)")

	return cmd
}

func readInput(cmd *cobra.Command, path string) ([]byte, error) {
	var (
		data []byte
		err  error
	)
	if path == "-" {
		data, err = io.ReadAll(cmd.InOrStdin())
	} else {
		data, err = os.ReadFile(path)
	}
	if err != nil {
		_ = (&OutputFormatter{Format: "text", Writer: cmd.ErrOrStderr()}).Error(ErrCodeInput, err.Error(), nil)
		return nil, WrapExitError(ExitCommandError, "failed to read input", err)
	}
	return data, nil
}

// writeRequest decodes a JSON object or array of objects into mutations.
func writeRequest(data []byte) (store.WriteRequest, error) {
	raw, err := codec.DecodeJSON(data)
	if err != nil {
		return store.WriteRequest{}, err
	}

	var docs []any
	switch v := raw.(type) {
	case map[string]any:
		docs = []any{v}
	case []any:
		docs = v
	default:
		return store.WriteRequest{}, fmt.Errorf("%w: expected a JSON object or array, got %T", store.ErrValidation, raw)
	}

	var req store.WriteRequest
	for i, d := range docs {
		doc, ok := d.(map[string]any)
		if !ok {
			return store.WriteRequest{}, fmt.Errorf("%w: item %d is not an object", store.ErrValidation, i)
		}
		t, err := codec.Decode(nil, "", doc)
		if err != nil {
			return store.WriteRequest{}, fmt.Errorf("item %d: %w", i, err)
		}
		req.Mutations = append(req.Mutations, store.Mutation{Key: t.Key, Thing: t})
	}
	return req, nil
}

// LoadOptions holds flags for the load command.
type LoadOptions struct {
	*RootOptions
	Bootstrap bool
}

// NewLoadCommand creates the load command.
func NewLoadCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &LoadOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "load [file|pattern]",
		Short: "Load YAML fixtures, one change per file",
		Long: `Load Things from YAML fixture files, or the built-in starter schema
with --bootstrap. The argument may be a glob; ** matches across
directories and files load in lexical order.

Examples:
  infobase load seed.yaml
  infobase load 'fixtures/**/*.yaml'
  infobase load --bootstrap`,
		Args: func(cmd *cobra.Command, args []string) error {
			if opts.Bootstrap {
				return cobra.NoArgs(cmd, args)
			}
			return cobra.ExactArgs(1)(cmd, args)
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return opts.withStore(cmd, func(ctx context.Context, s store.Store, f *OutputFormatter) error {
				if opts.Bootstrap {
					change, err := fixture.Bootstrap(ctx, s)
					if err != nil {
						return f.Fail("bootstrap", err)
					}
					return f.Render(change, changeLine(change))
				}

				f.VerboseLog("Loading %s", args[0])
				changes, err := fixture.LoadGlob(ctx, s, args[0])
				if err != nil {
					return f.Fail("load", err)
				}
				lines := make([]string, len(changes))
				for i, c := range changes {
					lines[i] = changeLine(c)
				}
				return f.Render(changes, strings.Join(lines, "\n"))
			})
		},
	}

	cmd.Flags().BoolVar(&opts.Bootstrap, "bootstrap", false, "load the built-in starter schema")

	return cmd
}

// InitOptions holds flags for the init command.
type InitOptions struct {
	*RootOptions
	Bootstrap bool
}

// NewInitCommand creates the init command.
func NewInitCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &InitOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "init",
		Short: "Create the store schema",
		Long: `Create the backing schema. Running init again is harmless.

Examples:
  infobase init --db ./infobase.db
  infobase init --bootstrap`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return opts.withStore(cmd, func(ctx context.Context, s store.Store, f *OutputFormatter) error {
				if err := s.Initialize(ctx); err != nil {
					_ = f.Error(ErrCodeStore, fmt.Sprintf("initialize: %v", err), nil)
					return WrapExitError(ExitCommandError, "initialize", err)
				}
				result := map[string]any{"initialized": true}
				text := "Initialized store"
				if opts.Bootstrap {
					change, err := fixture.Bootstrap(ctx, s)
					if err != nil {
						return f.Fail("bootstrap", err)
					}
					result["bootstrap"] = change
					text += fmt.Sprintf(" and loaded %d bootstrap thing(s)", len(change.Changes))
				}
				return f.Render(result, text)
			})
		},
	}

	cmd.Flags().BoolVar(&opts.Bootstrap, "bootstrap", false, "also load the built-in starter schema")

	return cmd
}
