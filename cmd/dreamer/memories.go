package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/hupe1980/dreamer/tool/memories"
)

func memoriesCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "memories",
		Short: "Inspect the agent's knowledge base",
		Long: `Inspect the knowledge base the agent writes through the knowledge_base tool.
Reads memories.path (default dreamer.db in the working directory), the same
store chat sessions write to. An in-memory store cannot be inspected.`,
	}
	cmd.AddCommand(memoriesSearchCmd(), memoriesForgetCmd(), memoriesCountCmd())
	return cmd
}

func memoriesSearchCmd() *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:   "search [query]",
		Short: "List memories matching query (all when omitted)",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			query := ""
			if len(args) == 1 {
				query = args[0]
			}
			return withStore(cmd.Context(), func(ctx context.Context, store *memories.Store) error {
				entries, err := store.Search(ctx, query, limit)
				if err != nil {
					return err
				}
				printEntries(cmd.OutOrStdout(), entries)
				return nil
			})
		},
	}
	cmd.Flags().IntVarP(&limit, "limit", "l", 20, "maximum number of results")
	return cmd
}

func memoriesForgetCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "forget <name>",
		Short: "Delete a memory",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withStore(cmd.Context(), func(ctx context.Context, store *memories.Store) error {
				if err := store.Forget(ctx, args[0]); err != nil {
					if errors.Is(err, memories.ErrNotFound) {
						return fmt.Errorf("no memory named %q", args[0])
					}
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "forgot %s\n", args[0])
				return nil
			})
		},
	}
}

func memoriesCountCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "count",
		Short: "Print the number of stored memories",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withStore(cmd.Context(), func(ctx context.Context, store *memories.Store) error {
				n, err := store.Count(ctx)
				if err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), n)
				return nil
			})
		},
	}
}

func withStore(ctx context.Context, fn func(context.Context, *memories.Store) error) error {
	if ctx == nil {
		ctx = context.Background()
	}
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	path := cfg.Memories.Path
	if path == "" || path == ":memory:" {
		return errors.New("memories.path is not set to a file")
	}

	store, err := memories.Open(ctx, path)
	if err != nil {
		return err
	}
	defer store.Close()
	return fn(ctx, store)
}

func printEntries(w io.Writer, entries []*memories.Entry) {
	if len(entries) == 0 {
		fmt.Fprintln(w, "no memories")
		return
	}
	for _, e := range entries {
		fmt.Fprintf(w, "%-24s %3d  %s\n", e.Name, e.Importance, strings.ReplaceAll(e.Value, "\n", " "))
	}
}
