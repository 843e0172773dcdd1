package commands

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/doeshing/dirctx/internal/app"
	"github.com/doeshing/dirctx/internal/infrastructure/cli/helpers"
	"github.com/doeshing/dirctx/internal/infrastructure/history"
)

// NewHistoryCommand creates the history command with all subcommands
func NewHistoryCommand(container *app.Container) *cobra.Command {
	historyCmd := &cobra.Command{
		Use:   "history",
		Short: "Inspect the prompt history",
	}

	historyCmd.AddCommand(
		newHistoryListCommand(container),
		newHistoryStatsCommand(container),
		newHistoryExportCommand(container),
	)

	return historyCmd
}

// newHistoryListCommand creates the 'history list' subcommand
func newHistoryListCommand(container *app.Container) *cobra.Command {
	var (
		limit  int
		search string
	)

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List recent prompts, newest first",
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := container.HistoryStore()
			if err != nil {
				return err
			}
			return listHistoryEntries(cmd.Context(), cmd.OutOrStdout(), store, limit, search)
		},
	}

	cmd.Flags().IntVar(&limit, "limit", DefaultHistoryLimit, "Max entries to show")
	cmd.Flags().StringVar(&search, "search", "", "Only show prompts containing this text")
	return cmd
}

// newHistoryStatsCommand creates the 'history stats' subcommand
func newHistoryStatsCommand(container *app.Container) *cobra.Command {
	var top int

	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Show the most frequently used files",
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := container.HistoryStore()
			if err != nil {
				return err
			}
			return showHistoryStats(cmd.Context(), cmd.OutOrStdout(), store, top)
		},
	}

	cmd.Flags().IntVar(&top, "top", DefaultTopArtifacts, "Number of artifacts to show")
	return cmd
}

// newHistoryExportCommand creates the 'history export' subcommand
func newHistoryExportCommand(container *app.Container) *cobra.Command {
	return &cobra.Command{
		Use:   "export <path>",
		Short: "Export history to a JSON file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := container.HistoryStore()
			if err != nil {
				return err
			}
			n, err := store.ExportJSON(cmd.Context(), args[0])
			if err != nil {
				return fmt.Errorf("failed to export history to %s: %w", args[0], err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Exported %d entries to %s\n", n, args[0])
			return nil
		},
	}
}

func listHistoryEntries(ctx context.Context, out io.Writer, store *history.SQLiteStore, limit int, search string) error {
	records, err := store.Records(ctx, limit, search)
	if err != nil {
		return fmt.Errorf("failed to retrieve history records: %w", err)
	}
	if len(records) == 0 {
		fmt.Fprintln(out, MsgNoHistoryRecorded)
		return nil
	}

	for _, rec := range records {
		fmt.Fprintf(out, "%s | %s | %d files | %s\n",
			rec.Timestamp.Format(TimestampFormat),
			shortSession(rec.SessionID),
			len(rec.Artifacts),
			helpers.Preview(rec.Prompt, PreviewWidth))
	}
	return nil
}

func showHistoryStats(ctx context.Context, out io.Writer, store *history.SQLiteStore, top int) error {
	entries, err := store.AllHistory(ctx)
	if err != nil {
		return fmt.Errorf("failed to retrieve history for analysis: %w", err)
	}
	if len(entries) == 0 {
		fmt.Fprintln(out, MsgNoHistoryRecorded)
		return nil
	}

	sessions := make(map[string]struct{})
	for _, e := range entries {
		sessions[e.SessionID] = struct{}{}
	}
	metadata := history.Aggregate(entries)

	fmt.Fprintf(out, "Prompts: %s\nSessions: %d\nDistinct files used: %s\nLast prompt: %s\n",
		humanize.Comma(int64(len(entries))),
		len(sessions),
		humanize.Comma(int64(len(metadata))),
		humanize.Time(entries[len(entries)-1].Timestamp))

	fmt.Fprintln(out, "Top files:")
	for _, stat := range helpers.CalculateTopArtifacts(metadata, top) {
		fmt.Fprintf(out, "  %-4d avg pos %-5.1f %s\n", stat.Count, stat.AveragePosition, helpers.ArtifactLabel(stat.ID))
	}
	return nil
}

func shortSession(id string) string {
	if i := strings.IndexByte(id, '-'); i > 0 {
		return id[:i]
	}
	return id
}
