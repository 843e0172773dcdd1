package commands

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/doeshing/dirctx/internal/app"
	"github.com/doeshing/dirctx/internal/domain"
	"github.com/doeshing/dirctx/internal/infrastructure/cli/helpers"
)

// NewCacheCommand creates the cache command with all subcommands
func NewCacheCommand(container *app.Container) *cobra.Command {
	cacheCmd := &cobra.Command{
		Use:   "cache",
		Short: "Inspect the prefix and index caches",
	}

	cacheCmd.AddCommand(
		newCacheListCommand(container),
		newCacheStatsCommand(container),
	)

	return cacheCmd
}

// newCacheListCommand creates the 'cache list' subcommand
func newCacheListCommand(container *app.Container) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List cached prefixes, most recent first",
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := container.PrefixStore()
			if err != nil {
				return err
			}
			entries, err := store.Entries(cmd.Context())
			if err != nil {
				return fmt.Errorf("failed to retrieve cache entries: %w", err)
			}
			listPrefixEntries(cmd.OutOrStdout(), entries, container.Config.PrefixCacheTTL(), time.Now())
			return nil
		},
	}
}

// newCacheStatsCommand creates the 'cache stats' subcommand
func newCacheStatsCommand(container *app.Container) *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Show cache settings and sizes",
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := container.PrefixStore()
			if err != nil {
				return err
			}
			entries, err := store.Entries(cmd.Context())
			if err != nil {
				return fmt.Errorf("failed to retrieve cache entries: %w", err)
			}
			files, size, err := container.IndexCache.Stats()
			if err != nil {
				return fmt.Errorf("failed to read index cache: %w", err)
			}

			ttl := container.Config.PrefixCacheTTL()
			live := 0
			now := time.Now()
			for _, e := range entries {
				if !e.Expired(now, ttl) {
					live++
				}
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Prefix cache TTL: %s\nPrefixes: %d (%d live)\n", ttl, len(entries), live)
			fmt.Fprintf(out, "Index cache: %s\nIndexed files cached: %s\nSize: %s\n",
				container.IndexCache.Dir(),
				humanize.Comma(int64(files)),
				humanize.Bytes(uint64(size)))
			return nil
		},
	}
}

func listPrefixEntries(out io.Writer, entries []domain.PrefixCacheEntry, ttl time.Duration, now time.Time) {
	if len(entries) == 0 {
		fmt.Fprintln(out, MsgNoCachedPrefixes)
		return
	}
	for _, entry := range entries {
		state := "live"
		if entry.Expired(now, ttl) {
			state = "expired"
		}
		fmt.Fprintf(out, "%s | %s | %d files | %s\n",
			humanize.RelTime(entry.LastHit, now, "ago", "from now"),
			state,
			entry.Key.Len(),
			strings.Join(helpers.PrefixLabels(entry.Key), ", "))
	}
}
