package commands

import (
	"context"
	"fmt"
	"io"
	"os"
	"sync/atomic"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"

	"github.com/doeshing/dirctx/internal/app"
	"github.com/doeshing/dirctx/internal/application/indexer"
	"github.com/doeshing/dirctx/internal/domain"
	"github.com/doeshing/dirctx/internal/infrastructure/cli"
)

// NewIndexCommand creates the index command.
func NewIndexCommand(container *app.Container) *cobra.Command {
	var model string

	cmd := &cobra.Command{
		Use:   "index",
		Short: "Index the working directory and refresh the index cache",
		RunE: func(cmd *cobra.Command, args []string) error {
			def, err := container.Config.ResolveModel(model)
			if err != nil {
				return err
			}
			stats, err := buildIndex(cmd.Context(), cmd.ErrOrStderr(), container, def)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Indexed %s files (%s cached) into %s chunks in %s\n",
				humanize.Comma(int64(stats.Files)),
				humanize.Comma(int64(stats.Cached)),
				humanize.Comma(int64(stats.Chunks)),
				stats.Elapsed.Round(time.Millisecond))
			return nil
		},
	}

	cmd.Flags().StringVarP(&model, "model", "m", "", "Model whose tokenizer sizes the chunks (default from config)")
	return cmd
}

// buildIndex indexes the working directory, showing progress on a terminal.
func buildIndex(ctx context.Context, errOut io.Writer, container *app.Container, model domain.ModelDefinition) (indexer.Stats, error) {
	var progress func(string, bool)
	if isatty.IsTerminal(os.Stderr.Fd()) {
		spinner := cli.NewSpinner(errOut)
		spinner.SetMessage("Indexing...")
		var done atomic.Int64
		progress = func(path string, cached bool) {
			spinner.SetMessage(fmt.Sprintf("Indexing (%d files)", done.Add(1)))
		}
		spinner.Start()
		defer spinner.Stop()
	}
	return container.BuildIndex(ctx, model, progress)
}
