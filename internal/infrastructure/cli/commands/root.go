package commands

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/doeshing/dirctx/internal/app"
)

// Options holds CLI-level configuration.
type Options struct {
	Verbose bool
}

// NewRootCmd wires the cobra root command. The returned container must be
// closed once the command finished.
func NewRootCmd(ctx context.Context, opts Options) (*cobra.Command, *app.Container, error) {
	container, err := app.BuildContainer(ctx, opts.Verbose)
	if err != nil {
		return nil, nil, err
	}

	root := &cobra.Command{
		Use:   "dirctx",
		Short: "dirctx - chat with the files in your working directory",
		Long: "dirctx indexes the working directory and answers questions with the most relevant files in context,\n" +
			"ordering them so that repeated turns reuse the provider's prompt cache.",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.AddCommand(
		NewChatCommand(container),
		NewAskCommand(container),
		NewIndexCommand(container),
		NewClearCommand(container),
		NewHistoryCommand(container),
		NewCacheCommand(container),
		NewConfigCommand(container),
		NewDoctorCommand(container),
		NewVersionCommand(),
	)
	return root, container, nil
}
