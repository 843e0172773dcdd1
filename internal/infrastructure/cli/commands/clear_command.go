package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/doeshing/dirctx/internal/app"
)

// NewClearCommand creates the clear command.
func NewClearCommand(container *app.Container) *cobra.Command {
	return &cobra.Command{
		Use:   "clear",
		Short: "Remove the prompt history, prefix cache and index cache",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := container.ClearAll(cmd.Context()); err != nil {
				return fmt.Errorf("failed to clear: %w", err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), MsgCleared)
			return nil
		},
	}
}
