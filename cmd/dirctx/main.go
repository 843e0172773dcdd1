package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/doeshing/dirctx/internal/domain"
	"github.com/doeshing/dirctx/internal/infrastructure/cli/commands"
)

func main() {
	os.Exit(run())
}

func run() int {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	root, container, err := commands.NewRootCmd(ctx, commands.Options{Verbose: isVerbose()})
	if err != nil {
		printError(err)
		return 1
	}
	defer container.Close()

	if err := root.ExecuteContext(ctx); err != nil {
		printError(err)
		return 1
	}
	return 0
}

func printError(err error) {
	fmt.Fprintln(os.Stderr, "error:", err)
	if errors.Is(err, domain.ErrNoModel) {
		fmt.Fprintln(os.Stderr, "Check the models list with `dirctx config show`.")
	}
}

func isVerbose() bool {
	return strings.EqualFold(os.Getenv("DIRCTX_DEBUG"), "1") || strings.EqualFold(os.Getenv("DIRCTX_DEBUG"), "true")
}
