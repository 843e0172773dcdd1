package commands

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"

	"github.com/doeshing/dirctx/internal/app"
	"github.com/doeshing/dirctx/internal/application/assistant"
	"github.com/doeshing/dirctx/internal/infrastructure/cli"
)

type sessionOptions struct {
	model       string
	metricsAddr string
	summary     bool
	timeout     time.Duration

	printGuidance bool
}

func (o *sessionOptions) bind(cmd *cobra.Command) {
	cmd.Flags().StringVarP(&o.model, "model", "m", "", "Override model name (default from config)")
	cmd.Flags().StringVar(&o.metricsAddr, "metrics-addr", "", "Serve Prometheus metrics on this address (e.g. :9090)")
	cmd.Flags().BoolVar(&o.summary, "summary", false, "Print a context summary after each answer")
	cmd.Flags().DurationVar(&o.timeout, "timeout", 0, "Per-turn timeout (0 disables)")
}

// NewChatCommand creates the interactive chat command.
func NewChatCommand(container *app.Container) *cobra.Command {
	var opts sessionOptions

	cmd := &cobra.Command{
		Use:   "chat",
		Short: "Chat about the working directory",
		RunE: func(cmd *cobra.Command, args []string) error {
			opts.printGuidance = container.Config.Preferences.PrintCGRAG
			session, err := startSession(cmd, container, opts)
			if err != nil {
				return err
			}
			prompter := cli.NewPrompter(nil, cmd.OutOrStdout())
			for {
				prompt, err := prompter.Next()
				if errors.Is(err, io.EOF) {
					return nil
				}
				if err != nil {
					return err
				}
				if isExit(prompt) {
					return nil
				}
				if err := runTurn(cmd, session, prompt, opts); err != nil {
					if cmd.Context().Err() != nil {
						return err
					}
					// A failed turn leaves the session intact; keep chatting.
					fmt.Fprintln(cmd.ErrOrStderr(), "error:", err)
				}
			}
		},
	}

	opts.bind(cmd)
	return cmd
}

// NewAskCommand creates the one-shot ask command.
func NewAskCommand(container *app.Container) *cobra.Command {
	var opts sessionOptions

	cmd := &cobra.Command{
		Use:   "ask <prompt>",
		Short: "Ask one question about the working directory",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			opts.printGuidance = container.Config.Preferences.PrintCGRAG
			session, err := startSession(cmd, container, opts)
			if err != nil {
				return err
			}
			return runTurn(cmd, session, strings.Join(args, " "), opts)
		},
	}

	opts.bind(cmd)
	return cmd
}

func startSession(cmd *cobra.Command, container *app.Container, opts sessionOptions) (*assistant.Session, error) {
	ctx := cmd.Context()
	model, err := container.Config.ResolveModel(opts.model)
	if err != nil {
		return nil, err
	}

	if opts.metricsAddr != "" {
		go func() {
			if err := container.Metrics.Serve(ctx, opts.metricsAddr, container.Logger); err != nil {
				container.Logger.Error("metrics server stopped", err, map[string]interface{}{"addr": opts.metricsAddr})
			}
		}()
	}

	if _, err := buildIndex(ctx, cmd.ErrOrStderr(), container, model); err != nil {
		return nil, fmt.Errorf("index: %w", err)
	}

	svc, err := container.AssistantService(model.Name)
	if err != nil {
		return nil, err
	}
	session, err := svc.NewSession(uuid.NewString())
	if err != nil {
		return nil, err
	}
	container.Logger.Debug("session started", map[string]interface{}{"session": session.ID(), "model": model.Name})
	return session, nil
}

func runTurn(cmd *cobra.Command, session *assistant.Session, prompt string, opts sessionOptions) error {
	ctx := cmd.Context()
	if opts.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, opts.timeout)
		defer cancel()
	}

	var spinner *cli.Spinner
	if isatty.IsTerminal(os.Stdout.Fd()) {
		spinner = cli.NewSpinner(cmd.OutOrStdout())
		spinner.Start()
		defer spinner.Stop()
	}

	if opts.printGuidance {
		session.OnGuidance = func(guidance string) {
			if spinner != nil {
				spinner.Stop()
			}
			cli.RenderGuidance(cmd.OutOrStdout(), guidance)
		}
	}

	res, err := session.Ask(ctx, prompt, cli.NewStreamWriter(cmd.OutOrStdout(), spinner))
	if err != nil {
		return err
	}
	if opts.summary {
		cli.RenderTurnSummary(cmd.ErrOrStderr(), res)
	}
	return nil
}

func isExit(prompt string) bool {
	switch strings.ToLower(prompt) {
	case "exit", "quit", ":q":
		return true
	}
	return false
}
