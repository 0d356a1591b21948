package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/hupe1980/dreamer/agent"
	"github.com/hupe1980/dreamer/config"
	"github.com/hupe1980/dreamer/internal/shell"
	"github.com/hupe1980/dreamer/logging"
	"github.com/hupe1980/dreamer/telemetry"
	"github.com/hupe1980/dreamer/tool"
	"github.com/hupe1980/dreamer/tool/memories"
)

func chatCmd() *cobra.Command {
	var (
		message string
		verbose bool
	)

	cmd := &cobra.Command{
		Use:   "chat",
		Short: "Chat with the agent interactively or send a one-shot message",
		Long: `Chat with the agent in the terminal.

Examples:
  dreamer chat                          # Interactive session, "exit" to quit
  dreamer chat -v                       # Also print thoughts, actions and observations
  dreamer chat -m "What do you know?"   # One-shot message`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			return runChat(cmd.Context(), cfg, message, verbose)
		},
	}

	cmd.Flags().StringVarP(&message, "message", "m", "", "one-shot message (omit for interactive mode)")
	cmd.Flags().BoolVarP(&verbose, "verbose", "v", false, "print every thread message")

	return cmd
}

func runChat(ctx context.Context, cfg *config.Config, message string, verbose bool) error {
	if ctx == nil {
		ctx = context.Background()
	}
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	logger := logging.NewLogger(cfg.Log.LoggerConfig())

	recorder, shutdown, err := setupTelemetry(cfg.Telemetry)
	if err != nil {
		return err
	}
	defer func() {
		if err := shutdown(context.Background()); err != nil {
			logger.Warn("telemetry.shutdown.failed", "error", err)
		}
	}()

	backend, err := newModel(cfg.Model)
	if err != nil {
		return err
	}

	instruction, err := cfg.Agent.Instruction()
	if err != nil {
		return err
	}
	policy, err := agent.ParseAfterObservation(cfg.Agent.AfterObservation)
	if err != nil {
		return err
	}

	printer := shell.NewPrinter(os.Stdout)
	tools := []tool.Tool{shell.NewSendMessageTool(printer)}

	if cfg.Memories.Enabled {
		store, err := memories.Open(ctx, cfg.Memories.Path)
		if err != nil {
			return err
		}
		defer store.Close()
		tools = append(tools, memories.NewTool(store))
	}

	dreamer, err := agent.New(backend, func(o *agent.Options) {
		o.SystemInstruction = instruction
		o.Tools = tools
		o.Stream = cfg.Model.Stream
		o.AfterObservation = policy
		o.MaxConsecutiveCalls = cfg.Agent.MaxConsecutiveCalls
		o.DescribeTools = cfg.Agent.DescribeTools
		o.Logger = logger
		o.Recorder = recorder
	})
	if err != nil {
		return err
	}

	if message == "" {
		info := backend.Info()
		fmt.Fprintf(os.Stderr, "Dreamer (%s/%s). Type \"exit\" to quit.\n", info.Provider, info.Name)
	}

	session := shell.New(dreamer, printer, func(o *shell.Options) {
		o.Verbose = verbose
		o.Message = message
		o.ChannelOptions = append(o.ChannelOptions, cfg.Channels.ChannelOptions())
		o.Logger = logger
	})
	return session.Run(ctx, os.Stdin)
}

func setupTelemetry(cfg config.TelemetryConfig) (*telemetry.Recorder, telemetry.ShutdownFunc, error) {
	noop := func(context.Context) error { return nil }

	if cfg.Exporter != "stdout" {
		return nil, noop, nil
	}

	mp, shutdown, err := telemetry.InitStdout(os.Stderr, cfg.Interval)
	if err != nil {
		return nil, noop, err
	}
	recorder, err := telemetry.NewRecorder(mp)
	if err != nil {
		_ = shutdown(context.Background())
		return nil, noop, err
	}
	return recorder, shutdown, nil
}
