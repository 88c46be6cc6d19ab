package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	oplog "github.com/ethereum-optimism/optimism/op-service/log"
	"github.com/ethereum/go-ethereum/log"
	"github.com/honeycombio/otel-config-go/otelconfig"
	"github.com/urfave/cli/v2"

	"github.com/voicelab/callcheck/pkg/config"
	"github.com/voicelab/callcheck/pkg/flags"
	"github.com/voicelab/callcheck/pkg/service"
)

var (
	Version   = "v0.1.0"
	GitCommit = ""
	GitDate   = ""
)

func main() {
	app := cli.NewApp()
	app.Version = fmt.Sprintf("%s-%s-%s", Version, GitCommit, GitDate)
	app.Name = "callcheck"
	app.Usage = "Conversational Audio Test Pipeline Service"
	app.Description = "callcheck runs scripted conversations through synthesis, call simulation, transcription and quality analysis"
	app.Flags = flags.Flags
	app.Action = run

	if err := app.Run(os.Args); err != nil {
		log.Crit("Application failed", "message", err)
	}
}

func run(cliCtx *cli.Context) error {
	logger, err := setupLogger(cliCtx.String(flags.LogLevel.Name))
	if err != nil {
		return err
	}

	cfg, err := config.New(cliCtx.String(flags.ConfigFile.Name))
	if err != nil {
		return fmt.Errorf("failed to read config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	otelShutdown, err := otelconfig.ConfigureOpenTelemetry(
		otelconfig.WithServiceName("callcheck"),
	)
	if err != nil {
		return fmt.Errorf("failed to configure tracing: %w", err)
	}
	defer otelShutdown()

	svc, err := service.New(cfg, logger)
	if err != nil {
		return fmt.Errorf("failed to create service: %w", err)
	}

	if scriptPath := cliCtx.String(flags.ScriptFile.Name); scriptPath != "" {
		if err := svc.RunOnce(cliCtx.Context, scriptPath); err != nil {
			return cli.Exit(err.Error(), 1)
		}
		return nil
	}

	ctx, stop := signal.NotifyContext(cliCtx.Context, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	svc.Start(ctx)
	<-ctx.Done()
	svc.Shutdown()
	return nil
}

func setupLogger(level string) (log.Logger, error) {
	lvl, err := oplog.LevelFromString(level)
	if err != nil {
		return nil, fmt.Errorf("invalid log level: %w", err)
	}
	logger := log.NewLogger(log.NewTerminalHandlerWithLevel(os.Stderr, lvl, true))
	log.SetDefault(logger)
	return logger, nil
}
