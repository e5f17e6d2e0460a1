package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/ib-77/chatflow/internal/cli"
	"github.com/ib-77/chatflow/pkg/chat"
	"github.com/ib-77/chatflow/pkg/chat/schema"
	"github.com/ib-77/chatflow/pkg/flow"
)

const usage = `chatflow - chat flow engine

USAGE:
  chatflow [OPTIONS]
  echo "message" | chatflow

OPTIONS:
`

const examples = `
MODES:
  Demo Mode:        process 50 sample messages
  Interactive Mode: REPL-style interface for typing messages (default on a TTY)
  Pipe Mode:        one result per stdin line, JSON by default (auto-detected)

ENVIRONMENT:
  CHATFLOW_FORMAT, CHATFLOW_NO_COLOR, CHATFLOW_PIPELINE, CHATFLOW_TRACE,
  CHATFLOW_LOG_LEVEL, CHATFLOW_BUS_RETENTION_BOUND, CHATFLOW_BUS_WAIT_TIMEOUT

EXAMPLES:
  chatflow --demo
  chatflow --interactive
  echo "Hello!" | chatflow
  cat messages.txt | chatflow --format msgpack > out.bin
`

func main() {
	if err := run(); err != nil {
		slog.Error("chatflow failed", "error", err)
		os.Exit(1)
	}
}

func run() error {
	fs := flag.NewFlagSet("chatflow", flag.ContinueOnError)
	fs.Usage = func() {
		fmt.Fprint(fs.Output(), usage)
		fs.PrintDefaults()
		fmt.Fprint(fs.Output(), examples)
	}

	demo := fs.Bool("demo", false, "Run demo mode with 50 sample messages")
	interactive := fs.Bool("interactive", false, "Start interactive REPL mode")
	configPath := fs.String("config", "", "Path to a YAML configuration file")
	format := fs.String("format", "", "Output format: text, json or msgpack")
	noColor := fs.Bool("no-color", false, "Disable ANSI colors")
	pipeline := fs.String("pipeline", "", "Pipeline schema file (.yaml, .yml or .json)")
	trace := fs.String("trace", "", `Write stage lifecycle events as CloudEvents to a file ("-" for stderr)`)
	logLevel := fs.String("log-level", "", "Log level: debug, info, warn, error")

	if err := fs.Parse(os.Args[1:]); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return nil
		}
		return err
	}

	cfg := cli.DefaultConfig()
	if *configPath != "" {
		loaded, err := cli.LoadConfig(*configPath)
		if err != nil {
			return err
		}
		cfg = loaded
	}
	if err := cfg.ApplyEnv(nil); err != nil {
		return err
	}

	// flags win over file and environment
	fs.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "format":
			cfg.Format = *format
		case "no-color":
			cfg.NoColor = *noColor
		case "pipeline":
			cfg.Pipeline = *pipeline
		case "trace":
			cfg.Trace = *trace
		case "log-level":
			cfg.LogLevel = *logLevel
		}
	})
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	level, _ := cfg.Level()
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	engine, err := newEngine(cfg, logger)
	if err != nil {
		return err
	}

	if cfg.Trace != "" {
		w, closeTrace, err := openTrace(cfg.Trace)
		if err != nil {
			return err
		}
		tracer := cli.AttachTrace(engine.Bus(), engine.Stages(), w)
		defer func() {
			_ = engine.Bus().Sync(context.Background())
			tracer.Detach()
			closeTrace()
		}()
	}

	pipe := !*demo && !*interactive && !isTerminal(os.Stdin)
	color := !cfg.NoColor && isTerminal(os.Stdout)

	enc, err := cli.NewEncoder(cfg.FormatFor(pipe), os.Stdout, color)
	if err != nil {
		return err
	}
	runner := &cli.Runner{Engine: engine, Encoder: enc, Out: os.Stdout, Color: color, Logger: logger}

	slog.Debug("chatflow starting", "engine", engine.ID(), "stages", engine.Stages(), "pipe", pipe)

	switch {
	case *demo:
		err = runner.Demo(ctx, chat.DemoMessages)
	case pipe:
		err = runner.Pipe(ctx, os.Stdin)
	default:
		err = runner.Interactive(ctx, os.Stdin)
	}
	if flow.IsCancellationError(err) {
		return nil
	}
	return err
}

func newEngine(cfg cli.Config, logger *slog.Logger) (*flow.Engine, error) {
	opts := []flow.Option{
		flow.WithLogger(logger),
		flow.WithBusConfig(cfg.BusConfig(logger)),
	}
	if cfg.Pipeline == "" {
		return chat.NewEngine(opts...)
	}
	return schema.LoadAndBuild(cfg.Pipeline, schema.DefaultRegistry(), opts...)
}

func openTrace(path string) (io.Writer, func(), error) {
	if path == "-" {
		return os.Stderr, func() {}, nil
	}
	f, err := os.Create(path)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open trace file: %w", err)
	}
	return f, func() { _ = f.Close() }, nil
}

func isTerminal(f *os.File) bool {
	info, err := f.Stat()
	if err != nil {
		return false
	}
	return info.Mode()&os.ModeCharDevice != 0
}
