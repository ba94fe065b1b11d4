package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/alejandrodnm/prophet/config"
)

const usage = `usage: prophet [flags] <command> [args]

commands:
  markets   [-category C] [-search S] [-sort volume|newest|ending] [-tag T]
  daily     [-n N]
  watch     <market-id>
  stake     -market ID -outcome yes|no|N -amount X
  votes     <market-id>
  rewards   [market-id]
  balance   [-wallet W]
  close     -market ID -outcome yes|no|N
  reopen    <market-id>
  resolve   -market ID -outcome yes|no|N
  check-oracle <market-id>
  create    -question Q -ends RFC3339 [-outcomes A,B,...] [-category C] [-publish]
  relay     [-once]

flags:
`

func main() {
	configPath := flag.String("config", "config/config.yaml", "path to config file (empty: env and defaults only)")
	dryRun := flag.Bool("dry-run", false, "use an in-memory store instead of SQLite")
	verbose := flag.Bool("verbose", false, "set log level to debug")
	logFormat := flag.String("format", "", "log format: text|json (overrides config)")
	flag.Usage = func() {
		fmt.Fprint(flag.CommandLine.Output(), usage)
		flag.PrintDefaults()
	}
	flag.Parse()

	if flag.NArg() == 0 {
		flag.Usage()
		os.Exit(2)
	}
	command, args := flag.Arg(0), flag.Args()[1:]

	cfg, err := config.Load(*configPath)
	if err != nil {
		slog.Error("failed to load config", "err", err, "path", *configPath)
		os.Exit(1)
	}

	if *verbose {
		cfg.Log.Level = "debug"
	}
	if *logFormat != "" {
		cfg.Log.Format = *logFormat
	}
	setupLogger(cfg.Log)

	slog.Debug("prophet starting",
		"config", *configPath,
		"command", command,
		"dry_run", *dryRun,
		"rpc", cfg.Ledger.RPCURL,
	)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	a, err := newApp(cfg, *dryRun)
	if err != nil {
		slog.Error("failed to initialize", "err", err)
		os.Exit(1)
	}
	defer a.Close()

	if err := a.dispatch(ctx, command, args); err != nil {
		slog.Error("command failed", "command", command, "err", err)
		a.Close()
		os.Exit(1)
	}
}

func (a *app) dispatch(ctx context.Context, command string, args []string) error {
	switch command {
	case "markets", "view":
		return a.runMarkets(ctx, args)
	case "daily":
		return a.runDaily(ctx, args)
	case "watch":
		return a.runWatch(ctx, args)
	case "stake":
		return a.runStake(ctx, args)
	case "votes":
		return a.runVotes(ctx, args)
	case "rewards":
		return a.runRewards(ctx, args)
	case "balance":
		return a.runBalance(ctx, args)
	case "close":
		return a.runClose(ctx, args)
	case "reopen":
		return a.runReopen(ctx, args)
	case "resolve":
		return a.runResolve(ctx, args)
	case "check-oracle":
		return a.runCheckOracle(ctx, args)
	case "create":
		return a.runCreate(ctx, args)
	case "relay":
		return a.runRelay(ctx, args)
	default:
		flag.Usage()
		return fmt.Errorf("unknown command %q", command)
	}
}

func setupLogger(cfg config.LogConfig) {
	var level slog.Level
	switch cfg.Level {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{Level: level}
	var handler slog.Handler
	if cfg.Format == "json" {
		handler = slog.NewJSONHandler(os.Stderr, opts)
	} else {
		handler = slog.NewTextHandler(os.Stderr, opts)
	}
	slog.SetDefault(slog.New(handler))
}
