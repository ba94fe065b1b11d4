package main

import (
	"fmt"
	"log/slog"
	"strconv"

	"github.com/alejandrodnm/prophet/config"
	"github.com/alejandrodnm/prophet/internal/adapters/notify"
	"github.com/alejandrodnm/prophet/internal/adapters/polymarket"
	"github.com/alejandrodnm/prophet/internal/adapters/pyth"
	"github.com/alejandrodnm/prophet/internal/adapters/solana"
	"github.com/alejandrodnm/prophet/internal/adapters/storage"
	"github.com/alejandrodnm/prophet/internal/application/admin"
	"github.com/alejandrodnm/prophet/internal/application/aggregator"
	"github.com/alejandrodnm/prophet/internal/application/daily"
	"github.com/alejandrodnm/prophet/internal/application/gating"
	"github.com/alejandrodnm/prophet/internal/application/mirror"
	"github.com/alejandrodnm/prophet/internal/application/pricewatch"
	"github.com/alejandrodnm/prophet/internal/application/rewards"
	"github.com/alejandrodnm/prophet/internal/application/staking"
	"github.com/alejandrodnm/prophet/internal/ports"
	sol "github.com/gagliardetto/solana-go"
)

// app agrupa las dependencias ya construidas de todos los comandos.
type app struct {
	cfg *config.Config

	store   ports.LocalStore
	gamma   *polymarket.Client
	ledger  *solana.Client
	mirror  *mirror.Mirror
	console *notify.Console

	aggregator *aggregator.Aggregator
	daily      *daily.Selector
	staking    *staking.Orchestrator
	rewards    *rewards.Service
	gate       *gating.Gate
	admin      *admin.Service
	watcher    *pricewatch.Watcher

	closed bool
}

func newApp(cfg *config.Config, dryRun bool) (*app, error) {
	store, err := openStore(cfg, dryRun)
	if err != nil {
		return nil, err
	}

	transports, err := buildTransports(cfg.API.Transports)
	if err != nil {
		store.Close()
		return nil, err
	}
	gamma := polymarket.NewClient(polymarket.Config{
		GammaBase:  cfg.API.GammaBase,
		Transports: transports,
		RetryBase:  cfg.RetryBase(),
		Timeout:    cfg.HTTPTimeout(),
	})

	ledger, oracleKey, err := buildLedger(cfg.Ledger)
	if err != nil {
		store.Close()
		return nil, err
	}

	m := mirror.New(ledger, cfg.Ledger.Decimals)
	gate := gating.New(ledger)

	a := &app{
		cfg:     cfg,
		store:   store,
		gamma:   gamma,
		ledger:  ledger,
		mirror:  m,
		console: notify.NewConsole(),
		gate:    gate,
	}
	a.aggregator = aggregator.New(store, m, gamma, cfg.View.BucketLimit).WithRefresher(gamma)
	a.daily = daily.New(gamma, daily.Config{
		PageSize:  cfg.Daily.PageSize,
		MaxPages:  cfg.Daily.MaxPages,
		MinVolume: cfg.Daily.MinVolume,
		Window:    cfg.DailyWindow(),
	})
	a.staking = staking.New(ledger, store, staking.Config{
		MinBet:    cfg.Ledger.MinBet,
		MaxBet:    cfg.Ledger.MaxBet,
		OracleKey: oracleKey,
	})
	a.rewards = rewards.New(store, cfg.Gating.RewardPool)
	a.admin = admin.New(store, gamma, gate, ledger, admin.Config{
		CreateThreshold: cfg.Gating.Threshold,
		ResolutionStake: cfg.Gating.ResolutionStake,
		MinBet:          cfg.Ledger.MinBet,
		MaxBet:          cfg.Ledger.MaxBet,
		OracleKey:       oracleKey,
	})
	a.watcher = pricewatch.New(pyth.NewClient(cfg.API.PythBase), gamma)
	return a, nil
}

// Close es idempotente.
func (a *app) Close() {
	if a.closed {
		return
	}
	a.closed = true
	if err := a.store.Close(); err != nil {
		slog.Warn("store close failed", "err", err)
	}
}

// wallet es la dirección que firma las acciones del CLI.
func (a *app) wallet() string {
	return a.ledger.SignerAddress()
}

func openStore(cfg *config.Config, dryRun bool) (ports.LocalStore, error) {
	if dryRun {
		slog.Info("dry run: using in-memory store")
		return storage.NewMemoryStore(), nil
	}
	store, err := storage.NewSQLiteStorage(cfg.Storage.DSN)
	if err != nil {
		return nil, fmt.Errorf("open storage %q: %w", cfg.Storage.DSN, err)
	}
	return store, nil
}

func buildTransports(names []string) ([]polymarket.Transport, error) {
	known := map[string]polymarket.Transport{}
	for _, t := range polymarket.DefaultTransports() {
		known[t.Name] = t
	}
	out := make([]polymarket.Transport, 0, len(names))
	for _, name := range names {
		t, ok := known[name]
		if !ok {
			return nil, fmt.Errorf("unknown transport %q", name)
		}
		out = append(out, t)
	}
	return out, nil
}

// buildLedger crea el client RPC. Sin keypairs el client queda en solo lectura.
// Devuelve también la clave pública del oráculo, si hay.
func buildLedger(cfg config.LedgerConfig) (*solana.Client, string, error) {
	program, err := solana.NewProgram(cfg.ProgramID, cfg.Mint, cfg.Decimals)
	if err != nil {
		return nil, "", err
	}

	var signer, oracle sol.PrivateKey
	if cfg.KeypairPath != "" {
		if signer, err = solana.LoadKeypair(cfg.KeypairPath); err != nil {
			return nil, "", err
		}
	}
	oracleKey := ""
	if cfg.OracleKeypair != "" {
		if oracle, err = solana.LoadKeypair(cfg.OracleKeypair); err != nil {
			return nil, "", err
		}
		oracleKey = oracle.PublicKey().String()
	}

	return solana.NewClient(solana.ClientConfig{
		RPCURL:  cfg.RPCURL,
		Program: program,
		Signer:  signer,
		Oracle:  oracle,
	}), oracleKey, nil
}

func parseMarketID(s string) (int64, error) {
	id, err := strconv.ParseInt(s, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid market id %q", s)
	}
	return id, nil
}

func marketArg(args []string) (int64, error) {
	if len(args) == 0 {
		return 0, fmt.Errorf("missing market id")
	}
	return parseMarketID(args[0])
}
