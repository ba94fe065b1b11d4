package main

import (
	"context"
	"flag"
	"log/slog"

	"github.com/alejandrodnm/prophet/internal/adapters/notify"
	"github.com/alejandrodnm/prophet/internal/application/relayer"
)

func (a *app) runRelay(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("relay", flag.ContinueOnError)
	once := fs.Bool("once", false, "run one pass and exit")
	if err := fs.Parse(args); err != nil {
		return err
	}

	notifiers := notify.Multi{a.console}
	if a.cfg.TelegramEnabled() {
		tg, err := notify.NewTelegram(a.cfg.Telegram.BotToken, a.cfg.Telegram.ChatIDs)
		if err != nil {
			slog.Warn("telegram disabled", "err", err)
		} else {
			notifiers = append(notifiers, tg)
		}
	}

	r := relayer.New(relayer.Config{
		Interval: a.cfg.RelayInterval(),
		Workers:  a.cfg.Relayer.Workers,
		Once:     *once,
	}, a.mirror, a.gamma, a.ledger, notifiers)

	if err := r.Run(ctx); err != nil {
		return err
	}
	slog.Info("relayer stopped cleanly")
	return nil
}
