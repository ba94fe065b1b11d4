package main

import (
	"context"
	"errors"
	"flag"
	"fmt"

	"github.com/alejandrodnm/prophet/internal/application/rewards"
	"github.com/alejandrodnm/prophet/internal/application/staking"
	"github.com/alejandrodnm/prophet/internal/domain"
)

// marketOutcomeFlags son los flags comunes de stake, close y resolve.
type marketOutcomeFlags struct {
	market  *string
	outcome *string
}

func addMarketOutcome(fs *flag.FlagSet) marketOutcomeFlags {
	return marketOutcomeFlags{
		market:  fs.String("market", "", "market id"),
		outcome: fs.String("outcome", "", "outcome: yes|no|index"),
	}
}

func (f marketOutcomeFlags) parse() (int64, int, error) {
	id, err := parseMarketID(*f.market)
	if err != nil {
		return 0, 0, err
	}
	outcome, err := domain.ParseOutcome(*f.outcome)
	if err != nil {
		return 0, 0, err
	}
	return id, outcome, nil
}

func (a *app) runStake(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("stake", flag.ContinueOnError)
	mo := addMarketOutcome(fs)
	amount := fs.Float64("amount", 0, "tokens to stake")
	if err := fs.Parse(args); err != nil {
		return err
	}
	id, outcome, err := mo.parse()
	if err != nil {
		return err
	}

	wallet := a.wallet()
	if err := staking.ValidateInput(*amount, wallet); err != nil {
		return err
	}
	if !a.gate.HasMinimumBalance(ctx, wallet, a.cfg.Gating.Threshold) {
		a.console.PrintBalance(wallet, a.gate.Balance(ctx, wallet), a.cfg.Gating.Threshold)
		return fmt.Errorf("stake: %w", domain.ErrInsufficientBalance)
	}

	market, err := a.aggregator.Find(ctx, id, a.cfg.View.PageSize)
	if err != nil {
		return err
	}

	if prev, ok, err := a.staking.HasVoted(ctx, id, wallet); err == nil && ok {
		a.console.PrintNotice("replacing previous stake of %.2f on outcome %d", prev.Amount, prev.OutcomeIndex)
	}

	receipt, err := a.staking.PlaceStake(ctx, market, outcome, *amount, wallet)
	if err != nil {
		var se *domain.StakeError
		if errors.As(err, &se) {
			return fmt.Errorf("stake %s: %w", se.Kind, se.Err)
		}
		return err
	}

	if receipt.Initialized {
		a.console.PrintNotice("market account created: %s (tx %s)", receipt.Market, receipt.InitTxID)
	}
	a.console.PrintNotice("stake confirmed: %.2f on %q, tx %s", *amount, outcomeLabel(market, outcome), receipt.TxID)
	return nil
}

func (a *app) runVotes(ctx context.Context, args []string) error {
	id, err := marketArg(args)
	if err != nil {
		return err
	}
	votes, err := a.store.ListVotes(ctx, id)
	if err != nil {
		return err
	}
	a.console.PrintVotes(id, votes)
	return nil
}

func (a *app) runRewards(ctx context.Context, args []string) error {
	if len(args) > 0 {
		id, err := parseMarketID(args[0])
		if err != nil {
			return err
		}
		calc, err := a.rewards.Compute(ctx, id)
		if rewards.IsNotResolved(err) {
			a.console.PrintNotice("market %d is not resolved yet", id)
			return nil
		}
		if err != nil {
			return err
		}
		a.console.PrintRewards(calc)
		return nil
	}

	calcs, err := a.rewards.ComputeAll(ctx)
	if err != nil {
		return err
	}
	if len(calcs) == 0 {
		a.console.PrintNotice("no resolved markets")
		return nil
	}
	for _, c := range calcs {
		a.console.PrintRewards(c)
	}
	if wallet := a.wallet(); wallet != "" {
		total, err := a.rewards.TotalForWallet(ctx, wallet)
		if err != nil {
			return err
		}
		a.console.PrintNotice("total for %s: %.2f", wallet, total)
	}
	return nil
}

func (a *app) runBalance(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("balance", flag.ContinueOnError)
	wallet := fs.String("wallet", "", "wallet address (default: configured keypair)")
	if err := fs.Parse(args); err != nil {
		return err
	}
	w := *wallet
	if w == "" {
		w = a.wallet()
	}
	if w == "" {
		return domain.ErrWalletRequired
	}
	a.console.PrintBalance(w, a.gate.Balance(ctx, w), a.cfg.Gating.Threshold)
	return nil
}
