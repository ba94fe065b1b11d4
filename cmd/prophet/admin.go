package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"strings"
	"time"

	"github.com/alejandrodnm/prophet/internal/application/admin"
	"github.com/alejandrodnm/prophet/internal/domain"
)

func (a *app) runClose(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("close", flag.ContinueOnError)
	mo := addMarketOutcome(fs)
	if err := fs.Parse(args); err != nil {
		return err
	}
	id, outcome, err := mo.parse()
	if err != nil {
		return err
	}
	closedBy := a.wallet()
	if closedBy == "" {
		closedBy = "local"
	}
	market, err := a.aggregator.Find(ctx, id, a.cfg.View.PageSize)
	if err != nil {
		return err
	}
	if err := a.admin.ClosePrediction(ctx, market, outcome, closedBy); err != nil {
		return err
	}
	a.console.PrintNotice("market %d closed as %s", id, outcomeLabel(market, outcome))
	return nil
}

func (a *app) runReopen(ctx context.Context, args []string) error {
	id, err := marketArg(args)
	if err != nil {
		return err
	}
	if err := a.admin.ReopenPrediction(ctx, id); err != nil {
		return err
	}
	a.console.PrintNotice("market %d reopened", id)
	return nil
}

func (a *app) runResolve(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("resolve", flag.ContinueOnError)
	mo := addMarketOutcome(fs)
	if err := fs.Parse(args); err != nil {
		return err
	}
	id, outcome, err := mo.parse()
	if err != nil {
		return err
	}
	market, err := a.aggregator.Find(ctx, id, a.cfg.View.PageSize)
	if err != nil {
		return err
	}
	res, err := a.admin.StakeResolve(ctx, market, outcome, a.wallet())
	if err != nil {
		return err
	}
	a.console.PrintNotice("market %d resolved as %q with %.0f tokens staked", id, outcomeLabel(market, res.OutcomeIndex), res.StakedAmount)
	return nil
}

func (a *app) runCheckOracle(ctx context.Context, args []string) error {
	id, err := marketArg(args)
	if err != nil {
		return err
	}
	market, err := a.aggregator.Find(ctx, id, a.cfg.View.PageSize)
	if err != nil {
		return err
	}
	res, err := a.admin.CheckOracle(ctx, market)
	if errors.Is(err, domain.ErrNotResolvable) {
		a.console.PrintNotice("market %d has no result yet", id)
		return nil
	}
	if err != nil {
		return err
	}
	a.console.PrintNotice("market %d resolved by oracle: %s", id, outcomeLabel(market, res.OutcomeIndex))
	return nil
}

func (a *app) runCreate(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("create", flag.ContinueOnError)
	question := fs.String("question", "", "market question")
	ends := fs.String("ends", "", "end time, RFC3339")
	outcomes := fs.String("outcomes", "", "comma-separated outcome names (default YES,NO)")
	category := fs.String("category", "", "category (default: classified from the question)")
	publish := fs.Bool("publish", false, "also create the on-chain market account")
	if err := fs.Parse(args); err != nil {
		return err
	}

	end, err := time.Parse(time.RFC3339, *ends)
	if err != nil {
		return fmt.Errorf("invalid -ends: %w", err)
	}
	d := admin.Draft{Question: *question, EndTime: end, Publish: *publish}
	if *outcomes != "" {
		for _, o := range strings.Split(*outcomes, ",") {
			d.Outcomes = append(d.Outcomes, strings.TrimSpace(o))
		}
	}
	if *category != "" {
		c, ok := domain.ParseCategory(*category)
		if !ok {
			return fmt.Errorf("unknown category %q", *category)
		}
		d.Category = c
	}

	m, err := a.admin.CreateMarket(ctx, a.wallet(), d)
	if err != nil {
		return err
	}
	a.console.PrintMarkets("Created", []domain.MarketRecord{m})
	return nil
}

func outcomeLabel(m domain.MarketRecord, idx int) string {
	if idx >= 0 && idx < len(m.Outcomes) {
		return m.Outcomes[idx]
	}
	return domain.OutcomeName(idx)
}
