package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/alejandrodnm/prophet/internal/application/aggregator"
	"github.com/alejandrodnm/prophet/internal/domain"
)

func (a *app) runMarkets(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("markets", flag.ContinueOnError)
	category := fs.String("category", domain.FilterAll, "category filter: all|resolved|crypto|politics|sports|news|pop|esports")
	search := fs.String("search", "", "case-insensitive substring filter on the question")
	sortKey := fs.String("sort", string(aggregator.SortVolume), "sort: volume|newest|ending")
	tag := fs.String("tag", "", "external tag slug")
	buckets := fs.Bool("buckets", false, "print hot / ending soon / all sections")
	if err := fs.Parse(args); err != nil {
		return err
	}

	view, err := a.aggregator.Load(ctx, aggregator.ViewQuery{
		Category: *category,
		Search:   *search,
		Sort:     aggregator.ParseSortKey(*sortKey),
		Limit:    a.cfg.View.PageSize,
		Tag:      *tag,
	})
	if err != nil {
		return err
	}
	for _, e := range view.Errors {
		slog.Warn("source degraded", "err", e)
	}

	switch view.Status() {
	case aggregator.StatusFetchError:
		a.console.PrintNotice("could not load markets; try again later")
		return nil
	case aggregator.StatusNoData:
		a.console.PrintNotice("no markets match the current filters")
		return nil
	}

	if *buckets {
		a.console.PrintMarkets("Hot", view.Buckets.Hot)
		a.console.PrintMarkets("Ending soon", view.Buckets.EndingSoon)
		a.console.PrintMarkets("All", view.Buckets.All)
		return nil
	}
	a.console.PrintMarkets("Markets", view.Records)
	return nil
}

func (a *app) runDaily(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("daily", flag.ContinueOnError)
	n := fs.Int("n", a.cfg.Daily.Count, "number of markets")
	if err := fs.Parse(args); err != nil {
		return err
	}

	records, err := a.daily.FetchDaily(ctx, *n)
	if err != nil {
		slog.Warn("daily selection degraded", "err", err)
	}
	if len(records) == 0 {
		if err != nil {
			a.console.PrintNotice("could not load daily markets; try again later")
		} else {
			a.console.PrintNotice("no markets end in the next %.0fh", a.cfg.Daily.WindowHours)
		}
		return nil
	}
	a.console.PrintMarkets("Daily", records)
	return nil
}

// runWatch muestra precio y cuotas de un mercado hasta Ctrl+C.
func (a *app) runWatch(ctx context.Context, args []string) error {
	id, err := marketArg(args)
	if err != nil {
		return err
	}
	market, err := a.aggregator.Find(ctx, id, a.cfg.View.PageSize)
	if err != nil {
		return err
	}
	a.console.PrintMarkets("Watching", []domain.MarketRecord{market})

	done := make(chan struct{})
	if market.PolymarketID != "" {
		go func() {
			defer close(done)
			a.watcher.WatchOdds(ctx, []string{market.PolymarketID}, a.cfg.ListInterval(), func(records []domain.MarketRecord) {
				a.console.PrintMarkets("Odds "+time.Now().Format(time.TimeOnly), records)
			})
		}()
	} else {
		close(done)
	}

	asset := domain.DetectAsset(market.Question)
	if asset == domain.AssetNone {
		a.console.PrintNotice("market %d has no tracked asset; refreshing odds only", id)
	} else {
		target := domain.DetectPriceTarget(market.Question)
		a.watcher.Watch(ctx, asset, a.cfg.FocusedInterval(), func(p domain.PricePoint) {
			line := fmt.Sprintf("%s %s $%s", p.PublishedAt.Local().Format(time.TimeOnly), p.Asset, strconv.FormatFloat(p.Price, 'f', 2, 64))
			if target > 0 {
				line += fmt.Sprintf("  target $%.0f (%+.2f%%)", target, (p.Price/target-1)*100)
			}
			a.console.PrintNotice("%s", line)
		})
	}
	<-done
	return nil
}
