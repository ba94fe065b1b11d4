package pricewatch_test

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/alejandrodnm/prophet/internal/application/pricewatch"
	"github.com/alejandrodnm/prophet/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeFeed struct {
	calls atomic.Int64
	fail  bool
}

func (f *fakeFeed) LatestPrice(_ context.Context, asset domain.Asset) (domain.PricePoint, error) {
	f.calls.Add(1)
	if f.fail {
		return domain.PricePoint{}, errors.New("hermes 503")
	}
	return domain.PricePoint{Asset: asset, Price: 100}, nil
}

type fakeOdds struct {
	calls atomic.Int64
}

func (f *fakeOdds) RefreshMarkets(_ context.Context, ids []string) ([]domain.MarketRecord, error) {
	f.calls.Add(1)
	out := make([]domain.MarketRecord, 0, len(ids))
	for range ids {
		out = append(out, domain.MarketRecord{Question: "refreshed"})
	}
	return out, nil
}

func TestWatch_StopsOnCancel(t *testing.T) {
	feed := &fakeFeed{}
	w := pricewatch.New(feed, nil)

	ctx, cancel := context.WithCancel(context.Background())
	var got atomic.Int64
	done := make(chan struct{})
	go func() {
		defer close(done)
		w.Watch(ctx, domain.AssetBTC, 5*time.Millisecond, func(p domain.PricePoint) {
			assert.Equal(t, domain.AssetBTC, p.Asset)
			got.Add(1)
		})
	}()

	require.Eventually(t, func() bool { return got.Load() >= 3 }, time.Second, time.Millisecond)
	cancel()
	<-done

	after := feed.calls.Load()
	time.Sleep(30 * time.Millisecond)
	assert.Equal(t, after, feed.calls.Load(), "no polls after cancel")
}

func TestWatch_PollsImmediately(t *testing.T) {
	feed := &fakeFeed{}
	w := pricewatch.New(feed, nil)

	ctx, cancel := context.WithCancel(context.Background())
	first := make(chan domain.PricePoint, 1)
	go w.Watch(ctx, domain.AssetETH, time.Hour, func(p domain.PricePoint) {
		select {
		case first <- p:
		default:
		}
	})

	select {
	case p := <-first:
		assert.Equal(t, domain.AssetETH, p.Asset)
	case <-time.After(time.Second):
		t.Fatal("first poll did not happen before the first tick")
	}
	cancel()
}

func TestWatch_CancelledContextNeverPolls(t *testing.T) {
	feed := &fakeFeed{}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	pricewatch.New(feed, nil).Watch(ctx, domain.AssetSOL, time.Millisecond, func(domain.PricePoint) {
		t.Fatal("callback after cancel")
	})
	assert.Zero(t, feed.calls.Load())
}

func TestWatch_FailuresDoNotStopPolling(t *testing.T) {
	feed := &fakeFeed{fail: true}
	w := pricewatch.New(feed, nil)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go w.Watch(ctx, domain.AssetBTC, 2*time.Millisecond, func(domain.PricePoint) {
		t.Error("callback on failed poll")
	})

	require.Eventually(t, func() bool { return feed.calls.Load() >= 3 }, time.Second, time.Millisecond)
}

func TestWatchMarkets_OnlyCryptoMarkets(t *testing.T) {
	feed := &fakeFeed{}
	w := pricewatch.New(feed, nil)
	markets := []domain.MarketRecord{
		{ID: 1, Question: "Will Bitcoin reach $150k?"},
		{ID: 2, Question: "Will the Lakers win?"},
		{ID: 3, Question: "ETH above $5k on Friday?"},
	}

	ctx, cancel := context.WithCancel(context.Background())
	var mu sync.Mutex
	seen := map[int64]domain.Asset{}
	done := make(chan struct{})
	go func() {
		defer close(done)
		w.WatchMarkets(ctx, markets, time.Hour, func(m domain.MarketRecord, p domain.PricePoint) {
			mu.Lock()
			defer mu.Unlock()
			seen[m.ID] = p.Asset
		})
	}()

	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(seen) == 2
	}, time.Second, time.Millisecond)
	cancel()
	<-done

	assert.Equal(t, map[int64]domain.Asset{1: domain.AssetBTC, 3: domain.AssetETH}, seen)
}

func TestWatchOdds(t *testing.T) {
	odds := &fakeOdds{}
	w := pricewatch.New(&fakeFeed{}, odds)

	ctx, cancel := context.WithCancel(context.Background())
	var batches atomic.Int64
	done := make(chan struct{})
	go func() {
		defer close(done)
		w.WatchOdds(ctx, []string{"1", "2"}, 5*time.Millisecond, func(records []domain.MarketRecord) {
			assert.Len(t, records, 2)
			batches.Add(1)
		})
	}()

	require.Eventually(t, func() bool { return batches.Load() >= 2 }, time.Second, time.Millisecond)
	cancel()
	<-done

	// Sin refresher o sin ids vuelve al instante.
	pricewatch.New(&fakeFeed{}, nil).WatchOdds(context.Background(), []string{"1"}, time.Millisecond, nil)
	pricewatch.New(&fakeFeed{}, odds).WatchOdds(context.Background(), nil, time.Millisecond, nil)
}
