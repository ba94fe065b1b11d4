package relayer_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/alejandrodnm/prophet/internal/application/relayer"
	"github.com/alejandrodnm/prophet/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeMarkets struct {
	markets []domain.LedgerMarket
	err     error
}

func (f fakeMarkets) FetchOpen(context.Context) ([]domain.LedgerMarket, error) {
	return f.markets, f.err
}

type fakeResults struct {
	byID map[string]domain.ExternalResult
	errs map[string]error
}

func (f fakeResults) FetchMarketResult(_ context.Context, id string) (domain.ExternalResult, error) {
	if err := f.errs[id]; err != nil {
		return domain.ExternalResult{}, err
	}
	return f.byID[id], nil
}

type fakeResolver struct {
	mu       sync.Mutex
	resolved map[string]int
	err      error
}

func (f *fakeResolver) ResolveViaOracle(_ context.Context, market string, outcome int) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return "", f.err
	}
	if f.resolved == nil {
		f.resolved = map[string]int{}
	}
	f.resolved[market] = outcome
	return "tx-" + market, nil
}

type recordingNotifier struct {
	mu     sync.Mutex
	passes [][]domain.RelayReport
}

func (n *recordingNotifier) NotifyRelay(_ context.Context, reports []domain.RelayReport) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.passes = append(n.passes, reports)
	return nil
}

func (n *recordingNotifier) count() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return len(n.passes)
}

func winner(i int) *int { return &i }

func market(addr, polyID string) domain.LedgerMarket {
	return domain.LedgerMarket{Address: addr, PolymarketID: polyID, OutcomeCount: 2, Question: "Q " + addr}
}

func TestRunOnce_Statuses(t *testing.T) {
	markets := fakeMarkets{markets: []domain.LedgerMarket{
		market("resolved", "1"),
		market("live", "2"),
		market("unknown", "3"),
		market("local", ""),
		market("bad-index", "5"),
	}}
	results := fakeResults{
		byID: map[string]domain.ExternalResult{
			"1": {Closed: true, WinningOutcome: winner(1)},
			"2": {Active: true},
			"5": {Closed: true, WinningOutcome: winner(4)},
		},
		errs: map[string]error{"3": errors.New("404")},
	}
	resolver := &fakeResolver{}

	r := relayer.New(relayer.Config{Workers: 3}, markets, results, resolver, nil)
	reports, err := r.RunOnce(context.Background())
	require.NoError(t, err)

	require.Len(t, reports, 4, "markets without external id are not reported")
	assert.Equal(t, "resolved", reports[0].Market)
	assert.Equal(t, domain.RelayResolved, reports[0].Status)
	assert.Equal(t, "tx-resolved", reports[0].TxID)

	assert.Equal(t, domain.RelayLive, reports[1].Status)
	assert.Equal(t, "LIVE", reports[1].String())

	assert.Equal(t, domain.RelayFailed, reports[2].Status)
	assert.ErrorContains(t, reports[2].Err, "404")

	assert.Equal(t, domain.RelayFailed, reports[3].Status)
	assert.ErrorIs(t, reports[3].Err, domain.ErrInvalidOutcome)

	assert.Equal(t, map[string]int{"resolved": 1}, resolver.resolved)
}

func TestRunOnce_ResolveFailure(t *testing.T) {
	markets := fakeMarkets{markets: []domain.LedgerMarket{market("m", "1")}}
	results := fakeResults{byID: map[string]domain.ExternalResult{"1": {Closed: true, WinningOutcome: winner(0)}}}

	r := relayer.New(relayer.Config{}, markets, results, &fakeResolver{err: errors.New("unauthorized oracle")}, nil)
	reports, err := r.RunOnce(context.Background())
	require.NoError(t, err)
	require.Len(t, reports, 1)
	assert.Equal(t, domain.RelayFailed, reports[0].Status)
	assert.Contains(t, reports[0].String(), "unauthorized oracle")
}

func TestRunOnce_OrderIsStable(t *testing.T) {
	var ms []domain.LedgerMarket
	byID := map[string]domain.ExternalResult{}
	for _, id := range []string{"a", "b", "c", "d", "e", "f", "g", "h"} {
		ms = append(ms, market("m-"+id, id))
		byID[id] = domain.ExternalResult{Active: true}
	}

	r := relayer.New(relayer.Config{Workers: 4}, fakeMarkets{markets: ms}, fakeResults{byID: byID}, &fakeResolver{}, nil)
	reports, err := r.RunOnce(context.Background())
	require.NoError(t, err)
	require.Len(t, reports, len(ms))
	for i, rep := range reports {
		assert.Equal(t, ms[i].Address, rep.Market)
	}
}

func TestRun_OnceReturnsListError(t *testing.T) {
	r := relayer.New(relayer.Config{Once: true}, fakeMarkets{err: errors.New("rpc down")}, fakeResults{}, &fakeResolver{}, nil)
	assert.ErrorContains(t, r.Run(context.Background()), "rpc down")
}

func TestRun_NotifiesAndStopsOnCancel(t *testing.T) {
	notifier := &recordingNotifier{}
	markets := fakeMarkets{markets: []domain.LedgerMarket{market("m", "1")}}
	results := fakeResults{byID: map[string]domain.ExternalResult{"1": {Active: true}}}
	r := relayer.New(relayer.Config{Interval: 10 * time.Millisecond}, markets, results, &fakeResolver{}, notifier)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- r.Run(ctx) }()

	require.Eventually(t, func() bool { return notifier.count() >= 2 }, time.Second, 5*time.Millisecond)
	cancel()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("relayer did not stop after cancel")
	}
}
