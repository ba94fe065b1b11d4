package storage

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/alejandrodnm/prophet/internal/domain"
)

type voteKey struct {
	predictionID int64
	wallet       string
}

// MemoryStore implementa ports.LocalStore en memoria. Sirve para tests y
// para el modo --dry-run; se pierde al cerrar el proceso.
type MemoryStore struct {
	mu          sync.RWMutex
	markets     map[int64]domain.MarketRecord
	votes       map[voteKey]domain.Vote
	resolutions map[int64]domain.Resolution
	outcomes    map[int64]domain.PredictionOutcome
}

// NewMemoryStore crea un store vacío.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		markets:     make(map[int64]domain.MarketRecord),
		votes:       make(map[voteKey]domain.Vote),
		resolutions: make(map[int64]domain.Resolution),
		outcomes:    make(map[int64]domain.PredictionOutcome),
	}
}

func (s *MemoryStore) Close() error { return nil }

func (s *MemoryStore) SaveUserMarket(_ context.Context, m domain.MarketRecord) error {
	m = m.Clone()
	m.Normalize()
	m.Origin = domain.OriginLocal
	m.IsOnChain = m.MarketPublicKey != ""
	if m.CreatedAt.IsZero() {
		m.CreatedAt = time.Now()
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if prev, ok := s.markets[m.ID]; ok {
		m.CreatedAt = prev.CreatedAt
		m.Creator = prev.Creator
	}
	s.markets[m.ID] = m
	return nil
}

func (s *MemoryStore) ListUserMarkets(_ context.Context) ([]domain.MarketRecord, error) {
	s.mu.RLock()
	out := make([]domain.MarketRecord, 0, len(s.markets))
	for _, m := range s.markets {
		out = append(out, m.Clone())
	}
	s.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return out[i].ID > out[j].ID
	})
	return out, nil
}

func (s *MemoryStore) ClearUserMarkets(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.markets = make(map[int64]domain.MarketRecord)
	return nil
}

func (s *MemoryStore) UpsertVote(_ context.Context, v domain.Vote) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.votes[voteKey{v.PredictionID, v.WalletAddress}] = v
	return nil
}

func (s *MemoryStore) GetVote(_ context.Context, predictionID int64, wallet string) (domain.Vote, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.votes[voteKey{predictionID, wallet}]
	if !ok {
		return domain.Vote{}, fmt.Errorf("storage.GetVote: %d/%s: %w", predictionID, wallet, domain.ErrNotFound)
	}
	return v, nil
}

func (s *MemoryStore) ListVotes(_ context.Context, predictionID int64) ([]domain.Vote, error) {
	s.mu.RLock()
	out := []domain.Vote{}
	for k, v := range s.votes {
		if k.predictionID == predictionID {
			out = append(out, v)
		}
	}
	s.mu.RUnlock()
	sortVotes(out)
	return out, nil
}

func (s *MemoryStore) ListAllVotes(_ context.Context) ([]domain.Vote, error) {
	s.mu.RLock()
	out := make([]domain.Vote, 0, len(s.votes))
	for _, v := range s.votes {
		out = append(out, v)
	}
	s.mu.RUnlock()
	sortVotes(out)
	return out, nil
}

func (s *MemoryStore) ClearVotes(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.votes = make(map[voteKey]domain.Vote)
	return nil
}

func (s *MemoryStore) SaveResolution(_ context.Context, r domain.Resolution) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.resolutions[r.PredictionID] = r
	return nil
}

func (s *MemoryStore) GetResolution(_ context.Context, predictionID int64) (domain.Resolution, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	r, ok := s.resolutions[predictionID]
	if !ok {
		return domain.Resolution{}, fmt.Errorf("storage.GetResolution: %d: %w", predictionID, domain.ErrNotFound)
	}
	return r, nil
}

func (s *MemoryStore) ListResolutions(_ context.Context) ([]domain.Resolution, error) {
	s.mu.RLock()
	out := make([]domain.Resolution, 0, len(s.resolutions))
	for _, r := range s.resolutions {
		out = append(out, r)
	}
	s.mu.RUnlock()
	sort.Slice(out, func(i, j int) bool { return out[i].PredictionID < out[j].PredictionID })
	return out, nil
}

func (s *MemoryStore) DeleteResolution(_ context.Context, predictionID int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.resolutions, predictionID)
	return nil
}

func (s *MemoryStore) SaveOutcome(_ context.Context, o domain.PredictionOutcome) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.outcomes[o.PredictionID] = o
	return nil
}

func (s *MemoryStore) GetOutcome(_ context.Context, predictionID int64) (domain.PredictionOutcome, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	o, ok := s.outcomes[predictionID]
	if !ok {
		return domain.PredictionOutcome{}, fmt.Errorf("storage.GetOutcome: %d: %w", predictionID, domain.ErrNotFound)
	}
	return o, nil
}

func (s *MemoryStore) ListOutcomes(_ context.Context) ([]domain.PredictionOutcome, error) {
	s.mu.RLock()
	out := make([]domain.PredictionOutcome, 0, len(s.outcomes))
	for _, o := range s.outcomes {
		out = append(out, o)
	}
	s.mu.RUnlock()
	sort.Slice(out, func(i, j int) bool { return out[i].PredictionID < out[j].PredictionID })
	return out, nil
}

func (s *MemoryStore) DeleteOutcome(_ context.Context, predictionID int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.outcomes, predictionID)
	return nil
}

func sortVotes(votes []domain.Vote) {
	sort.Slice(votes, func(i, j int) bool {
		a, b := votes[i], votes[j]
		if a.PredictionID != b.PredictionID {
			return a.PredictionID < b.PredictionID
		}
		if !a.Timestamp.Equal(b.Timestamp) {
			return a.Timestamp.Before(b.Timestamp)
		}
		return a.WalletAddress < b.WalletAddress
	})
}
