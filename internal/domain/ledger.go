package domain

import "time"

// MaxOutcomes es el número fijo de slots de outcome de una cuenta de mercado.
const MaxOutcomes = 8

// LedgerMarket es una cuenta de mercado del programa, ya decodificada.
// Los importes están en unidades base del mint.
type LedgerMarket struct {
	Address         string
	Authority       string
	MarketID        uint64
	EndTime         time.Time
	Question        string
	Resolved        bool
	WinningOutcome  *int
	Totals          [MaxOutcomes]uint64
	OutcomeCount    int
	TotalLiquidity  uint64
	FeesDistributed bool
	Paused          bool
	Cancelled       bool
	OutcomeNames    [MaxOutcomes]string
	OracleKey       string
	MinBet          uint64
	MaxBet          uint64
	MetadataURL     string
	PolymarketID    string
}

// Open es true si el mercado acepta todavía stakes o resolución.
func (m LedgerMarket) Open() bool {
	return !m.Resolved && !m.Paused && !m.Cancelled
}

// MarketAccounts son las direcciones derivadas necesarias para crear un mercado.
type MarketAccounts struct {
	MarketID uint64
	Market   string
	Vault    string
	Config   string
}

// StakeAccounts son las direcciones derivadas para votar en un mercado.
type StakeAccounts struct {
	Market     string
	VoteRecord string
	UserToken  string
	Vault      string
}

// InitMarketRequest describe un mercado a crear on-chain.
type InitMarketRequest struct {
	MarketID     uint64
	Question     string
	EndTime      time.Time
	Outcomes     []string
	MinBet       float64
	MaxBet       float64
	MetadataURL  string
	PolymarketID string
	OracleKey    string // opcional
}

// StakeRequest describe un stake ya validado sobre un mercado on-chain.
type StakeRequest struct {
	Market       string
	Wallet       string
	OutcomeIndex int
	Amount       float64
}

// ExternalResult es el estado de resolución de un mercado en la fuente externa.
type ExternalResult struct {
	PolymarketID   string
	Closed         bool
	Active         bool
	WinningOutcome *int
}

// Resolved es true si la fuente externa ya tiene un ganador definitivo.
func (r ExternalResult) Resolved() bool {
	return r.Closed && !r.Active && r.WinningOutcome != nil
}

// PricePoint es una cotización puntual de un activo.
type PricePoint struct {
	Asset       Asset
	Price       float64
	Confidence  float64
	PublishedAt time.Time
}
