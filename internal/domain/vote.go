package domain

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Vote es el stake vigente de una wallet en un mercado.
// La identidad es (PredictionID, WalletAddress): votar de nuevo sobreescribe.
type Vote struct {
	PredictionID    int64
	WalletAddress   string
	OutcomeIndex    int
	Amount          float64
	Timestamp       time.Time
	MarketPublicKey string
	TxHash          string
}

// Confirmed es true si el voto tiene una transacción confirmada asociada.
func (v Vote) Confirmed() bool {
	return v.TxHash != ""
}

// ResolutionSource indica quién escribió una resolución.
type ResolutionSource string

const (
	ResolvedByAdmin  ResolutionSource = "admin"
	ResolvedByOracle ResolutionSource = "oracle"
	ResolvedByStake  ResolutionSource = "stake"
)

// Resolution es el override local que marca un mercado como resuelto.
// Hay como máximo una por PredictionID; escribir otra reemplaza la anterior.
type Resolution struct {
	PredictionID int64
	OutcomeIndex int
	Timestamp    time.Time
	StakedAmount float64 // > 0 solo en resolución manual con stake
	Source       ResolutionSource
}

// PredictionOutcome es el registro de cierre manual de un admin.
type PredictionOutcome struct {
	PredictionID int64
	OutcomeIndex int
	ClosedAt     time.Time
	ClosedBy     string
}

// ParseOutcome convierte "yes"/"no" o un índice explícito a índice de outcome.
func ParseOutcome(s string) (int, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "yes", "y":
		return 0, nil
	case "no", "n":
		return 1, nil
	}
	idx, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil || idx < 0 {
		return 0, fmt.Errorf("domain.ParseOutcome: %q: %w", s, ErrInvalidOutcome)
	}
	return idx, nil
}

// OutcomeName es la inversa de ParseOutcome para mercados binarios.
func OutcomeName(idx int) string {
	switch idx {
	case 0:
		return "yes"
	case 1:
		return "no"
	default:
		return strconv.Itoa(idx)
	}
}
