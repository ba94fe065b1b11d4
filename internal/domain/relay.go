package domain

import "fmt"

// RelayStatus es el resultado del relayer para un mercado en una pasada.
type RelayStatus string

const (
	RelayResolved RelayStatus = "RESOLVED"
	RelayFailed   RelayStatus = "FAILED"
	RelayLive     RelayStatus = "LIVE"
)

// RelayReport es el estado reportado por mercado: RESOLVED(tx), FAILED(err) o LIVE.
type RelayReport struct {
	Market       string
	MarketID     uint64
	PolymarketID string
	Question     string
	Status       RelayStatus
	TxID         string
	Err          error
}

func (r RelayReport) String() string {
	switch r.Status {
	case RelayResolved:
		return fmt.Sprintf("RESOLVED(%s)", r.TxID)
	case RelayFailed:
		return fmt.Sprintf("FAILED(%v)", r.Err)
	default:
		return string(RelayLive)
	}
}
