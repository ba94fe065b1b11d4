package domain

import (
	"fmt"
	"strings"
	"time"
)

// Category es la categoría de display de un mercado.
type Category string

const (
	CategoryCrypto   Category = "CRYPTO"
	CategoryPolitics Category = "POLITICS"
	CategorySports   Category = "SPORTS"
	CategoryNews     Category = "NEWS"
	CategoryPop      Category = "POP"
	CategoryEsports  Category = "ESPORTS"
)

// Pseudo-categorías usadas solo como filtro de vista.
const (
	FilterAll      = "all"
	FilterResolved = "resolved"
)

// ParseCategory normaliza un string a una Category conocida.
func ParseCategory(s string) (Category, bool) {
	c := Category(strings.ToUpper(strings.TrimSpace(s)))
	switch c {
	case CategoryCrypto, CategoryPolitics, CategorySports, CategoryNews, CategoryPop, CategoryEsports:
		return c, true
	}
	return "", false
}

// Origin identifica la fuente de la que proviene un registro.
type Origin string

const (
	OriginLocal    Origin = "local"
	OriginOnChain  Origin = "onchain"
	OriginExternal Origin = "external"
)

// DisplayState es el estado derivado que ve el usuario.
type DisplayState string

const (
	StateLive     DisplayState = "live"
	StateExpired  DisplayState = "expired"
	StateResolved DisplayState = "resolved"
)

// MarketRecord es la representación canónica de un mercado, sea cual sea su origen.
type MarketRecord struct {
	ID       int64
	Origin   Origin
	Question string
	Category Category
	EndTime  time.Time

	// Outcomes y Totals tienen siempre la misma longitud (ver Normalize).
	Outcomes []string
	// Totals en mercados externos son una aproximación de display
	// (volumen × precio), no cantidades del ledger.
	Totals         []float64
	TotalLiquidity float64

	Resolved       bool
	WinningOutcome *int // solo válido si Resolved

	PolymarketID    string
	IsOnChain       bool
	MarketPublicKey string
	IsHot           bool

	// Procedencia: solo para heurísticas de categoría/título.
	Slug        string
	EventTitle  string
	Description string

	// Solo mercados creados localmente.
	Creator   string
	CreatedAt time.Time
}

// Normalize fuerza los invariantes del registro: outcomes por defecto,
// len(Totals) == len(Outcomes) y WinningOutcome coherente con Resolved.
func (m *MarketRecord) Normalize() {
	if len(m.Outcomes) == 0 {
		m.Outcomes = []string{"YES", "NO"}
	}
	switch {
	case len(m.Totals) < len(m.Outcomes):
		totals := make([]float64, len(m.Outcomes))
		copy(totals, m.Totals)
		m.Totals = totals
	case len(m.Totals) > len(m.Outcomes):
		m.Totals = m.Totals[:len(m.Outcomes)]
	}
	if m.WinningOutcome != nil {
		w := *m.WinningOutcome
		if !m.Resolved || w < 0 || w >= len(m.Outcomes) {
			m.WinningOutcome = nil
		}
	}
	if m.Category == "" {
		m.Category = CategoryNews
	}
}

// Clone devuelve una copia profunda del registro.
func (m MarketRecord) Clone() MarketRecord {
	out := m
	if m.Outcomes != nil {
		out.Outcomes = append([]string(nil), m.Outcomes...)
	}
	if m.Totals != nil {
		out.Totals = append([]float64(nil), m.Totals...)
	}
	if m.WinningOutcome != nil {
		w := *m.WinningOutcome
		out.WinningOutcome = &w
	}
	return out
}

// NeedsLazyInit es true si el mercado viene de la fuente externa y todavía
// no tiene una cuenta on-chain que lo respalde.
func (m MarketRecord) NeedsLazyInit() bool {
	return m.PolymarketID != "" && !m.IsOnChain
}

// HoursUntilEnd devuelve las horas que faltan hasta EndTime (negativo si ya pasó).
func (m MarketRecord) HoursUntilEnd(now time.Time) float64 {
	if m.EndTime.IsZero() {
		return 0
	}
	return m.EndTime.Sub(now).Hours()
}

// State deriva el estado de display: resuelto gana sobre expirado.
func (m MarketRecord) State(now time.Time) DisplayState {
	if m.Resolved {
		return StateResolved
	}
	if !m.EndTime.IsZero() && !now.Before(m.EndTime) {
		return StateExpired
	}
	return StateLive
}

// OriginKey es la clave compuesta (origen, id) usada para diagnosticar colisiones.
func (m MarketRecord) OriginKey() string {
	return fmt.Sprintf("%s:%d", m.Origin, m.ID)
}

// WinningLabel devuelve el nombre del outcome ganador, o "" si no hay.
func (m MarketRecord) WinningLabel() string {
	if m.WinningOutcome == nil {
		return ""
	}
	w := *m.WinningOutcome
	if w < 0 || w >= len(m.Outcomes) {
		return ""
	}
	return m.Outcomes[w]
}

// Sort fields aceptados por la fuente externa.
const (
	SortByVolume  = "volume"
	SortByEndDate = "endDate"
)

// TrendingQuery parametriza una página del listado externo.
type TrendingQuery struct {
	Limit     int
	Offset    int
	SortField string
	Ascending bool
	Tag       string // tag_slug opcional
}
