package polymarket

import (
	"log/slog"
	"math"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/alejandrodnm/prophet/internal/domain"
)

const (
	hotVolume = 100_000
	// Precios extremos: el mercado está prácticamente decidido.
	deadLow  = 0.01
	deadHigh = 0.99
	maxLabel = 30
)

var (
	defaultPrices   = []float64{0.5, 0.5}
	defaultOutcomes = []string{"YES", "NO"}
	binaryWords     = map[string]bool{"yes": true, "no": true, "over": true, "under": true, "win": true, "lose": true}

	vsSplitRe    = regexp.MustCompile(`(?i) vs\.? `)
	willPrefixRe = regexp.MustCompile(`(?i)^Will\s+`)
	winSuffixRe  = regexp.MustCompile(`(?i)\s+win\??$`)
	beatRe       = regexp.MustCompile(`(?i)Will (.+) beat (.+)\?`)
)

// mapEvents convierte los eventos de Gamma a MarketRecord (un mercado por evento).
func mapEvents(events []gammaEvent) []domain.MarketRecord {
	out := make([]domain.MarketRecord, 0, len(events))
	for _, ev := range events {
		if len(ev.Markets) == 0 {
			continue
		}
		if rec, ok := mapMarket(ev, ev.Markets[0], true); ok {
			out = append(out, rec)
		}
	}
	return out
}

// mapMarket normaliza un mercado de Gamma. ok=false si el registro se descarta:
// sin id utilizable, o muerto (precio del primer outcome fuera de (0.01, 0.99))
// cuando filterDead está activo.
func mapMarket(ev gammaEvent, gm gammaMarket, filterDead bool) (domain.MarketRecord, bool) {
	id, ok := parseID(string(gm.ID), string(ev.ID))
	if !ok {
		slog.Debug("gamma market without usable id, skipping",
			"market_id", gm.ID,
			"event_id", ev.ID,
		)
		return domain.MarketRecord{}, false
	}

	prices, ok := gm.OutcomePrices.floats()
	if !ok {
		prices = defaultPrices
	}
	outcomes := gm.Outcomes.values
	if gm.Outcomes.malformed || len(outcomes) == 0 {
		outcomes = defaultOutcomes
	}

	if filterDead && (prices[0] <= deadLow || prices[0] >= deadHigh) {
		return domain.MarketRecord{}, false
	}

	volume := float64(gm.Volume)
	if volume <= 0 {
		volume = float64(ev.Volume)
	}

	title := firstNonEmpty(ev.Title, gm.Question)
	outcomes = sportsLabels(firstNonEmpty(title, ev.Slug), outcomes)

	rec := domain.MarketRecord{
		ID:             id,
		Origin:         domain.OriginExternal,
		Question:       firstNonEmpty(gm.Question, ev.Title),
		Category:       domain.ClassifyCategory(firstNonEmpty(ev.Slug, gm.Slug, title)),
		EndTime:        parseEndDate(firstNonEmpty(gm.EndDate, ev.EndDate)),
		Outcomes:       append([]string(nil), outcomes...),
		Totals:         approxTotals(volume, prices, len(outcomes)),
		TotalLiquidity: volume,
		IsHot:          volume > hotVolume,
		PolymarketID:   string(gm.ID),
		Slug:           firstNonEmpty(ev.Slug, gm.Slug),
		EventTitle:     ev.Title,
		Description:    firstNonEmpty(gm.Description, ev.Description),
	}
	if rec.PolymarketID == "" {
		rec.PolymarketID = string(ev.ID)
	}
	rec.Normalize()
	return rec, true
}

// approxTotals estima totales por outcome como floor(volumen × precio).
// Es una heurística de display, no una cantidad del ledger.
func approxTotals(volume float64, prices []float64, n int) []float64 {
	totals := make([]float64, n)
	for i := 0; i < n && i < len(prices); i++ {
		totals[i] = math.Floor(volume * prices[i])
	}
	return totals
}

// sportsLabels sustituye Yes/No por los nombres de los equipos cuando el
// título es "A vs B" o "Will A beat B?".
func sportsLabels(title string, outcomes []string) []string {
	if len(outcomes) != 2 {
		return outcomes
	}
	if !binaryWords[strings.ToLower(outcomes[0])] && !binaryWords[strings.ToLower(outcomes[1])] {
		return outcomes
	}

	if strings.Contains(title, " vs ") || strings.Contains(title, " vs. ") {
		parts := vsSplitRe.Split(title, -1)
		if len(parts) == 2 {
			a := strings.TrimSpace(winSuffixRe.ReplaceAllString(willPrefixRe.ReplaceAllString(parts[0], ""), ""))
			b := strings.TrimSpace(strings.TrimSuffix(winSuffixRe.ReplaceAllString(parts[1], ""), "?"))
			if a != "" && b != "" && len(a) < maxLabel && len(b) < maxLabel {
				return []string{a, b}
			}
		}
		return outcomes
	}

	if m := beatRe.FindStringSubmatch(title); len(m) == 3 {
		return []string{strings.TrimSpace(m[1]), strings.TrimSpace(m[2])}
	}
	return outcomes
}

func parseID(candidates ...string) (int64, bool) {
	for _, c := range candidates {
		if id, err := strconv.ParseInt(strings.TrimSpace(c), 10, 64); err == nil && id > 0 {
			return id, true
		}
	}
	return 0, false
}

// parseEndDate prueba los formatos que usa Gamma.
func parseEndDate(s string) time.Time {
	if s == "" {
		return time.Time{}
	}
	for _, layout := range []string{
		time.RFC3339,
		"2006-01-02T15:04:05.000Z",
		"2006-01-02T15:04:05Z",
		"2006-01-02",
	} {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC()
		}
	}
	return time.Time{}
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}
