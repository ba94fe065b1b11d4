package aggregator

import (
	"log/slog"
	"sort"
	"strings"
	"time"

	"github.com/alejandrodnm/prophet/internal/domain"
)

// SortKey es el criterio de orden de la vista.
type SortKey string

const (
	SortVolume SortKey = "volume" // volumen descendente (por defecto)
	SortNewest SortKey = "newest" // id descendente
	SortEnding SortKey = "ending" // fin ascendente
)

// ParseSortKey devuelve SortVolume para valores desconocidos.
func ParseSortKey(s string) SortKey {
	switch SortKey(strings.ToLower(strings.TrimSpace(s))) {
	case SortNewest:
		return SortNewest
	case SortEnding:
		return SortEnding
	default:
		return SortVolume
	}
}

// Merge concatena las tres fuentes por precedencia (local, on-chain, externa),
// aplica el overlay de resoluciones y deduplica por id y por (activo, fecha).
// No modifica los slices de entrada.
func Merge(local, onChain, external []domain.MarketRecord, resolutions []domain.Resolution) []domain.MarketRecord {
	return mergeIn(time.Local, local, onChain, external, resolutions)
}

func mergeIn(loc *time.Location, local, onChain, external []domain.MarketRecord, resolutions []domain.Resolution) []domain.MarketRecord {
	byID := make(map[int64]domain.Resolution, len(resolutions))
	for _, r := range resolutions {
		byID[r.PredictionID] = r
	}

	all := make([]domain.MarketRecord, 0, len(local)+len(onChain)+len(external))
	for _, src := range [][]domain.MarketRecord{local, onChain, external} {
		for _, m := range src {
			all = append(all, applyResolution(m, byID))
		}
	}

	return dedupSemantic(dedupExact(all), loc)
}

// applyResolution devuelve una copia con el overlay aplicado. El overlay
// manda sobre cualquier estado de resolución que traiga el registro.
func applyResolution(m domain.MarketRecord, resolutions map[int64]domain.Resolution) domain.MarketRecord {
	out := m.Clone()
	r, ok := resolutions[m.ID]
	if !ok {
		return out
	}
	out.Resolved = true
	w := r.OutcomeIndex
	out.WinningOutcome = &w
	return out
}

// dedupExact se queda con la primera aparición de cada id.
func dedupExact(records []domain.MarketRecord) []domain.MarketRecord {
	seen := make(map[int64]domain.MarketRecord, len(records))
	out := make([]domain.MarketRecord, 0, len(records))
	for _, m := range records {
		if first, dup := seen[m.ID]; dup {
			if first.Origin != m.Origin {
				slog.Debug("market id collision across origins",
					"kept", first.OriginKey(),
					"dropped", m.OriginKey(),
				)
			}
			continue
		}
		seen[m.ID] = m
		out = append(out, m)
	}
	return out
}

type dailySignature struct {
	asset domain.Asset
	date  string
}

// dedupSemantic colapsa los mercados cripto recurrentes: uno por
// (activo, fecha local de fin). Los no cripto pasan siempre.
func dedupSemantic(records []domain.MarketRecord, loc *time.Location) []domain.MarketRecord {
	seen := make(map[dailySignature]bool)
	out := make([]domain.MarketRecord, 0, len(records))
	for _, m := range records {
		asset := domain.DetectAsset(m.Question)
		if asset == domain.AssetNone || m.EndTime.IsZero() {
			out = append(out, m)
			continue
		}
		sig := dailySignature{asset: asset, date: m.EndTime.In(loc).Format("2006-01-02")}
		if seen[sig] {
			continue
		}
		seen[sig] = true
		out = append(out, m)
	}
	return out
}

// Filter aplica categoría, exclusividad resuelto/vivo y búsqueda de texto.
// category puede ser una Category, "all" (o vacío) o "resolved".
func Filter(records []domain.MarketRecord, category, search string) []domain.MarketRecord {
	cat := strings.TrimSpace(category)
	wantResolved := strings.EqualFold(cat, domain.FilterResolved)
	anyCategory := cat == "" || strings.EqualFold(cat, domain.FilterAll)
	needle := strings.ToLower(strings.TrimSpace(search))

	out := make([]domain.MarketRecord, 0, len(records))
	for _, m := range records {
		if m.Resolved != wantResolved {
			continue
		}
		if !wantResolved && !anyCategory && !strings.EqualFold(string(m.Category), cat) {
			continue
		}
		if needle != "" && !strings.Contains(strings.ToLower(m.Question), needle) {
			continue
		}
		out = append(out, m)
	}
	return out
}

// Sort devuelve una copia ordenada por key. El orden es estable.
func Sort(records []domain.MarketRecord, key SortKey) []domain.MarketRecord {
	out := append([]domain.MarketRecord(nil), records...)
	switch key {
	case SortNewest:
		sort.SliceStable(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	case SortEnding:
		sort.SliceStable(out, func(i, j int) bool { return out[i].EndTime.Before(out[j].EndTime) })
	default:
		sort.SliceStable(out, func(i, j int) bool { return out[i].TotalLiquidity > out[j].TotalLiquidity })
	}
	return out
}

// Buckets son los cortes de display de una vista ya filtrada y ordenada.
type Buckets struct {
	Hot        []domain.MarketRecord
	EndingSoon []domain.MarketRecord
	All        []domain.MarketRecord
}

// Split parte records por IsHot; cada bucket se recorta a limit (<= 0 sin límite).
func Split(records []domain.MarketRecord, limit int) Buckets {
	b := Buckets{
		Hot:        []domain.MarketRecord{},
		EndingSoon: []domain.MarketRecord{},
	}
	for _, m := range records {
		if m.IsHot {
			b.Hot = append(b.Hot, m)
		} else {
			b.EndingSoon = append(b.EndingSoon, m)
		}
	}
	b.Hot = capped(b.Hot, limit)
	b.EndingSoon = capped(b.EndingSoon, limit)
	b.All = capped(append([]domain.MarketRecord(nil), records...), limit)
	return b
}

func capped(records []domain.MarketRecord, limit int) []domain.MarketRecord {
	if records == nil {
		records = []domain.MarketRecord{}
	}
	if limit > 0 && len(records) > limit {
		return records[:limit]
	}
	return records
}
