package domain

import (
	"regexp"
	"strconv"
	"strings"
)

// Asset es un cripto-activo reconocido en el texto de un mercado.
type Asset string

const (
	AssetNone Asset = ""
	AssetBTC  Asset = "BTC"
	AssetETH  Asset = "ETH"
	AssetSOL  Asset = "SOL"
)

// Classification es la anotación best-effort extraída del texto de un mercado.
// Es capa de display: si la fuente trae taxonomía propia, debe preferirse.
type Classification struct {
	Category    Category
	Asset       Asset
	PriceTarget float64 // 0 si no se detectó
}

// Orden de prioridad: el primer grupo que haga match gana.
var categoryKeywords = []struct {
	category Category
	keywords []string
}{
	{CategoryPolitics, []string{
		"trump", "biden", "harris", "election", "republican", "democrat", "senate",
		"house", "president", "nominee", "cabinet", "vote", "policy", "poll",
		"approval", "regulation", "court", "supreme", "congress", "parliament",
		"minister", "war", "israel", "ukraine", "china", "nato", "rfk",
	}},
	{CategoryEsports, []string{
		"valorant", "counter-strike", "csgo", "cs2", "dota", "esports", "vct",
	}},
	{CategorySports, []string{
		"nfl", "nba", "nhl", "mlb", "soccer", "league", "cup", "sport", "fight",
		"boxing", "ufc", "mma", "formula", "f1", "champion", "score", "vs",
		"real madrid", "barcelona", "liverpool", "chelsea", "arsenal", "goal",
		"touchdown", "over/under", "handicap",
	}},
	{CategoryCrypto, []string{
		"bitcoin", "ethereum", "solana", "crypto", "token", "price", "coin",
		"etf", "btc", "eth", "sol", "memecoin", "pepe", "doge", "bonk",
		"fed ", "rates", "inflation",
	}},
}

var assetPatterns = []struct {
	asset Asset
	re    *regexp.Regexp
}{
	{AssetBTC, regexp.MustCompile(`(?i)\b(bitcoin|btc)\b`)},
	{AssetETH, regexp.MustCompile(`(?i)\b(ethereum|eth)\b`)},
	{AssetSOL, regexp.MustCompile(`(?i)\b(solana|sol)\b`)},
}

// $100,000 | $95k | $3.5K | $1.2m
var priceTargetRe = regexp.MustCompile(`\$\s?([0-9][0-9,]*(?:\.[0-9]+)?)\s?([kKmM])?\b`)

// Classify anota un texto (slug, título o pregunta) con categoría, activo y precio objetivo.
func Classify(text string) Classification {
	return Classification{
		Category:    ClassifyCategory(text),
		Asset:       DetectAsset(text),
		PriceTarget: DetectPriceTarget(text),
	}
}

// ClassifyCategory hace un scan de keywords por orden de prioridad; por defecto NEWS.
func ClassifyCategory(text string) Category {
	s := strings.ToLower(text)
	for _, group := range categoryKeywords {
		for _, kw := range group.keywords {
			if strings.Contains(s, kw) {
				return group.category
			}
		}
	}
	return CategoryNews
}

// DetectAsset busca BTC/ETH/SOL como palabra completa.
func DetectAsset(text string) Asset {
	for _, p := range assetPatterns {
		if p.re.MatchString(text) {
			return p.asset
		}
	}
	return AssetNone
}

// DetectPriceTarget extrae el primer importe en dólares del texto.
func DetectPriceTarget(text string) float64 {
	m := priceTargetRe.FindStringSubmatch(text)
	if m == nil {
		return 0
	}
	v, err := strconv.ParseFloat(strings.ReplaceAll(m[1], ",", ""), 64)
	if err != nil {
		return 0
	}
	switch strings.ToLower(m[2]) {
	case "k":
		v *= 1_000
	case "m":
		v *= 1_000_000
	}
	return v
}
