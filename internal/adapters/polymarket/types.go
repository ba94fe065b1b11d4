package polymarket

import (
	"bytes"
	"encoding/json"
	"strconv"
)

// DTOs raw de la API Gamma. Solo se usan dentro de este paquete.
// La conversión a domain entities se hace en mapping.go.

// gammaEvent es un evento de GET /events con sus mercados anidados.
type gammaEvent struct {
	ID          flexString    `json:"id"`
	Title       string        `json:"title"`
	Slug        string        `json:"slug"`
	Description string        `json:"description"`
	Volume      flexFloat     `json:"volume"`
	Liquidity   flexFloat     `json:"liquidity"`
	EndDate     string        `json:"endDate"`
	Markets     []gammaMarket `json:"markets"`
}

// gammaMarket es un mercado de Gamma. Outcomes y OutcomePrices llegan
// a veces como arrays JSON y a veces como strings con un array dentro.
type gammaMarket struct {
	ID                  flexString  `json:"id"`
	Question            string      `json:"question"`
	Slug                string      `json:"slug"`
	Description         string      `json:"description"`
	ConditionID         string      `json:"conditionId"`
	Outcomes            flexStrings `json:"outcomes"`
	OutcomePrices       flexStrings `json:"outcomePrices"`
	Volume              flexFloat   `json:"volume"`
	Liquidity           flexFloat   `json:"liquidity"`
	EndDate             string      `json:"endDate"`
	Active              bool        `json:"active"`
	Closed              bool        `json:"closed"`
	WinningOutcomeIndex *int        `json:"winningOutcomeIndex"`
}

// flexString acepta string o número JSON.
type flexString string

func (f *flexString) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if bytes.Equal(b, []byte("null")) {
		*f = ""
		return nil
	}
	var s string
	if err := json.Unmarshal(b, &s); err == nil {
		*f = flexString(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		*f = ""
		return nil
	}
	*f = flexString(n.String())
	return nil
}

// flexFloat acepta número o string numérico. Valores ilegibles quedan en 0.
type flexFloat float64

func (f *flexFloat) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	var n float64
	if err := json.Unmarshal(b, &n); err == nil {
		*f = flexFloat(n)
		return nil
	}
	var s string
	if err := json.Unmarshal(b, &s); err == nil {
		if v, err := strconv.ParseFloat(s, 64); err == nil {
			*f = flexFloat(v)
			return nil
		}
	}
	*f = 0
	return nil
}

// flexStrings acepta un array JSON o un string que contiene un array JSON.
// Si el contenido no se puede interpretar queda marcado como malformed
// y el mapping aplica los valores por defecto.
type flexStrings struct {
	values    []string
	malformed bool
}

func (f *flexStrings) UnmarshalJSON(b []byte) error {
	f.values, f.malformed = nil, false

	var raw any
	if err := json.Unmarshal(b, &raw); err != nil {
		f.malformed = true
		return nil
	}

	switch v := raw.(type) {
	case nil:
		return nil
	case string:
		var inner []any
		if err := json.Unmarshal([]byte(v), &inner); err != nil {
			f.malformed = true
			return nil
		}
		f.values = toStrings(inner)
	case []any:
		f.values = toStrings(v)
	default:
		f.malformed = true
	}
	return nil
}

// floats devuelve los valores como float64; ok=false si alguno no es numérico.
func (f flexStrings) floats() ([]float64, bool) {
	if f.malformed || len(f.values) == 0 {
		return nil, false
	}
	out := make([]float64, len(f.values))
	for i, s := range f.values {
		v, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return nil, false
		}
		out[i] = v
	}
	return out, true
}

func toStrings(in []any) []string {
	out := make([]string, 0, len(in))
	for _, item := range in {
		switch v := item.(type) {
		case string:
			out = append(out, v)
		case float64:
			out = append(out, strconv.FormatFloat(v, 'f', -1, 64))
		case bool:
			out = append(out, strconv.FormatBool(v))
		}
	}
	return out
}
