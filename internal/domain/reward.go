package domain

// Winner es un votante que acertó el outcome resuelto.
type Winner struct {
	WalletAddress string
	Amount        float64
	Reward        float64
}

// RewardCalculation es el reparto derivado de un mercado cerrado. No se persiste.
type RewardCalculation struct {
	PredictionID    int64
	OutcomeIndex    int
	TotalRewardPool float64
	Winners         []Winner
	TotalWinners    int
	RewardPerWinner float64
}

// ComputeRewards reparte pool a partes iguales entre los votos del mercado
// que coinciden con la resolución. Sin ganadores el reparto es 0.
// No modifica votes.
func ComputeRewards(res Resolution, votes []Vote, pool float64) RewardCalculation {
	calc := RewardCalculation{
		PredictionID:    res.PredictionID,
		OutcomeIndex:    res.OutcomeIndex,
		TotalRewardPool: pool,
		Winners:         []Winner{},
	}

	for _, v := range votes {
		if v.PredictionID != res.PredictionID || v.OutcomeIndex != res.OutcomeIndex {
			continue
		}
		calc.Winners = append(calc.Winners, Winner{
			WalletAddress: v.WalletAddress,
			Amount:        v.Amount,
		})
	}

	calc.TotalWinners = len(calc.Winners)
	if calc.TotalWinners == 0 {
		return calc
	}

	calc.RewardPerWinner = pool / float64(calc.TotalWinners)
	for i := range calc.Winners {
		calc.Winners[i].Reward = calc.RewardPerWinner
	}
	return calc
}

// RewardFor devuelve el reward de una wallet en el cálculo, 0 si no ganó.
func (r RewardCalculation) RewardFor(wallet string) float64 {
	for _, w := range r.Winners {
		if w.WalletAddress == wallet {
			return w.Reward
		}
	}
	return 0
}
