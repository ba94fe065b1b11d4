package notify

import (
	"context"
	"fmt"
	"io"
	"math"
	"os"
	"strings"
	"time"

	"github.com/alejandrodnm/prophet/internal/domain"
	"github.com/olekukonko/tablewriter"
)

// Console pinta vistas, rewards e informes del relayer en texto.
// Implementa ports.RelayNotifier.
type Console struct {
	out   io.Writer
	clock func() time.Time
}

// NewConsole crea un Console que escribe a stdout.
func NewConsole() *Console {
	return &Console{out: os.Stdout, clock: time.Now}
}

// NewConsoleWriter crea un Console sobre w con un reloj fijo (tests).
func NewConsoleWriter(w io.Writer, now time.Time) *Console {
	return &Console{out: w, clock: func() time.Time { return now }}
}

// PrintNotice imprime una línea de estado con timestamp.
func (c *Console) PrintNotice(format string, args ...any) {
	fmt.Fprintf(c.out, "[%s] %s\n", c.clock().Format("15:04:05"), fmt.Sprintf(format, args...))
}

// PrintMarkets imprime una tabla de mercados bajo title.
func (c *Console) PrintMarkets(title string, records []domain.MarketRecord) {
	now := c.clock()
	if len(records) == 0 {
		fmt.Fprintf(c.out, "\n%s: no markets\n", title)
		return
	}

	hot := 0
	onchain := 0
	for _, r := range records {
		if r.IsHot {
			hot++
		}
		if r.IsOnChain {
			onchain++
		}
	}
	fmt.Fprintf(c.out, "\n%s (%d markets, hot:%d on-chain:%d)\n", title, len(records), hot, onchain)

	table := tablewriter.NewWriter(c.out)
	table.Header("#", "ID", "Cat", "Market", "Outcomes", "Liquidity", "Ends", "State")
	for i, r := range records {
		table.Append(
			fmt.Sprintf("%d", i+1),
			fmt.Sprintf("%d", r.ID),
			string(r.Category),
			marketLabel(r),
			outcomesLabel(r),
			fmt.Sprintf("%.0f", r.TotalLiquidity),
			endLabel(r, now),
			stateLabel(r, now),
		)
	}
	table.Render()
}

// PrintVotes imprime los votos de un mercado.
func (c *Console) PrintVotes(predictionID int64, votes []domain.Vote) {
	if len(votes) == 0 {
		fmt.Fprintf(c.out, "\nmarket %d: no votes\n", predictionID)
		return
	}
	fmt.Fprintf(c.out, "\nmarket %d: %d votes\n", predictionID, len(votes))

	table := tablewriter.NewWriter(c.out)
	table.Header("Wallet", "Outcome", "Amount", "Tx", "When")
	for _, v := range votes {
		tx := v.TxHash
		if tx == "" {
			tx = "-"
		}
		table.Append(
			shortKey(v.WalletAddress),
			domain.OutcomeName(v.OutcomeIndex),
			fmt.Sprintf("%.2f", v.Amount),
			shortKey(tx),
			v.Timestamp.Format("2006-01-02 15:04"),
		)
	}
	table.Render()
}

// PrintRewards imprime el reparto de un mercado resuelto.
func (c *Console) PrintRewards(calc domain.RewardCalculation) {
	fmt.Fprintf(c.out, "\nmarket %d resolved to %s | pool %.2f | winners %d | per winner %.4f\n",
		calc.PredictionID, domain.OutcomeName(calc.OutcomeIndex),
		calc.TotalRewardPool, calc.TotalWinners, calc.RewardPerWinner)
	if calc.TotalWinners == 0 {
		fmt.Fprintln(c.out, "  no winning votes")
		return
	}

	table := tablewriter.NewWriter(c.out)
	table.Header("Wallet", "Staked", "Reward")
	for _, w := range calc.Winners {
		table.Append(
			w.WalletAddress,
			fmt.Sprintf("%.2f", w.Amount),
			fmt.Sprintf("%.4f", w.Reward),
		)
	}
	table.Render()
}

// PrintBalance imprime el saldo de una wallet contra el umbral de gating.
func (c *Console) PrintBalance(wallet string, balance, threshold float64) {
	verdict := "DENIED"
	if balance >= threshold {
		verdict = "OK"
	}
	fmt.Fprintf(c.out, "wallet %s: %.4f tokens (threshold %.0f) %s\n",
		wallet, balance, threshold, verdict)
}

// NotifyRelay imprime una línea por mercado con su estado.
func (c *Console) NotifyRelay(_ context.Context, reports []domain.RelayReport) error {
	if len(reports) == 0 {
		c.PrintNotice("relayer: no open markets")
		return nil
	}

	resolved, failed, live := countRelay(reports)
	c.PrintNotice("relayer: %d markets → resolved:%d failed:%d live:%d",
		len(reports), resolved, failed, live)

	table := tablewriter.NewWriter(c.out)
	table.Header("Market", "Polymarket", "Question", "Status")
	for _, r := range reports {
		table.Append(
			shortKey(r.Market),
			r.PolymarketID,
			compactName(r.Question, 40),
			r.String(),
		)
	}
	table.Render()
	return nil
}

// --- helpers ---

func countRelay(reports []domain.RelayReport) (resolved, failed, live int) {
	for _, r := range reports {
		switch r.Status {
		case domain.RelayResolved:
			resolved++
		case domain.RelayFailed:
			failed++
		default:
			live++
		}
	}
	return
}

func marketLabel(r domain.MarketRecord) string {
	label := truncate(r.Question, 48)
	if r.IsHot {
		label = "* " + label
	}
	return label
}

// outcomesLabel muestra cada outcome con su parte del total.
func outcomesLabel(r domain.MarketRecord) string {
	var total float64
	for _, v := range r.Totals {
		total += v
	}
	parts := make([]string, 0, len(r.Outcomes))
	for i, name := range r.Outcomes {
		if total <= 0 {
			parts = append(parts, name)
			continue
		}
		parts = append(parts, fmt.Sprintf("%s %.0f%%", name, r.Totals[i]/total*100))
	}
	return truncate(strings.Join(parts, " / "), 36)
}

func endLabel(r domain.MarketRecord, now time.Time) string {
	if r.EndTime.IsZero() {
		return "-"
	}
	hours := r.HoursUntilEnd(now)
	if hours > 0 && hours < 48 {
		return fmt.Sprintf("%s (!%.0fh)", r.EndTime.Format("01-02 15:04"), math.Round(hours))
	}
	return r.EndTime.Format("2006-01-02")
}

func stateLabel(r domain.MarketRecord, now time.Time) string {
	st := r.State(now)
	if st == domain.StateResolved {
		if w := r.WinningLabel(); w != "" {
			return "resolved: " + w
		}
	}
	return string(st)
}

// shortKey abrevia claves base58 y firmas.
func shortKey(s string) string {
	if len(s) <= 14 {
		return s
	}
	return s[:6] + "…" + s[len(s)-6:]
}

func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen-3] + "..."
}

func compactName(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	cut := s[:maxLen]
	if idx := strings.LastIndex(cut, " "); idx > maxLen/2 {
		cut = cut[:idx]
	}
	return cut + "…"
}
