package notify

import (
	"context"
	"errors"
	"fmt"
	"html"
	"log/slog"
	"strings"

	"github.com/alejandrodnm/prophet/internal/domain"
	"github.com/alejandrodnm/prophet/internal/ports"
	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
)

// Telegram envía el informe del relayer a uno o varios chats.
// Implementa ports.RelayNotifier.
type Telegram struct {
	bot     *bot.Bot
	chatIDs []string
}

// NewTelegram crea el notificador. opts permite apuntar a otro servidor (tests).
func NewTelegram(token string, chatIDs []string, opts ...bot.Option) (*Telegram, error) {
	if token == "" {
		return nil, errors.New("notify.NewTelegram: empty bot token")
	}
	ids := make([]string, 0, len(chatIDs))
	for _, id := range chatIDs {
		if id = strings.TrimSpace(id); id != "" {
			ids = append(ids, id)
		}
	}
	if len(ids) == 0 {
		return nil, errors.New("notify.NewTelegram: no chat ids")
	}

	b, err := bot.New(token, append([]bot.Option{bot.WithSkipGetMe()}, opts...)...)
	if err != nil {
		return nil, fmt.Errorf("notify.NewTelegram: %w", err)
	}
	return &Telegram{bot: b, chatIDs: ids}, nil
}

// NotifyRelay envía un mensaje solo si hubo mercados resueltos o fallidos.
// Devuelve error únicamente si no se pudo entregar a ningún chat.
func (t *Telegram) NotifyRelay(ctx context.Context, reports []domain.RelayReport) error {
	text := formatRelay(reports)
	if text == "" {
		return nil
	}

	var lastErr error
	sent := 0
	for _, chatID := range t.chatIDs {
		_, err := t.bot.SendMessage(ctx, &bot.SendMessageParams{
			ChatID:    chatID,
			Text:      text,
			ParseMode: models.ParseModeHTML,
		})
		if err != nil {
			slog.Warn("telegram send failed", "chat", chatID, "err", err)
			lastErr = err
			continue
		}
		sent++
	}
	if sent == 0 && lastErr != nil {
		return fmt.Errorf("notify.Telegram: %w", lastErr)
	}
	return nil
}

// formatRelay construye el mensaje HTML; vacío si todo sigue LIVE.
func formatRelay(reports []domain.RelayReport) string {
	var sb strings.Builder
	for _, r := range reports {
		switch r.Status {
		case domain.RelayResolved:
			fmt.Fprintf(&sb, "✅ <b>%s</b>\nresolved · <code>%s</code>\n",
				html.EscapeString(r.Question), html.EscapeString(r.TxID))
		case domain.RelayFailed:
			fmt.Fprintf(&sb, "⚠️ <b>%s</b>\nfailed: %s\n",
				html.EscapeString(r.Question), html.EscapeString(fmt.Sprint(r.Err)))
		}
	}
	if sb.Len() == 0 {
		return ""
	}
	return "<b>prophet relayer</b>\n" + sb.String()
}

// Multi reparte el informe entre varios notificadores y junta los errores.
type Multi []ports.RelayNotifier

// NotifyRelay llama a todos los notificadores aunque alguno falle.
func (m Multi) NotifyRelay(ctx context.Context, reports []domain.RelayReport) error {
	var errs []error
	for _, n := range m {
		if err := n.NotifyRelay(ctx, reports); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
