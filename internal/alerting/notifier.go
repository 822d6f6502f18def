package alerting

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

// Leg summarises one exchange in a notified trade sequence.
type Leg struct {
	From   string
	To     string
	Rate   decimal.Decimal
	Amount decimal.Decimal
}

// Notification carries the arbitrage context pushed to alert channels.
type Notification struct {
	DetectedAt  time.Time
	Anchor      string
	Cycle       []string
	Notional    decimal.Decimal
	FinalAmount decimal.Decimal
	ProfitPct   decimal.Decimal
	Legs        []Leg
}

// Notifier defines alert delivery.
type Notifier interface {
	Notify(ctx context.Context, notification Notification) error
}

// TelegramNotifier pushes messages through the Telegram Bot API.
type TelegramNotifier struct {
	botToken string
	chatID   string
	baseURL  string
	client   *http.Client
	logger   zerolog.Logger
}

// NewTelegramNotifier constructs a Telegram notifier.
func NewTelegramNotifier(botToken, chatID, baseURL string, timeout time.Duration, logger zerolog.Logger) *TelegramNotifier {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	if baseURL == "" {
		baseURL = "https://api.telegram.org"
	}

	return &TelegramNotifier{
		botToken: botToken,
		chatID:   chatID,
		baseURL:  strings.TrimRight(baseURL, "/"),
		client:   &http.Client{Timeout: timeout},
		logger:   logger.With().Str("component", "alert_telegram").Logger(),
	}
}

// Notify sends the rendered message via the sendMessage API.
func (n *TelegramNotifier) Notify(ctx context.Context, note Notification) error {
	payload := map[string]string{
		"chat_id": n.chatID,
		"text":    renderMessage(note),
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal telegram payload: %w", err)
	}

	url := fmt.Sprintf("%s/bot%s/sendMessage", n.baseURL, n.botToken)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create telegram request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := n.client.Do(req)
	if err != nil {
		return fmt.Errorf("send telegram request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("telegram responded with status %d", resp.StatusCode)
	}

	var result struct {
		OK bool `json:"ok"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err == nil {
		if !result.OK {
			return fmt.Errorf("telegram returned ok=false")
		}
	}

	n.logger.Info().
		Time("detected_at", note.DetectedAt).
		Str("profit_pct", note.ProfitPct.StringFixed(4)).
		Msg("arbitrage alert sent (Telegram)")
	return nil
}

func renderMessage(note Notification) string {
	builder := strings.Builder{}
	builder.WriteString("[FX Arbitrage]\n")
	builder.WriteString(fmt.Sprintf("Detected: %s UTC\n", note.DetectedAt.UTC().Format(time.RFC3339)))
	builder.WriteString(fmt.Sprintf("Cycle: %s\n", strings.Join(note.Cycle, " -> ")))
	builder.WriteString(fmt.Sprintf("Start: %s %s\n", note.Anchor, note.Notional.String()))
	for _, leg := range note.Legs {
		builder.WriteString(fmt.Sprintf("  %s -> %s @ %s = %s %s\n",
			leg.From, leg.To, leg.Rate.StringFixed(6), leg.To, leg.Amount.StringFixed(6)))
	}
	builder.WriteString(fmt.Sprintf("Final: %s %s (%s%%)\n",
		note.Anchor, note.FinalAmount.StringFixed(6), note.ProfitPct.StringFixed(4)))
	return builder.String()
}

var _ Notifier = (*TelegramNotifier)(nil)
