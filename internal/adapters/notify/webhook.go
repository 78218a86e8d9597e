package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/alejandrodnm/settlebot/internal/alert"
)

// Webhook implementa alert.Sender contra un webhook estilo Discord.
type Webhook struct {
	url  string
	http *http.Client
}

// NewWebhook crea un sender que postea alertas al URL dado.
func NewWebhook(url string) *Webhook {
	return &Webhook{
		url:  url,
		http: &http.Client{Timeout: 10 * time.Second},
	}
}

type webhookPayload struct {
	Content string `json:"content"`
}

// Send postea la alerta formateada. La entrega es best-effort: el caller
// loguea el error y sigue.
func (w *Webhook) Send(ctx context.Context, e alert.Event) error {
	payload := webhookPayload{
		Content: fmt.Sprintf("[%s] %s: %s", e.Severity.String(), e.Title, e.Message),
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("notify.Webhook: marshal: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, w.url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("notify.Webhook: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := w.http.Do(req)
	if err != nil {
		return fmt.Errorf("notify.Webhook: post: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		msg, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("notify.Webhook: status %d: %s", resp.StatusCode, string(msg))
	}
	return nil
}
