package notifier

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"itemreserve/util/httpx"
)

// Webhook POSTs notifications as JSON to an external endpoint, for
// deployments where delivery is handled by a separate service.
type Webhook struct {
	url string
	log *slog.Logger
}

func NewWebhook(url string, log *slog.Logger) *Webhook {
	return &Webhook{url: url, log: log}
}

func (w *Webhook) Notify(ctx context.Context, n Notification) {
	body, err := json.Marshal(n)
	if err != nil {
		w.log.Error("notify marshal failed", "err", err)
		return
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, w.url, bytes.NewReader(body))
	if err != nil {
		w.log.Error("notify request failed", "err", err)
		return
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := httpx.Client().Do(req)
	if err != nil {
		w.log.Error("notify webhook failed", "kind", n.Kind, "user_id", n.UserID, "err", err)
		return
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		w.log.Error("notify webhook rejected", "kind", n.Kind, "status", resp.StatusCode)
	}
}
