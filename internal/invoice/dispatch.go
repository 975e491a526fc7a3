package invoice

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// Dispatcher delivers a finalized invoice.
type Dispatcher interface {
	Send(ctx context.Context, inv Invoice) error
}

// Message is the body posted to the mail service.
type Message struct {
	To      string  `json:"to"`
	Subject string  `json:"subject"`
	Invoice Invoice `json:"invoice"`
}

type HTTPDispatcher struct {
	url    string
	client *http.Client
}

func NewHTTPDispatcher(url string, client *http.Client) *HTTPDispatcher {
	if client == nil {
		client = &http.Client{Timeout: 15 * time.Second}
	}
	return &HTTPDispatcher{url: url, client: client}
}

func (d *HTTPDispatcher) Send(ctx context.Context, inv Invoice) error {
	body, err := json.Marshal(Message{
		To:      inv.Customer.Email,
		Subject: fmt.Sprintf("Invoice %s", inv.Number),
		Invoice: inv,
	})
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, d.url, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := d.client.Do(req)
	if err != nil {
		return fmt.Errorf("send invoice %s: %w", inv.Number, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("send invoice %s: status %d: %s", inv.Number, resp.StatusCode, strings.TrimSpace(string(msg)))
	}
	return nil
}
