package summary

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"strings"
	"time"
)

const ContentTypePDF = "application/pdf"

var ErrNotPDF = errors.New("renderer did not return a pdf")

// Renderer turns a summary document into a printable file.
type Renderer interface {
	Render(ctx context.Context, d Document) ([]byte, error)
}

// HTTPRenderer posts the document as JSON to a PDF service and returns
// the response body.
type HTTPRenderer struct {
	url    string
	client *http.Client
}

// NewHTTPRenderer targets url. A nil client gets a 30s timeout.
func NewHTTPRenderer(url string, client *http.Client) *HTTPRenderer {
	if client == nil {
		client = &http.Client{Timeout: 30 * time.Second}
	}
	return &HTTPRenderer{url: url, client: client}
}

func (r *HTTPRenderer) Render(ctx context.Context, d Document) ([]byte, error) {
	body, err := json.Marshal(d)
	if err != nil {
		return nil, fmt.Errorf("encode summary: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, r.url, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", ContentTypePDF)

	resp, err := r.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("render summary: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("render summary: status %d: %s", resp.StatusCode, strings.TrimSpace(string(msg)))
	}
	mt, _, _ := mime.ParseMediaType(resp.Header.Get("Content-Type"))
	if mt != ContentTypePDF {
		return nil, fmt.Errorf("content type %q: %w", mt, ErrNotPDF)
	}
	return io.ReadAll(resp.Body)
}
