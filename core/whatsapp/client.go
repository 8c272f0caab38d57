package whatsapp

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"github.com/m3rciful/leadbot/core/config"
	"github.com/m3rciful/leadbot/core/logger"
)

const maxErrorBody = 2048

// APIError is returned when the Graph API answers with a status >= 400.
type APIError struct {
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("whatsapp: graph api status %d: %s", e.StatusCode, e.Body)
}

// HTTPStatus exposes the response status to retry classification.
func (e *APIError) HTTPStatus() int { return e.StatusCode }

// Retryable reports whether the request may succeed when repeated.
func (e *APIError) Retryable() bool {
	return e.StatusCode == http.StatusTooManyRequests || e.StatusCode >= 500
}

// Client sends text messages through the WhatsApp Cloud API.
type Client struct {
	http          *http.Client
	base          string
	version       string
	phoneNumberID string
	token         string
}

// NewClient builds a Client from cfg. A nil httpClient selects http.DefaultClient.
func NewClient(cfg config.WhatsAppConfig, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &Client{
		http:          httpClient,
		base:          strings.TrimRight(cfg.APIBase, "/"),
		version:       cfg.APIVersion,
		phoneNumberID: cfg.PhoneNumberID,
		token:         cfg.AccessToken,
	}
}

type outboundText struct {
	MessagingProduct string `json:"messaging_product"`
	To               string `json:"to"`
	Type             string `json:"type"`
	Text             Text   `json:"text"`
}

// SendText delivers body to the WhatsApp user to. Without credentials it logs and does nothing.
func (c *Client) SendText(ctx context.Context, to, body string) error {
	if c.token == "" || c.phoneNumberID == "" {
		logger.Warn(ctx, "wa", "send.skip",
			slog.String("status", "skip"),
			slog.String("reason", "missing_credentials"),
		)
		return nil
	}

	payload, err := json.Marshal(outboundText{
		MessagingProduct: "whatsapp",
		To:               to,
		Type:             "text",
		Text:             Text{Body: body},
	})
	if err != nil {
		return fmt.Errorf("whatsapp: encode message: %w", err)
	}

	url := fmt.Sprintf("%s/%s/%s/messages", c.base, c.version, c.phoneNumberID)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("whatsapp: build request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.token)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("whatsapp: send: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return &APIError{StatusCode: resp.StatusCode, Body: strings.TrimSpace(string(raw))}
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	return nil
}
