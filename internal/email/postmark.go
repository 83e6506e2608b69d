// Package email sends the purchase notification to the store owner via
// Postmark. Without a server token it degrades to logging the same fields,
// which keeps local and test runs side-effect free.
package email

import (
	"bytes"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/hzrede/studio/internal/model"
)

const postmarkURL = "https://api.postmarkapp.com/email"

type Client struct {
	serverToken string
	fromEmail   string
	recipient   string
	httpClient  *http.Client
	logger      *slog.Logger
}

type Option func(*Client)

func WithHTTPClient(c *http.Client) Option {
	return func(cl *Client) {
		cl.httpClient = c
	}
}

// NewClient creates a purchase-notification client. recipient is the store
// owner's address.
func NewClient(serverToken, fromEmail, recipient string, logger *slog.Logger, opts ...Option) *Client {
	c := &Client{
		serverToken: serverToken,
		fromEmail:   fromEmail,
		recipient:   recipient,
		httpClient:  http.DefaultClient,
		logger:      logger,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Configured returns true if the server token is set.
func (c *Client) Configured() bool {
	return c.serverToken != ""
}

type postmarkEmail struct {
	From     string `json:"From"`
	To       string `json:"To"`
	Subject  string `json:"Subject"`
	TextBody string `json:"TextBody"`
}

// SendPurchaseNotice tells the store owner about a completed purchase.
// Never fatal to the purchase: callers log and move on if this errors.
func (c *Client) SendPurchaseNotice(buyer *model.User, offering *model.Offering, attempt *model.PaymentAttempt) error {
	if !c.Configured() {
		c.logger.Info("purchase notice (email not configured)",
			"to", c.recipient,
			"buyer", buyer.Name,
			"email", buyer.Email,
			"method", attempt.Method,
			"package", offering.Name,
			"date", attempt.Date.Format(time.RFC3339),
		)
		return nil
	}

	textBody := fmt.Sprintf(
		"Comprador: %s\nE-mail: %s\nForma de Pagamento: %s\nPacote: %s\nData e Hora: %s\n",
		buyer.Name, buyer.Email, attempt.Method, offering.Name, attempt.Date.Format(time.RFC3339),
	)

	payload := postmarkEmail{
		From:     c.fromEmail,
		To:       c.recipient,
		Subject:  fmt.Sprintf("Nova compra: %s", offering.Name),
		TextBody: textBody,
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal email: %w", err)
	}

	req, err := http.NewRequest("POST", postmarkURL, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Postmark-Server-Token", c.serverToken)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("send email: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return fmt.Errorf("postmark API error: status %d", resp.StatusCode)
	}

	return nil
}
