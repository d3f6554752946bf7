package email

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/sethvargo/go-retry"
)

const defaultAPIURL = "https://api.resend.com/emails"

type Client struct {
	apiKey     string
	fromEmail  string
	baseURL    string
	apiURL     string
	httpClient *http.Client
}

type Option func(*Client)

func WithHTTPClient(c *http.Client) Option {
	return func(cl *Client) {
		cl.httpClient = c
	}
}

func WithAPIURL(url string) Option {
	return func(cl *Client) {
		cl.apiURL = url
	}
}

func NewClient(apiKey, fromEmail, baseURL string, opts ...Option) *Client {
	c := &Client{
		apiKey:     apiKey,
		fromEmail:  fromEmail,
		baseURL:    baseURL,
		apiURL:     defaultAPIURL,
		httpClient: http.DefaultClient,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Configured returns true if the API key is set.
func (c *Client) Configured() bool {
	return c.apiKey != ""
}

type resendEmail struct {
	From    string   `json:"from"`
	To      []string `json:"to"`
	Subject string   `json:"subject"`
	HTML    string   `json:"html"`
	Text    string   `json:"text"`
}

// SendInvite sends a household invitation email with an accept link.
func (c *Client) SendInvite(ctx context.Context, toEmail, token, householdName string) error {
	if !c.Configured() {
		return fmt.Errorf("email client not configured: missing API key")
	}

	subject := fmt.Sprintf("You've been invited to %s on ChoreCraft", householdName)
	link := fmt.Sprintf("%s/invites/accept?token=%s", c.baseURL, token)
	textBody := fmt.Sprintf("You've been invited to join %s. Click the link below to accept:\n\n%s\n\nThis invite expires in 7 days.", householdName, link)
	htmlBody := fmt.Sprintf(
		`<p>You've been invited to join <strong>%s</strong>. Click the link below to accept:</p><p><a href="%s">Accept invitation</a></p><p>This invite expires in 7 days.</p>`,
		householdName, link,
	)

	payload := resendEmail{
		From:    c.fromEmail,
		To:      []string{toEmail},
		Subject: subject,
		HTML:    htmlBody,
		Text:    textBody,
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal email: %w", err)
	}

	backoff := retry.WithMaxRetries(3, retry.NewExponential(200*time.Millisecond))
	return retry.Do(ctx, backoff, func(ctx context.Context) error {
		return c.send(ctx, body)
	})
}

func (c *Client) send(ctx context.Context, body []byte) error {
	req, err := http.NewRequestWithContext(ctx, "POST", c.apiURL, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return retry.RetryableError(fmt.Errorf("send email: %w", err))
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode >= 500 || resp.StatusCode == http.StatusTooManyRequests:
		return retry.RetryableError(fmt.Errorf("resend API error: status %d", resp.StatusCode))
	case resp.StatusCode >= 400:
		return fmt.Errorf("resend API error: status %d", resp.StatusCode)
	}

	return nil
}
