// Package mailinglist registers generator users with MailerLite.
package mailinglist

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/pippora/pippora/internal/ailink/driver"
)

const defaultBaseURL = "https://connect.mailerlite.com/api"

// Config configures the MailerLite client.
type Config struct {
	APIKey  string        `mapstructure:"api_key"`
	BaseURL string        `mapstructure:"base_url"`
	Groups  []string      `mapstructure:"groups"`
	Source  string        `mapstructure:"source"`
	Timeout time.Duration `mapstructure:"timeout"`
	// RequestsPerMinute paces subscription calls. Zero disables pacing.
	RequestsPerMinute int `mapstructure:"requests_per_minute"`
}

// Subscriber is the registration payload.
type Subscriber struct {
	Email  string            `json:"email"`
	Groups []string          `json:"groups,omitempty"`
	Fields map[string]string `json:"fields,omitempty"`
}

// Registrar registers an email address with a mailing list.
type Registrar interface {
	Subscribe(ctx context.Context, email string) error
}

// Client talks to the MailerLite subscribers API.
type Client struct {
	BaseURL    string
	APIKey     string
	Groups     []string
	Source     string
	HTTPClient *http.Client
	Timeout    time.Duration
	Pacer      *driver.Pacer
}

// New returns nil when no API key is configured; callers treat a nil
// Registrar as "registration disabled".
func New(cfg Config) *Client {
	key := strings.TrimSpace(cfg.APIKey)
	if key == "" {
		return nil
	}
	base := strings.TrimSpace(cfg.BaseURL)
	if base == "" {
		base = defaultBaseURL
	}
	return &Client{
		BaseURL: base,
		APIKey:  key,
		Groups:  cfg.Groups,
		Source:  cfg.Source,
		Timeout: cfg.Timeout,
		Pacer:   driver.NewPacer(cfg.RequestsPerMinute, 1),
	}
}

// Subscribe upserts email into the configured groups.
func (c *Client) Subscribe(ctx context.Context, email string) error {
	if c == nil {
		return fmt.Errorf("mailerlite client not configured")
	}
	email = strings.TrimSpace(email)
	if email == "" {
		return fmt.Errorf("email is required")
	}

	if c.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.Timeout)
		defer cancel()
	}
	if err := c.Pacer.Wait(ctx); err != nil {
		return fmt.Errorf("wait for request slot: %w", err)
	}

	payload := Subscriber{Email: email, Groups: c.Groups}
	if c.Source != "" {
		payload.Fields = map[string]string{"source": c.Source}
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("encode subscriber: %w", err)
	}

	url := strings.TrimRight(c.BaseURL, "/") + "/subscribers"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.APIKey)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	client := c.HTTPClient
	if client == nil {
		client = http.DefaultClient
	}
	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close() // nolint:errcheck // best-effort cleanup

	respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		return &driver.ProviderError{Provider: "mailerlite", StatusCode: resp.StatusCode, Message: strings.TrimSpace(string(respBody)), RawResponse: respBody}
	}
	return nil
}
