// Package notify delivers OTP emails through the Brevo transactional email API.
package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

const defaultTimeout = 15 * time.Second

// BrevoClient sends OTP emails via the Brevo transactional email API.
// See https://developers.brevo.com/reference/sendtransacemail.
type BrevoClient struct {
	APIKey      string
	BaseURL     string
	SenderName  string
	SenderEmail string
	// OTPValidity is used only for the email copy ("expires in N minutes").
	OTPValidity time.Duration
	HTTPClient  *http.Client
}

// NewBrevoClient returns a client that uses the given API key and optional base URL.
func NewBrevoClient(apiKey, baseURL, senderName, senderEmail string, otpValidity time.Duration) *BrevoClient {
	if baseURL == "" {
		baseURL = "https://api.brevo.com"
	}
	return &BrevoClient{
		APIKey:      apiKey,
		BaseURL:     baseURL,
		SenderName:  senderName,
		SenderEmail: senderEmail,
		OTPValidity: otpValidity,
		HTTPClient:  &http.Client{Timeout: defaultTimeout},
	}
}

type brevoAddress struct {
	Name  string `json:"name,omitempty"`
	Email string `json:"email"`
}

type brevoEmail struct {
	Subject     string         `json:"subject"`
	HTMLContent string         `json:"htmlContent"`
	Sender      brevoAddress   `json:"sender"`
	To          []brevoAddress `json:"to"`
}

// SendOTP sends the OTP to the given address. Does not log the OTP.
func (c *BrevoClient) SendOTP(ctx context.Context, email, name, code string) error {
	if c.APIKey == "" {
		return fmt.Errorf("notify: API key not configured")
	}
	minutes := int(c.OTPValidity.Minutes())
	if minutes <= 0 {
		minutes = 10
	}
	body := brevoEmail{
		Subject: "Your OTP for Lapra-Tech",
		HTMLContent: fmt.Sprintf(
			"<h2>Hello %s</h2><p>Your OTP is:</p><h1>%s</h1><p>This OTP expires in %d minutes.</p>",
			name, code, minutes),
		Sender: brevoAddress{Name: c.SenderName, Email: c.SenderEmail},
		To:     []brevoAddress{{Email: email}},
	}
	raw, err := json.Marshal(body)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.BaseURL+"/v3/smtp/email", bytes.NewReader(raw))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("api-key", c.APIKey)
	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		b, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("notify: request failed status=%d body=%s", resp.StatusCode, string(b))
	}
	return nil
}
