package notify

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

const defaultBaseURL = "https://api.twilio.com"

// TwilioConfig holds the Twilio REST credentials and sender numbers.
// WhatsAppFrom is preferred when set; SMSFrom is the fallback channel.
type TwilioConfig struct {
	AccountSID   string
	AuthToken    string
	WhatsAppFrom string
	SMSFrom      string
	BaseURL      string
}

// TwilioClient sends messages through the Twilio Messages API. WhatsApp is
// tried first when configured, falling back to SMS on failure.
type TwilioClient struct {
	cfg  TwilioConfig
	http *http.Client
}

func NewTwilioClient(cfg TwilioConfig) *TwilioClient {
	if cfg.BaseURL == "" {
		cfg.BaseURL = defaultBaseURL
	}
	return &TwilioClient{
		cfg:  cfg,
		http: &http.Client{Timeout: 15 * time.Second},
	}
}

var _ Sender = (*TwilioClient)(nil)

func (c *TwilioClient) Send(ctx context.Context, to, body string) error {
	if c.cfg.WhatsAppFrom != "" {
		err := c.post(ctx, "whatsapp:"+c.cfg.WhatsAppFrom, "whatsapp:"+to, body)
		if err == nil {
			return nil
		}
		if c.cfg.SMSFrom == "" {
			return err
		}
		// WhatsApp failed, fall back to SMS.
		if smsErr := c.post(ctx, c.cfg.SMSFrom, to, body); smsErr != nil {
			return fmt.Errorf("whatsapp: %v; sms: %w", err, smsErr)
		}
		return nil
	}
	if c.cfg.SMSFrom != "" {
		return c.post(ctx, c.cfg.SMSFrom, to, body)
	}
	return fmt.Errorf("no sender number configured")
}

func (c *TwilioClient) post(ctx context.Context, from, to, body string) error {
	endpoint := fmt.Sprintf("%s/2010-04-01/Accounts/%s/Messages.json", c.cfg.BaseURL, c.cfg.AccountSID)
	form := url.Values{}
	form.Set("From", from)
	form.Set("To", to)
	form.Set("Body", body)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.SetBasicAuth(c.cfg.AccountSID, c.cfg.AuthToken)

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		payload, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("twilio returned %d: %s", resp.StatusCode, strings.TrimSpace(string(payload)))
	}
	return nil
}
