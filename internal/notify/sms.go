package notify

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"lottoinsight/internal/config"
)

// SMSSender delivers one text message.
type SMSSender interface {
	Send(ctx context.Context, phone, body string) error
}

// HTTPSMSSender posts form-encoded messages to an SMS provider.
type HTTPSMSSender struct {
	baseURL  string
	apiKey   string
	senderID string
	client   *http.Client
}

func NewHTTPSMSSender(cfg *config.SMSConfig) *HTTPSMSSender {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &HTTPSMSSender{
		baseURL:  strings.TrimRight(cfg.BaseURL, "/"),
		apiKey:   cfg.APIKey,
		senderID: cfg.SenderID,
		client:   &http.Client{Timeout: timeout},
	}
}

func (s *HTTPSMSSender) Send(ctx context.Context, phone, body string) error {
	form := url.Values{}
	form.Set("senderid", s.senderID)
	form.Set("mobile", phone)
	form.Set("msg", body)
	form.Set("msgType", "text")
	form.Set("output", "json")

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.baseURL+"/send", strings.NewReader(form.Encode()))
	if err != nil {
		return fmt.Errorf("build sms request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	if s.apiKey != "" {
		req.Header.Set("apikey", s.apiKey)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("sms http error: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("sms api status %d: %s", resp.StatusCode, strings.TrimSpace(string(b)))
	}
	return nil
}
