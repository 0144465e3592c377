// Package msdg sends SMS through the government bulk SMS gateway (MSDG).
// Requests are form posts authenticated with a SHA-1 password digest and a
// SHA-512 key over the message.
package msdg

import (
	"context"
	"crypto/sha1"
	"crypto/sha512"
	"encoding/hex"
	"errors"
	"fmt"
	"hash"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/legal-directory-api/internal/config"
	"github.com/legal-directory-api/internal/domain"
	"go.uber.org/zap"
)

// ErrHashMismatch means the gateway rejected the request key.
var ErrHashMismatch = fmt.Errorf("sms gateway hash mismatch: %w", domain.ErrUpstream)

const maxResponse = 64 << 10

type Sender struct {
	cfg    config.SMSGateway
	client *http.Client
	log    *zap.Logger
}

func NewSender(cfg config.SMSGateway, log *zap.Logger) *Sender {
	return &Sender{
		cfg:    cfg,
		client: &http.Client{Timeout: cfg.Timeout},
		log:    log,
	}
}

func (s *Sender) SendSMS(ctx context.Context, mobile, message string) error {
	form := s.form(mobile, message)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.cfg.URL, strings.NewReader(form.Encode()))
	if err != nil {
		return fmt.Errorf("build sms request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("sms gateway: %w: %w", domain.ErrUpstream, err)
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponse))
	if err != nil {
		return fmt.Errorf("read sms gateway response: %w: %w", domain.ErrUpstream, err)
	}

	out := strings.TrimSpace(string(body))
	s.log.Info("sms gateway response",
		zap.String("mobile_number", mobile),
		zap.Int("http_status", resp.StatusCode),
		zap.String("response", out))

	return classify(resp.StatusCode, out)
}

func (s *Sender) form(mobile, message string) url.Values {
	return url.Values{
		"username":       {s.cfg.Username},
		"password":       {hexSum(sha1.New(), s.cfg.Password)},
		"senderid":       {s.cfg.SenderID},
		"content":        {message},
		"smsservicetype": {"singlemsg"},
		"mobileno":       {mobile},
		"key":            {requestKey(s.cfg, message)},
		"templateid":     {s.cfg.TemplateID},
	}
}

func requestKey(cfg config.SMSGateway, message string) string {
	return hexSum(sha512.New(),
		strings.TrimSpace(cfg.Username)+
			strings.TrimSpace(cfg.SenderID)+
			strings.TrimSpace(message)+
			strings.TrimSpace(cfg.SecureKey))
}

func hexSum(h hash.Hash, s string) string {
	_, _ = io.WriteString(h, s)
	return hex.EncodeToString(h.Sum(nil))
}

// classify maps a gateway reply to an error. The gateway answers 200 even on
// failure; "402" is its accepted-for-delivery code.
func classify(status int, body string) error {
	lower := strings.ToLower(body)
	switch {
	case status < 200 || status > 299:
		return fmt.Errorf("sms gateway status %d: %w", status, domain.ErrUpstream)
	case strings.Contains(lower, "hash is not matching"), strings.Contains(lower, "error 416"):
		return ErrHashMismatch
	case strings.Contains(lower, "error") && !strings.Contains(body, "402"):
		return fmt.Errorf("sms gateway rejected message: %w", errors.Join(domain.ErrUpstream, errors.New(body)))
	}
	return nil
}
