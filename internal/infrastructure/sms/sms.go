// Package sms selects the configured SMS delivery channel.
package sms

import (
	"context"
	"fmt"
	"strings"
	"unicode"

	"github.com/legal-directory-api/internal/config"
	"github.com/legal-directory-api/internal/infrastructure/msdg"
	"github.com/legal-directory-api/internal/infrastructure/sns"
	"go.uber.org/zap"
)

type Sender interface {
	SendSMS(ctx context.Context, mobile, message string) error
}

// New builds the sender named by cfg.SMSProvider.
func New(ctx context.Context, cfg *config.Config, log *zap.Logger) (Sender, error) {
	switch cfg.SMSProvider {
	case "msdg":
		return msdg.NewSender(cfg.SMSGateway, log.Named("msdg")), nil
	case "sns":
		return sns.NewSender(ctx, cfg)
	case "log":
		return NewLogSender(log.Named("sms")), nil
	}
	return nil, fmt.Errorf("unknown SMS_PROVIDER %q", cfg.SMSProvider)
}

// LogSender writes messages to the log instead of delivering them. It is
// meant for local development only and is refused in production. Digits are
// masked, so the code itself never reaches the log.
type LogSender struct {
	log *zap.Logger
}

func NewLogSender(log *zap.Logger) *LogSender { return &LogSender{log: log} }

func (s *LogSender) SendSMS(_ context.Context, mobile, message string) error {
	s.log.Warn("sms not delivered (log provider)", zap.String("mobile_number", mobile), zap.String("message", redact(message)))
	return nil
}

func redact(message string) string {
	return strings.Map(func(r rune) rune {
		if unicode.IsDigit(r) {
			return '*'
		}
		return r
	}, message)
}
