// Package auth runs the OTP login flow: send a code, exchange it for an
// access token plus refresh session, refresh, and log out.
package auth

import (
	"context"
	"fmt"
	"time"

	"github.com/legal-directory-api/internal/application/otp"
	"github.com/legal-directory-api/internal/application/session"
	"github.com/legal-directory-api/internal/domain"
	"go.uber.org/zap"
)

type SendOTPRequest struct {
	MobileNumber string `json:"mobile_number" validate:"required,mobile"`
}

type VerifyOTPRequest struct {
	MobileNumber string `json:"mobile_number" validate:"required,mobile"`
	OTP          string `json:"otp" validate:"required,otp"`
}

// Client describes the caller for audit fields.
type Client struct {
	IP        string
	UserAgent string
}

// Tokens is the result of a login or refresh. RefreshToken is empty on
// refresh since sessions are not rotated.
type Tokens struct {
	AccessToken  string
	ExpiresIn    int64
	RefreshToken string
}

type SMSSender interface {
	SendSMS(ctx context.Context, mobile, message string) error
}

type TokenMinter interface {
	Mint(mobile string) (string, error)
	TTL() time.Duration
}

type Service interface {
	// SendOTP returns the normalized mobile number the code was sent to.
	SendOTP(ctx context.Context, req SendOTPRequest, c Client) (string, error)
	VerifyOTP(ctx context.Context, req VerifyOTPRequest, c Client) (*Tokens, error)
	Refresh(ctx context.Context, refreshToken string) (*Tokens, error)
	Logout(ctx context.Context, refreshToken string) error
	LogoutAll(ctx context.Context, mobile string) error
}

type ServiceDeps struct {
	OTP      otp.Service
	Sessions session.Service
	Tokens   TokenMinter
	SMS      SMSSender
	// MessageTemplate holds one %s verb for the code.
	MessageTemplate string
	Logger          *zap.Logger
}

type service struct {
	otp      otp.Service
	sessions session.Service
	tokens   TokenMinter
	sms      SMSSender
	template string
	log      *zap.Logger
}

func NewService(d ServiceDeps) Service {
	s := &service{
		otp:      d.OTP,
		sessions: d.Sessions,
		tokens:   d.Tokens,
		sms:      d.SMS,
		template: d.MessageTemplate,
		log:      d.Logger,
	}
	if s.template == "" {
		s.template = "Your OTP is %s"
	}
	if s.log == nil {
		s.log = zap.NewNop()
	}
	return s
}

// SendOTP stores the challenge before delivery so a code that reaches the
// phone is always verifiable.
func (s *service) SendOTP(ctx context.Context, req SendOTPRequest, c Client) (string, error) {
	mobile := domain.NormalizeMobile(req.MobileNumber)
	code, err := s.otp.Issue(ctx, mobile, c.IP)
	if err != nil {
		return "", err
	}
	if err := s.sms.SendSMS(ctx, mobile, fmt.Sprintf(s.template, code)); err != nil {
		s.log.Error("otp delivery failed", zap.String("mobile_number", mobile), zap.Error(err))
		return "", fmt.Errorf("deliver otp: %w: %w", domain.ErrUpstream, err)
	}
	return mobile, nil
}

func (s *service) VerifyOTP(ctx context.Context, req VerifyOTPRequest, c Client) (*Tokens, error) {
	mobile := domain.NormalizeMobile(req.MobileNumber)
	if err := s.otp.Verify(ctx, mobile, req.OTP); err != nil {
		return nil, err
	}
	access, err := s.tokens.Mint(mobile)
	if err != nil {
		return nil, fmt.Errorf("mint access token: %w", err)
	}
	refresh, err := s.sessions.Issue(ctx, mobile, c.IP, c.UserAgent)
	if err != nil {
		return nil, err
	}
	s.log.Info("login", zap.String("mobile_number", mobile), zap.String("ip", c.IP))
	return &Tokens{
		AccessToken:  access,
		ExpiresIn:    int64(s.tokens.TTL().Seconds()),
		RefreshToken: refresh,
	}, nil
}

func (s *service) Refresh(ctx context.Context, refreshToken string) (*Tokens, error) {
	mobile, err := s.sessions.Redeem(ctx, refreshToken)
	if err != nil {
		return nil, err
	}
	access, err := s.tokens.Mint(mobile)
	if err != nil {
		return nil, fmt.Errorf("mint access token: %w", err)
	}
	return &Tokens{AccessToken: access, ExpiresIn: int64(s.tokens.TTL().Seconds())}, nil
}

func (s *service) Logout(ctx context.Context, refreshToken string) error {
	return s.sessions.Revoke(ctx, refreshToken)
}

func (s *service) LogoutAll(ctx context.Context, mobile string) error {
	return s.sessions.RevokeAll(ctx, mobile)
}
