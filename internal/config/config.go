package config

import (
	"errors"
	"fmt"
	"net"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds all runtime configuration loaded from environment variables.
type Config struct {
	AppPort string
	AppEnv  string

	// AppKey signs access tokens. EncryptionKey decrypts request payloads.
	AppKey        string
	EncryptionKey string

	AccessTokenTTL         time.Duration
	RefreshTokenExpiryDays int
	OTPTTL                 time.Duration
	DBTimeout              time.Duration

	StorageBackend string // "dynamo" | "memory"
	AWSRegion      string
	AWSEndpointURL string // empty in prod, set to LocalStack URL in dev
	AWSAccessKeyID string
	AWSSecretKey   string
	DynamoTables   DynamoTables

	SMSProvider string // "msdg" | "sns" | "log"
	SMSGateway  SMSGateway
	SNSRegion   string

	RateLimitBackend string // "memory" | "redis"
	RedisURL         string

	LogLevel  string
	LogFormat string

	AllowedOrigins []string // CORS allowed origins
	// TrustedProxies lists the CIDRs or addresses whose forwarding headers
	// are believed. Empty means every caller is keyed on its socket address.
	TrustedProxies []string
}

// DynamoTables holds the DynamoDB table name for each entity.
type DynamoTables struct {
	OtpVerifications string
	RefreshTokens    string
}

// SMSGateway holds the credentials of the government bulk SMS gateway.
type SMSGateway struct {
	URL        string
	Username   string
	Password   string
	SenderID   string
	SecureKey  string
	TemplateID string
	// MessageTemplate must contain exactly one %s verb for the code.
	MessageTemplate string
	Timeout         time.Duration
}

// Load reads all configuration from environment variables.
func Load() *Config {
	return &Config{
		AppPort:                getEnv("APP_PORT", "3000"),
		AppEnv:                 getEnv("APP_ENV", "development"),
		AppKey:                 getEnv("APP_KEY", ""),
		EncryptionKey:          getEnv("ENCRYPTION_KEY", ""),
		AccessTokenTTL:         getEnvDuration("ACCESS_TOKEN_TTL", time.Hour),
		RefreshTokenExpiryDays: getEnvInt("REFRESH_TOKEN_EXPIRY_DAYS", 30),
		OTPTTL:                 getEnvDuration("OTP_TTL", 10*time.Minute),
		DBTimeout:              getEnvDuration("DB_TIMEOUT", 5*time.Second),
		StorageBackend:         getEnv("STORAGE_BACKEND", "dynamo"),
		AWSRegion:              getEnv("AWS_REGION", "ap-south-1"),
		AWSEndpointURL:         getEnv("AWS_ENDPOINT_URL", ""),
		AWSAccessKeyID:         getEnv("AWS_ACCESS_KEY_ID", ""),
		AWSSecretKey:           getEnv("AWS_SECRET_ACCESS_KEY", ""),
		DynamoTables: DynamoTables{
			OtpVerifications: getEnv("DYNAMO_TABLE_OTP_VERIFICATIONS", "otp_verifications"),
			RefreshTokens:    getEnv("DYNAMO_TABLE_REFRESH_TOKENS", "refresh_tokens"),
		},
		SMSProvider: getEnv("SMS_PROVIDER", "log"),
		SMSGateway: SMSGateway{
			URL:             getEnv("SMS_GATEWAY_URL", "https://msdgweb.mgov.gov.in/esms/sendsmsrequestDLT"),
			Username:        getEnv("SMS_GATEWAY_USERNAME", ""),
			Password:        getEnv("SMS_GATEWAY_PASSWORD", ""),
			SenderID:        getEnv("SMS_GATEWAY_SENDER_ID", ""),
			SecureKey:       getEnv("SMS_GATEWAY_SECURE_KEY", ""),
			TemplateID:      getEnv("SMS_GATEWAY_TEMPLATE_ID", ""),
			MessageTemplate: getEnv("SMS_GATEWAY_MESSAGE", "Your OTP is %s - JKGOVT"),
			Timeout:         getEnvDuration("SMS_GATEWAY_TIMEOUT", 10*time.Second),
		},
		SNSRegion:        getEnv("SNS_REGION", "ap-south-1"),
		RateLimitBackend: getEnv("RATE_LIMIT_BACKEND", "memory"),
		RedisURL:         getEnv("REDIS_URL", "redis://localhost:6379/0"),
		LogLevel:         getEnv("LOG_LEVEL", "info"),
		LogFormat:        getEnv("LOG_FORMAT", "console"),
		AllowedOrigins:   strings.Split(getEnv("ALLOWED_ORIGINS", "*"), ","),
		TrustedProxies:   getEnvList("TRUSTED_PROXIES"),
	}
}

// Validate reports configuration that would leave the server unable to
// sign or decrypt anything.
func (c *Config) Validate() error {
	var errs []error
	if c.AppKey == "" {
		errs = append(errs, errors.New("APP_KEY is required"))
	}
	if c.EncryptionKey == "" {
		errs = append(errs, errors.New("ENCRYPTION_KEY is required"))
	}
	if c.AccessTokenTTL <= 0 {
		errs = append(errs, errors.New("ACCESS_TOKEN_TTL must be positive"))
	}
	if c.RefreshTokenExpiryDays <= 0 {
		errs = append(errs, errors.New("REFRESH_TOKEN_EXPIRY_DAYS must be positive"))
	}
	if c.IsProduction() && c.SMSProvider == "log" {
		errs = append(errs, errors.New("SMS_PROVIDER=log is not allowed in production"))
	}
	if _, err := c.TrustedNetworks(); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

// IsProduction reports whether the service runs with production defaults.
func (c *Config) IsProduction() bool { return c.AppEnv == "production" }

// RefreshTokenTTL is the lifetime of a refresh session.
func (c *Config) RefreshTokenTTL() time.Duration {
	return time.Duration(c.RefreshTokenExpiryDays) * 24 * time.Hour
}

// TrustedNetworks parses TrustedProxies. A bare address is a single-host network.
func (c *Config) TrustedNetworks() ([]*net.IPNet, error) {
	nets := make([]*net.IPNet, 0, len(c.TrustedProxies))
	for _, entry := range c.TrustedProxies {
		if _, n, err := net.ParseCIDR(entry); err == nil {
			nets = append(nets, n)
			continue
		}
		ip := net.ParseIP(entry)
		if ip == nil {
			return nil, fmt.Errorf("TRUSTED_PROXIES: invalid entry %q", entry)
		}
		bits := 8 * net.IPv6len
		if v4 := ip.To4(); v4 != nil {
			ip, bits = v4, 8*net.IPv4len
		}
		nets = append(nets, &net.IPNet{IP: ip, Mask: net.CIDRMask(bits, bits)})
	}
	return nets, nil
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}

func getEnvList(key string) []string {
	var out []string
	for _, v := range strings.Split(os.Getenv(key), ",") {
		if v = strings.TrimSpace(v); v != "" {
			out = append(out, v)
		}
	}
	return out
}
