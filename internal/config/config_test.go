package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("APP_KEY", "")
	t.Setenv("ACCESS_TOKEN_TTL", "")

	cfg := Load()

	assert.Equal(t, time.Hour, cfg.AccessTokenTTL)
	assert.Equal(t, 10*time.Minute, cfg.OTPTTL)
	assert.Equal(t, 30*24*time.Hour, cfg.RefreshTokenTTL())
	assert.Equal(t, "otp_verifications", cfg.DynamoTables.OtpVerifications)
	assert.Equal(t, "memory", cfg.RateLimitBackend)
}

func TestLoad_Overrides(t *testing.T) {
	t.Setenv("ACCESS_TOKEN_TTL", "15m")
	t.Setenv("REFRESH_TOKEN_EXPIRY_DAYS", "7")
	t.Setenv("ALLOWED_ORIGINS", "https://a.example,https://b.example")

	cfg := Load()

	assert.Equal(t, 15*time.Minute, cfg.AccessTokenTTL)
	assert.Equal(t, 7, cfg.RefreshTokenExpiryDays)
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.AllowedOrigins)
}

func TestLoad_InvalidNumbersFallBack(t *testing.T) {
	t.Setenv("REFRESH_TOKEN_EXPIRY_DAYS", "thirty")
	t.Setenv("DB_TIMEOUT", "soon")

	cfg := Load()

	assert.Equal(t, 30, cfg.RefreshTokenExpiryDays)
	assert.Equal(t, 5*time.Second, cfg.DBTimeout)
}

func TestValidate_MissingSecrets(t *testing.T) {
	cfg := &Config{AccessTokenTTL: time.Hour, RefreshTokenExpiryDays: 30}

	err := cfg.Validate()

	require.Error(t, err)
	assert.ErrorContains(t, err, "APP_KEY")
	assert.ErrorContains(t, err, "ENCRYPTION_KEY")
}

func TestValidate_OK(t *testing.T) {
	cfg := &Config{AppKey: "k", EncryptionKey: "e", AccessTokenTTL: time.Hour, RefreshTokenExpiryDays: 30}
	assert.NoError(t, cfg.Validate())
}

func TestValidate_LogSMSRefusedInProduction(t *testing.T) {
	cfg := &Config{AppKey: "k", EncryptionKey: "e", AccessTokenTTL: time.Hour, RefreshTokenExpiryDays: 30,
		AppEnv: "production", SMSProvider: "log"}
	assert.ErrorContains(t, cfg.Validate(), "SMS_PROVIDER")
}

func TestTrustedNetworks(t *testing.T) {
	t.Setenv("TRUSTED_PROXIES", " 10.0.0.0/8, 172.16.0.5 ,,2001:db8::1")

	cfg := Load()
	nets, err := cfg.TrustedNetworks()

	require.NoError(t, err)
	require.Len(t, nets, 3)
	assert.Equal(t, "10.0.0.0/8", nets[0].String())
	assert.Equal(t, "172.16.0.5/32", nets[1].String())
	assert.Equal(t, "2001:db8::1/128", nets[2].String())
}

func TestTrustedNetworks_EmptyByDefault(t *testing.T) {
	t.Setenv("TRUSTED_PROXIES", "")
	nets, err := Load().TrustedNetworks()
	require.NoError(t, err)
	assert.Empty(t, nets)
}

func TestValidate_BadTrustedProxy(t *testing.T) {
	cfg := &Config{AppKey: "k", EncryptionKey: "e", AccessTokenTTL: time.Hour, RefreshTokenExpiryDays: 30,
		TrustedProxies: []string{"not-an-ip"}}
	assert.ErrorContains(t, cfg.Validate(), "TRUSTED_PROXIES")
}
