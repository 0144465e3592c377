// Package ratelimit defines the named request quotas and the backends that
// enforce them per client address.
package ratelimit

import (
	"context"
	"time"
)

// Policy is a named quota of Limit requests per Window.
type Policy struct {
	Name   string
	Limit  int
	Window time.Duration
}

var (
	API       = Policy{Name: "api", Limit: 60, Window: time.Minute}
	OTP       = Policy{Name: "otp", Limit: 5, Window: time.Minute}
	OTPVerify = Policy{Name: "otp-verify", Limit: 10, Window: time.Minute}
	Chat      = Policy{Name: "chat", Limit: 30, Window: time.Minute}
	Search    = Policy{Name: "search", Limit: 30, Window: time.Minute}
)

// Policies lists every known policy by name.
var Policies = map[string]Policy{
	API.Name:       API,
	OTP.Name:       OTP,
	OTPVerify.Name: OTPVerify,
	Chat.Name:      Chat,
	Search.Name:    Search,
}

// Key is the counter key for a policy and client address.
func (p Policy) Key(ip string) string {
	return "rate_limit:" + p.Name + ":" + ip
}

// Backend decides whether one more request under key fits in the quota.
type Backend interface {
	Allow(ctx context.Context, key string, limit int, window time.Duration) (bool, error)
}
