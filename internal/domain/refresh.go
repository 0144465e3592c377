package domain

import "time"

// RefreshSession is a long-lived login session. Only the SHA-256 of the
// opaque token is stored; the plaintext leaves the server exactly once.
// PK: token_hash, GSI: mobile_number-index.
type RefreshSession struct {
	TokenHash    string     `json:"-" dynamodbav:"token_hash"`
	SessionID    string     `json:"id" dynamodbav:"session_id"`
	MobileNumber string     `json:"mobile_number" dynamodbav:"mobile_number"`
	ExpiresAt    int64      `json:"expires_at" dynamodbav:"expires_at"` // Unix seconds, table TTL
	Revoked      bool       `json:"revoked" dynamodbav:"revoked"`
	IPAddress    string     `json:"ip_address" dynamodbav:"ip_address"`
	UserAgent    string     `json:"user_agent" dynamodbav:"user_agent"`
	LastUsedAt   *time.Time `json:"last_used_at,omitempty" dynamodbav:"last_used_at,omitempty"`
	CreatedAt    time.Time  `json:"created" dynamodbav:"created_at"`
}

// Valid reports whether the session may still mint access tokens at now.
func (s *RefreshSession) Valid(now time.Time) bool {
	return !s.Revoked && s.ExpiresAt > now.Unix()
}
