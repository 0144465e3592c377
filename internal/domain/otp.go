package domain

import "time"

// OtpChallenge is one issued one-time code bound to a mobile number.
// PK: mobile_number, SK: challenge_id (ULID, so newest sorts last).
// Rows are kept after use for audit; there is no TTL on the table.
type OtpChallenge struct {
	MobileNumber string     `json:"mobile_number" dynamodbav:"mobile_number"`
	ChallengeID  string     `json:"id" dynamodbav:"challenge_id"`
	CodeHash     string     `json:"-" dynamodbav:"otp_hash"`
	ExpiresAt    int64      `json:"expires_at" dynamodbav:"expires_at"` // Unix seconds
	Used         bool       `json:"used" dynamodbav:"used"`
	IPAddress    string     `json:"ip_address" dynamodbav:"ip_address"`
	VerifiedAt   *time.Time `json:"verified_at,omitempty" dynamodbav:"verified_at,omitempty"`
	CreatedAt    time.Time  `json:"created" dynamodbav:"created_at"`
}

// Valid reports whether the challenge is unconsumed and not yet expired at now.
func (c *OtpChallenge) Valid(now time.Time) bool {
	return !c.Used && c.ExpiresAt > now.Unix()
}
