package dynamo

// DynamoDB attribute names used in key, condition and update expressions.
// Using constants prevents silent runtime bugs caused by key typos.
const (
	fieldMobileNumber = "mobile_number"
	fieldChallengeID  = "challenge_id"
	fieldTokenHash    = "token_hash"
	fieldExpiresAt    = "expires_at"
	fieldUsed         = "used"
	fieldVerifiedAt   = "verified_at"
	fieldRevoked      = "revoked"
	fieldLastUsedAt   = "last_used_at"

	indexMobileNumber = "mobile_number-index"
)
