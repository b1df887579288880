package schema

var (
	// bucket
	ReferralBucket = "referral-bucket" // key: PendingRefCodeKey, val: refCode string

	PendingRefCodeKey = "pending-ref-code"
)
