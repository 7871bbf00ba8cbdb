package domain

import "time"

type IdempotencyRecord struct {
	Key                string
	RequestFingerprint string
	ResponseBody       []byte
	CreatedAt          time.Time
	ExpiresAt          time.Time
}

// Live reports whether the record can still be replayed at the given instant.
func (r IdempotencyRecord) Live(now time.Time) bool {
	return now.Before(r.ExpiresAt)
}
