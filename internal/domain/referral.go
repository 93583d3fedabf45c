package domain

import "time"

// Referral records that ReferredID joined via ReferrerID's invite link.
// ReferredID is unique: a user can be referred at most once.
type Referral struct {
	ID         int64
	ReferrerID int64
	ReferredID int64
	CreatedAt  time.Time
}
