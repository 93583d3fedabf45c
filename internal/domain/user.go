package domain

import (
	"strconv"
	"time"
)

// Privilege enumerates seller tiers. Tier parameters (label, price,
// posting cooldown) live in configuration so admins can reprice them
// without a migration.
type Privilege string

const (
	PrivilegeUser        Privilege = "user"
	PrivilegeVIP         Privilege = "vip"
	PrivilegePremium     Privilege = "premium"
	PrivilegeGod         Privilege = "god"
	PrivilegeUltraSeller Privilege = "ultra_seller"
)

// User is a marketplace participant keyed by their Telegram chat id.
type User struct {
	ID             int64
	Username       string
	Privilege      Privilege
	PostsCount     int
	ReferralsCount int
	ReferrerID     *int64
	LastPostTime   *time.Time
	Banned         bool
	CreatedAt      time.Time
}

// DisplayName renders the user as @username when one is known,
// falling back to the numeric id.
func (u *User) DisplayName() string {
	if u.Username != "" && u.Username != "unknown" {
		return "@" + u.Username
	}
	return "ID: " + strconv.FormatInt(u.ID, 10)
}
