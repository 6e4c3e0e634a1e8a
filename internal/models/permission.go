package models

import "time"

const (
	PermBanAccount    = "customercare.ban_account"
	PermIgnoreAccount = "customercare.ignore_account"
	PermViewDashboard = "wiki.view_dashboard"
)

// UserPermission grants one permission codename to a caller identity.
type UserPermission struct {
	ID        uint      `gorm:"primaryKey"`
	UserID    string    `gorm:"uniqueIndex:idx_user_permission;size:128;not null"`
	Codename  string    `gorm:"uniqueIndex:idx_user_permission;size:100;not null"`
	CreatedAt time.Time
}
