package models

import "gorm.io/gorm"

const (
	RoleStudent = "student"
	RoleAdmin   = "admin"
)

type User struct {
	gorm.Model
	Name string `json:"name"`
	// unique among rows that are not soft deleted
	Email    string `json:"email" gorm:"uniqueIndex:idx_users_email_live,where:deleted_at IS NULL;not null"`
	Password string `json:"-"`
	Role     string `json:"role" gorm:"default:student"` // "student", "admin"
	XP       int    `json:"xp"`

	Badges []UserBadge `gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE;" json:"badges,omitempty"`
}
