package models

import (
	"time"

	"gorm.io/gorm"
)

// Badge is awarded once a user has solved Threshold questions.
type Badge struct {
	gorm.Model
	Code        string `json:"code" gorm:"uniqueIndex;not null"`
	Name        string `json:"name"`
	Description string `json:"description"`
	Threshold   int    `json:"threshold"`
}

type UserBadge struct {
	gorm.Model
	UserID    uint      `json:"user_id" gorm:"uniqueIndex:idx_user_badge"`
	BadgeID   uint      `json:"badge_id" gorm:"uniqueIndex:idx_user_badge"`
	Badge     Badge     `gorm:"foreignKey:BadgeID" json:"badge"`
	AwardedAt time.Time `json:"awarded_at"`
}

// DefaultBadges is the catalogue seeded on every migration.
func DefaultBadges() []Badge {
	return []Badge{
		{Code: "first-solve", Name: "First Steps", Description: "Solve your first question", Threshold: 1},
		{Code: "ten-solves", Name: "Getting Warm", Description: "Solve 10 questions", Threshold: 10},
		{Code: "fifty-solves", Name: "Problem Crusher", Description: "Solve 50 questions", Threshold: 50},
		{Code: "hundred-solves", Name: "Centurion", Description: "Solve 100 questions", Threshold: 100},
	}
}
