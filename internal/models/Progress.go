package models

import (
	"time"

	"gorm.io/gorm"
)

const (
	StatusAttempted = "attempted"
	StatusSolved    = "solved"
)

// Progress tracks one user's state on one question.
type Progress struct {
	gorm.Model
	UserID     uint       `json:"user_id" gorm:"uniqueIndex:idx_progress_user_question"`
	QuestionID uint       `json:"question_id" gorm:"uniqueIndex:idx_progress_user_question"`
	Question   Question   `gorm:"foreignKey:QuestionID" json:"question,omitempty"`
	Status     string     `json:"status"`
	Score      int        `json:"score"`
	Attempts   int        `json:"attempts"`
	SolvedAt   *time.Time `json:"solved_at,omitempty"`
}
