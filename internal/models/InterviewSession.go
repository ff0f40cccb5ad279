package models

import (
	"time"

	"gorm.io/gorm"
)

const (
	InterviewActive    = "active"
	InterviewCompleted = "completed"
)

// InterviewSession is one mock voice interview. Questions are picked when
// the session starts and answered as transcripts.
type InterviewSession struct {
	gorm.Model
	UserID      uint       `json:"user_id" gorm:"index"`
	TopicID     uint       `json:"topic_id"`
	Status      string     `json:"status"`
	QuestionIDs string     `json:"-"` // comma separated, in asking order
	StartedAt   time.Time  `json:"started_at"`
	EndedAt     *time.Time `json:"ended_at,omitempty"`
	Score       int        `json:"score"`

	Questions []Question          `gorm:"-" json:"questions,omitempty"`
	Responses []InterviewResponse `gorm:"foreignKey:SessionID;constraint:OnDelete:CASCADE;" json:"responses,omitempty"`
}

type InterviewResponse struct {
	gorm.Model
	SessionID  uint   `json:"session_id" gorm:"index"`
	QuestionID uint   `json:"question_id"`
	Transcript string `json:"transcript"`
	Score      int    `json:"score"`
	Feedback   string `json:"feedback"`
}
