package models

import (
	"strings"
	"time"

	"gorm.io/gorm"
)

const (
	DifficultyEasy   = "easy"
	DifficultyMedium = "medium"
	DifficultyHard   = "hard"
)

type Question struct {
	gorm.Model
	TopicID    uint   `json:"topic_id" gorm:"index"`
	Title      string `json:"title"`
	Prompt     string `json:"prompt"`
	Difficulty string `json:"difficulty" gorm:"index"`
	Hint       string `json:"hint,omitempty"`
	Solution   string `json:"solution,omitempty"`
	// Keywords is a comma separated list used to score spoken answers.
	Keywords string `json:"keywords,omitempty"`
}

// KeywordList returns the normalised, non-empty keywords.
func (q Question) KeywordList() []string {
	var out []string
	for _, k := range strings.Split(q.Keywords, ",") {
		k = strings.ToLower(strings.TrimSpace(k))
		if k != "" {
			out = append(out, k)
		}
	}
	return out
}

// ValidDifficulty reports whether d is one of the known levels.
func ValidDifficulty(d string) bool {
	switch d {
	case DifficultyEasy, DifficultyMedium, DifficultyHard:
		return true
	}
	return false
}

// DailyQuestion marks a question as the pick of the day for its topic.
type DailyQuestion struct {
	gorm.Model
	Day        string   `json:"day" gorm:"uniqueIndex:idx_daily_day_question;size:10"` // YYYY-MM-DD
	TopicID    uint     `json:"topic_id" gorm:"index"`
	QuestionID uint     `json:"question_id" gorm:"uniqueIndex:idx_daily_day_question"`
	Question   Question `gorm:"foreignKey:QuestionID" json:"question"`
}

// DayKey formats t as the UTC calendar day used by DailyQuestion.
func DayKey(t time.Time) string {
	return t.UTC().Format("2006-01-02")
}
