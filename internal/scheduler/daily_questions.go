package scheduler

import (
	"context"
	"fmt"
	"time"

	"gorm.io/gorm"

	"codebuddy/internal/models"
)

const DailyQuestionsJob = "daily-questions"

// DailyQuestions picks perTopic random questions for every topic and
// replaces the current day's selection. Running it twice on the same day
// reshuffles the picks.
func DailyQuestions(db *gorm.DB, perTopic int, now func() time.Time) Job {
	if perTopic <= 0 {
		perTopic = 1
	}
	if now == nil {
		now = time.Now
	}
	return func(ctx context.Context) error {
		day := models.DayKey(now())

		return db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
			if err := tx.Unscoped().Where("day = ?", day).Delete(&models.DailyQuestion{}).Error; err != nil {
				return fmt.Errorf("clear daily questions for %s: %w", day, err)
			}

			var topics []models.Topic
			if err := tx.Order("id").Find(&topics).Error; err != nil {
				return fmt.Errorf("list topics: %w", err)
			}

			for _, topic := range topics {
				var picks []models.Question
				if err := tx.Where("topic_id = ?", topic.ID).Order("RANDOM()").Limit(perTopic).Find(&picks).Error; err != nil {
					return fmt.Errorf("pick questions for topic %d: %w", topic.ID, err)
				}
				for _, q := range picks {
					daily := models.DailyQuestion{Day: day, TopicID: topic.ID, QuestionID: q.ID}
					if err := tx.Create(&daily).Error; err != nil {
						return fmt.Errorf("save daily question %d: %w", q.ID, err)
					}
				}
			}
			return nil
		})
	}
}
