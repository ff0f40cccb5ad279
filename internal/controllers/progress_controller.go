package controllers

import (
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"codebuddy/internal/middleware"
	"codebuddy/internal/models"
)

var errQuestionNotFound = errors.New("question not found")

// xpByDifficulty is granted once per question, on first solve.
var xpByDifficulty = map[string]int{
	models.DifficultyEasy:   10,
	models.DifficultyMedium: 20,
	models.DifficultyHard:   30,
}

type ProgressController struct {
	db  *gorm.DB
	now func() time.Time
}

func NewProgressController(db *gorm.DB, now func() time.Time) *ProgressController {
	if now == nil {
		now = time.Now
	}
	return &ProgressController{db: db, now: now}
}

type progressInput struct {
	QuestionID uint   `json:"question_id" binding:"required"`
	Status     string `json:"status" binding:"required,oneof=attempted solved"`
	Score      int    `json:"score" binding:"min=0,max=100"`
}

type topicSolved struct {
	TopicID uint  `json:"topic_id"`
	Solved  int64 `json:"solved"`
}

// RecordProgress upserts the caller's progress on a question. A solved
// question never goes back to attempted and the best score is kept.
func (pc *ProgressController) RecordProgress(c *gin.Context) {
	var input progressInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	userID := middleware.UserID(c)

	var (
		progress  models.Progress
		newBadges []models.Badge
	)
	err := pc.db.Transaction(func(tx *gorm.DB) error {
		var question models.Question
		if err := tx.First(&question, input.QuestionID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return errQuestionNotFound
			}
			return err
		}

		err := tx.Where("user_id = ? AND question_id = ?", userID, question.ID).First(&progress).Error
		if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
			return err
		}
		if progress.ID == 0 {
			progress = models.Progress{UserID: userID, QuestionID: question.ID, Status: models.StatusAttempted}
		}

		progress.Attempts++
		if input.Score > progress.Score {
			progress.Score = input.Score
		}

		firstSolve := input.Status == models.StatusSolved && progress.Status != models.StatusSolved
		if firstSolve {
			now := pc.now()
			progress.Status = models.StatusSolved
			progress.SolvedAt = &now
		}
		if err := tx.Save(&progress).Error; err != nil {
			return err
		}

		if !firstSolve {
			return nil
		}
		if err := tx.Model(&models.User{}).Where("id = ?", userID).
			UpdateColumn("xp", gorm.Expr("xp + ?", xpByDifficulty[question.Difficulty])).Error; err != nil {
			return err
		}
		newBadges, err = awardBadges(tx, userID, pc.now())
		return err
	})
	if err != nil {
		if errors.Is(err, errQuestionNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Question not found"})
			return
		}
		_ = c.Error(fmt.Errorf("record progress: %w", err))
		return
	}

	if newBadges == nil {
		newBadges = []models.Badge{}
	}
	c.JSON(http.StatusOK, gin.H{"progress": progress, "new_badges": newBadges})
}

func (pc *ProgressController) ListProgress(c *gin.Context) {
	var entries []models.Progress
	err := pc.db.Preload("Question").Where("user_id = ?", middleware.UserID(c)).Order("updated_at desc").Find(&entries).Error
	if err != nil {
		_ = c.Error(fmt.Errorf("list progress: %w", err))
		return
	}
	for i := range entries {
		entries[i].Question = publicQuestion(entries[i].Question)
	}
	c.JSON(http.StatusOK, gin.H{"data": entries})
}

// Summary aggregates solved and attempted counts, per-topic solves and xp.
func (pc *ProgressController) Summary(c *gin.Context) {
	userID := middleware.UserID(c)

	var user models.User
	if err := pc.db.First(&user, userID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "user not found"})
			return
		}
		_ = c.Error(fmt.Errorf("load user: %w", err))
		return
	}

	// progress on deleted questions drops out of every count
	var solved, attempted int64
	if err := pc.liveProgress(userID, models.StatusSolved).Count(&solved).Error; err != nil {
		_ = c.Error(fmt.Errorf("count solved: %w", err))
		return
	}
	if err := pc.liveProgress(userID, models.StatusAttempted).Count(&attempted).Error; err != nil {
		_ = c.Error(fmt.Errorf("count attempted: %w", err))
		return
	}

	byTopic := []topicSolved{}
	err := pc.liveProgress(userID, models.StatusSolved).
		Select("questions.topic_id AS topic_id, COUNT(*) AS solved").
		Group("questions.topic_id").
		Order("questions.topic_id").
		Scan(&byTopic).Error
	if err != nil {
		_ = c.Error(fmt.Errorf("aggregate by topic: %w", err))
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"solved":    solved,
		"attempted": attempted,
		"xp":        user.XP,
		"by_topic":  byTopic,
	})
}

func (pc *ProgressController) liveProgress(userID uint, status string) *gorm.DB {
	return pc.db.Model(&models.Progress{}).
		Joins("JOIN questions ON questions.id = progresses.question_id AND questions.deleted_at IS NULL").
		Where("progresses.user_id = ? AND progresses.status = ?", userID, status)
}
