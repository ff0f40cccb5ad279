package controllers

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"codebuddy/internal/models"
)

const (
	defaultPageSize = 50
	maxPageSize     = 100
)

type QuestionController struct {
	db  *gorm.DB
	now func() time.Time
}

func NewQuestionController(db *gorm.DB, now func() time.Time) *QuestionController {
	if now == nil {
		now = time.Now
	}
	return &QuestionController{db: db, now: now}
}

type questionInput struct {
	TopicID    *uint   `json:"topic_id"`
	Title      *string `json:"title"`
	Prompt     *string `json:"prompt"`
	Difficulty *string `json:"difficulty"`
	Hint       *string `json:"hint"`
	Solution   *string `json:"solution"`
	Keywords   *string `json:"keywords"`
}

// ListQuestions supports ?topic_id=, ?difficulty=, ?limit= and ?page=.
func (qc *QuestionController) ListQuestions(c *gin.Context) {
	topicID := c.Query("topic_id")
	difficulty := c.Query("difficulty")
	if difficulty != "" && !models.ValidDifficulty(difficulty) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid difficulty"})
		return
	}
	filter := func(db *gorm.DB) *gorm.DB {
		if topicID != "" {
			db = db.Where("topic_id = ?", topicID)
		}
		if difficulty != "" {
			db = db.Where("difficulty = ?", difficulty)
		}
		return db
	}

	limit := boundedInt(c.Query("limit"), defaultPageSize, 1, maxPageSize)
	page := boundedInt(c.Query("page"), 1, 1, 1<<20)

	var total int64
	if err := qc.db.Model(&models.Question{}).Scopes(filter).Count(&total).Error; err != nil {
		_ = c.Error(fmt.Errorf("count questions: %w", err))
		return
	}

	var questions []models.Question
	err := qc.db.Scopes(filter).Order("id").Limit(limit).Offset((page - 1) * limit).Find(&questions).Error
	if err != nil {
		_ = c.Error(fmt.Errorf("list questions: %w", err))
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"data":  publicQuestions(questions),
		"total": total,
		"page":  page,
		"limit": limit,
	})
}

// DailyQuestions returns today's picks as set by the daily scheduler.
func (qc *QuestionController) DailyQuestions(c *gin.Context) {
	day := models.DayKey(qc.now())

	var daily []models.DailyQuestion
	if err := qc.db.Preload("Question").Where("day = ?", day).Order("topic_id").Find(&daily).Error; err != nil {
		_ = c.Error(fmt.Errorf("load daily questions: %w", err))
		return
	}

	questions := make([]models.Question, 0, len(daily))
	for _, d := range daily {
		if d.Question.ID != 0 {
			questions = append(questions, publicQuestion(d.Question))
		}
	}
	c.JSON(http.StatusOK, gin.H{"day": day, "questions": questions})
}

func (qc *QuestionController) GetQuestion(c *gin.Context) {
	question, ok := qc.loadQuestion(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, gin.H{"question": publicQuestion(question)})
}

func (qc *QuestionController) CreateQuestion(c *gin.Context) {
	var input questionInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if input.TopicID == nil || input.Title == nil || *input.Title == "" || input.Prompt == nil || *input.Prompt == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "topic_id, title and prompt are required"})
		return
	}

	question := models.Question{Difficulty: models.DifficultyEasy}
	if !qc.applyInput(c, &question, input) {
		return
	}
	if err := qc.db.Create(&question).Error; err != nil {
		_ = c.Error(fmt.Errorf("create question: %w", err))
		return
	}
	c.JSON(http.StatusCreated, gin.H{"question": question})
}

func (qc *QuestionController) UpdateQuestion(c *gin.Context) {
	question, ok := qc.loadQuestion(c)
	if !ok {
		return
	}
	var input questionInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if !qc.applyInput(c, &question, input) {
		return
	}
	if err := qc.db.Save(&question).Error; err != nil {
		_ = c.Error(fmt.Errorf("save question: %w", err))
		return
	}
	c.JSON(http.StatusOK, gin.H{"question": question})
}

func (qc *QuestionController) DeleteQuestion(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	res := qc.db.Delete(&models.Question{}, id)
	if res.Error != nil {
		_ = c.Error(fmt.Errorf("delete question %d: %w", id, res.Error))
		return
	}
	if res.RowsAffected == 0 {
		c.JSON(http.StatusNotFound, gin.H{"error": "Question not found"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Question deleted"})
}

func (qc *QuestionController) loadQuestion(c *gin.Context) (models.Question, bool) {
	id, ok := paramID(c, "id")
	if !ok {
		return models.Question{}, false
	}
	var question models.Question
	if err := qc.db.First(&question, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Question not found"})
			return models.Question{}, false
		}
		_ = c.Error(fmt.Errorf("load question %d: %w", id, err))
		return models.Question{}, false
	}
	return question, true
}

func (qc *QuestionController) applyInput(c *gin.Context, q *models.Question, input questionInput) bool {
	if input.TopicID != nil {
		var topic models.Topic
		if err := qc.db.First(&topic, *input.TopicID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				c.JSON(http.StatusBadRequest, gin.H{"error": "topic does not exist"})
				return false
			}
			_ = c.Error(fmt.Errorf("load topic: %w", err))
			return false
		}
		q.TopicID = topic.ID
	}
	if input.Difficulty != nil {
		if !models.ValidDifficulty(*input.Difficulty) {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid difficulty"})
			return false
		}
		q.Difficulty = *input.Difficulty
	}
	if input.Title != nil && *input.Title != "" {
		q.Title = *input.Title
	}
	if input.Prompt != nil && *input.Prompt != "" {
		q.Prompt = *input.Prompt
	}
	if input.Hint != nil {
		q.Hint = *input.Hint
	}
	if input.Solution != nil {
		q.Solution = *input.Solution
	}
	if input.Keywords != nil {
		q.Keywords = *input.Keywords
	}
	return true
}

func boundedInt(raw string, def, lo, hi int) int {
	v, err := strconv.Atoi(raw)
	if err != nil {
		return def
	}
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
