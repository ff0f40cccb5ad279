package controllers

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"codebuddy/internal/models"
)

type TopicController struct {
	db *gorm.DB
}

func NewTopicController(db *gorm.DB) *TopicController {
	return &TopicController{db: db}
}

type topicInput struct {
	Name        *string `json:"name"`
	Slug        *string `json:"slug"`
	Description *string `json:"description"`
	Position    *int    `json:"position"`
}

// ListTopics returns every topic in curriculum order.
func (tc *TopicController) ListTopics(c *gin.Context) {
	var topics []models.Topic
	if err := tc.db.Order("position, name").Find(&topics).Error; err != nil {
		_ = c.Error(fmt.Errorf("list topics: %w", err))
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": topics})
}

// GetTopic looks a topic up by slug and reports how many questions it has.
func (tc *TopicController) GetTopic(c *gin.Context) {
	var topic models.Topic
	if err := tc.db.Where("slug = ?", c.Param("slug")).First(&topic).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Topic not found"})
			return
		}
		_ = c.Error(fmt.Errorf("load topic: %w", err))
		return
	}

	var count int64
	if err := tc.db.Model(&models.Question{}).Where("topic_id = ?", topic.ID).Count(&count).Error; err != nil {
		_ = c.Error(fmt.Errorf("count questions: %w", err))
		return
	}
	c.JSON(http.StatusOK, gin.H{"topic": topic, "question_count": count})
}

func (tc *TopicController) CreateTopic(c *gin.Context) {
	var input topicInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if input.Name == nil || *input.Name == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "name is required"})
		return
	}

	topic := models.Topic{Name: *input.Name}
	applyTopicInput(&topic, input)
	if topic.Slug == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "slug cannot be derived from name"})
		return
	}

	if !tc.saveTopic(c, &topic) {
		return
	}
	c.JSON(http.StatusCreated, gin.H{"topic": topic})
}

func (tc *TopicController) UpdateTopic(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	var topic models.Topic
	if err := tc.db.First(&topic, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Topic not found"})
			return
		}
		_ = c.Error(fmt.Errorf("load topic %d: %w", id, err))
		return
	}

	var input topicInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	applyTopicInput(&topic, input)

	if !tc.saveTopic(c, &topic) {
		return
	}
	c.JSON(http.StatusOK, gin.H{"topic": topic})
}

func (tc *TopicController) DeleteTopic(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	res := tc.db.Delete(&models.Topic{}, id)
	if res.Error != nil {
		_ = c.Error(fmt.Errorf("delete topic %d: %w", id, res.Error))
		return
	}
	if res.RowsAffected == 0 {
		c.JSON(http.StatusNotFound, gin.H{"error": "Topic not found"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Topic deleted"})
}

func applyTopicInput(topic *models.Topic, input topicInput) {
	if input.Name != nil && *input.Name != "" {
		topic.Name = *input.Name
	}
	if input.Slug != nil && *input.Slug != "" {
		topic.Slug = slugify(*input.Slug)
	}
	if topic.Slug == "" {
		topic.Slug = slugify(topic.Name)
	}
	if input.Description != nil {
		topic.Description = *input.Description
	}
	if input.Position != nil {
		topic.Position = *input.Position
	}
}

// saveTopic persists topic and answers 409 when the slug is taken.
func (tc *TopicController) saveTopic(c *gin.Context, topic *models.Topic) bool {
	var clash models.Topic
	err := tc.db.Where("slug = ? AND id <> ?", topic.Slug, topic.ID).First(&clash).Error
	if err == nil {
		c.JSON(http.StatusConflict, gin.H{"error": "slug already in use"})
		return false
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		_ = c.Error(fmt.Errorf("check slug: %w", err))
		return false
	}

	if err := tc.db.Save(topic).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			c.JSON(http.StatusConflict, gin.H{"error": "slug already in use"})
			return false
		}
		_ = c.Error(fmt.Errorf("save topic: %w", err))
		return false
	}
	return true
}
