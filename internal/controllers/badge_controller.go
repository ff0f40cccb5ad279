package controllers

import (
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"codebuddy/internal/middleware"
	"codebuddy/internal/models"
)

type BadgeController struct {
	db *gorm.DB
}

func NewBadgeController(db *gorm.DB) *BadgeController {
	return &BadgeController{db: db}
}

// ListBadges returns the full catalogue, easiest first.
func (bc *BadgeController) ListBadges(c *gin.Context) {
	var badges []models.Badge
	if err := bc.db.Order("threshold").Find(&badges).Error; err != nil {
		_ = c.Error(fmt.Errorf("list badges: %w", err))
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": badges})
}

func (bc *BadgeController) MyBadges(c *gin.Context) {
	var earned []models.UserBadge
	err := bc.db.Preload("Badge").Where("user_id = ?", middleware.UserID(c)).Order("awarded_at").Find(&earned).Error
	if err != nil {
		_ = c.Error(fmt.Errorf("list user badges: %w", err))
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": earned})
}

// awardBadges grants every badge whose threshold the user's solved count
// has reached and that the user does not hold yet.
func awardBadges(tx *gorm.DB, userID uint, now time.Time) ([]models.Badge, error) {
	var solved int64
	if err := tx.Model(&models.Progress{}).Where("user_id = ? AND status = ?", userID, models.StatusSolved).Count(&solved).Error; err != nil {
		return nil, err
	}

	var eligible []models.Badge
	if err := tx.Where("threshold <= ?", solved).Order("threshold").Find(&eligible).Error; err != nil {
		return nil, err
	}

	var heldIDs []uint
	if err := tx.Model(&models.UserBadge{}).Where("user_id = ?", userID).Pluck("badge_id", &heldIDs).Error; err != nil {
		return nil, err
	}
	held := make(map[uint]bool, len(heldIDs))
	for _, id := range heldIDs {
		held[id] = true
	}

	var awarded []models.Badge
	for _, badge := range eligible {
		if held[badge.ID] {
			continue
		}
		if err := tx.Create(&models.UserBadge{UserID: userID, BadgeID: badge.ID, AwardedAt: now}).Error; err != nil {
			return nil, err
		}
		awarded = append(awarded, badge)
	}
	return awarded, nil
}
