package controllers

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"codebuddy/internal/middleware"
	"codebuddy/internal/models"
)

type UserController struct {
	db *gorm.DB
}

func NewUserController(db *gorm.DB) *UserController {
	return &UserController{db: db}
}

// ListUsers is for administrative use.
func (uc *UserController) ListUsers(c *gin.Context) {
	var users []models.User
	if err := uc.db.Order("id").Find(&users).Error; err != nil {
		_ = c.Error(fmt.Errorf("list users: %w", err))
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": users})
}

// GetUser lets users read their own record; admins can read anyone.
func (uc *UserController) GetUser(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	if id != middleware.UserID(c) && middleware.Role(c) != models.RoleAdmin {
		c.JSON(http.StatusForbidden, gin.H{"error": "Insufficient permissions"})
		return
	}

	var user models.User
	if err := uc.db.Preload("Badges.Badge").First(&user, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "user not found"})
			return
		}
		_ = c.Error(fmt.Errorf("load user %d: %w", id, err))
		return
	}
	c.JSON(http.StatusOK, gin.H{"user": user})
}

func (uc *UserController) UpdateProfile(c *gin.Context) {
	var input struct {
		Name     *string `json:"name"`
		Password *string `json:"password"`
	}
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	var user models.User
	if err := uc.db.First(&user, middleware.UserID(c)).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "user not found"})
			return
		}
		_ = c.Error(fmt.Errorf("load user: %w", err))
		return
	}

	if input.Name != nil {
		if *input.Name == "" {
			c.JSON(http.StatusBadRequest, gin.H{"error": "name cannot be empty"})
			return
		}
		user.Name = *input.Name
	}
	if input.Password != nil {
		if len(*input.Password) < minPasswordLength {
			c.JSON(http.StatusBadRequest, gin.H{"error": "password must be at least 6 characters"})
			return
		}
		hashed, err := hashPassword(*input.Password)
		if err != nil {
			_ = c.Error(fmt.Errorf("hash password: %w", err))
			return
		}
		user.Password = hashed
	}

	if err := uc.db.Save(&user).Error; err != nil {
		_ = c.Error(fmt.Errorf("save user: %w", err))
		return
	}
	c.JSON(http.StatusOK, gin.H{"user": user})
}

func (uc *UserController) DeleteUser(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	res := uc.db.Delete(&models.User{}, id)
	if res.Error != nil {
		_ = c.Error(fmt.Errorf("delete user %d: %w", id, res.Error))
		return
	}
	if res.RowsAffected == 0 {
		c.JSON(http.StatusNotFound, gin.H{"error": "user not found"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "User deleted"})
}
