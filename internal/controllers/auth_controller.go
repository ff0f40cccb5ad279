package controllers

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"codebuddy/internal/middleware"
	"codebuddy/internal/models"
)

type AuthController struct {
	db   *gorm.DB
	auth *middleware.Auth
}

func NewAuthController(db *gorm.DB, auth *middleware.Auth) *AuthController {
	return &AuthController{db: db, auth: auth}
}

type registerInput struct {
	Name     string `json:"name" binding:"required"`
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required,min=6"`
}

// Register creates a student account and returns a token for it.
func (ac *AuthController) Register(c *gin.Context) {
	var input registerInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	email := normalizeEmail(input.Email)

	var existing models.User
	err := ac.db.Where("email = ?", email).First(&existing).Error
	if err == nil {
		c.JSON(http.StatusConflict, gin.H{"error": "email already in use"})
		return
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		_ = c.Error(fmt.Errorf("lookup user: %w", err))
		return
	}

	hashed, err := hashPassword(input.Password)
	if err != nil {
		_ = c.Error(fmt.Errorf("hash password: %w", err))
		return
	}

	user := models.User{
		Name:     input.Name,
		Email:    email,
		Password: hashed,
		Role:     models.RoleStudent,
	}
	if err := ac.db.Create(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			c.JSON(http.StatusConflict, gin.H{"error": "email already in use"})
			return
		}
		_ = c.Error(fmt.Errorf("create user: %w", err))
		return
	}

	ac.respondWithToken(c, http.StatusCreated, user)
}

func (ac *AuthController) Login(c *gin.Context) {
	var body struct {
		Email    string `json:"email" binding:"required,email"`
		Password string `json:"password" binding:"required"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	var user models.User
	if err := ac.db.Where("email = ?", normalizeEmail(body.Email)).First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid email or password"})
			return
		}
		_ = c.Error(fmt.Errorf("lookup user: %w", err))
		return
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(body.Password)); err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid email or password"})
		return
	}

	ac.respondWithToken(c, http.StatusOK, user)
}

// Me returns the authenticated user with earned badges.
func (ac *AuthController) Me(c *gin.Context) {
	var user models.User
	err := ac.db.Preload("Badges.Badge").First(&user, middleware.UserID(c)).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "user not found"})
			return
		}
		_ = c.Error(fmt.Errorf("load user: %w", err))
		return
	}
	c.JSON(http.StatusOK, gin.H{"user": user})
}

func (ac *AuthController) respondWithToken(c *gin.Context, status int, user models.User) {
	token, err := ac.auth.GenerateToken(user.ID, user.Role)
	if err != nil {
		_ = c.Error(fmt.Errorf("generate token: %w", err))
		return
	}
	c.JSON(status, gin.H{
		"token": token,
		"user":  user,
	})
}
