package routes

import (
	"github.com/gin-gonic/gin"

	"codebuddy/internal/controllers"
	"codebuddy/internal/middleware"
	"codebuddy/internal/models"
)

type QuestionRoutes struct {
	ctrl *controllers.QuestionController
	auth *middleware.Auth
}

func (r QuestionRoutes) Register(rg *gin.RouterGroup) {
	rg.GET("", r.ctrl.ListQuestions)
	rg.GET("/daily", r.ctrl.DailyQuestions)
	rg.GET("/:id", r.ctrl.GetQuestion)

	admin := rg.Group("")
	admin.Use(r.auth.RequireRole(models.RoleAdmin))
	{
		admin.POST("", r.ctrl.CreateQuestion)
		admin.PUT("/:id", r.ctrl.UpdateQuestion)
		admin.DELETE("/:id", r.ctrl.DeleteQuestion)
	}
}
