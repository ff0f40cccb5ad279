package routes

import (
	"github.com/gin-gonic/gin"

	"codebuddy/internal/controllers"
	"codebuddy/internal/middleware"
	"codebuddy/internal/models"
)

type TopicRoutes struct {
	ctrl *controllers.TopicController
	auth *middleware.Auth
}

func (r TopicRoutes) Register(rg *gin.RouterGroup) {
	rg.GET("", r.ctrl.ListTopics)
	rg.GET("/:slug", r.ctrl.GetTopic)

	admin := rg.Group("")
	admin.Use(r.auth.RequireRole(models.RoleAdmin))
	{
		admin.POST("", r.ctrl.CreateTopic)
		admin.PUT("/:id", r.ctrl.UpdateTopic)
		admin.DELETE("/:id", r.ctrl.DeleteTopic)
	}
}
