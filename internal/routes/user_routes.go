package routes

import (
	"github.com/gin-gonic/gin"

	"codebuddy/internal/controllers"
	"codebuddy/internal/middleware"
	"codebuddy/internal/models"
)

type UserRoutes struct {
	ctrl *controllers.UserController
	auth *middleware.Auth
}

func (r UserRoutes) Register(rg *gin.RouterGroup) {
	rg.Use(r.auth.RequireAuth())
	{
		rg.GET("", r.auth.RequireRole(models.RoleAdmin), r.ctrl.ListUsers)
		rg.PUT("/profile", r.ctrl.UpdateProfile)
		rg.GET("/:id", r.ctrl.GetUser)
		rg.DELETE("/:id", r.auth.RequireRole(models.RoleAdmin), r.ctrl.DeleteUser)
	}
}
