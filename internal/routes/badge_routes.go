package routes

import (
	"github.com/gin-gonic/gin"

	"codebuddy/internal/controllers"
	"codebuddy/internal/middleware"
)

type BadgeRoutes struct {
	ctrl *controllers.BadgeController
	auth *middleware.Auth
}

func (r BadgeRoutes) Register(rg *gin.RouterGroup) {
	rg.GET("", r.ctrl.ListBadges)
	rg.GET("/me", r.auth.RequireAuth(), r.ctrl.MyBadges)
}
