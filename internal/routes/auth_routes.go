package routes

import (
	"github.com/gin-gonic/gin"

	"codebuddy/internal/controllers"
	"codebuddy/internal/middleware"
)

type AuthRoutes struct {
	ctrl    *controllers.AuthController
	auth    *middleware.Auth
	limiter *middleware.RateLimiter
}

func (r AuthRoutes) Register(rg *gin.RouterGroup) {
	rg.POST("/register", r.ctrl.Register)
	if r.limiter != nil {
		rg.POST("/login", r.limiter.Middleware(), r.ctrl.Login)
	} else {
		rg.POST("/login", r.ctrl.Login)
	}
	rg.GET("/me", r.auth.RequireAuth(), r.ctrl.Me)
}
