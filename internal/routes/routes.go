package routes

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"codebuddy/internal/controllers"
	"codebuddy/internal/middleware"
)

// Collection is a group of handlers mountable under a prefix.
type Collection interface {
	Register(rg *gin.RouterGroup)
}

// Mount pairs a prefix with its collection.
type Mount struct {
	Prefix     string
	Collection Collection
}

// Deps are the shared services every collection is built from.
type Deps struct {
	DB            *gorm.DB
	Auth          *middleware.Auth
	LoginLimiter  *middleware.RateLimiter
	Hub           *controllers.InterviewHub
	AllowedOrigin string
	Log           logrus.FieldLogger
	Now           func() time.Time
}

// Collections returns the API route collections in mount order.
func Collections(d Deps) []Mount {
	return []Mount{
		{"/api/auth", AuthRoutes{ctrl: controllers.NewAuthController(d.DB, d.Auth), auth: d.Auth, limiter: d.LoginLimiter}},
		{"/api/users", UserRoutes{ctrl: controllers.NewUserController(d.DB), auth: d.Auth}},
		{"/api/topics", TopicRoutes{ctrl: controllers.NewTopicController(d.DB), auth: d.Auth}},
		{"/api/questions", QuestionRoutes{ctrl: controllers.NewQuestionController(d.DB, d.Now), auth: d.Auth}},
		{"/api/progress", ProgressRoutes{ctrl: controllers.NewProgressController(d.DB, d.Now), auth: d.Auth}},
		{"/api/badges", BadgeRoutes{ctrl: controllers.NewBadgeController(d.DB), auth: d.Auth}},
		{"/api/voice-interview", VoiceInterviewRoutes{
			ctrl: controllers.NewVoiceInterviewController(d.DB, d.Auth, d.Hub, d.AllowedOrigin, d.Log, d.Now),
			auth: d.Auth,
		}},
	}
}
