package router

import (
	sentrygin "github.com/getsentry/sentry-go/gin"
	"github.com/gin-contrib/gzip"
	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	_ "github.com/warblerhq/warbler/docs"
	"github.com/warblerhq/warbler/internal/api/handler"
	"github.com/warblerhq/warbler/internal/api/middleware"
	"github.com/warblerhq/warbler/internal/config"
	"github.com/warblerhq/warbler/internal/session"
	"github.com/warblerhq/warbler/web/template"
)

// New assembles the full route table.
func New(cfg *config.Config, h *handler.Handler, sessions *session.Manager) *gin.Engine {
	handler.RegisterFormValidators()

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(middleware.RequestLogger())
	r.Use(gzip.Gzip(gzip.DefaultCompression))
	if cfg.Tracing.Enabled {
		r.Use(otelgin.Middleware("warbler"))
	}
	if cfg.Sentry.DSN != "" {
		r.Use(sentrygin.New(sentrygin.Options{Repanic: true}))
	}

	r.SetHTMLTemplate(template.Load())
	r.Static("/static", "./web/static")
	r.Use(middleware.Session(sessions))

	r.GET("/", h.Home)

	limited := middleware.RateLimit(cfg.RateLimit.RPS, cfg.RateLimit.Burst)
	r.GET("/signup", h.SignupForm)
	r.POST("/signup", limited, h.Signup)
	r.GET("/login", h.LoginForm)
	r.POST("/login", limited, h.Login)
	r.POST("/logout", h.Logout)

	users := r.Group("/users", middleware.RequireLogin())
	{
		users.GET("", h.ListUsers)
		users.GET("/profile", h.ProfileForm)
		users.POST("/profile", h.UpdateProfile)
		users.POST("/delete", h.DeleteUser)
		users.POST("/follow/:id", h.FollowUser)
		users.POST("/stop-following/:id", h.UnfollowUser)
		users.GET("/:id", h.ShowUser)
		users.GET("/:id/following", h.Following)
		users.GET("/:id/followers", h.Followers)
		users.GET("/:id/likes", h.Likes)
	}

	messages := r.Group("/messages")
	{
		messages.GET("/:id", h.ShowMessage)

		guarded := messages.Group("", middleware.RequireLogin())
		guarded.GET("/new", h.NewMessageForm)
		guarded.POST("/new", h.CreateMessage)
		guarded.POST("/:id/delete", h.DeleteMessage)
		guarded.POST("/:id/like", h.LikeMessage)
		guarded.POST("/:id/unlike", h.UnlikeMessage)
	}

	api := r.Group("/api/v1/relations")
	{
		api.POST("/follow", h.APIFollow)
		api.POST("/unfollow", h.APIUnfollow)
		api.GET("/check", h.APICheck)
		api.GET("/:user_id/following", h.APIListFollowing)
		api.GET("/:user_id/followers", h.APIListFollowers)
	}

	r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	return r
}
