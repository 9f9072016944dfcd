package routes

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-contrib/cors"
	ginzap "github.com/gin-contrib/zap"
	"github.com/gin-gonic/gin"

	"github.com/cppla/blogapi/config"
	"github.com/cppla/blogapi/controllers"
	"github.com/cppla/blogapi/middleware"
	"github.com/cppla/blogapi/store"
	"github.com/cppla/blogapi/uploads"
	"github.com/cppla/blogapi/utils"
)

// UploadURLPrefix is where the local upload backend's files are served.
const UploadURLPrefix = "/uploads"

// Deps are the services the HTTP layer needs.
type Deps struct {
	Users     store.UserStore
	Blogs     store.BlogStore
	Tokens    *utils.TokenService
	Uploads   uploads.Storage
	Cache     *utils.Cache
	Blacklist *utils.TokenBlacklist
}

// SetupRouter wires routes, middlewares, and controllers.
func SetupRouter(cfg config.AppConfig, deps Deps) *gin.Engine {
	switch strings.ToLower(cfg.GinMode) {
	case "debug":
		gin.SetMode(gin.DebugMode)
	case "test":
		gin.SetMode(gin.TestMode)
	default:
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	// Access log goes to its own rolling file
	gl, err := utils.NewRollingFileLogger(cfg.GinPath, cfg.LogLevel, cfg.LogMaxSizeMB, cfg.LogMaxBackups, cfg.LogMaxAgeDays, cfg.LogCompress)
	if err == nil {
		r.Use(ginzap.Ginzap(gl, time.RFC3339, true))
		r.Use(ginzap.RecoveryWithZap(gl, false))
	} else {
		r.Use(gin.Recovery())
	}
	r.MaxMultipartMemory = int64(max(cfg.MaxUploadMB, 1)) << 20

	corsCfg := cors.Config{
		AllowMethods:     []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Authorization", "Content-Type"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}
	if len(cfg.AllowedOrigins) == 0 || (len(cfg.AllowedOrigins) == 1 && cfg.AllowedOrigins[0] == "*") {
		corsCfg.AllowAllOrigins = true
		corsCfg.AllowCredentials = false
	} else {
		corsCfg.AllowOrigins = cfg.AllowedOrigins
	}
	r.Use(cors.New(corsCfg))

	if local, ok := deps.Uploads.(*uploads.LocalStorage); ok {
		r.Static(UploadURLPrefix, local.Root())
	}

	r.GET("/health", func(ctx *gin.Context) {
		utils.Success(ctx, gin.H{"status": "ok"})
	})

	authRequired := middleware.AuthRequired(deps.Tokens, deps.Users, deps.Blacklist)
	authController := controllers.NewAuthController(deps.Users, deps.Tokens, deps.Uploads, deps.Blacklist)
	blogController := controllers.NewBlogController(deps.Blogs, deps.Users, deps.Uploads, deps.Cache, controllers.BlogOptions{
		TrendingMinLikes:       cfg.TrendingMinLikes,
		EnforceDeleteOwnership: cfg.EnforceDeleteOwnership,
	})

	api := r.Group("/api")

	authGroup := api.Group("/auth")
	authGroup.Use(middleware.RateLimitMiddleware(cfg.RateLimitPerMinute))
	authGroup.POST("/signup", authController.Signup)
	authGroup.POST("/login", authController.Login)
	authGroup.POST("/logout", authRequired, authController.Logout)
	authGroup.GET("/me", authRequired, authController.Me)

	blogs := api.Group("/blogs")
	blogs.GET("/all", blogController.ListBlogs)
	blogs.GET("/trending", blogController.ListTrending)
	blogs.GET("/:id/comments", blogController.ListComments)
	blogs.POST("/create", authRequired, blogController.CreateBlog)
	blogs.POST("/:id/like", authRequired, blogController.ToggleLike)
	blogs.POST("/:id/comment", authRequired, blogController.AddComment)
	blogs.DELETE("/:id", authRequired, blogController.DeleteBlog)

	r.NoRoute(func(ctx *gin.Context) {
		if strings.HasPrefix(ctx.Request.URL.Path, "/api/") {
			utils.Error(ctx, http.StatusNotFound, 40400, "api route not found")
			return
		}
		utils.Error(ctx, http.StatusNotFound, 40400, "not found")
	})

	return r
}
