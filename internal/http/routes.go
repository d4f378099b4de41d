package http

import (
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	"github.com/tazhibayda/todo-service/internal/metrics"
)

type RouterConfig struct {
	CORSOrigins []string
	// UploadDir is served at /uploads when set (disk picture storage).
	UploadDir string
	// Service enables Datadog request spans under this name when non-empty.
	Service string
	Metrics bool
	Docs    bool
}

func NewRouter(h *Handler, rc RouterConfig) *gin.Engine {
	r := gin.New()
	r.MaxMultipartMemory = 8 << 20
	r.Use(gin.Recovery())
	r.Use(RequestID())
	if rc.Service != "" {
		r.Use(Tracing(rc.Service))
	}
	if rc.Metrics {
		r.Use(metrics.Middleware())
	}
	r.Use(AccessLog())
	if len(rc.CORSOrigins) > 0 {
		r.Use(cors.New(cors.Config{
			AllowOrigins:     rc.CORSOrigins,
			AllowMethods:     []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions},
			AllowHeaders:     []string{"Origin", "Content-Type", "Authorization", HeaderRequestID},
			ExposeHeaders:    []string{HeaderRequestID},
			AllowCredentials: true,
			MaxAge:           12 * time.Hour,
		}))
	}

	r.GET("/healthz", h.Healthz)
	r.GET("/.well-known/jwks.json", h.JWKS)
	if rc.Metrics {
		r.GET("/metrics", gin.WrapH(metrics.Handler()))
	}
	if rc.Docs {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}
	if rc.UploadDir != "" {
		r.Static("/uploads", rc.UploadDir)
	}

	api := r.Group("/api")
	auth := AuthJWT(h.Tokens)

	users := api.Group("/users")
	users.POST("/register", h.Register)
	users.POST("/login", h.Login)
	users.POST("/forgot-password", h.ForgotPassword)
	users.POST("/verify-otp", h.VerifyOTP)
	users.POST("/reset-password", h.ResetPassword)
	users.GET("/me", auth, h.Me)
	users.PUT("/me", auth, h.UpdateMe)
	users.POST("/upload-profile-pic/:id", auth, h.UploadProfilePic)
	users.POST("/set-password", auth, h.SetPassword)
	users.POST("/change-password", auth, h.ChangePassword)

	oauth := api.Group("/auth")
	oauth.POST("/google", h.GoogleAuth)
	oauth.POST("/github", h.GitHubAuth)
	oauth.POST("/facebook", h.FacebookAuth)

	todos := api.Group("/todos", auth)
	todos.POST("", h.CreateTodo)
	todos.GET("", h.ListTodos)
	todos.GET("/:id", h.GetTodo)
	todos.PUT("/:id", h.UpdateTodo)
	todos.DELETE("/:id", h.DeleteTodo)

	return r
}
