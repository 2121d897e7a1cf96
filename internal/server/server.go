package server

import (
	"context"
	"log"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"github.com/emilythestrangee/campus-forum/backend/internal/auth"
	"github.com/emilythestrangee/campus-forum/backend/internal/config"
	"github.com/emilythestrangee/campus-forum/backend/internal/database"
	"github.com/emilythestrangee/campus-forum/backend/internal/forum"
	"github.com/emilythestrangee/campus-forum/backend/internal/handlers"
	"github.com/emilythestrangee/campus-forum/backend/internal/loader"
	"github.com/emilythestrangee/campus-forum/backend/internal/middleware"
	"github.com/emilythestrangee/campus-forum/backend/internal/storage"
)

type Server struct {
	cfg      *config.Config
	store    storage.Store
	accounts *auth.Service
	handler  *handlers.Handler
	limiter  *middleware.IPRateLimiter
}

func New(cfg *config.Config, store storage.Store) *Server {
	accounts := auth.NewService(store, auth.NewTokens(cfg.JWTSecret))
	return &Server{
		cfg:      cfg,
		store:    store,
		accounts: accounts,
		handler:  handlers.NewHandler(forum.NewService(store), accounts, store),
		limiter:  middleware.NewIPRateLimiter(cfg.RateRPS, cfg.RateBurst),
	}
}

const (
	limiterSweepInterval = 10 * time.Minute
	limiterIdleTTL       = 10 * time.Minute
)

// SweepLimiters drops idle per-IP rate limiters until ctx is done.
func (s *Server) SweepLimiters(ctx context.Context) {
	s.limiter.Sweep(ctx, limiterSweepInterval, limiterIdleTTL)
}

// HTTPServer wraps the router in an http.Server listening on cfg.Port.
func (s *Server) HTTPServer() *http.Server {
	log.Printf("🚀 Server starting on port %s", s.cfg.Port)
	return &http.Server{
		Addr:         "0.0.0.0:" + s.cfg.Port,
		Handler:      s.RegisterRoutes(),
		IdleTimeout:  time.Minute,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
	}
}

// RegisterRoutes sets up all application routes
func (s *Server) RegisterRoutes() *gin.Engine {
	if !s.cfg.IsDevelopment() {
		gin.SetMode(gin.ReleaseMode)
	}
	r := gin.New()
	if err := r.SetTrustedProxies(s.cfg.TrustedProxies); err != nil {
		log.Printf("Ignoring TRUSTED_PROXIES: %v", err)
		_ = r.SetTrustedProxies(nil)
	}
	r.Use(middleware.RequestID(), gin.Logger(), gin.Recovery())

	// CORS configuration
	r.Use(cors.New(s.corsConfig()))

	r.GET("/health", func(c *gin.Context) {
		stats := database.Health(c.Request.Context(), s.store)
		status := http.StatusOK
		if stats["status"] != "up" {
			status = http.StatusServiceUnavailable
		}
		c.JSON(status, stats)
	})

	requireAuth := middleware.AuthMiddleware(s.accounts)
	limit := middleware.RateLimit(s.limiter)

	api := r.Group("/api")
	api.Use(loader.Middleware(s.store))
	{
		// Auth routes (public)
		api.POST("/register", limit, s.handler.Auth.Register)
		api.POST("/login", limit, s.handler.Auth.Login)
		api.GET("/me", requireAuth, s.handler.Auth.GetMe)

		// User routes (public reads)
		api.GET("/users/:id", s.handler.User.GetUserProfile)
		api.GET("/users/:id/posts", s.handler.User.GetUserPosts)

		posts := api.Group("/posts")
		{
			posts.GET("", s.handler.Post.GetPosts)
			posts.GET("/trending", s.handler.Post.GetTrending)
			posts.GET("/search", s.handler.Post.SearchPosts)
			posts.GET("/user", requireAuth, s.handler.Post.GetMyPosts)
			posts.GET("/:id", s.handler.Post.GetPost)
			posts.GET("/:id/comments", s.handler.Comment.GetComments)

			protected := posts.Group("", requireAuth, limit)
			protected.POST("", s.handler.Post.CreatePost)
			protected.PUT("/:id", s.handler.Post.UpdatePost)
			protected.DELETE("/:id", s.handler.Post.DeletePost)
			protected.POST("/:id/like", s.handler.Post.LikePost)

			protected.POST("/comments", s.handler.Comment.CreateComment)
			protected.PUT("/comments/:id", s.handler.Comment.UpdateComment)
			protected.DELETE("/comments/:id", s.handler.Comment.DeleteComment)
			protected.POST("/comments/:id/like", s.handler.Comment.LikeComment)
		}
	}

	return r
}

func (s *Server) corsConfig() cors.Config {
	cfg := cors.Config{
		AllowMethods:  []string{"GET", "POST", "PUT", "DELETE", "OPTIONS", "PATCH"},
		AllowHeaders:  []string{"Accept", "Authorization", "Content-Type", "X-Requested-With", middleware.RequestIDHeader},
		ExposeHeaders: []string{"Content-Length", middleware.RequestIDHeader},
		MaxAge:        12 * time.Hour,
	}
	if len(s.cfg.CORSOrigins) == 1 && s.cfg.CORSOrigins[0] == "*" {
		cfg.AllowAllOrigins = true
	} else {
		cfg.AllowOrigins = s.cfg.CORSOrigins
		cfg.AllowCredentials = true
	}
	return cfg
}
