package server

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/emilythestrangee/ai-forum/backend/internal/config"
	"github.com/emilythestrangee/ai-forum/backend/internal/content"
	"github.com/emilythestrangee/ai-forum/backend/internal/database"
	"github.com/emilythestrangee/ai-forum/backend/internal/handlers"
	"github.com/emilythestrangee/ai-forum/backend/internal/logging"
	"github.com/emilythestrangee/ai-forum/backend/internal/metrics"
	"github.com/emilythestrangee/ai-forum/backend/internal/middleware"
	"github.com/emilythestrangee/ai-forum/backend/internal/upload"
	"github.com/emilythestrangee/ai-forum/backend/internal/voting"
)

type Server struct {
	cfg     *config.Config
	db      database.Service
	auth    *middleware.Auth
	metrics *metrics.Recorder
	handler *handlers.Handler
	logger  *zap.Logger
}

// New wires the forum services on top of an open database.
func New(ctx context.Context, cfg *config.Config, db database.Service, logger *zap.Logger) (*Server, error) {
	gen, err := content.FromConfig(ctx, cfg, logger)
	if err != nil {
		return nil, err
	}
	uploader, err := upload.FromConfig(ctx, cfg, logger)
	if err != nil {
		return nil, err
	}
	return newServer(cfg, db, gen, uploader, logger), nil
}

func newServer(cfg *config.Config, db database.Service, gen *content.Service, uploader *upload.Uploader, logger *zap.Logger) *Server {
	recorder := metrics.New()
	store := database.NewVoteStore(db.GetDB())
	votes := voting.NewService(store, logger.Named("voting"),
		voting.WithObserver(recorder),
		voting.WithMaxAttempts(cfg.VoteMaxAttempts),
	)
	auth := middleware.NewAuth(cfg.JWTSecret, cfg.TokenTTL, cfg.CookieSecure)

	return &Server{
		cfg:     cfg,
		db:      db,
		auth:    auth,
		metrics: recorder,
		logger:  logger,
		handler: handlers.NewHandler(handlers.Deps{
			DB:       db.GetDB(),
			Votes:    votes,
			Store:    store,
			Auth:     auth,
			Content:  gen,
			Uploader: uploader,
			Logger:   logger,
		}),
	}
}

// HTTPServer creates the http.Server for the forum API.
func (s *Server) HTTPServer() *http.Server {
	return &http.Server{
		Addr:         s.cfg.Addr(),
		Handler:      s.RegisterRoutes(),
		IdleTimeout:  time.Minute,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
	}
}

// RegisterRoutes sets up all application routes
func (s *Server) RegisterRoutes() *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(logging.Gin(s.logger))
	r.MaxMultipartMemory = upload.MaxFileSize + 1<<20

	r.Use(cors.New(cors.Config{
		AllowOrigins:     s.cfg.AllowedOrigins,
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS", "PATCH"},
		AllowHeaders:     []string{"Accept", "Authorization", "Content-Type", "X-Requested-With"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))

	r.GET("/health", s.health)
	r.GET("/metrics", gin.WrapH(promhttp.HandlerFor(s.metrics.Registry, promhttp.HandlerOpts{})))

	h := s.handler
	api := r.Group("/api")
	{
		auth := api.Group("/auth")
		auth.POST("/signup", h.Auth.Signup)
		auth.POST("/login", h.Auth.Login)
		auth.POST("/logout", h.Auth.Logout)
		auth.GET("/check-user", s.auth.AuthMiddleware(), h.Auth.CheckUser)
		auth.GET("/users", s.auth.AuthMiddleware(), middleware.RequireAdmin(s.db.GetDB()), h.Auth.ListUsers)

		// Public reads report the viewer's own vote when a session is present
		public := api.Group("")
		public.Use(s.auth.OptionalAuth())
		{
			public.GET("/posts", h.Post.GetPosts)
			public.GET("/posts/:id", h.Post.GetPost)
			public.GET("/posts/user/:userId", h.Post.GetUserPosts)
			public.GET("/comments/post/:postId", h.Comment.GetComments)
			public.GET("/users/:id", h.User.GetUserProfile)
			public.GET("/leaderboard", h.Leaderboard.TopUsers)
		}

		// Protected routes (authentication required)
		protected := api.Group("")
		protected.Use(s.auth.AuthMiddleware())
		{
			protected.PUT("/users/me", h.User.UpdateMe)
			protected.POST("/users/me/avatar", h.User.UploadAvatar)

			protected.POST("/posts", h.Post.CreatePost)
			protected.PUT("/posts/:id", h.Post.UpdatePost)
			protected.DELETE("/posts/:id", h.Post.DeletePost)
			protected.POST("/posts/:id/vote", h.Post.VotePost)

			protected.POST("/comments/post/:postId", h.Comment.CreateComment)
			protected.PUT("/comments/:id", h.Comment.UpdateComment)
			protected.DELETE("/comments/:id", h.Comment.DeleteComment)
			protected.POST("/comments/:id/vote", h.Comment.VoteComment)

			protected.POST("/content/generate", h.Content.Generate)
			protected.POST("/content/suggestions", h.Content.Suggestions)
		}
	}

	return r
}

func (s *Server) health(c *gin.Context) {
	db := s.db.Health(c.Request.Context())
	status := http.StatusOK
	if db["status"] != "up" {
		status = http.StatusServiceUnavailable
	}
	c.JSON(status, gin.H{"status": db["status"], "database": db})
}
